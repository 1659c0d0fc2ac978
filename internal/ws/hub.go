// Package ws owns the websocket transport: connection tracking, the
// liveness sweep, inbound envelope dispatch, and delivery of pipeline
// events to clients.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ssRhy/LTS/internal/pipeline"
	"github.com/ssRhy/LTS/internal/scene"
)

const (
	textMessage = websocket.TextMessage

	defaultSweepEvery = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// PromptHandler runs one pipeline for an inbound scene request.
type PromptHandler interface {
	HandlePrompt(ctx context.Context, req scene.Request) error
}

// Hub tracks live connections, sweeps dead ones, and routes pipeline events
// to the client bound to each session. One connection carries exactly one
// session.
type Hub struct {
	handler    PromptHandler
	sweepEvery time.Duration

	mu        sync.Mutex
	clients   map[*Client]struct{}
	bySession map[string]*Client
	pending   map[string]func(json.RawMessage)

	stop     chan struct{}
	stopOnce sync.Once
}

func NewHub(handler PromptHandler) *Hub {
	return &Hub{
		handler:    handler,
		sweepEvery: defaultSweepEvery,
		clients:    make(map[*Client]struct{}),
		bySession:  make(map[string]*Client),
		pending:    make(map[string]func(json.RawMessage)),
		stop:       make(chan struct{}),
	}
}

// SetHandler binds the prompt handler. Must be called before Start; frames
// arriving with no handler bound get a local error event.
func (h *Hub) SetHandler(handler PromptHandler) {
	h.handler = handler
}

// Start launches the periodic liveness sweep.
func (h *Hub) Start() {
	go h.sweepLoop()
}

// Stop ends the sweep and closes every tracked connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.drop(c)
	}
}

// HandleWS upgrades the request and services the connection until it drops.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := h.register(newClient(uuid.NewString(), wsConn))
	go c.writePump()

	c.push(pipeline.Event{
		Type:    pipeline.EventConnectionStatus,
		Status:  "connected",
		Message: "session " + c.sessionID,
	})

	h.readLoop(c)
}

func (h *Hub) register(c *Client) *Client {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.bySession[c.sessionID] = c
	h.mu.Unlock()
	log.Printf("ws %s connected", c.sessionID)
	return c
}

// drop closes the connection and removes it from the active set. Safe to
// call more than once for the same client.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	_, tracked := h.clients[c]
	delete(h.clients, c)
	if h.bySession[c.sessionID] == c {
		delete(h.bySession, c.sessionID)
	}
	h.mu.Unlock()
	c.close()
	if tracked {
		log.Printf("ws %s disconnected", c.sessionID)
	}
}

func (h *Hub) readLoop(c *Client) {
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			h.drop(c)
			return
		}
		c.alive.Store(true)
		h.dispatch(c, data)
	}
}

// dispatch handles one inbound frame. Malformed payloads produce a local
// error event back to the sender and are otherwise dropped; nothing here
// may take the hub down.
func (h *Hub) dispatch(c *Client, data []byte) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.push(pipeline.Event{Type: pipeline.EventError, Message: "malformed message: " + err.Error()})
		return
	}
	switch strings.ToLower(strings.TrimSpace(in.Type)) {
	case inboundUserPrompt, inboundUserInput:
		text := strings.TrimSpace(in.Content)
		if text == "" {
			c.push(pipeline.Event{Type: pipeline.EventError, Message: "content is required"})
			return
		}
		if h.handler == nil {
			c.push(pipeline.Event{Type: pipeline.EventError, Message: "gateway is not ready"})
			return
		}
		req := scene.Request{
			ID:         uuid.NewString(),
			SessionID:  c.sessionID,
			Text:       text,
			ReceivedAt: time.Now(),
		}
		// The run is detached from the connection's lifetime: a client
		// that disconnects mid-run lets the run complete and simply
		// misses the delivery.
		go func() {
			if err := h.handler.HandlePrompt(context.Background(), req); errors.Is(err, pipeline.ErrBusy) {
				c.push(pipeline.Event{Type: pipeline.EventError, Message: "a request is already being processed for this session"})
			}
		}()
	case inboundToolResponse:
		h.resolve(strings.TrimSpace(in.RequestID), in.Result)
	case "":
		c.push(pipeline.Event{Type: pipeline.EventError, Message: "type is required"})
	default:
		c.push(pipeline.Event{Type: pipeline.EventError, Message: "unsupported type: " + in.Type})
	}
}

// SendTo delivers one event to the session's connection. Unknown sessions
// are a no-op: a client that disconnected mid-run simply misses the rest of
// the run.
func (h *Hub) SendTo(sessionID string, ev pipeline.Event) {
	h.mu.Lock()
	c := h.bySession[sessionID]
	h.mu.Unlock()
	if c == nil {
		log.Printf("ws %s not connected, dropping %s event", sessionID, ev.Type)
		return
	}
	c.push(ev)
}

// Broadcast delivers one event to every tracked connection.
func (h *Hub) Broadcast(ev pipeline.Event) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.push(ev)
	}
}

// RegisterCallback stores a pending tool_response callback keyed by request
// id. The server never blocks on the response; the callback fires whenever
// the matching frame arrives.
func (h *Hub) RegisterCallback(requestID string, fn func(json.RawMessage)) {
	if strings.TrimSpace(requestID) == "" || fn == nil {
		return
	}
	h.mu.Lock()
	h.pending[requestID] = fn
	h.mu.Unlock()
}

func (h *Hub) resolve(requestID string, result json.RawMessage) {
	if requestID == "" {
		return
	}
	h.mu.Lock()
	fn := h.pending[requestID]
	delete(h.pending, requestID)
	h.mu.Unlock()
	if fn == nil {
		log.Printf("ws: tool_response for unknown request %s", requestID)
		return
	}
	fn(result)
}

func (h *Hub) sweepLoop() {
	ticker := time.NewTicker(h.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// sweep evicts every connection that never answered the previous pass's
// ping, then challenges the survivors. A connection must answer within one
// full sweep interval or it is gone.
func (h *Hub) sweep() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if !c.alive.Load() {
			log.Printf("ws %s failed liveness check, evicting", c.sessionID)
			h.drop(c)
			continue
		}
		c.alive.Store(false)
		if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			log.Printf("ws %s ping failed: %v", c.sessionID, err)
			h.drop(c)
		}
	}
}

// ClientCount reports the number of tracked connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
