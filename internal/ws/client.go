package ws

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ssRhy/LTS/internal/pipeline"
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 32
)

// conn is the slice of *websocket.Conn the hub needs; tests substitute a
// fake.
type conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Client is one tracked connection. Each client owns a buffered send queue
// drained by a single writer goroutine, which guarantees per-connection
// FIFO delivery.
type Client struct {
	sessionID string
	conn      conn
	send      chan pipeline.Event
	alive     atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(sessionID string, c conn) *Client {
	cl := &Client{
		sessionID: sessionID,
		conn:      c,
		send:      make(chan pipeline.Event, sendQueueSize),
		done:      make(chan struct{}),
	}
	cl.alive.Store(true)
	return cl
}

// SessionID identifies the session bound to this connection.
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// push enqueues without blocking; when the queue is full the oldest frame is
// dropped so a stalled client cannot back up the pipeline.
func (c *Client) push(ev pipeline.Event) {
	select {
	case c.send <- ev:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- ev:
	default:
	}
}

// writePump drains the send queue to the socket. Any write failure ends the
// pump; the reader notices the closed connection and unregisters.
func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("ws %s marshal event failed: %v", c.sessionID, err)
				continue
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
			if err := c.conn.WriteMessage(textMessage, data); err != nil {
				c.close()
				return
			}
		}
	}
}
