package ws

import (
	"encoding/json"
	"log"

	"github.com/ssRhy/LTS/internal/pipeline"
)

// Adapter is the delivery adapter between the pipeline and the transport.
// It implements pipeline.Emitter and, for execute instructions, registers
// the pending tool_response callback so the client's execution outcome is
// picked up when it arrives.
type Adapter struct {
	hub *Hub
}

func NewAdapter(hub *Hub) *Adapter {
	return &Adapter{hub: hub}
}

func (a *Adapter) Emit(sessionID string, ev pipeline.Event) {
	if ev.Type == pipeline.EventExecute && ev.RequestID != "" {
		reqID := ev.RequestID
		a.hub.RegisterCallback(reqID, func(result json.RawMessage) {
			log.Printf("ws %s execution result for request %s: %s", sessionID, reqID, string(result))
		})
	}
	a.hub.SendTo(sessionID, ev)
}
