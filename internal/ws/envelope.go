package ws

import "encoding/json"

// Inbound message types.
const (
	inboundUserPrompt   = "user_prompt"
	inboundUserInput    = "user_input" // accepted alias for user_prompt
	inboundToolResponse = "tool_response"
)

// Inbound is the client → server message envelope: one JSON object per
// frame, discriminated by Type.
type Inbound struct {
	Type      string          `json:"type"`
	Content   string          `json:"content,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}
