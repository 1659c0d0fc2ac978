package pipeline

// Event types on the server → client wire.
const (
	EventConnectionStatus  = "connection_status"
	EventWorkflowStarted   = "workflow_started"
	EventThinking          = "ai_thinking"
	EventGenerationStarted = "generation_started"
	EventCodeGenerated     = "code_generated"
	EventValidationResult  = "validation_result"
	EventExecute           = "execute"
	EventWorkflowCompleted = "workflow_completed"
	EventError             = "error"
)

// Pipeline stages as reported in workflow_started events.
const (
	StageAnalysis   = "analysis"
	StageGeneration = "generation"
	StageValidation = "validation"
	StageRevision   = "revision"
	StageDelivery   = "delivery"
)

// Terminal run results.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Event is one serialized pipeline frame. A single flat shape with omitempty
// keeps every event independently parseable on the client.
type Event struct {
	Type        string `json:"type"`
	Status      string `json:"status,omitempty"`
	Stage       string `json:"stage,omitempty"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code,omitempty"`
	RequestID   string `json:"requestId,omitempty"`
	IsValid     *bool  `json:"isValid,omitempty"`
	Result      string `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Emitter delivers events for one session's connection(s). Implementations
// must preserve per-connection FIFO ordering and never block the caller
// indefinitely.
type Emitter interface {
	Emit(sessionID string, ev Event)
}

func boolPtr(b bool) *bool { return &b }
