// Package scene holds the domain model for Three.js scene generation:
// requests, generated artifacts, and the structural validation that gates
// delivery.
package scene

import "time"

// Request is a single natural-language scene request from a client.
type Request struct {
	ID         string
	SessionID  string
	Text       string
	ReceivedAt time.Time
}

// Artifact is one generated scene-code candidate. Artifacts are immutable
// once stored except for the one-time attachment of a validation result.
// ParentID links a revision to the artifact whose feedback produced it.
type Artifact struct {
	ID              string
	Code            string
	SourceRequestID string
	ParentID        string
	CreatedAt       time.Time
	Validation      *ValidationResult
}

// ValidationResult reports whether generated code contains every required
// scene element, and which ones it lacks.
type ValidationResult struct {
	Passed          bool
	MissingElements []string
	Message         string
}
