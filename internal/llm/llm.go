package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the model produced no usable text.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// Client is the opaque text-in/text-out model call. Implementations may be
// slow and may fail; callers own timeouts via ctx.
type Client interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Embedder turns text into an embedding vector. Used only by the similarity
// retrieval layer; failures there must degrade, never propagate.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}
