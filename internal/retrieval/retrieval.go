// Package retrieval provides nearest-neighbor lookup over past
// (prompt, code) pairs to bias generation. The capability is advisory:
// every failure degrades to "no similar examples" and is never surfaced
// to the pipeline as an error.
package retrieval

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ssRhy/LTS/internal/llm"
)

// Example is one indexed (prompt, code) pair.
type Example struct {
	ID        string
	Prompt    string
	Code      string
	CreatedAt time.Time
}

// Index is the append-only vector index behind the service. Entries are
// never mutated, so concurrent append and read need no coordination beyond
// the implementation's own guard.
type Index interface {
	Add(ctx context.Context, vec []float32, ex Example) error
	Search(ctx context.Context, vec []float32, k int) ([]Example, error)
}

// Service embeds prompts and delegates to the configured index. The
// embedding cache avoids re-embedding the same prompt when a query is
// immediately followed by an index of the delivered artifact.
type Service struct {
	embedder llm.Embedder
	index    Index
	cache    *lru.Cache[string, []float32]
}

func New(embedder llm.Embedder, index Index) (*Service, error) {
	cache, err := lru.New[string, []float32](512)
	if err != nil {
		return nil, err
	}
	return &Service{embedder: embedder, index: index, cache: cache}, nil
}

// NewFromEnv picks the Postgres/pgvector index when a DSN is configured and
// reachable, and falls back to the in-memory index otherwise.
func NewFromEnv(embedder llm.Embedder, dsn string, dim int) (*Service, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return New(embedder, NewMemoryIndex())
	}
	idx, err := NewPGIndex(dsn, dim)
	if err != nil {
		log.Printf("retrieval: pgvector index unavailable, using memory index: %v", err)
		return New(embedder, NewMemoryIndex())
	}
	return New(embedder, idx)
}

func (s *Service) embed(ctx context.Context, prompt string) ([]float32, bool) {
	if vec, ok := s.cache.Get(prompt); ok {
		return vec, true
	}
	vec, err := s.embedder.Embed(ctx, prompt)
	if err != nil || len(vec) == 0 {
		if err != nil {
			log.Printf("retrieval: embed failed: %v", err)
		}
		return nil, false
	}
	s.cache.Add(prompt, vec)
	return vec, true
}

// IndexArtifact records a delivered (prompt, code) pair. Best effort.
func (s *Service) IndexArtifact(ctx context.Context, prompt, code string) {
	if s == nil || strings.TrimSpace(prompt) == "" || strings.TrimSpace(code) == "" {
		return
	}
	vec, ok := s.embed(ctx, prompt)
	if !ok {
		return
	}
	ex := Example{ID: uuid.NewString(), Prompt: prompt, Code: code, CreatedAt: time.Now()}
	if err := s.index.Add(ctx, vec, ex); err != nil {
		log.Printf("retrieval: index add failed: %v", err)
	}
}

// Query returns up to k similar past examples, nil when the capability is
// unavailable or the index is empty.
func (s *Service) Query(ctx context.Context, prompt string, k int) []Example {
	if s == nil || k <= 0 {
		return nil
	}
	vec, ok := s.embed(ctx, prompt)
	if !ok {
		return nil
	}
	out, err := s.index.Search(ctx, vec, k)
	if err != nil {
		log.Printf("retrieval: search failed: %v", err)
		return nil
	}
	return out
}
