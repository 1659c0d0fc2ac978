package retrieval

import (
	"context"
	"math"
	"sort"
	"sync"
)

type memoryEntry struct {
	vec []float32
	ex  Example
}

// MemoryIndex is the default in-process index: an append-only slice ranked
// by cosine similarity at query time. Good enough for single-tenant
// deployments; the pgvector index covers everything else.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []memoryEntry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) Add(_ context.Context, vec []float32, ex Example) error {
	cp := append([]float32(nil), vec...)
	m.mu.Lock()
	m.entries = append(m.entries, memoryEntry{vec: cp, ex: ex})
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, vec []float32, k int) ([]Example, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type scored struct {
		score float64
		ex    Example
	}
	ranked := make([]scored, 0, len(m.entries))
	for _, e := range m.entries {
		ranked = append(ranked, scored{score: cosine(vec, e.vec), ex: e.ex})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]Example, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, r.ex)
	}
	return out, nil
}

// Len reports the number of indexed examples.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
