package artifact

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ssRhy/LTS/internal/scene"
)

// Store is the in-process artifact register. Append-only: artifacts are
// superseded by newer ones, never deleted mid-session, and the ParentID
// chain is the audit trail of revisions.
type Store struct {
	mu   sync.RWMutex
	byID map[string]*scene.Artifact
}

func NewStore() *Store {
	return &Store{byID: make(map[string]*scene.Artifact)}
}

// Put registers a new artifact. IDs are write-once.
func (s *Store) Put(a *scene.Artifact) error {
	if a == nil || strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("artifact id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; ok {
		return fmt.Errorf("artifact %s already exists", a.ID)
	}
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

// Get returns a copy of the artifact.
func (s *Store) Get(id string) (scene.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return scene.Artifact{}, false
	}
	return *a, true
}

// AttachValidation records the validation outcome on the artifact it was
// computed from. This is the only mutation an artifact ever sees; attaching
// twice is a programming error and is rejected.
func (s *Store) AttachValidation(id string, vr scene.ValidationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("artifact %s not found", id)
	}
	if a.Validation != nil {
		return fmt.Errorf("artifact %s already validated", id)
	}
	cp := vr
	cp.MissingElements = append([]string(nil), vr.MissingElements...)
	a.Validation = &cp
	return nil
}

// Chain walks the revision chain from id back to the first attempt,
// newest first.
func (s *Store) Chain(id string) []scene.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scene.Artifact
	for id != "" {
		a, ok := s.byID[id]
		if !ok {
			break
		}
		out = append(out, *a)
		id = a.ParentID
	}
	return out
}

// Len reports how many artifacts have been registered.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
