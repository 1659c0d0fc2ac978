package session

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Turn is one completed pipeline run seen from the conversation: what the
// user asked and a short summary of the outcome. History is the only memory
// fed back into generation.
type Turn struct {
	Input   string
	Summary string
	At      time.Time
}

// Session is the unit of conversational continuity and "current scene" state.
type Session struct {
	ID                string
	History           []Turn
	CurrentArtifactID string
}

// Store keeps per-session conversational memory in process. Memory lifetime
// is process lifetime; losing it on restart is acceptable.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (s *Store) getOrCreateLocked(sessionID string) *Session {
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}
	sess := &Session{ID: sessionID}
	s.sessions[sessionID] = sess
	return sess
}

// Get returns a snapshot of the session, creating it on first use.
func (s *Store) Get(sessionID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(sessionID)
	out := Session{ID: sess.ID, CurrentArtifactID: sess.CurrentArtifactID}
	out.History = append(out.History, sess.History...)
	return out
}

// History returns a copy of the session's turn history.
func (s *Store) History(sessionID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(sessionID)
	return append([]Turn(nil), sess.History...)
}

// RecordTurn appends one completed run to the session history. It is the
// only mutator of history and must be called exactly once per run, success
// or failure.
func (s *Store) RecordTurn(sessionID, input, summary string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(sessionID)
	sess.History = append(sess.History, Turn{Input: input, Summary: summary, At: time.Now()})
	return nil
}

// SetCurrentArtifact updates the session's "current scene" reference.
// Called only on a delivered run; failed runs leave the reference untouched.
func (s *Store) SetCurrentArtifact(sessionID, artifactID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(sessionID)
	sess.CurrentArtifactID = artifactID
}

// CurrentArtifactID returns the session's current artifact reference, empty
// before the first successful delivery.
func (s *Store) CurrentArtifactID(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(sessionID).CurrentArtifactID
}

// Drop removes a session outright. Used when a connection's session should
// not outlive it.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
