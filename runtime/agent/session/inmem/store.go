// Package inmem provides an in-memory implementation of session.Store.
//
// It is intended for tests and local development; SessionContext snapshots
// do not survive a process restart.
package inmem

import (
	"context"
	"sync"

	"github.com/sdlc-agents/orchestrator/runtime/agent/session"
)

// Store is an in-memory implementation of session.Store. Safe for concurrent
// use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session.SessionContext
}

// New returns an empty Store.
func New() *Store {
	return &Store{sessions: make(map[string]*session.SessionContext)}
}

// Save stores (or overwrites) a snapshot of sc. The stored value is not sc
// itself — callers mutating sc after Save do not affect the stored snapshot.
func (s *Store) Save(_ context.Context, sc *session.SessionContext) error {
	snapshot := session.Snapshot(sc)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sc.SessionID] = snapshot
	return nil
}

// Load retrieves the snapshot for sessionID. Returns session.ErrSessionNotFound
// if absent.
func (s *Store) Load(_ context.Context, sessionID string) (*session.SessionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.sessions[sessionID]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return session.Snapshot(sc), nil
}

// Delete removes a session snapshot. Deleting an absent session is a no-op.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
