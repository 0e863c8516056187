// Package memory is the in-process SessionStore, used by default and by
// the tests. Documents are deep-copied on the way in and out so callers
// never alias stored state, matching the semantics of a remote store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/lanbix/live-interview/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[domain.SessionID]*domain.Session)}
}

func (s *Store) Find(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *Store) Create(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Save replaces the whole document.
func (s *Store) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}
