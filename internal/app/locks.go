package app

import (
	"sync"

	"github.com/lanbix/live-interview/internal/domain"
)

// keyedMutex serializes every load-mutate-save cycle on one session, so two
// concurrent events for the same session can never interleave their writes.
// Entries are kept for the process lifetime; sessions are never deleted.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.SessionID]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[domain.SessionID]*sync.Mutex)}
}

// lock acquires the session's mutex and returns its unlock func.
func (k *keyedMutex) lock(id domain.SessionID) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
