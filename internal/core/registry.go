package core

import (
	"fmt"
	"sync"

	"github.com/lanbix/live-interview/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	sender   Sender
	user     domain.UserID
	sessions map[domain.SessionID]struct{}
}

// MemberSnap is a point-in-time view of one connection in a session.
type MemberSnap struct {
	Conn   ConnID
	User   domain.UserID
	Sender Sender
}

// Registry maps live connections to the user identity and sessions they
// belong to. The user binding is set once, on the first join, and kept
// until the connection dies, so disconnect cleanup always knows which
// participant the connection represented. In-process only; a multi-node
// deployment would put the same interface over a shared store.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnID]*connEntry
	// byUser indexes (session, user) -> connection for targeted delivery.
	byUser map[domain.SessionID]map[domain.UserID]ConnID
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[ConnID]*connEntry),
		byUser: make(map[domain.SessionID]map[domain.UserID]ConnID),
	}
}

// Add registers a freshly upgraded connection with no identity yet.
func (r *Registry) Add(id ConnID, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{sender: s, sessions: make(map[domain.SessionID]struct{})}
	log.Debug().Str("module", "core.registry").Str("conn", string(id)).Msg("connection added")
}

// Bind attaches a user identity to the connection. The first bind wins;
// a later bind for a different user is rejected.
func (r *Registry) Bind(id ConnID, user domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return fmt.Errorf("%w: unknown connection %s", domain.ErrNotFound, id)
	}
	if e.user != "" && e.user != user {
		return fmt.Errorf("%w: connection is bound to another user", domain.ErrUnauthorized)
	}
	e.user = user
	return nil
}

// UserOf returns the identity bound to the connection, if any.
func (r *Registry) UserOf(id ConnID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.user == "" {
		return "", false
	}
	return e.user, true
}

// JoinSession records session membership for a bound connection.
func (r *Registry) JoinSession(id ConnID, sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok || e.user == "" {
		return
	}
	e.sessions[sid] = struct{}{}
	users, ok := r.byUser[sid]
	if !ok {
		users = make(map[domain.UserID]ConnID)
		r.byUser[sid] = users
	}
	users[e.user] = id
	log.Info().Str("module", "core.registry").Str("conn", string(id)).
		Str("session", string(sid)).Str("user", string(e.user)).Msg("joined session")
}

// LeaveSession drops session membership but keeps the connection alive.
func (r *Registry) LeaveSession(id ConnID, sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return
	}
	delete(e.sessions, sid)
	if users, ok := r.byUser[sid]; ok && users[e.user] == id {
		delete(users, e.user)
		if len(users) == 0 {
			delete(r.byUser, sid)
		}
	}
}

// Lookup resolves the live connection of a user within a session.
func (r *Registry) Lookup(sid domain.SessionID, user domain.UserID) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users, ok := r.byUser[sid]
	if !ok {
		return nil, false
	}
	id, ok := users[user]
	if !ok {
		return nil, false
	}
	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return e.sender, true
}

// MembersOf snapshots every connection currently joined to the session.
func (r *Registry) MembersOf(sid domain.SessionID) []MemberSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users, ok := r.byUser[sid]
	if !ok {
		return nil
	}
	out := make([]MemberSnap, 0, len(users))
	for user, id := range users {
		if e, ok := r.conns[id]; ok {
			out = append(out, MemberSnap{Conn: id, User: user, Sender: e.sender})
		}
	}
	return out
}

// Sessions lists every session with at least one live member.
func (r *Registry) Sessions() []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SessionID, 0, len(r.byUser))
	for sid := range r.byUser {
		out = append(out, sid)
	}
	return out
}

// Remove destroys the connection entry and reports the identity it was
// bound to plus the sessions that need disconnect cleanup. A session where
// a newer connection of the same user has taken over the mapping is not
// reported: the user is still live there and the stale connection has no
// claim left.
func (r *Registry) Remove(id ConnID) (domain.UserID, []domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return "", nil
	}
	delete(r.conns, id)
	sids := make([]domain.SessionID, 0, len(e.sessions))
	for sid := range e.sessions {
		users, ok := r.byUser[sid]
		if !ok || users[e.user] != id {
			continue
		}
		sids = append(sids, sid)
		delete(users, e.user)
		if len(users) == 0 {
			delete(r.byUser, sid)
		}
	}
	log.Info().Str("module", "core.registry").Str("conn", string(id)).
		Str("user", string(e.user)).Int("sessions", len(sids)).Msg("connection removed")
	return e.user, sids
}
