package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

// Engine owns every mutation of the session store: joins, leaves, media
// updates, ready signals and disconnect cleanup. All mutations of one
// session are serialized behind a per-session mutex.
type Engine struct {
	store core.SessionStore
	reg   *core.Registry
	bc    *Broadcaster
	locks *keyedMutex

	// AutoCreate creates an open-roster session on the first join to an
	// unknown session ID. Interview sessions are always created up front
	// by the scheduling service, never here.
	AutoCreate bool

	// Now is the clock; replaced in tests.
	Now func() time.Time
}

func NewEngine(store core.SessionStore, reg *core.Registry, bc *Broadcaster) *Engine {
	return &Engine{
		store: store,
		reg:   reg,
		bc:    bc,
		locks: newKeyedMutex(),
		Now:   time.Now,
	}
}

// JoinInput carries the four required join fields.
type JoinInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Name      string
	Role      domain.Role
}

// Join registers the participant, evaluates the activation transition and
// broadcasts the updated state. The returned session backs the joined-ack
// sent to the new connection.
func (e *Engine) Join(ctx context.Context, conn core.ConnID, in JoinInput) (*domain.Session, error) {
	if in.SessionID == "" || in.UserID == "" || in.Name == "" || in.Role == "" {
		return nil, fmt.Errorf("%w: sessionId, userId, name and role are required", domain.ErrValidation)
	}

	unlock := e.locks.lock(in.SessionID)
	defer unlock()

	s, err := e.load(ctx, in.SessionID)
	if errors.Is(err, domain.ErrNotFound) && e.AutoCreate {
		s = domain.NewSession(in.SessionID, domain.VariantRoom, e.Now())
		if cerr := e.store.Create(ctx, s); cerr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStore, cerr)
		}
		err = nil
	}
	if err != nil {
		return nil, err
	}

	p, err := domain.PolicyFor(s.Variant).Admit(s, in.UserID, in.Name, in.Role)
	if err != nil {
		return nil, err
	}

	// Bind only once the join is known to succeed; a rejected join must not
	// claim the connection for the rejected user.
	if err := e.reg.Bind(conn, in.UserID); err != nil {
		return nil, err
	}

	now := e.Now()
	p.Status = domain.PresenceJoined
	p.JoinedAt = &now
	p.LastActive = now
	p.ResetMedia()

	// Idempotent: only fires while still scheduled, a duplicate join
	// cannot re-activate.
	if s.Status == domain.StatusScheduled && domain.PolicyFor(s.Variant).Activates(s) {
		s.Status = domain.StatusActive
		s.StartedAt = &now
		log.Info().Str("module", "app.presence").Str("session", string(s.ID)).Msg("session activated")
	}

	if err := e.save(ctx, s); err != nil {
		return nil, err
	}
	e.reg.JoinSession(conn, s.ID)

	e.bc.ToOthers(s.ID, in.UserID, participantJoined{
		Type: EvtParticipantJoined, UserID: p.UserID, Name: p.Name, Role: p.Role, JoinedAt: now,
	})
	e.bc.ToRoom(s.ID, sessionUpdate{Type: EvtSessionUpdate, Session: SnapshotOf(s)})

	log.Info().Str("module", "app.presence").Str("session", string(s.ID)).
		Str("user", string(in.UserID)).Str("role", string(in.Role)).Msg("participant joined")
	return s, nil
}

// Leave stamps the leave time, evaluates the completion transition and
// broadcasts the updated state. A second leave for the same participant is
// a no-op.
func (e *Engine) Leave(ctx context.Context, conn core.ConnID, sid domain.SessionID, uid domain.UserID, role domain.Role) (*domain.Session, error) {
	unlock := e.locks.lock(sid)
	defer unlock()

	s, err := e.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	p, ok := s.Participant(uid)
	if !ok {
		return nil, fmt.Errorf("%w: %s never joined %s", domain.ErrUnauthorized, uid, sid)
	}
	e.reg.LeaveSession(conn, sid)

	if p.Status == domain.PresenceLeft {
		return s, nil
	}

	now := e.Now()
	p.Status = domain.PresenceLeft
	p.LeftAt = &now

	if s.Status == domain.StatusActive && domain.PolicyFor(s.Variant).Completes(s) {
		e.complete(s, now)
	}

	if err := e.save(ctx, s); err != nil {
		return nil, err
	}

	e.bc.ToOthers(s.ID, uid, participantLeft{
		Type: EvtParticipantLeft, UserID: uid, Role: role, LeftAt: now,
	})
	e.bc.ToRoom(s.ID, sessionUpdate{Type: EvtSessionUpdate, Session: SnapshotOf(s)})

	log.Info().Str("module", "app.presence").Str("session", string(sid)).
		Str("user", string(uid)).Msg("participant left")
	return s, nil
}

// UpdateMedia applies a media-status change and notifies the other members.
// When video flips on, a dedicated ready signal additionally nudges the
// others to start connection setup.
func (e *Engine) UpdateMedia(ctx context.Context, sid domain.SessionID, uid domain.UserID, audio, video bool) error {
	unlock := e.locks.lock(sid)
	defer unlock()

	s, err := e.load(ctx, sid)
	if err != nil {
		return err
	}
	p, ok := s.Participant(uid)
	if !ok {
		return fmt.Errorf("%w: media update from non-participant %s", domain.ErrUnauthorized, uid)
	}

	hadVideo := p.VideoEnabled
	p.SetMedia(audio, video)
	p.LastActive = e.Now()

	if err := e.save(ctx, s); err != nil {
		return err
	}

	e.bc.ToOthers(sid, uid, mediaStatusUpdate{
		Type: EvtMediaStatusUpdate, UserID: uid,
		AudioEnabled: audio, VideoEnabled: video, MediaReady: p.MediaReady,
	})
	if video && !hadVideo {
		e.bc.ToOthers(sid, uid, participantReady{
			Type: EvtParticipantReady, SessionID: sid, UserID: uid, Role: p.Role,
		})
	}
	return nil
}

// MarkReady is the explicit ready signal, independent of media flags.
func (e *Engine) MarkReady(ctx context.Context, sid domain.SessionID, uid domain.UserID) error {
	unlock := e.locks.lock(sid)
	defer unlock()

	s, err := e.load(ctx, sid)
	if err != nil {
		return err
	}
	p, ok := s.Participant(uid)
	if !ok {
		return fmt.Errorf("%w: ready signal from non-participant %s", domain.ErrUnauthorized, uid)
	}

	p.MediaReady = true
	p.LastActive = e.Now()

	if err := e.save(ctx, s); err != nil {
		return err
	}

	e.bc.ToOthers(sid, uid, participantReady{
		Type: EvtParticipantReady, SessionID: sid, UserID: uid, Role: p.Role,
	})
	return nil
}

// Disconnect handles an abrupt connection loss: the registry yields the
// bound identity and joined sessions, and the participant is marked
// disconnected in each of them. Only an explicit leave drives completion.
// Cleanup is best effort per session.
func (e *Engine) Disconnect(ctx context.Context, conn core.ConnID) {
	uid, sids := e.reg.Remove(conn)
	if uid == "" || len(sids) == 0 {
		return
	}
	for _, sid := range sids {
		if err := e.markDisconnected(ctx, sid, uid); err != nil {
			log.Warn().Err(err).Str("module", "app.presence").
				Str("session", string(sid)).Str("user", string(uid)).Msg("disconnect cleanup")
		}
	}
}

func (e *Engine) markDisconnected(ctx context.Context, sid domain.SessionID, uid domain.UserID) error {
	unlock := e.locks.lock(sid)
	defer unlock()

	s, err := e.load(ctx, sid)
	if err != nil {
		return err
	}
	p, ok := s.Participant(uid)
	if !ok {
		return nil
	}
	if p.Status == domain.PresenceJoined {
		now := e.Now()
		p.Status = domain.PresenceDisconnected
		p.LeftAt = &now
		if err := e.save(ctx, s); err != nil {
			return err
		}
	}
	e.bc.ToRoom(sid, sessionUpdate{Type: EvtSessionUpdate, Session: SnapshotOf(s)})
	return nil
}

// Shutdown marks every session that still has live members and is active
// as completed. Called once during graceful process shutdown.
func (e *Engine) Shutdown(ctx context.Context) {
	for _, sid := range e.reg.Sessions() {
		unlock := e.locks.lock(sid)
		s, err := e.load(ctx, sid)
		if err == nil && s.Status == domain.StatusActive {
			e.complete(s, e.Now())
			err = e.save(ctx, s)
		}
		unlock()
		if err != nil {
			log.Warn().Err(err).Str("module", "app.presence").
				Str("session", string(sid)).Msg("shutdown completion")
		}
	}
}

func (e *Engine) complete(s *domain.Session, now time.Time) {
	s.Status = domain.StatusCompleted
	s.EndedAt = &now
	if s.StartedAt != nil {
		s.DurationMin = int(now.Sub(*s.StartedAt) / time.Minute)
	}
	log.Info().Str("module", "app.presence").Str("session", string(s.ID)).
		Int("duration_min", s.DurationMin).Msg("session completed")
}

func (e *Engine) load(ctx context.Context, sid domain.SessionID) (*domain.Session, error) {
	s, err := e.store.Find(ctx, sid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sid)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return s, nil
}

func (e *Engine) save(ctx context.Context, s *domain.Session) error {
	if err := e.store.Save(ctx, s); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}
