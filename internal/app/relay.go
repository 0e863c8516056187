package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

// SignalKind discriminates the three WebRTC negotiation messages.
type SignalKind string

const (
	SignalOffer  SignalKind = "offer"
	SignalAnswer SignalKind = "answer"
	SignalICE    SignalKind = "ice-candidate"
)

// EventName returns the wire event the kind is forwarded as.
func (k SignalKind) EventName() string {
	if k == SignalICE {
		return "signal-ice"
	}
	return "signal-" + string(k)
}

// SignalPayload carries exactly one of a session description or an ICE
// candidate, depending on the kind. The server validates the shape and
// relays it opaquely; no media or SDP interpretation happens here.
type SignalPayload struct {
	Description *webrtc.SessionDescription
	Candidate   *webrtc.ICECandidateInit
}

// Relay forwards signaling messages between session participants. It is
// fire-and-forget: no payload is persisted and no delivery is acknowledged.
type Relay struct {
	store core.SessionStore
	reg   *core.Registry
	bc    *Broadcaster
}

func NewRelay(store core.SessionStore, reg *core.Registry, bc *Broadcaster) *Relay {
	return &Relay{store: store, reg: reg, bc: bc}
}

// Relay checks, in order: the session exists, the sender is a currently
// joined participant, and the payload has the minimal shape for its kind.
// It then delivers to the target's live connection, or falls back to
// broadcasting to every other member: a wrong recipient safely ignores
// the message, a dropped one would stall the negotiation.
func (r *Relay) Relay(ctx context.Context, kind SignalKind, sid domain.SessionID, from, target domain.UserID, p SignalPayload) error {
	s, err := r.store.Find(ctx, sid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: session %s", domain.ErrNotFound, sid)
		}
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}

	sender, ok := s.Participant(from)
	if !ok || sender.Status != domain.PresenceJoined {
		return fmt.Errorf("%w: signaling from %s", domain.ErrUnauthorized, from)
	}

	if err := p.check(kind); err != nil {
		return err
	}

	out := signalForward{
		Type:         kind.EventName(),
		SessionID:    sid,
		SenderUserID: from,
		Description:  p.Description,
		Candidate:    p.Candidate,
	}

	if dst, ok := r.reg.Lookup(sid, target); ok {
		r.bc.To(dst, out)
		log.Debug().Str("module", "app.relay").Str("kind", string(kind)).
			Str("from", string(from)).Str("to", string(target)).Msg("signal forwarded")
		return nil
	}

	// Target not mapped (e.g. a join/signal race): deliver to everyone
	// else rather than dropping the message.
	r.bc.ToOthers(sid, from, out)
	log.Debug().Str("module", "app.relay").Str("kind", string(kind)).
		Str("from", string(from)).Str("to", string(target)).Msg("target unmapped, room fallback")
	return nil
}

// Capture relays a screen/audio capture state change to the other members.
// Like signaling, nothing is persisted; unlike signaling there is no single
// target, the whole room wants to know.
func (r *Relay) Capture(ctx context.Context, sid domain.SessionID, from domain.UserID, captureType string, enabled bool, url string) error {
	if captureType != "screen" && captureType != "audio" {
		return fmt.Errorf("%w: unknown capture type %q", domain.ErrValidation, captureType)
	}

	s, err := r.store.Find(ctx, sid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: session %s", domain.ErrNotFound, sid)
		}
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	sender, ok := s.Participant(from)
	if !ok || sender.Status != domain.PresenceJoined {
		return fmt.Errorf("%w: capture update from %s", domain.ErrUnauthorized, from)
	}

	r.bc.ToOthers(sid, from, captureUpdate{
		Type: EvtCaptureUpdate, CaptureType: captureType, Enabled: enabled, URL: url,
	})
	return nil
}

func (p SignalPayload) check(kind SignalKind) error {
	switch kind {
	case SignalOffer, SignalAnswer:
		if p.Description == nil || p.Description.SDP == "" {
			return fmt.Errorf("%w: %s requires a session description", domain.ErrValidation, kind)
		}
	case SignalICE:
		if p.Candidate == nil || p.Candidate.Candidate == "" {
			return fmt.Errorf("%w: ice message requires a candidate", domain.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown signal kind %q", domain.ErrValidation, kind)
	}
	return nil
}
