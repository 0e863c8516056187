package app

import (
	"encoding/json"

	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
	"github.com/rs/zerolog/log"
)

// Broadcaster fans events out to the connections currently joined to a
// session. Membership is read at the instant of the call; nothing is
// buffered or replayed. Saturated connections drop the frame.
type Broadcaster struct {
	reg *core.Registry
}

func NewBroadcaster(reg *core.Registry) *Broadcaster {
	return &Broadcaster{reg: reg}
}

// ToRoom delivers the event to every member of the session.
func (b *Broadcaster) ToRoom(sid domain.SessionID, v any) {
	b.fanOut(sid, "", v)
}

// ToOthers delivers the event to every member except the given user.
func (b *Broadcaster) ToOthers(sid domain.SessionID, except domain.UserID, v any) {
	b.fanOut(sid, except, v)
}

// To delivers the event to a single connection.
func (b *Broadcaster) To(s core.Sender, v any) {
	f, err := encode(v)
	if err != nil {
		return
	}
	if err := s.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "app.broadcast").Msg("direct send dropped")
	}
}

func (b *Broadcaster) fanOut(sid domain.SessionID, except domain.UserID, v any) {
	f, err := encode(v)
	if err != nil {
		return
	}
	sent, dropped := 0, 0
	for _, m := range b.reg.MembersOf(sid) {
		if except != "" && m.User == except {
			continue
		}
		if err := m.Sender.TrySend(f); err != nil {
			dropped++
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.broadcast").Str("session", string(sid)).
		Int("sent", sent).Int("dropped", dropped).Msg("broadcast")
}

func encode(v any) (core.Frame, error) {
	f, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Msg("marshal event")
		return nil, err
	}
	return f, nil
}
