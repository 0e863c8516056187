package signal

import (
	"context"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/lanbix/live-interview/internal/app"
	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

type signalPayload struct {
	SessionID    string                     `json:"sessionId" validate:"required"`
	SenderUserID string                     `json:"senderUserId"`
	TargetUserID string                     `json:"targetUserId" validate:"required"`
	Description  *webrtc.SessionDescription `json:"description,omitempty"`
	Candidate    *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

var kindByEvent = map[string]app.SignalKind{
	"signal-offer":  app.SignalOffer,
	"signal-answer": app.SignalAnswer,
	"signal-ice":    app.SignalICE,
}

// handleSignalMessage relays one offer/answer/ICE event. The sender
// identity comes from the connection's bound user; a senderUserId field
// in the payload must agree with it.
func (ctl *Controller) handleSignalMessage(ctx context.Context, connID core.ConnID, c *wsConn, data []byte, event string) {
	var p signalPayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}

	from, ok := ctl.reg.UserOf(connID)
	if !ok {
		ctl.sendError(c, fmt.Errorf("%w: connection has not joined", domain.ErrUnauthorized))
		return
	}
	if p.SenderUserID != "" && domain.UserID(p.SenderUserID) != from {
		ctl.sendError(c, fmt.Errorf("%w: senderUserId does not match this connection", domain.ErrUnauthorized))
		return
	}

	err := ctl.relay.Relay(ctx, kindByEvent[event],
		domain.SessionID(p.SessionID), from, domain.UserID(p.TargetUserID),
		app.SignalPayload{Description: p.Description, Candidate: p.Candidate})
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("event", event).
			Str("session", p.SessionID).Str("from", string(from)).Msg("relay rejected")
		ctl.sendError(c, err)
	}
}
