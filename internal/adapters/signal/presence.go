package signal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/lanbix/live-interview/internal/app"
	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

type joinPayload struct {
	SessionID string `json:"sessionId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Role      string `json:"role" validate:"required"`
}

func (ctl *Controller) handleJoin(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p joinPayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}

	s, err := ctl.engine.Join(ctx, connID, app.JoinInput{
		SessionID: domain.SessionID(p.SessionID),
		UserID:    domain.UserID(p.UserID),
		Name:      p.Name,
		Role:      domain.Role(p.Role),
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("session", p.SessionID).
			Str("user", p.UserID).Msg("join rejected")
		ctl.sendError(c, err)
		return
	}

	ack := struct {
		Type      string              `json:"type"`
		UserID    string              `json:"userId"`
		Role      string              `json:"role"`
		Session   app.SessionSnapshot `json:"session"`
		Questions []app.QuestionView  `json:"questions,omitempty"`
	}{
		Type:    app.EvtJoinedAck,
		UserID:  p.UserID,
		Role:    p.Role,
		Session: app.SnapshotOf(s),
	}
	for _, q := range s.Questions {
		ack.Questions = append(ack.Questions, app.ViewOfQuestion(s.ID, q))
	}
	ctl.sendJSON(c, ack)

	// Replay previously asked questions to the new participant, so
	// late joiners and observers see the full question history.
	for _, q := range s.Questions {
		ctl.sendJSON(c, struct {
			Type string `json:"type"`
			app.QuestionView
		}{Type: app.EvtQuestionAsked, QuestionView: app.ViewOfQuestion(s.ID, q)})
	}
}

type leavePayload struct {
	SessionID string `json:"sessionId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	Role      string `json:"role" validate:"required"`
}

func (ctl *Controller) handleLeave(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p leavePayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}
	if err := ctl.requireIdentity(connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(c, err)
		return
	}

	if _, err := ctl.engine.Leave(ctx, connID, domain.SessionID(p.SessionID), domain.UserID(p.UserID), domain.Role(p.Role)); err != nil {
		ctl.sendError(c, err)
		return
	}
}

type mediaStatusPayload struct {
	SessionID    string `json:"sessionId" validate:"required"`
	UserID       string `json:"userId" validate:"required"`
	AudioEnabled bool   `json:"audioEnabled"`
	VideoEnabled bool   `json:"videoEnabled"`
}

func (ctl *Controller) handleMediaStatus(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p mediaStatusPayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}
	if err := ctl.requireIdentity(connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(c, err)
		return
	}

	err := ctl.engine.UpdateMedia(ctx, domain.SessionID(p.SessionID), domain.UserID(p.UserID), p.AudioEnabled, p.VideoEnabled)
	if err != nil {
		ctl.sendError(c, err)
	}
}

type mediaReadyPayload struct {
	SessionID string `json:"sessionId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	Role      string `json:"role"`
}

func (ctl *Controller) handleMediaReady(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p mediaReadyPayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}
	if err := ctl.requireIdentity(connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(c, err)
		return
	}

	if err := ctl.engine.MarkReady(ctx, domain.SessionID(p.SessionID), domain.UserID(p.UserID)); err != nil {
		ctl.sendError(c, err)
	}
}

// requireIdentity rejects events whose userId does not match the identity
// bound to this connection at join time.
func (ctl *Controller) requireIdentity(connID core.ConnID, uid domain.UserID) error {
	bound, ok := ctl.reg.UserOf(connID)
	if !ok {
		return fmt.Errorf("%w: connection has not joined", domain.ErrUnauthorized)
	}
	if bound != uid {
		return fmt.Errorf("%w: userId does not match this connection", domain.ErrUnauthorized)
	}
	return nil
}
