package signal

import (
	"context"
	"time"

	"github.com/lanbix/live-interview/internal/app"
	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

type captureStatusPayload struct {
	SessionID string `json:"sessionId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	Kind      string `json:"captureType" validate:"required,oneof=screen audio"`
	Enabled   bool   `json:"enabled"`
	URL       string `json:"url"`
}

func (ctl *Controller) handleCaptureStatus(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p captureStatusPayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}
	if err := ctl.requireIdentity(connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(c, err)
		return
	}

	err := ctl.relay.Capture(ctx, domain.SessionID(p.SessionID), domain.UserID(p.UserID), p.Kind, p.Enabled, p.URL)
	if err != nil {
		ctl.sendError(c, err)
	}
}

type speechLogPayload struct {
	SessionID string            `json:"sessionId" validate:"required"`
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action" validate:"required"`
	Text      string            `json:"text"`
	Details   map[string]string `json:"details"`
	User      string            `json:"user" validate:"required"`
	Role      string            `json:"role"`
}

func (ctl *Controller) handleSpeechLog(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p speechLogPayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}
	if err := ctl.requireIdentity(connID, domain.UserID(p.User)); err != nil {
		ctl.sendError(c, err)
		return
	}

	err := ctl.questions.RecordSpeechLog(ctx, app.SpeechInput{
		SessionID: domain.SessionID(p.SessionID),
		ID:        p.ID,
		At:        p.Timestamp,
		Action:    p.Action,
		Text:      p.Text,
		Details:   p.Details,
		User:      domain.UserID(p.User),
		Role:      domain.Role(p.Role),
	})
	if err != nil {
		ctl.sendError(c, err)
	}
}

type assistanceGeneratedPayload struct {
	SessionID  string    `json:"sessionId" validate:"required"`
	Question   string    `json:"question" validate:"required"`
	Assistance struct {
		Suggestion string  `json:"suggestion"`
		Confidence float64 `json:"confidence"`
	} `json:"assistance"`
	UserID    string    `json:"userId" validate:"required"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}

func (ctl *Controller) handleAssistanceGenerated(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p assistanceGeneratedPayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}
	if err := ctl.requireIdentity(connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(c, err)
		return
	}

	err := ctl.questions.ShareAssistance(ctx, app.ShareInput{
		SessionID:  domain.SessionID(p.SessionID),
		Question:   p.Question,
		Suggestion: p.Assistance.Suggestion,
		Confidence: p.Assistance.Confidence,
		UserID:     domain.UserID(p.UserID),
		UserName:   p.UserName,
		At:         p.Timestamp,
	})
	if err != nil {
		ctl.sendError(c, err)
	}
}
