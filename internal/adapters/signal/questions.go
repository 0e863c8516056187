package signal

import (
	"context"
	"fmt"

	"github.com/lanbix/live-interview/internal/app"
	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

type askQuestionPayload struct {
	SessionID  string `json:"sessionId" validate:"required"`
	Question   string `json:"question" validate:"required"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	AskedBy    string `json:"askedBy" validate:"required"`
}

func (ctl *Controller) handleAskQuestion(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p askQuestionPayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}
	if err := ctl.requireIdentity(connID, domain.UserID(p.AskedBy)); err != nil {
		ctl.sendError(c, err)
		return
	}

	_, err := ctl.questions.Ask(ctx, app.AskInput{
		SessionID:  domain.SessionID(p.SessionID),
		Question:   p.Question,
		Category:   p.Category,
		Difficulty: p.Difficulty,
		AskedBy:    domain.UserID(p.AskedBy),
	})
	if err != nil {
		ctl.sendError(c, err)
	}
}

type candidateResponsePayload struct {
	SessionID    string `json:"sessionId" validate:"required"`
	QuestionID   string `json:"questionId" validate:"required"`
	Response     string `json:"response" validate:"required"`
	ResponseTime int    `json:"responseTime"`
}

func (ctl *Controller) handleCandidateResponse(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p candidateResponsePayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}
	if _, ok := ctl.reg.UserOf(connID); !ok {
		ctl.sendError(c, fmt.Errorf("%w: connection has not joined", domain.ErrUnauthorized))
		return
	}

	_, err := ctl.questions.Respond(ctx, domain.SessionID(p.SessionID), p.QuestionID, p.Response, p.ResponseTime)
	if err != nil {
		ctl.sendError(c, err)
	}
}

type assistRequestPayload struct {
	SessionID       string `json:"sessionId" validate:"required"`
	Question        string `json:"question" validate:"required"`
	CandidateAnswer string `json:"candidateAnswer"`
}

// handleAssistRequest replies to the requester only; assistance requests
// are never broadcast.
func (ctl *Controller) handleAssistRequest(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p assistRequestPayload
	if err := ctl.decode(data, &p); err != nil {
		ctl.sendError(c, err)
		return
	}
	if _, ok := ctl.reg.UserOf(connID); !ok {
		ctl.sendError(c, fmt.Errorf("%w: connection has not joined", domain.ErrUnauthorized))
		return
	}

	a, err := ctl.questions.RequestAssistance(ctx, domain.SessionID(p.SessionID), p.Question, p.CandidateAnswer)
	if err != nil {
		ctl.sendError(c, err)
		return
	}

	ctl.sendJSON(c, struct {
		Type            string  `json:"type"`
		Question        string  `json:"question"`
		CandidateAnswer string  `json:"candidateAnswer,omitempty"`
		Suggestion      string  `json:"suggestion"`
		Score           float64 `json:"score"`
		Confidence      float64 `json:"confidence"`
	}{
		Type:            app.EvtAIAssistance,
		Question:        p.Question,
		CandidateAnswer: p.CandidateAnswer,
		Suggestion:      a.Suggestion,
		Score:           a.Score,
		Confidence:      a.Confidence,
	})
}
