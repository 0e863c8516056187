package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

// Questions runs the interview question flow: asking, recording candidate
// responses and consulting the AI-assistance collaborator. It shares the
// engine's per-session serialization so question writes never race presence
// writes on the same session document.
type Questions struct {
	store  core.SessionStore
	bc     *Broadcaster
	locks  *keyedMutex
	assist core.Assistant
	now    func() time.Time
}

func NewQuestions(e *Engine, assist core.Assistant) *Questions {
	return &Questions{
		store:  e.store,
		bc:     e.bc,
		locks:  e.locks,
		assist: assist,
		now:    func() time.Time { return e.Now() },
	}
}

// AskInput carries one ask-question event.
type AskInput struct {
	SessionID  domain.SessionID
	Question   string
	Category   string
	Difficulty string
	AskedBy    domain.UserID
}

// Ask appends a question record to the interview and broadcasts it to the
// whole room, observers included.
func (q *Questions) Ask(ctx context.Context, in AskInput) (*domain.Question, error) {
	if in.SessionID == "" || in.Question == "" || in.AskedBy == "" {
		return nil, fmt.Errorf("%w: sessionId, question and askedBy are required", domain.ErrValidation)
	}
	if in.Category == "" {
		in.Category = "general"
	}
	if in.Difficulty == "" {
		in.Difficulty = "medium"
	}

	unlock := q.locks.lock(in.SessionID)
	defer unlock()

	s, err := q.load(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	rec := &domain.Question{
		ID:         uuid.NewString(),
		Text:       in.Question,
		Category:   in.Category,
		Difficulty: in.Difficulty,
		AskedBy:    in.AskedBy,
		AskedAt:    q.now(),
	}
	s.Questions = append(s.Questions, rec)

	if err := q.save(ctx, s); err != nil {
		return nil, err
	}

	q.bc.ToRoom(s.ID, questionAsked{Type: EvtQuestionAsked, QuestionView: ViewOfQuestion(s.ID, rec)})
	log.Info().Str("module", "app.questions").Str("session", string(s.ID)).
		Str("question", rec.ID).Msg("question asked")
	return rec, nil
}

// Respond records the candidate's response on the question. When the
// session has assistance enabled, the collaborator is consulted
// opportunistically: its failure is logged and the response still lands.
func (q *Questions) Respond(ctx context.Context, sid domain.SessionID, questionID, response string, responseTime int) (*domain.Question, error) {
	unlock := q.locks.lock(sid)
	defer unlock()

	s, err := q.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	rec, ok := s.QuestionByID(questionID)
	if !ok {
		return nil, fmt.Errorf("%w: question %s", domain.ErrNotFound, questionID)
	}

	rec.Response = response
	rec.ResponseTime = responseTime

	if s.AssistEnabled && q.assist != nil {
		a, aerr := q.assist.ProvideAssistance(ctx, rec.Text, response, s.JobDescription)
		if aerr != nil {
			log.Warn().Err(aerr).Str("module", "app.questions").
				Str("session", string(sid)).Msg("assistance unavailable, recording response without it")
		} else {
			rec.AISuggestion = a.Suggestion
			rec.Score = a.Score
			s.AssistLog = append(s.AssistLog, domain.AssistRecord{
				Question:   rec.Text,
				Answer:     response,
				Suggestion: a.Suggestion,
				Confidence: a.Confidence,
				At:         q.now(),
			})
		}
	}

	if err := q.save(ctx, s); err != nil {
		return nil, err
	}

	q.bc.ToRoom(sid, responseRecorded{
		Type:         EvtResponseRecorded,
		SessionID:    sid,
		QuestionID:   rec.ID,
		Response:     response,
		ResponseTime: responseTime,
		AISuggestion: rec.AISuggestion,
		Score:        rec.Score,
	})
	return rec, nil
}

// SpeechInput is one transcript event from a client-side recognizer.
type SpeechInput struct {
	SessionID domain.SessionID
	ID        string
	At        time.Time
	Action    string
	Text      string
	Details   map[string]string
	User      domain.UserID
	Role      domain.Role
}

// RecordSpeechLog appends a transcript event to the session, keeping only
// the newest entries, and forwards it to the other members.
func (q *Questions) RecordSpeechLog(ctx context.Context, in SpeechInput) error {
	if in.SessionID == "" || in.Action == "" || in.User == "" {
		return fmt.Errorf("%w: sessionId, action and user are required", domain.ErrValidation)
	}
	if in.At.IsZero() {
		in.At = q.now()
	}

	unlock := q.locks.lock(in.SessionID)
	defer unlock()

	s, err := q.load(ctx, in.SessionID)
	if err != nil {
		return err
	}
	entry := domain.SpeechLog{
		ID: in.ID, At: in.At, Action: in.Action, Text: in.Text,
		Details: in.Details, User: in.User, Role: in.Role,
	}
	s.AppendSpeechLog(entry)
	if err := q.save(ctx, s); err != nil {
		return err
	}

	q.bc.ToOthers(in.SessionID, in.User, speechLogBroadcast{Type: EvtSpeechBroadcast, SpeechLog: entry})
	return nil
}

// ShareInput is assistance a client generated locally and wants the room
// to see.
type ShareInput struct {
	SessionID  domain.SessionID
	Question   string
	Suggestion string
	Confidence float64
	UserID     domain.UserID
	UserName   string
	At         time.Time
}

// ShareAssistance broadcasts client-generated assistance to the whole room,
// observers included, and keeps it on the session's assistance history.
func (q *Questions) ShareAssistance(ctx context.Context, in ShareInput) error {
	if in.SessionID == "" || in.Question == "" || in.UserID == "" {
		return fmt.Errorf("%w: sessionId, question and userId are required", domain.ErrValidation)
	}
	if in.At.IsZero() {
		in.At = q.now()
	}

	unlock := q.locks.lock(in.SessionID)
	defer unlock()

	s, err := q.load(ctx, in.SessionID)
	if err != nil {
		return err
	}
	s.AssistLog = append(s.AssistLog, domain.AssistRecord{
		Question:   in.Question,
		Suggestion: in.Suggestion,
		Confidence: in.Confidence,
		At:         in.At,
	})
	if err := q.save(ctx, s); err != nil {
		return err
	}

	q.bc.ToRoom(in.SessionID, assistanceLive{
		Type: EvtAssistanceLive, SessionID: in.SessionID,
		Question: in.Question, Suggestion: in.Suggestion, Confidence: in.Confidence,
		UserID: in.UserID, UserName: in.UserName, At: in.At,
	})
	return nil
}

// RequestAssistance is the explicit collaborator call; the reply goes only
// to the requester, so the adapter delivers it.
func (q *Questions) RequestAssistance(ctx context.Context, sid domain.SessionID, question, answer string) (core.Assistance, error) {
	if q.assist == nil {
		return core.Assistance{}, fmt.Errorf("%w: assistance is not configured", domain.ErrValidation)
	}
	s, err := q.load(ctx, sid)
	if err != nil {
		return core.Assistance{}, err
	}
	return q.assist.ProvideAssistance(ctx, question, answer, s.JobDescription)
}

func (q *Questions) load(ctx context.Context, sid domain.SessionID) (*domain.Session, error) {
	s, err := q.store.Find(ctx, sid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sid)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return s, nil
}

func (q *Questions) save(ctx context.Context, s *domain.Session) error {
	if err := q.store.Save(ctx, s); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}
