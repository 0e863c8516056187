package core

import (
	"context"

	"github.com/lanbix/live-interview/internal/domain"
)

// Frame is a marshaled wire message.
type Frame []byte

// ConnID identifies one live connection for its lifetime.
type ConnID string

// Sender is the write side of one live connection. Sends must not block;
// a saturated connection drops the frame instead. Owned by the adapter,
// which is responsible for Close.
type Sender interface {
	TrySend(Frame) error
	Close()
}

// SessionStore is the durable store boundary: find-by-id, create, save.
// Implementations return domain.ErrNotFound for unknown sessions and are
// expected to give read-your-writes within one process.
type SessionStore interface {
	Find(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Save(ctx context.Context, s *domain.Session) error
}

// Assistance is the collaborator's feedback on a candidate answer.
type Assistance struct {
	Suggestion string  `json:"suggestion"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Assistant is the AI-assistance collaborator. Failures must never abort
// the session mutation that triggered the call.
type Assistant interface {
	ProvideAssistance(ctx context.Context, question, answer, jobContext string) (Assistance, error)
}
