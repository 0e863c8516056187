package domain

import "time"

type SessionID string

// Variant selects the roster policy a session runs under.
type Variant string

const (
	// VariantInterview is the fixed two-role variant: exactly one candidate
	// and one interviewer, with a roster-driven lifecycle.
	VariantInterview Variant = "interview"
	// VariantRoom is the open-roster variant: any number of participants,
	// no roster-driven lifecycle.
	VariantRoom Variant = "room"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session is a live interview or call instance. The ID is supplied by the
// caller, never generated here. Sessions are never deleted, only moved to
// a terminal status.
type Session struct {
	ID             SessionID              `json:"sessionId"`
	Variant        Variant                `json:"variant"`
	Status         Status                 `json:"status"`
	Title          string                 `json:"title,omitempty"`
	JobDescription string                 `json:"jobDescription,omitempty"`
	AssistEnabled  bool                   `json:"assistEnabled"`
	CreatedAt      time.Time              `json:"createdAt"`
	StartedAt      *time.Time             `json:"startedAt,omitempty"`
	EndedAt        *time.Time             `json:"endedAt,omitempty"`
	DurationMin    int                    `json:"durationMin,omitempty"`
	Participants   map[UserID]*Participant `json:"participants"`
	Questions      []*Question            `json:"questions,omitempty"`
	AssistLog      []AssistRecord         `json:"assistLog,omitempty"`
	SpeechLogs     []SpeechLog            `json:"speechLogs,omitempty"`
}

// NewSession builds an empty session. Interview sessions start scheduled
// and activate once both roles have joined; rooms are live immediately.
func NewSession(id SessionID, variant Variant, now time.Time) *Session {
	status := StatusScheduled
	if variant == VariantRoom {
		status = StatusActive
	}
	return &Session{
		ID:           id,
		Variant:      variant,
		Status:       status,
		CreatedAt:    now,
		Participants: make(map[UserID]*Participant),
	}
}

func (s *Session) Participant(id UserID) (*Participant, bool) {
	p, ok := s.Participants[id]
	return p, ok
}

// ParticipantByRole returns the participant holding the role, if any.
// Only meaningful for the interview variant, where roles are unique.
func (s *Session) ParticipantByRole(role Role) (*Participant, bool) {
	for _, p := range s.Participants {
		if p.Role == role {
			return p, true
		}
	}
	return nil, false
}

func (s *Session) QuestionByID(id string) (*Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return nil, false
}

// Clone deep-copies the session so a store can hand out documents that do
// not alias the caller's in-memory state.
func (s *Session) Clone() *Session {
	out := *s
	out.Participants = make(map[UserID]*Participant, len(s.Participants))
	for id, p := range s.Participants {
		cp := *p
		out.Participants[id] = &cp
	}
	if s.Questions != nil {
		out.Questions = make([]*Question, len(s.Questions))
		for i, q := range s.Questions {
			cq := *q
			out.Questions[i] = &cq
		}
	}
	if s.AssistLog != nil {
		out.AssistLog = append([]AssistRecord(nil), s.AssistLog...)
	}
	if s.SpeechLogs != nil {
		out.SpeechLogs = append([]SpeechLog(nil), s.SpeechLogs...)
	}
	return &out
}
