package app

import (
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/lanbix/live-interview/internal/domain"
)

// Outbound event names.
const (
	EvtJoinedAck         = "joined-ack"
	EvtParticipantJoined = "participant-joined"
	EvtParticipantLeft   = "participant-left"
	EvtSessionUpdate     = "session-update"
	EvtMediaStatusUpdate = "media-status-update"
	EvtParticipantReady  = "participant-ready"
	EvtQuestionAsked     = "question-asked"
	EvtResponseRecorded  = "response-recorded"
	EvtAIAssistance      = "ai-assistance"
	EvtCaptureUpdate     = "capture-update"
	EvtSpeechBroadcast   = "speech-log-broadcast"
	EvtAssistanceLive    = "ai-assistance-live"
	EvtError             = "error"
)

// ParticipantView is the read-only roster entry carried by snapshots.
type ParticipantView struct {
	UserID       domain.UserID         `json:"userId"`
	Name         string                `json:"name"`
	Role         domain.Role           `json:"role"`
	Status       domain.PresenceStatus `json:"status"`
	AudioEnabled bool                  `json:"audioEnabled"`
	VideoEnabled bool                  `json:"videoEnabled"`
	MediaReady   bool                  `json:"mediaReady"`
	JoinedAt     *time.Time            `json:"joinedAt,omitempty"`
	LeftAt       *time.Time            `json:"leftAt,omitempty"`
}

// SessionSnapshot is the full-state view broadcast on every lifecycle or
// roster change. Receivers must treat it as a replacement, not a delta.
type SessionSnapshot struct {
	SessionID   domain.SessionID `json:"sessionId"`
	Variant     domain.Variant   `json:"variant"`
	Status      domain.Status    `json:"status"`
	Title       string           `json:"title,omitempty"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	EndedAt     *time.Time       `json:"endedAt,omitempty"`
	DurationMin int              `json:"durationMin,omitempty"`
	Participants []ParticipantView `json:"participants"`
}

// SnapshotOf projects a session onto its wire snapshot.
func SnapshotOf(s *domain.Session) SessionSnapshot {
	snap := SessionSnapshot{
		SessionID:    s.ID,
		Variant:      s.Variant,
		Status:       s.Status,
		Title:        s.Title,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		DurationMin:  s.DurationMin,
		Participants: make([]ParticipantView, 0, len(s.Participants)),
	}
	for _, p := range s.Participants {
		snap.Participants = append(snap.Participants, ParticipantView{
			UserID:       p.UserID,
			Name:         p.Name,
			Role:         p.Role,
			Status:       p.Status,
			AudioEnabled: p.AudioEnabled,
			VideoEnabled: p.VideoEnabled,
			MediaReady:   p.MediaReady,
			JoinedAt:     p.JoinedAt,
			LeftAt:       p.LeftAt,
		})
	}
	return snap
}

// QuestionView is the wire form of an asked-question record.
type QuestionView struct {
	SessionID    domain.SessionID `json:"sessionId"`
	QuestionID   string           `json:"questionId"`
	Question     string           `json:"question"`
	Category     string           `json:"category"`
	Difficulty   string           `json:"difficulty"`
	AskedBy      domain.UserID    `json:"askedBy"`
	AskedAt      time.Time        `json:"askedAt"`
	AISuggestion string           `json:"aiSuggestion,omitempty"`
	Score        float64          `json:"score,omitempty"`
}

func ViewOfQuestion(sid domain.SessionID, q *domain.Question) QuestionView {
	return QuestionView{
		SessionID:    sid,
		QuestionID:   q.ID,
		Question:     q.Text,
		Category:     q.Category,
		Difficulty:   q.Difficulty,
		AskedBy:      q.AskedBy,
		AskedAt:      q.AskedAt,
		AISuggestion: q.AISuggestion,
		Score:        q.Score,
	}
}

type sessionUpdate struct {
	Type    string          `json:"type"`
	Session SessionSnapshot `json:"session"`
}

type participantJoined struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"userId"`
	Name     string        `json:"name"`
	Role     domain.Role   `json:"role"`
	JoinedAt time.Time     `json:"joinedAt"`
}

type participantLeft struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
	Role   domain.Role   `json:"role"`
	LeftAt time.Time     `json:"leftAt"`
}

type mediaStatusUpdate struct {
	Type         string        `json:"type"`
	UserID       domain.UserID `json:"userId"`
	AudioEnabled bool          `json:"audioEnabled"`
	VideoEnabled bool          `json:"videoEnabled"`
	MediaReady   bool          `json:"mediaReady"`
}

type participantReady struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	UserID    domain.UserID    `json:"userId"`
	Role      domain.Role      `json:"role"`
}

type questionAsked struct {
	Type string `json:"type"`
	QuestionView
}

type responseRecorded struct {
	Type         string           `json:"type"`
	SessionID    domain.SessionID `json:"sessionId"`
	QuestionID   string           `json:"questionId"`
	Response     string           `json:"response"`
	ResponseTime int              `json:"responseTime,omitempty"`
	AISuggestion string           `json:"aiSuggestion,omitempty"`
	Score        float64          `json:"score,omitempty"`
}

type captureUpdate struct {
	Type        string `json:"type"`
	CaptureType string `json:"captureType"`
	Enabled     bool   `json:"enabled"`
	URL         string `json:"url,omitempty"`
}

type speechLogBroadcast struct {
	Type string `json:"type"`
	domain.SpeechLog
}

type assistanceLive struct {
	Type       string           `json:"type"`
	SessionID  domain.SessionID `json:"sessionId"`
	Question   string           `json:"question"`
	Suggestion string           `json:"suggestion"`
	Confidence float64          `json:"confidence"`
	UserID     domain.UserID    `json:"userId"`
	UserName   string           `json:"userName,omitempty"`
	At         time.Time        `json:"timestamp"`
}

type signalForward struct {
	Type         string                     `json:"type"`
	SessionID    domain.SessionID           `json:"sessionId"`
	SenderUserID domain.UserID              `json:"senderUserId"`
	Description  *webrtc.SessionDescription `json:"description,omitempty"`
	Candidate    *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}
