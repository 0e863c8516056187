package domain

import "time"

type UserID string

type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

type PresenceStatus string

const (
	PresenceJoined       PresenceStatus = "joined"
	PresenceLeft         PresenceStatus = "left"
	PresenceDisconnected PresenceStatus = "disconnected"
)

// Participant is a user's membership record within a session. Records are
// created on first join and never deleted; leaving or dropping only flips
// the status and stamps LeftAt.
type Participant struct {
	UserID       UserID         `json:"userId"`
	Name         string         `json:"name"`
	Role         Role           `json:"role"`
	Status       PresenceStatus `json:"status"`
	JoinedAt     *time.Time     `json:"joinedAt,omitempty"`
	LeftAt       *time.Time     `json:"leftAt,omitempty"`
	LastActive   time.Time      `json:"lastActive"`
	AudioEnabled bool           `json:"audioEnabled"`
	VideoEnabled bool           `json:"videoEnabled"`
	MediaReady   bool           `json:"mediaReady"`
}

// ResetMedia returns the participant to the post-join baseline:
// audio on, video off, not yet ready for a call.
func (p *Participant) ResetMedia() {
	p.AudioEnabled = true
	p.VideoEnabled = false
	p.MediaReady = false
}

// SetMedia applies a media-status update. Readiness is derived: a
// participant with either track enabled counts as media-ready.
func (p *Participant) SetMedia(audio, video bool) {
	p.AudioEnabled = audio
	p.VideoEnabled = video
	p.MediaReady = audio || video
}
