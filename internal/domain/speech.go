package domain

import "time"

// maxSpeechLogs caps the transcript kept on a session; older entries are
// discarded first.
const maxSpeechLogs = 1000

// SpeechLog is one transcript event reported by a client recognizer:
// recognition started/stopped, an interim or final text chunk.
type SpeechLog struct {
	ID      string            `json:"id,omitempty"`
	At      time.Time         `json:"timestamp"`
	Action  string            `json:"action"`
	Text    string            `json:"text,omitempty"`
	Details map[string]string `json:"details,omitempty"`
	User    UserID            `json:"user"`
	Role    Role              `json:"role"`
}

// AppendSpeechLog appends the entry and trims the log to the newest
// maxSpeechLogs entries.
func (s *Session) AppendSpeechLog(e SpeechLog) {
	s.SpeechLogs = append(s.SpeechLogs, e)
	if len(s.SpeechLogs) > maxSpeechLogs {
		s.SpeechLogs = s.SpeechLogs[len(s.SpeechLogs)-maxSpeechLogs:]
	}
}
