package domain

import "time"

// Question is one asked-question record on an interview session, together
// with the candidate's response and any collaborator feedback.
type Question struct {
	ID           string    `json:"questionId"`
	Text         string    `json:"question"`
	Category     string    `json:"category"`
	Difficulty   string    `json:"difficulty"`
	AskedBy      UserID    `json:"askedBy"`
	AskedAt      time.Time `json:"askedAt"`
	Response     string    `json:"candidateResponse,omitempty"`
	ResponseTime int       `json:"responseTime,omitempty"`
	AISuggestion string    `json:"aiSuggestion,omitempty"`
	Score        float64   `json:"score,omitempty"`
}

// AssistRecord is one collaborator exchange kept on the session for history.
type AssistRecord struct {
	Question   string    `json:"question"`
	Answer     string    `json:"candidateAnswer"`
	Suggestion string    `json:"aiSuggestion"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"timestamp"`
}
