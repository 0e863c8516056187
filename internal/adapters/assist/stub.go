package assist

import (
	"context"
	"strings"

	"github.com/lanbix/live-interview/internal/core"
)

// Stub is a local, deterministic collaborator for development and tests.
// The score is a crude length/keyword heuristic, good enough to exercise
// the full response-recording path without the real service.
type Stub struct{}

func NewStub() Stub { return Stub{} }

func (Stub) ProvideAssistance(_ context.Context, question, answer, _ string) (core.Assistance, error) {
	words := len(strings.Fields(answer))
	score := 3.0
	switch {
	case words == 0:
		score = 0
	case words > 120:
		score = 8
	case words > 40:
		score = 6
	}
	return core.Assistance{
		Suggestion: "Consider structuring the answer around: " + firstSentence(question),
		Score:      score,
		Confidence: 0.35,
	}, nil
}

func firstSentence(s string) string {
	if i := strings.IndexAny(s, ".?!"); i > 0 {
		return s[:i+1]
	}
	return s
}
