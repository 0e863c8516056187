package signal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanbix/live-interview/internal/adapters/storage/memory"
	"github.com/lanbix/live-interview/internal/app"
	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

// testConn is a wsConn with no socket behind it; frames land in the send
// channel where the test reads them.
func testConn() *wsConn {
	return &wsConn{send: make(chan core.Frame, 32)}
}

func drain(t *testing.T, c *wsConn) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case f := <-c.send:
			var m map[string]any
			require.NoError(t, json.Unmarshal(f, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func lastOfType(frames []map[string]any, typ string) map[string]any {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i]["type"] == typ {
			return frames[i]
		}
	}
	return nil
}

func newTestController(t *testing.T) (*Controller, *core.Registry, *memory.Store, *app.Engine) {
	t.Helper()
	store := memory.NewStore()
	reg := core.NewRegistry()
	bc := app.NewBroadcaster(reg)
	engine := app.NewEngine(store, reg, bc)
	questions := app.NewQuestions(engine, nil)
	relay := app.NewRelay(store, reg, bc)
	return NewController(engine, relay, questions, reg, bc, 32768, 25*time.Second), reg, store, engine
}

func TestAskQuestionRequiresBoundIdentity(t *testing.T) {
	ctl, reg, store, _ := newTestController(t)
	ctx := context.Background()
	s := domain.NewSession("s1", domain.VariantInterview, time.Now())
	require.NoError(t, store.Create(ctx, s))

	c := testConn()
	reg.Add("c1", c)

	ctl.handle(ctx, "c1", c, []byte(`{"type":"ask-question","sessionId":"s1","question":"What is Go?","askedBy":"alice"}`))

	errEvt := lastOfType(drain(t, c), "error")
	require.NotNil(t, errEvt, "an unbound connection must be rejected")
	assert.Equal(t, "unauthorized", errEvt["kind"])

	got, err := store.Find(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.Questions, "nothing may be recorded for an unbound connection")
}

func TestAskQuestionRejectsForeignAskedBy(t *testing.T) {
	ctl, reg, store, engine := newTestController(t)
	ctx := context.Background()
	s := domain.NewSession("s1", domain.VariantInterview, time.Now())
	require.NoError(t, store.Create(ctx, s))

	c := testConn()
	reg.Add("c1", c)
	_, err := engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)
	drain(t, c)

	ctl.handle(ctx, "c1", c, []byte(`{"type":"ask-question","sessionId":"s1","question":"What is Go?","askedBy":"bob"}`))

	errEvt := lastOfType(drain(t, c), "error")
	require.NotNil(t, errEvt, "askedBy must match the bound identity")
	assert.Equal(t, "unauthorized", errEvt["kind"])

	ctl.handle(ctx, "c1", c, []byte(`{"type":"ask-question","sessionId":"s1","question":"What is Go?","askedBy":"alice"}`))
	require.Nil(t, lastOfType(drain(t, c), "error"))

	got, err := store.Find(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, domain.UserID("alice"), got.Questions[0].AskedBy)
}

func TestCandidateResponseRequiresBoundIdentity(t *testing.T) {
	ctl, reg, store, _ := newTestController(t)
	ctx := context.Background()
	s := domain.NewSession("s1", domain.VariantInterview, time.Now())
	s.Questions = append(s.Questions, &domain.Question{ID: "q1", Text: "What is Go?"})
	require.NoError(t, store.Create(ctx, s))

	c := testConn()
	reg.Add("c1", c)

	ctl.handle(ctx, "c1", c, []byte(`{"type":"candidate-response","sessionId":"s1","questionId":"q1","response":"A language."}`))

	errEvt := lastOfType(drain(t, c), "error")
	require.NotNil(t, errEvt)
	assert.Equal(t, "unauthorized", errEvt["kind"])

	got, err := store.Find(ctx, "s1")
	require.NoError(t, err)
	q1, ok := got.QuestionByID("q1")
	require.True(t, ok)
	assert.Empty(t, q1.Response)
}
