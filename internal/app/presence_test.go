package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanbix/live-interview/internal/adapters/storage/memory"
	"github.com/lanbix/live-interview/internal/app"
	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

type fakeSender struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (f *fakeSender) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSender) Close() {}

// eventsOf decodes every received frame of the given type.
func (f *fakeSender) eventsOf(t *testing.T, typ string) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

type fixture struct {
	store  *memory.Store
	reg    *core.Registry
	engine *app.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	reg := core.NewRegistry()
	engine := app.NewEngine(store, reg, app.NewBroadcaster(reg))
	return &fixture{store: store, reg: reg, engine: engine}
}

func (fx *fixture) addConn(id string) *fakeSender {
	s := &fakeSender{}
	fx.reg.Add(core.ConnID(id), s)
	return s
}

func (fx *fixture) createInterview(t *testing.T, id string) {
	t.Helper()
	s := domain.NewSession(domain.SessionID(id), domain.VariantInterview, time.Now())
	require.NoError(t, fx.store.Create(context.Background(), s))
}

func TestJoinRequiresAllFields(t *testing.T) {
	fx := newFixture(t)
	fx.addConn("c1")

	_, err := fx.engine.Join(context.Background(), "c1", app.JoinInput{
		SessionID: "s1", UserID: "u1", Name: "", Role: domain.RoleCandidate,
	})
	require.Error(t, err)
	assert.Equal(t, "validation", domain.ErrorKind(err))
}

func TestJoinUnknownInterviewSessionNotFound(t *testing.T) {
	fx := newFixture(t)
	fx.addConn("c1")
	// AutoCreate off: nothing may be created on the fly.
	_, err := fx.engine.Join(context.Background(), "c1", app.JoinInput{
		SessionID: "missing", UserID: "u1", Name: "Ann", Role: domain.RoleCandidate,
	})
	require.Error(t, err)
	assert.Equal(t, "not-found", domain.ErrorKind(err))
}

func TestAutoCreateRoomOnFirstJoin(t *testing.T) {
	fx := newFixture(t)
	fx.engine.AutoCreate = true
	fx.addConn("c1")

	s, err := fx.engine.Join(context.Background(), "c1", app.JoinInput{
		SessionID: "room-1", UserID: "u1", Name: "Ann", Role: "host",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VariantRoom, s.Variant)
	// Rooms have no scheduled phase.
	assert.Equal(t, domain.StatusActive, s.Status)
}

func TestActivationNeedsBothRoles(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	fx.addConn("c1")

	s, err := fx.engine.Join(context.Background(), "c1", app.JoinInput{
		SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, s.Status, "one participant must not activate")

	fx.addConn("c2")
	s, err = fx.engine.Join(context.Background(), "c2", app.JoinInput{
		SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, s.Status)
	require.NotNil(t, s.StartedAt)
}

func TestDuplicateJoinDoesNotReactivate(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	fx.addConn("c1")
	fx.addConn("c2")

	ctx := context.Background()
	_, err := fx.engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)
	s, err := fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate})
	require.NoError(t, err)
	started := *s.StartedAt

	// Bob joins again; the session is already active, so the transition
	// must not fire a second time.
	s, err = fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, s.Status)
	assert.Equal(t, started, *s.StartedAt)
}

func TestCompletionAndDuration(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	fx.addConn("c1")
	fx.addConn("c2")

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	now := base
	fx.engine.Now = func() time.Time { return now }

	ctx := context.Background()
	_, err := fx.engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)

	now = base.Add(2 * time.Minute) // second join starts the clock
	_, err = fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate})
	require.NoError(t, err)

	now = base.Add(7 * time.Minute)
	s, err := fx.engine.Leave(ctx, "c2", "s1", "bob", domain.RoleCandidate)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, s.Status, "one leave must not complete")

	now = base.Add(9*time.Minute + 30*time.Second)
	s, err = fx.engine.Leave(ctx, "c1", "s1", "alice", domain.RoleInterviewer)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, s.Status)
	// 9m30s minus the 2m start offset is 7m30s, floored to whole minutes.
	assert.Equal(t, 7, s.DurationMin)
	assert.GreaterOrEqual(t, s.DurationMin, 0)
}

func TestLeaveIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	fx.addConn("c1")
	fx.addConn("c2")

	ctx := context.Background()
	_, err := fx.engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)
	_, err = fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate})
	require.NoError(t, err)

	s1, err := fx.engine.Leave(ctx, "c2", "s1", "bob", domain.RoleCandidate)
	require.NoError(t, err)
	p1, _ := s1.Participant("bob")
	firstLeft := *p1.LeftAt

	s2, err := fx.engine.Leave(ctx, "c2", "s1", "bob", domain.RoleCandidate)
	require.NoError(t, err)
	p2, _ := s2.Participant("bob")
	assert.Equal(t, firstLeft, *p2.LeftAt, "second leave must not move the timestamp")
	assert.Equal(t, s1.Status, s2.Status)
}

func TestMediaUpdateAuthorization(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	fx.addConn("c1")

	ctx := context.Background()
	other := fx.addConn("c2")
	_, err := fx.engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)
	before := other.count()

	err = fx.engine.UpdateMedia(ctx, "s1", "mallory", true, true)
	require.Error(t, err)
	assert.Equal(t, "unauthorized", domain.ErrorKind(err))
	assert.Equal(t, before, other.count(), "a rejected update must not broadcast")
}

func TestMediaBroadcastExcludesSenderAndSignalsReady(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	alice := fx.addConn("c1")
	bob := fx.addConn("c2")

	ctx := context.Background()
	_, err := fx.engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)
	_, err = fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate})
	require.NoError(t, err)

	require.NoError(t, fx.engine.UpdateMedia(ctx, "s1", "alice", true, true))

	assert.Empty(t, alice.eventsOf(t, "media-status-update"), "sender must not receive its own update")
	updates := bob.eventsOf(t, "media-status-update")
	require.Len(t, updates, 1)
	assert.Equal(t, "alice", updates[0]["userId"])
	assert.Equal(t, true, updates[0]["mediaReady"])

	// Video flipped on, so the dedicated ready signal goes out too.
	ready := bob.eventsOf(t, "participant-ready")
	require.Len(t, ready, 1)
	assert.Equal(t, "alice", ready[0]["userId"])

	// Audio-only change with video already on: no second ready signal.
	require.NoError(t, fx.engine.UpdateMedia(ctx, "s1", "alice", false, true))
	assert.Len(t, bob.eventsOf(t, "participant-ready"), 1)
}

func TestDisconnectMarksParticipantDisconnected(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	fx.addConn("c1")
	bob := fx.addConn("c2")

	ctx := context.Background()
	_, err := fx.engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)
	_, err = fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate})
	require.NoError(t, err)

	fx.engine.Disconnect(ctx, "c1")

	s, err := fx.store.Find(ctx, "s1")
	require.NoError(t, err)
	p, ok := s.Participant("alice")
	require.True(t, ok)
	assert.Equal(t, domain.PresenceDisconnected, p.Status)
	require.NotNil(t, p.LeftAt)
	// An abrupt drop is not a leave: the session must not complete.
	assert.Equal(t, domain.StatusActive, s.Status)

	// The survivors were told.
	require.NotEmpty(t, bob.eventsOf(t, "session-update"))
}

func TestLifecycleIsMonotonic(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	fx.addConn("c1")
	fx.addConn("c2")
	fx.addConn("c3")

	ctx := context.Background()
	_, err := fx.engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)
	_, err = fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate})
	require.NoError(t, err)
	_, err = fx.engine.Leave(ctx, "c2", "s1", "bob", domain.RoleCandidate)
	require.NoError(t, err)
	_, err = fx.engine.Leave(ctx, "c1", "s1", "alice", domain.RoleInterviewer)
	require.NoError(t, err)

	// A join after completion must not reopen the session.
	s, err := fx.engine.Join(ctx, "c3", app.JoinInput{SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, s.Status)
}

func TestStaleDisconnectAfterReconnect(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	fx.addConn("c1")
	fx.addConn("c2")

	ctx := context.Background()
	_, err := fx.engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)
	_, err = fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate})
	require.NoError(t, err)

	// Page refresh: alice's new connection joins before the old one's read
	// loop notices the close.
	fx.addConn("c3")
	_, err = fx.engine.Join(ctx, "c3", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)

	fx.engine.Disconnect(ctx, "c1")

	s, err := fx.store.Find(ctx, "s1")
	require.NoError(t, err)
	p, ok := s.Participant("alice")
	require.True(t, ok)
	assert.Equal(t, domain.PresenceJoined, p.Status, "the stale connection must not clobber the live one")
	_, ok = fx.reg.Lookup("s1", "alice")
	assert.True(t, ok)

	// Signaling keeps working for the reconnected participant.
	relay := app.NewRelay(fx.store, fx.reg, app.NewBroadcaster(fx.reg))
	err = relay.Relay(ctx, app.SignalOffer, "s1", "alice", "bob", offerPayload("v=0"))
	require.NoError(t, err)
}

func TestRejectedJoinDoesNotBindConnection(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	fx.addConn("c1")
	fx.addConn("c2")

	ctx := context.Background()
	_, err := fx.engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)

	_, err = fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "eve", Name: "Eve", Role: domain.RoleInterviewer})
	require.Error(t, err)
	_, bound := fx.reg.UserOf("c2")
	assert.False(t, bound, "a rejected join must not claim the connection")

	// The same connection can still join as a valid user afterwards.
	_, err = fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "bob", Name: "Bob", Role: domain.RoleCandidate})
	require.NoError(t, err)
}

func TestRoleConflictRejected(t *testing.T) {
	fx := newFixture(t)
	fx.createInterview(t, "s1")
	fx.addConn("c1")
	fx.addConn("c2")

	ctx := context.Background()
	_, err := fx.engine.Join(ctx, "c1", app.JoinInput{SessionID: "s1", UserID: "alice", Name: "Alice", Role: domain.RoleInterviewer})
	require.NoError(t, err)

	_, err = fx.engine.Join(ctx, "c2", app.JoinInput{SessionID: "s1", UserID: "eve", Name: "Eve", Role: domain.RoleInterviewer})
	require.Error(t, err)
	assert.Equal(t, "unauthorized", domain.ErrorKind(err))
}
