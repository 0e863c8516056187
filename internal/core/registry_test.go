package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

type nopSender struct{}

func (nopSender) TrySend(core.Frame) error { return nil }
func (nopSender) Close()                   {}

func TestBindFirstWins(t *testing.T) {
	r := core.NewRegistry()
	r.Add("c1", nopSender{})

	require.NoError(t, r.Bind("c1", "alice"))
	require.NoError(t, r.Bind("c1", "alice"), "rebinding the same user is fine")

	err := r.Bind("c1", "bob")
	require.Error(t, err)
	assert.Equal(t, "unauthorized", domain.ErrorKind(err))

	u, ok := r.UserOf("c1")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("alice"), u)
}

func TestBindUnknownConnection(t *testing.T) {
	r := core.NewRegistry()
	err := r.Bind("ghost", "alice")
	require.Error(t, err)
	assert.Equal(t, "not-found", domain.ErrorKind(err))
}

func TestLookupRequiresMembership(t *testing.T) {
	r := core.NewRegistry()
	r.Add("c1", nopSender{})
	require.NoError(t, r.Bind("c1", "alice"))

	_, ok := r.Lookup("s1", "alice")
	assert.False(t, ok, "bound but not joined must not resolve")

	r.JoinSession("c1", "s1")
	_, ok = r.Lookup("s1", "alice")
	assert.True(t, ok)

	_, ok = r.Lookup("s2", "alice")
	assert.False(t, ok, "membership is per session")
}

func TestJoinSessionIgnoresUnboundConnection(t *testing.T) {
	r := core.NewRegistry()
	r.Add("c1", nopSender{})

	r.JoinSession("c1", "s1")
	assert.Empty(t, r.MembersOf("s1"))
}

func TestLeaveSessionKeepsConnection(t *testing.T) {
	r := core.NewRegistry()
	r.Add("c1", nopSender{})
	require.NoError(t, r.Bind("c1", "alice"))
	r.JoinSession("c1", "s1")
	r.JoinSession("c1", "s2")

	r.LeaveSession("c1", "s1")

	_, ok := r.Lookup("s1", "alice")
	assert.False(t, ok)
	_, ok = r.Lookup("s2", "alice")
	assert.True(t, ok, "other memberships survive")
	_, ok = r.UserOf("c1")
	assert.True(t, ok, "identity survives leaving a session")
}

func TestMembersOfSnapshots(t *testing.T) {
	r := core.NewRegistry()
	for _, c := range []struct {
		conn core.ConnID
		user domain.UserID
	}{{"c1", "alice"}, {"c2", "bob"}} {
		r.Add(c.conn, nopSender{})
		require.NoError(t, r.Bind(c.conn, c.user))
		r.JoinSession(c.conn, "s1")
	}

	members := r.MembersOf("s1")
	require.Len(t, members, 2)
	seen := map[domain.UserID]bool{}
	for _, m := range members {
		seen[m.User] = true
		assert.NotNil(t, m.Sender)
	}
	assert.True(t, seen["alice"] && seen["bob"])
}

func TestRemoveReportsCleanupWork(t *testing.T) {
	r := core.NewRegistry()
	r.Add("c1", nopSender{})
	require.NoError(t, r.Bind("c1", "alice"))
	r.JoinSession("c1", "s1")
	r.JoinSession("c1", "s2")

	user, sessions := r.Remove("c1")
	assert.Equal(t, domain.UserID("alice"), user)
	assert.ElementsMatch(t, []domain.SessionID{"s1", "s2"}, sessions)

	_, ok := r.Lookup("s1", "alice")
	assert.False(t, ok)
	assert.Empty(t, r.Sessions(), "empty sessions are dropped from the index")

	user, sessions = r.Remove("c1")
	assert.Empty(t, user)
	assert.Empty(t, sessions)
}

func TestReconnectTakesOverMapping(t *testing.T) {
	r := core.NewRegistry()
	r.Add("c1", nopSender{})
	require.NoError(t, r.Bind("c1", "alice"))
	r.JoinSession("c1", "s1")

	// Same user on a fresh connection: the newer mapping wins and the
	// stale one must not claw back the index entry when removed.
	r.Add("c2", nopSender{})
	require.NoError(t, r.Bind("c2", "alice"))
	r.JoinSession("c2", "s1")

	_, sessions := r.Remove("c1")
	assert.Empty(t, sessions, "a superseded connection has no cleanup work")

	_, ok := r.Lookup("s1", "alice")
	assert.True(t, ok, "the live connection keeps the mapping")
}
