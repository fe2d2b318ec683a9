package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callbridge/callbridge/internal/app"
	"github.com/callbridge/callbridge/internal/audit"
	"github.com/callbridge/callbridge/internal/core"
	"github.com/callbridge/callbridge/internal/domain"
	"github.com/callbridge/callbridge/internal/session"
	"github.com/callbridge/callbridge/internal/store/memstore"
)

type recordConn struct {
	mu     sync.Mutex
	events []map[string]any
}

func (c *recordConn) TrySend(f core.Frame) error {
	var ev map[string]any
	if err := json.Unmarshal(f, &ev); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *recordConn) Close() {}

func (c *recordConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

func (c *recordConn) ofType(typ string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, ev := range c.events {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	relay    *app.Relay
	registry *app.Registry
	hub      *core.Hub
	svc      *session.Service
	store    *memstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	st.AddUser(domain.User{ID: 1, Username: "alice", IsActive: true})
	st.AddUser(domain.User{ID: 2, Username: "bob", IsActive: true})
	svc := session.NewService(st)
	registry := app.NewRegistry()
	hub := core.NewHub()
	relay := app.NewRelay(svc, registry, hub, audit.NewRecorder(st.ConnectionLogs()))
	return &fixture{relay: relay, registry: registry, hub: hub, svc: svc, store: st}
}

func (f *fixture) createSession(t *testing.T, creator uint, max int) string {
	t.Helper()
	summary, err := f.svc.Create(context.Background(), creator, "call", max, domain.TypeVideoCall)
	require.NoError(t, err)
	return summary.SessionID
}

func (f *fixture) connect(id app.Identity, connID core.ConnectionID) *recordConn {
	conn := &recordConn{}
	f.relay.HandleConnect(id, connID, conn, "127.0.0.1", "test-agent")
	return conn
}

var (
	alice = app.Identity{UserID: 1, Username: "alice"}
	bob   = app.Identity{UserID: 2, Username: "bob"}
)

func TestJoinAnnouncesToOthersOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.createSession(t, 1, 5)

	c1 := f.connect(alice, "c1")
	f.relay.JoinSession(ctx, alice, "c1", sid)

	require.Len(t, c1.ofType("session_state"), 1, "caller gets the session snapshot")
	assert.Empty(t, c1.ofType("participant_joined"), "caller is not announced to itself")

	c2 := f.connect(bob, "c2")
	f.relay.JoinSession(ctx, bob, "c2", sid)

	joined := c1.ofType("participant_joined")
	require.Len(t, joined, 1)
	assert.Equal(t, float64(2), joined[0]["userId"])
	assert.Equal(t, "c2", joined[0]["connectionId"])
	assert.Empty(t, c2.ofType("participant_joined"))
}

func TestJoinFailureSendsErrorToCallerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c1 := f.connect(alice, "c1")
	f.relay.JoinSession(ctx, alice, "c1", "no-such-session")

	errs := c1.ofType("error")
	require.Len(t, errs, 1)
	assert.Equal(t, "session not found", errs[0]["message"])

	_, bound := f.registry.Lookup("c1")
	assert.False(t, bound, "failed join leaves no binding")
	assert.Empty(t, f.hub.Members("no-such-session"))
}

func TestJoinFullSessionDistinctError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.createSession(t, 1, 2)

	f.connect(alice, "c1")
	f.relay.JoinSession(ctx, alice, "c1", sid)
	f.connect(bob, "c2")
	f.relay.JoinSession(ctx, bob, "c2", sid)

	f.store.AddUser(domain.User{ID: 3, Username: "carol", IsActive: true})
	carol := app.Identity{UserID: 3, Username: "carol"}
	c3 := f.connect(carol, "c3")
	f.relay.JoinSession(ctx, carol, "c3", sid)

	errs := c3.ofType("error")
	require.Len(t, errs, 1)
	assert.Equal(t, "session is full", errs[0]["message"])
}

// Chat goes to everyone including the sender; status updates go to everyone
// but the sender.
func TestChatIncludesSenderStatusDoesNot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.createSession(t, 1, 5)

	c1 := f.connect(alice, "c1")
	f.relay.JoinSession(ctx, alice, "c1", sid)
	c2 := f.connect(bob, "c2")
	f.relay.JoinSession(ctx, bob, "c2", sid)
	c1.reset()
	c2.reset()

	f.relay.SendMessage(alice, sid, "hello there")

	msgs1 := c1.ofType("receive_message")
	msgs2 := c2.ofType("receive_message")
	require.Len(t, msgs1, 1)
	require.Len(t, msgs2, 1)
	assert.Equal(t, "alice", msgs1[0]["username"])
	assert.Equal(t, "hello there", msgs1[0]["message"])

	f.relay.UpdateStatus(ctx, alice, "c1", sid, true, false)

	assert.Empty(t, c1.ofType("participant_status"), "sender already knows its status")
	status := c2.ofType("participant_status")
	require.Len(t, status, 1)
	assert.Equal(t, true, status[0]["isMuted"])
	assert.Equal(t, false, status[0]["isVideoEnabled"])
}

func TestOfferAnswerCandidateUnicast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.createSession(t, 1, 5)

	c1 := f.connect(alice, "c1")
	f.relay.JoinSession(ctx, alice, "c1", sid)
	c2 := f.connect(bob, "c2")
	f.relay.JoinSession(ctx, bob, "c2", sid)
	c1.reset()
	c2.reset()

	f.relay.SendOffer(alice, "c1", "c2", json.RawMessage(`{"sdp":"v=0..."}`))
	offers := c2.ofType("receive_offer")
	require.Len(t, offers, 1)
	assert.Equal(t, "c1", offers[0]["fromConnectionId"])
	assert.Equal(t, float64(1), offers[0]["fromUserId"])
	assert.Empty(t, c1.ofType("receive_offer"))

	f.relay.SendAnswer(bob, "c2", "c1", json.RawMessage(`{"sdp":"v=0..."}`))
	answers := c1.ofType("receive_answer")
	require.Len(t, answers, 1)
	assert.Equal(t, "c2", answers[0]["fromConnectionId"])

	f.relay.SendIceCandidate("c1", "c2", json.RawMessage(`{"candidate":"udp ..."}`))
	cands := c2.ofType("receive_ice_candidate")
	require.Len(t, cands, 1)
	assert.Equal(t, "c1", cands[0]["fromConnectionId"])

	// Stale target: silently dropped.
	f.relay.SendOffer(alice, "c1", "gone", json.RawMessage(`{}`))
}

// Scenario: abrupt drop mid-session. Remaining members get exactly one
// participant_left; a second disconnect signal for the same connection is
// silent.
func TestDisconnectCleanupRunsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.createSession(t, 1, 5)

	f.connect(alice, "c1")
	f.relay.JoinSession(ctx, alice, "c1", sid)
	c2 := f.connect(bob, "c2")
	f.relay.JoinSession(ctx, bob, "c2", sid)
	c2.reset()

	f.relay.HandleDisconnect(ctx, "c1", "read tcp: connection reset by peer")

	left := c2.ofType("participant_left")
	require.Len(t, left, 1)
	assert.Equal(t, float64(1), left[0]["userId"])
	assert.Equal(t, "c1", left[0]["connectionId"])

	_, bound := f.registry.Lookup("c1")
	assert.False(t, bound)

	f.relay.HandleDisconnect(ctx, "c1", "")
	assert.Len(t, c2.ofType("participant_left"), 1, "no duplicate broadcast")
}

func TestVoluntaryLeaveNotifiesRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.createSession(t, 1, 5)

	c1 := f.connect(alice, "c1")
	f.relay.JoinSession(ctx, alice, "c1", sid)
	c2 := f.connect(bob, "c2")
	f.relay.JoinSession(ctx, bob, "c2", sid)
	c1.reset()
	c2.reset()

	f.relay.LeaveSession(ctx, alice, "c1", sid)

	require.Len(t, c2.ofType("participant_left"), 1)
	assert.Empty(t, c1.ofType("participant_left"), "leaver already left the group")

	_, bound := f.registry.Lookup("c1")
	assert.False(t, bound)

	// The later transport disconnect finds nothing left to announce.
	f.relay.HandleDisconnect(ctx, "c1", "")
	assert.Len(t, c2.ofType("participant_left"), 1)
}

// One connection serves one session: joining a second session leaves the
// first, with the usual announcement.
func TestJoinSecondSessionLeavesFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1 := f.createSession(t, 1, 5)
	s2 := f.createSession(t, 1, 5)

	f.connect(alice, "c1")
	f.relay.JoinSession(ctx, alice, "c1", s1)
	c2 := f.connect(bob, "c2")
	f.relay.JoinSession(ctx, bob, "c2", s1)
	c2.reset()

	f.relay.JoinSession(ctx, alice, "c1", s2)

	require.Len(t, c2.ofType("participant_left"), 1, "first session was told")
	b, ok := f.registry.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, s2, b.SessionID)
	assert.NotContains(t, f.hub.Members(s1), core.ConnectionID("c1"))
	assert.Contains(t, f.hub.Members(s2), core.ConnectionID("c1"))
}

// Scenario: reconnect on a new connection without leaving. The membership is
// rebound; tearing down the old connection later does not disturb it.
func TestReconnectRebindsMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.createSession(t, 1, 5)

	f.connect(alice, "c1")
	f.relay.JoinSession(ctx, alice, "c1", sid)
	f.connect(alice, "c1b")
	f.relay.JoinSession(ctx, alice, "c1b", sid)

	detail, err := f.svc.Get(ctx, sid)
	require.NoError(t, err)
	require.Len(t, detail.Participants, 1, "no duplicate membership")
	assert.Equal(t, "c1b", detail.Participants[0].ConnectionID)

	// Old connection tears down independently.
	f.relay.HandleDisconnect(ctx, "c1", "")

	detail, err = f.svc.Get(ctx, sid)
	require.NoError(t, err)
	require.Len(t, detail.Participants, 1)
	assert.Equal(t, "c1b", detail.Participants[0].ConnectionID)
}
