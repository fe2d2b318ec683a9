package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callbridge/callbridge/internal/domain"
	"github.com/callbridge/callbridge/internal/session"
	"github.com/callbridge/callbridge/internal/store/memstore"
)

func newService(t *testing.T, userCount int) (*session.Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	names := []string{"", "alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi", "ivan", "judy", "kim", "leo"}
	for i := 1; i <= userCount; i++ {
		name := "user"
		if i < len(names) {
			name = names[i]
		}
		st.AddUser(domain.User{ID: uint(i), Username: name, IsActive: true})
	}
	return session.NewService(st), st
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()

	cases := []struct {
		name    string
		session string
		max     int
	}{
		{"empty name", "", 5},
		{"too few", "standup", 1},
		{"too many", "standup", 101},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, 1, tc.session, tc.max, domain.TypeVideoCall)
			assert.ErrorIs(t, err, session.ErrValidation)
		})
	}
}

func TestCreateSession(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()

	summary, err := svc.Create(ctx, 1, "standup", 5, domain.TypeAudioOnly)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.SessionID)
	assert.Equal(t, "standup", summary.Name)
	assert.Equal(t, 0, summary.CurrentParticipants)
	assert.Equal(t, domain.SessionActive, summary.Status)
	assert.Equal(t, "alice", summary.CreatorUsername)
}

func TestJoinUnknownSession(t *testing.T) {
	svc, _ := newService(t, 1)
	_, err := svc.Join(context.Background(), 1, "no-such-session", "c1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

// Scenario: a 2-seat session admits two users and rejects the third as full,
// not as missing.
func TestJoinCapacity(t *testing.T) {
	svc, _ := newService(t, 3)
	ctx := context.Background()

	summary, err := svc.Create(ctx, 1, "standup", 2, domain.TypeVideoCall)
	require.NoError(t, err)
	sid := summary.SessionID

	detail, err := svc.Join(ctx, 1, sid, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, detail.CurrentParticipants)
	assert.Equal(t, domain.SessionActive, detail.Status)

	detail, err = svc.Join(ctx, 2, sid, "c2")
	require.NoError(t, err)
	assert.Equal(t, 2, detail.CurrentParticipants)

	_, err = svc.Join(ctx, 3, sid, "c3")
	assert.ErrorIs(t, err, session.ErrSessionFull)
	assert.NotErrorIs(t, err, session.ErrNotFound)
}

// Scenario: reconnecting rebinds the existing membership instead of
// duplicating it.
func TestRejoinRebindsInPlace(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()

	summary, err := svc.Create(ctx, 1, "standup", 5, domain.TypeVideoCall)
	require.NoError(t, err)

	_, err = svc.Join(ctx, 1, summary.SessionID, "c1")
	require.NoError(t, err)

	detail, err := svc.Join(ctx, 1, summary.SessionID, "c2")
	require.NoError(t, err)
	require.Len(t, detail.Participants, 1)
	assert.Equal(t, "c2", detail.Participants[0].ConnectionID)
	assert.Equal(t, domain.ParticipantConnected, detail.Participants[0].Status)
	assert.Equal(t, 1, detail.CurrentParticipants)
}

func TestLeaveAndRejoinPreservesHistory(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()

	summary, err := svc.Create(ctx, 1, "standup", 5, domain.TypeVideoCall)
	require.NoError(t, err)
	sid := summary.SessionID

	first, err := svc.Join(ctx, 1, sid, "c1")
	require.NoError(t, err)
	firstJoin := first.Participants[0].JoinedAt

	left, err := svc.Leave(ctx, 1, sid)
	require.NoError(t, err)
	assert.True(t, left)

	// Nothing active to leave now; benign false, not an error.
	left, err = svc.Leave(ctx, 1, sid)
	require.NoError(t, err)
	assert.False(t, left)

	second, err := svc.Join(ctx, 1, sid, "c2")
	require.NoError(t, err)
	require.Len(t, second.Participants, 1)
	assert.True(t, second.Participants[0].JoinedAt.After(firstJoin) || second.Participants[0].JoinedAt.Equal(firstJoin))
	assert.Equal(t, "c2", second.Participants[0].ConnectionID)
}

func TestEndSessionOnlyCreator(t *testing.T) {
	svc, _ := newService(t, 2)
	ctx := context.Background()

	summary, err := svc.Create(ctx, 1, "standup", 5, domain.TypeVideoCall)
	require.NoError(t, err)
	sid := summary.SessionID
	_, err = svc.Join(ctx, 2, sid, "c2")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ended, err := svc.End(ctx, 2, sid)
		require.NoError(t, err)
		assert.False(t, ended)
	}
	detail, err := svc.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, detail.Status)

	ended, err := svc.End(ctx, 1, sid)
	require.NoError(t, err)
	assert.True(t, ended)

	detail, err = svc.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionEnded, detail.Status)
	assert.Empty(t, detail.Participants, "everyone soft-left on end")

	// Ended sessions no longer admit joins but remain readable.
	_, err = svc.Join(ctx, 2, sid, "c3")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestListActiveNewestFirst(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()

	older, err := svc.Create(ctx, 1, "older", 5, domain.TypeVideoCall)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	newer, err := svc.Create(ctx, 1, "newer", 5, domain.TypeVideoCall)
	require.NoError(t, err)

	ended, err := svc.Create(ctx, 1, "gone", 5, domain.TypeVideoCall)
	require.NoError(t, err)
	_, err = svc.End(ctx, 1, ended.SessionID)
	require.NoError(t, err)

	list, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.SessionID, list[0].SessionID)
	assert.Equal(t, older.SessionID, list[1].SessionID)
}

func TestUpdateParticipantStatus(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()

	summary, err := svc.Create(ctx, 1, "standup", 5, domain.TypeVideoCall)
	require.NoError(t, err)
	_, err = svc.Join(ctx, 1, summary.SessionID, "c1")
	require.NoError(t, err)

	ok, err := svc.UpdateParticipantStatus(ctx, "c1", true, false)
	require.NoError(t, err)
	assert.True(t, ok)

	detail, err := svc.Get(ctx, summary.SessionID)
	require.NoError(t, err)
	require.Len(t, detail.Participants, 1)
	assert.True(t, detail.Participants[0].IsMuted)
	assert.False(t, detail.Participants[0].IsVideoEnabled)

	ok, err = svc.UpdateParticipantStatus(ctx, "unknown-conn", true, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

// The capacity check and the membership insert must be atomic per session:
// when one seat is free, concurrent joins admit exactly one user.
func TestConcurrentJoinLastSlot(t *testing.T) {
	const contenders = 10
	svc, _ := newService(t, contenders+1)
	ctx := context.Background()

	summary, err := svc.Create(ctx, 1, "standup", 2, domain.TypeVideoCall)
	require.NoError(t, err)
	sid := summary.SessionID
	_, err = svc.Join(ctx, 1, sid, "c1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(user uint) {
			defer wg.Done()
			_, err := svc.Join(ctx, user, sid, "conn")
			results <- err
		}(uint(i + 2))
	}
	wg.Wait()
	close(results)

	admitted, full := 0, 0
	for err := range results {
		switch {
		case err == nil:
			admitted++
		default:
			require.ErrorIs(t, err, session.ErrSessionFull)
			full++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, contenders-1, full)

	detail, err := svc.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.CurrentParticipants)
}
