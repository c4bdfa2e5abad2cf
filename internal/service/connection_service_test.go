package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/campusnet/internal/domain"
)

func TestConnection_RequestAcceptScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.connections.Request(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionPending, req.Status)

	bobsNotes, err := env.notifications.List(ctx, bob, false, 0)
	require.NoError(t, err)
	require.Len(t, bobsNotes, 1)
	assert.Equal(t, domain.NotificationConnection, bobsNotes[0].Kind)
	assert.Equal(t, alice, bobsNotes[0].Actor)
	assert.Contains(t, bobsNotes[0].Message, "Alice Anderson")

	accepted, err := env.connections.Accept(ctx, req.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)
	assert.Equal(t, 1, env.unread(t, alice))

	_, err = env.connections.Request(ctx, alice, bob)
	assert.ErrorIs(t, err, ErrAlreadyConnected)
	_, err = env.connections.Request(ctx, bob, alice)
	assert.ErrorIs(t, err, ErrAlreadyConnected)

	status, err := env.connections.StatusBetween(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, string(domain.ConnectionAccepted), status.Status)
	assert.Empty(t, status.Direction)
}

func TestConnection_RequestErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.connections.Request(ctx, alice, alice)
	assert.ErrorIs(t, err, ErrCannotRequestSelf)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	_, err = env.connections.Request(ctx, alice, "ghost@uni.example")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = env.connections.Request(ctx, alice, bob)
	require.NoError(t, err)

	_, err = env.connections.Request(ctx, bob, alice)
	require.ErrorIs(t, err, ErrRequestExists)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ConnectionPending, de.Status)
}

func TestConnection_RejectedPairStaysBlocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.connections.Request(ctx, alice, bob)
	require.NoError(t, err)
	_, err = env.connections.Reject(ctx, req.ID, bob)
	require.NoError(t, err)

	_, err = env.connections.Request(ctx, alice, bob)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "RequestExists", de.Code)
	assert.Equal(t, domain.ConnectionRejected, de.Status)

	// One notification for the request, one for the rejection.
	assert.Equal(t, 1, env.unread(t, bob))
	assert.Equal(t, 1, env.unread(t, alice))
}

func TestConnection_OnlyTargetMayRespond(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.connections.Request(ctx, alice, bob)
	require.NoError(t, err)

	tests := []struct {
		name  string
		actor domain.Identity
		id    uuid.UUID
	}{
		{"requester", alice, req.ID},
		{"stranger", carol, req.ID},
		{"unknown id", bob, uuid.New()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.connections.Accept(ctx, tc.id, tc.actor)
			assert.ErrorIs(t, err, ErrRequestNotFound)
			_, err = env.connections.Reject(ctx, tc.id, tc.actor)
			assert.ErrorIs(t, err, ErrRequestNotFound)
		})
	}

	status, err := env.connections.StatusBetween(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, string(domain.ConnectionPending), status.Status)
	assert.Equal(t, domain.DirectionSent, status.Direction)
}

func TestConnection_TerminalStatesCannotChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.connections.Request(ctx, alice, bob)
	require.NoError(t, err)
	_, err = env.connections.Accept(ctx, req.ID, bob)
	require.NoError(t, err)

	_, err = env.connections.Reject(ctx, req.ID, bob)
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = env.connections.Accept(ctx, req.ID, bob)
	assert.ErrorIs(t, err, ErrNotPending)

	// No notification for the refused transitions.
	assert.Equal(t, 1, env.unread(t, alice))
}

func TestConnection_StatusBetween(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	status, err := env.connections.StatusBetween(ctx, alice, carol)
	require.NoError(t, err)
	assert.Equal(t, domain.RelationshipNone, status.Status)
	assert.Nil(t, status.RequestID)

	req, err := env.connections.Request(ctx, alice, carol)
	require.NoError(t, err)

	status, err = env.connections.StatusBetween(ctx, carol, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionReceived, status.Direction)
	require.NotNil(t, status.RequestID)
	assert.Equal(t, req.ID, *status.RequestID)
}

func TestConnection_Lists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r1, err := env.connections.Request(ctx, alice, bob)
	require.NoError(t, err)
	_, err = env.connections.Request(ctx, carol, alice)
	require.NoError(t, err)
	_, err = env.connections.Request(ctx, alice, dave)
	require.NoError(t, err)
	_, err = env.connections.Accept(ctx, r1.ID, bob)
	require.NoError(t, err)

	incoming, err := env.connections.ListIncoming(ctx, alice)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, carol, incoming[0].Requester)
	assert.Equal(t, "Carol Čović", incoming[0].RequesterName)

	outgoing, err := env.connections.ListOutgoing(ctx, alice)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, dave, outgoing[0].Target)

	conns, err := env.connections.ListConnections(ctx, bob)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, alice, conns[0].OtherIdentity)
	assert.Equal(t, "Alice Anderson", conns[0].OtherDisplayName)

	empty, err := env.connections.ListConnections(ctx, carol)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestConnection_ConcurrentRequestsCreateOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			from, to := alice, bob
			if i%2 == 1 {
				from, to = bob, alice
			}
			_, err := env.connections.Request(ctx, from, to)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrRequestExists):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, env.store.Counts().Requests)
	assert.Equal(t, 1, env.store.Counts().Notifications)
}

func TestConnection_NotificationFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.InjectFault("notifications.Create", errors.New("notifications table locked"))

	req, err := env.connections.Request(ctx, alice, bob)
	require.NoError(t, err)
	assert.NotNil(t, req)

	assert.Equal(t, 1, env.store.Counts().Requests)
	assert.Equal(t, 0, env.store.Counts().Notifications)
	assert.Contains(t, env.logs.String(), "notification dropped")
	assert.Contains(t, env.logs.String(), "notifications table locked")
}

func TestConnection_StoreFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.connections.Request(ctx, alice, bob)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	env.store.InjectFault("profiles.GetByIdentity", boom)

	_, err = env.connections.Accept(ctx, req.ID, bob)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))

	status, err := env.connections.StatusBetween(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, string(domain.ConnectionPending), status.Status)
	assert.Equal(t, 0, env.unread(t, alice))
}

func TestConnection_GetVisibleToPartiesOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.connections.Request(ctx, alice, bob)
	require.NoError(t, err)

	for _, viewer := range []domain.Identity{alice, bob} {
		got, err := env.connections.Get(ctx, req.ID, viewer)
		require.NoError(t, err)
		assert.Equal(t, req.ID, got.ID)
		assert.Equal(t, domain.ConnectionPending, got.Status)
	}

	_, err = env.connections.Get(ctx, req.ID, carol)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = env.connections.Get(ctx, uuid.New(), alice)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}
