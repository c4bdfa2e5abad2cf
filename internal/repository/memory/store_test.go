package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/repository"
)

const (
	ana   domain.Identity = "ana@uni.example"
	bojan domain.Identity = "bojan@uni.example"
	cvita domain.Identity = "cvita@uni.example"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.AddProfile(domain.Profile{Identity: ana, DisplayName: "Ana Anić"})
	s.AddProfile(domain.Profile{Identity: bojan, DisplayName: "Bojan Babić"})
	s.AddProfile(domain.Profile{Identity: cvita, DisplayName: "Cvita Čović"})
	return s
}

func request(from, to domain.Identity) *domain.ConnectionRequest {
	return &domain.ConnectionRequest{
		ID:        uuid.New(),
		Requester: from,
		Target:    to,
		Status:    domain.ConnectionPending,
		CreatedAt: time.Now(),
	}
}

func TestRunScoped_RequiresIdentity(t *testing.T) {
	s := NewStore()
	err := s.RunScoped(context.Background(), "", func(ctx context.Context, repos repository.Repositories) error {
		t.Fatal("work must not run")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrMissingIdentity)
}

func TestRun_RollsBackOnError(t *testing.T) {
	s := seeded(t)
	boom := errors.New("boom")

	err := s.RunScoped(context.Background(), ana, func(ctx context.Context, repos repository.Repositories) error {
		require.NoError(t, repos.Connections.Create(ctx, request(ana, bojan)))
		return boom
	})

	assert.Same(t, boom, err)
	assert.Equal(t, 0, s.Counts().Requests)
}

func TestRun_CancelledContext(t *testing.T) {
	s := seeded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunScoped(ctx, ana, func(ctx context.Context, repos repository.Repositories) error {
		return nil
	})

	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
}

func TestRun_ReadOnlyRejectsWrites(t *testing.T) {
	s := seeded(t)
	err := s.RunScoped(context.Background(), ana, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Connections.Create(ctx, request(ana, bojan))
	}, repository.ReadOnly())

	assert.ErrorIs(t, err, errReadOnly)
	assert.Equal(t, 0, s.Counts().Requests)
}

func TestConnections_PairIsUnique(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.RunScoped(ctx, ana, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Connections.Create(ctx, request(ana, bojan))
	}))

	err := s.RunScoped(ctx, bojan, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Connections.Create(ctx, request(bojan, ana))
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestConnections_VisibleToPartiesOnly(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	req := request(ana, bojan)

	require.NoError(t, s.RunScoped(ctx, ana, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Connections.Create(ctx, req)
	}))

	for _, tc := range []struct {
		identity domain.Identity
		visible  bool
	}{
		{ana, true},
		{bojan, true},
		{cvita, false},
	} {
		t.Run(tc.identity.String(), func(t *testing.T) {
			var got *domain.ConnectionRequest
			require.NoError(t, s.RunScoped(ctx, tc.identity, func(ctx context.Context, repos repository.Repositories) error {
				var err error
				got, err = repos.Connections.GetByID(ctx, req.ID)
				return err
			}))
			assert.Equal(t, tc.visible, got != nil)
		})
	}
}

func TestConnections_ScopedInsertMustInvolveCaller(t *testing.T) {
	s := seeded(t)
	err := s.RunScoped(context.Background(), cvita, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Connections.Create(ctx, request(ana, bojan))
	})
	assert.ErrorIs(t, err, errRowPolicy)
}

func TestConnections_UpdateStatusIsGuarded(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	req := request(ana, bojan)

	require.NoError(t, s.RunUnscoped(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Connections.Create(ctx, req)
	}))

	var first, second bool
	require.NoError(t, s.RunScoped(ctx, bojan, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		first, err = repos.Connections.UpdateStatus(ctx, req.ID, domain.ConnectionPending, domain.ConnectionAccepted, time.Now())
		if err != nil {
			return err
		}
		second, err = repos.Connections.UpdateStatus(ctx, req.ID, domain.ConnectionPending, domain.ConnectionRejected, time.Now())
		return err
	}))

	assert.True(t, first)
	assert.False(t, second)
}

func TestConversations_PrivatePairIsUnique(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	lo, hi := domain.OrderedPair(ana, bojan)

	create := func(creator domain.Identity) error {
		return s.RunScoped(ctx, creator, func(ctx context.Context, repos repository.Repositories) error {
			return repos.Conversations.Create(ctx, &domain.Conversation{
				ID:        uuid.New(),
				Creator:   creator,
				Kind:      domain.ConversationPrivate,
				PairLow:   &lo,
				PairHigh:  &hi,
				CreatedAt: time.Now(),
			})
		})
	}

	require.NoError(t, create(ana))
	assert.ErrorIs(t, create(bojan), repository.ErrDuplicate)
	assert.Equal(t, 1, s.Counts().Conversations)
}

func TestConversations_MessagesRequireParticipation(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	conv := &domain.Conversation{ID: uuid.New(), Creator: ana, Kind: domain.ConversationGroup, CreatedAt: time.Now()}

	require.NoError(t, s.RunScoped(ctx, ana, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Conversations.Create(ctx, conv); err != nil {
			return err
		}
		for _, id := range []domain.Identity{ana, bojan} {
			if err := repos.Conversations.AddParticipant(ctx, &domain.Participant{ConversationID: conv.ID, Identity: id, JoinedAt: time.Now()}); err != nil {
				return err
			}
		}
		return nil
	}))

	msg := func(author domain.Identity) *domain.Message {
		return &domain.Message{ID: uuid.New(), ConversationID: conv.ID, Author: author, Body: "hi", Status: domain.MessageSent, SentAt: time.Now()}
	}

	err := s.RunScoped(ctx, cvita, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Conversations.CreateMessage(ctx, msg(cvita))
	})
	assert.ErrorIs(t, err, errRowPolicy)

	err = s.RunScoped(ctx, bojan, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Conversations.CreateMessage(ctx, msg(ana))
	})
	assert.ErrorIs(t, err, errRowPolicy)

	var seen *domain.Conversation
	require.NoError(t, s.RunScoped(ctx, cvita, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		seen, err = repos.Conversations.GetByID(ctx, conv.ID)
		return err
	}))
	assert.Nil(t, seen)
}

func TestConversations_ListMessagesPagesBackwards(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	conv := &domain.Conversation{ID: uuid.New(), Creator: ana, Kind: domain.ConversationGroup, CreatedAt: time.Now()}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	require.NoError(t, s.RunScoped(ctx, ana, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Conversations.Create(ctx, conv); err != nil {
			return err
		}
		if err := repos.Conversations.AddParticipant(ctx, &domain.Participant{ConversationID: conv.ID, Identity: ana, JoinedAt: at}); err != nil {
			return err
		}
		// Identical timestamps; seq decides the order.
		for range 5 {
			m := &domain.Message{ID: uuid.New(), ConversationID: conv.ID, Author: ana, Body: "x", Status: domain.MessageSent, SentAt: at}
			if err := repos.Conversations.CreateMessage(ctx, m); err != nil {
				return err
			}
			ids = append(ids, m.ID)
		}
		return nil
	}))

	var latest, older []domain.Message
	require.NoError(t, s.RunScoped(ctx, ana, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if latest, err = repos.Conversations.ListMessages(ctx, conv.ID, nil, 2); err != nil {
			return err
		}
		older, err = repos.Conversations.ListMessages(ctx, conv.ID, &latest[0].ID, 10)
		return err
	}, repository.ReadOnly()))

	require.Len(t, latest, 2)
	assert.Equal(t, ids[3], latest[0].ID)
	assert.Equal(t, ids[4], latest[1].ID)
	require.Len(t, older, 3)
	assert.Equal(t, ids[0], older[0].ID)
	assert.Equal(t, ids[2], older[2].ID)
}

func TestNotifications_ActorInsertRecipientRead(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	n := &domain.Notification{
		ID: uuid.New(), Recipient: bojan, Actor: ana, Kind: domain.NotificationConnection,
		Message: "hello", ActionRef: "/connections", CreatedAt: time.Now(),
	}

	forged := *n
	forged.ID = uuid.New()
	err := s.RunScoped(ctx, cvita, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Notifications.Create(ctx, &forged)
	})
	assert.ErrorIs(t, err, errRowPolicy)

	require.NoError(t, s.RunScoped(ctx, ana, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Notifications.Create(ctx, n)
	}))

	count := func(id domain.Identity) int {
		var c int
		require.NoError(t, s.RunScoped(ctx, id, func(ctx context.Context, repos repository.Repositories) error {
			var err error
			c, err = repos.Notifications.CountUnread(ctx, bojan)
			return err
		}))
		return c
	}
	assert.Equal(t, 1, count(bojan))
	assert.Equal(t, 0, count(ana))
}

func TestInjectFault_FiresOnce(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	boom := errors.New("disk on fire")
	s.InjectFault("profiles.Exists", boom)

	check := func() error {
		return s.RunUnscoped(ctx, func(ctx context.Context, repos repository.Repositories) error {
			_, err := repos.Profiles.Exists(ctx, ana)
			return err
		})
	}
	assert.ErrorIs(t, check(), boom)
	assert.NoError(t, check())
}

func TestProfiles_SearchFoldsAccents(t *testing.T) {
	s := seeded(t)
	var hits []domain.ProfileHit
	require.NoError(t, s.RunScoped(context.Background(), ana, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		hits, err = repos.Profiles.Search(ctx, ana, "covic", 10)
		return err
	}))

	require.Len(t, hits, 1)
	assert.Equal(t, cvita, hits[0].Identity)
	assert.Equal(t, domain.RelationshipNone, hits[0].Connection.Status)
}

func TestConnections_RejectsUnknownStatus(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	bad := request(ana, bojan)
	bad.Status = "blocked"
	err := s.RunScoped(ctx, ana, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Connections.Create(ctx, bad)
	})
	assert.ErrorIs(t, err, errCheck)

	req := request(ana, bojan)
	require.NoError(t, s.RunScoped(ctx, ana, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Connections.Create(ctx, req)
	}))
	err = s.RunScoped(ctx, bojan, func(ctx context.Context, repos repository.Repositories) error {
		_, err := repos.Connections.UpdateStatus(ctx, req.ID, domain.ConnectionPending, "blocked", time.Now())
		return err
	})
	assert.ErrorIs(t, err, errCheck)
}
