package service

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/logging"
	"github.com/vedran77/campusnet/internal/repository/memory"
)

const (
	alice domain.Identity = "alice@uni.example"
	bob   domain.Identity = "bob@uni.example"
	carol domain.Identity = "carol@uni.example"
	dave  domain.Identity = "dave@uni.example"
)

type recordingPublisher struct {
	mu            sync.Mutex
	notifications []domain.Notification
	messages      []domain.Message
	recipients    [][]domain.Identity
}

func (p *recordingPublisher) PublishNotification(n *domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, *n)
}

func (p *recordingPublisher) PublishMessage(recipients []domain.Identity, msg *domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, *msg)
	p.recipients = append(p.recipients, recipients)
}

type testEnv struct {
	store         *memory.Store
	logs          *bytes.Buffer
	publisher     *recordingPublisher
	connections   *ConnectionService
	conversations *ConversationService
	notifications *NotificationService
	feed          *FeedService
	search        *SearchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	store.AddProfile(domain.Profile{Identity: alice, DisplayName: "Alice Anderson"})
	store.AddProfile(domain.Profile{Identity: bob, DisplayName: "Bob Brown"})
	store.AddProfile(domain.Profile{Identity: carol, DisplayName: "Carol Čović"})
	store.AddProfile(domain.Profile{Identity: dave, DisplayName: "Dave Davis", Kind: domain.ProfileOrganization})

	logs := &bytes.Buffer{}
	pub := &recordingPublisher{}

	notifications := NewNotificationService(store, logging.NewWithWriter(logs, "debug"), 0)
	notifications.SetPublisher(pub)
	conversations := NewConversationService(store, notifications)
	conversations.SetPublisher(pub)

	return &testEnv{
		store:         store,
		logs:          logs,
		publisher:     pub,
		connections:   NewConnectionService(store, notifications),
		conversations: conversations,
		notifications: notifications,
		feed:          NewFeedService(store),
		search:        NewSearchService(store),
	}
}

func (e *testEnv) unread(t *testing.T, owner domain.Identity) int {
	t.Helper()
	n, err := e.notifications.UnreadCount(context.Background(), owner)
	require.NoError(t, err)
	return n
}
