package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/campusnet/internal/domain"
)

// ErrDuplicate is returned when an insert hits a uniqueness constraint.
// In Postgres the surrounding transaction is aborted and must be rolled back.
var ErrDuplicate = errors.New("duplicate key")

type ProfileRepository interface {
	GetByIdentity(ctx context.Context, id domain.Identity) (*domain.Profile, error)
	Exists(ctx context.Context, id domain.Identity) (bool, error)
	// Search matches a folded, wildcard-escaped fragment against display name and identity.
	Search(ctx context.Context, viewer domain.Identity, fragment string, limit int) ([]domain.ProfileHit, error)
}

type ConnectionRepository interface {
	Create(ctx context.Context, req *domain.ConnectionRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ConnectionRequest, error)
	// GetByIDForUpdate locks the row until the unit of work ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ConnectionRequest, error)
	GetByPair(ctx context.Context, a, b domain.Identity) (*domain.ConnectionRequest, error)
	// UpdateStatus moves the request from one status to another and reports
	// whether a row matched the guard.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ConnectionStatus, at time.Time) (bool, error)
	ListIncoming(ctx context.Context, id domain.Identity) ([]domain.ConnectionRequest, error)
	ListOutgoing(ctx context.Context, id domain.Identity) ([]domain.ConnectionRequest, error)
	ListConnections(ctx context.Context, id domain.Identity) ([]domain.Connection, error)
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	AddParticipant(ctx context.Context, p *domain.Participant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	FindPrivateBetween(ctx context.Context, a, b domain.Identity) (*domain.Conversation, error)
	ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]domain.Participant, error)
	ListSummaries(ctx context.Context, id domain.Identity) ([]domain.ConversationSummary, error)
	CreateMessage(ctx context.Context, msg *domain.Message) error
	// ListMessages returns up to limit messages, newest page first in storage
	// order but oldest-first in the returned slice.
	ListMessages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error)
	// MarkRead flips every sent message not authored by viewer to read.
	MarkRead(ctx context.Context, conversationID uuid.UUID, viewer domain.Identity) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, owner domain.Identity, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, owner domain.Identity, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, owner domain.Identity, at time.Time) (int64, error)
	CountUnread(ctx context.Context, owner domain.Identity) (int, error)
}

type FeedRepository interface {
	ListFeed(ctx context.Context, viewer domain.Identity, before *time.Time, limit int) ([]domain.FeedItem, error)
}

// Repositories is the set of operations available inside one unit of work.
// Every repository in the set is bound to the same transaction.
type Repositories struct {
	Profiles      ProfileRepository
	Connections   ConnectionRepository
	Conversations ConversationRepository
	Notifications NotificationRepository
	Feed          FeedRepository
}

// UnitOfWork is applied atomically: all of its writes commit or none do.
type UnitOfWork func(ctx context.Context, repos Repositories) error

type RunOption func(*RunOptions)

type RunOptions struct {
	ReadOnly bool
}

// ReadOnly marks a unit that performs no writes.
func ReadOnly() RunOption {
	return func(o *RunOptions) { o.ReadOnly = true }
}

func ApplyOptions(opts []RunOption) RunOptions {
	var o RunOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Executor runs units of work against the store.
type Executor interface {
	// RunScoped runs work with the store applying identity's visibility rules
	// for its whole duration. An error from work rolls the unit back and is
	// returned unchanged.
	RunScoped(ctx context.Context, identity domain.Identity, work UnitOfWork, opts ...RunOption) error
	// RunUnscoped runs work without any row-visibility restriction. Reserve it
	// for data with no privacy sensitivity, such as existence checks.
	RunUnscoped(ctx context.Context, work UnitOfWork, opts ...RunOption) error
}
