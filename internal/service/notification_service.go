package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/repository"
)

var ErrNotificationNotFound = domain.NewError(domain.KindNotFound, "NotificationNotFound", "notification not found")

const defaultNotifyTimeout = 5 * time.Second

type NotificationService struct {
	exec      repository.Executor
	logger    *slog.Logger
	timeout   time.Duration
	publisher Publisher
}

func NewNotificationService(exec repository.Executor, logger *slog.Logger, timeout time.Duration) *NotificationService {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &NotificationService{
		exec:    exec,
		logger:  logger,
		timeout: timeout,
	}
}

func (s *NotificationService) SetPublisher(p Publisher) {
	s.publisher = p
}

// Notify inserts one notification in its own unit scoped to actor. It runs
// after the triggering unit has committed, keeps going if the caller goes
// away, and only logs failures.
func (s *NotificationService) Notify(ctx context.Context, actor, recipient domain.Identity, kind domain.NotificationKind, message, actionRef string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	n := &domain.Notification{
		ID:        uuid.New(),
		Recipient: recipient,
		Actor:     actor,
		Kind:      kind,
		Message:   message,
		ActionRef: actionRef,
		CreatedAt: time.Now(),
	}

	err := s.exec.RunScoped(ctx, actor, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Notifications.Create(ctx, n)
	})
	if err != nil {
		s.logger.Error("notification dropped",
			"recipient", recipient.String(),
			"actor", actor.String(),
			"kind", string(kind),
			"error", err,
		)
		return
	}

	if s.publisher != nil {
		s.publisher.PublishNotification(n)
	}
}

// List returns owner's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, owner domain.Identity, unreadOnly bool, limit int) ([]domain.Notification, error) {
	limit = clampLimit(limit, 20, 100)

	var list []domain.Notification
	err := s.exec.RunScoped(ctx, owner, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		list, err = repos.Notifications.List(ctx, owner, unreadOnly, limit)
		if err != nil {
			return fmt.Errorf("listing notifications: %w", err)
		}
		return nil
	}, repository.ReadOnly())
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

// MarkRead flags one of owner's notifications as read. Marking an already
// read notification succeeds and keeps the first read time.
func (s *NotificationService) MarkRead(ctx context.Context, id uuid.UUID, owner domain.Identity) error {
	return s.exec.RunScoped(ctx, owner, func(ctx context.Context, repos repository.Repositories) error {
		ok, err := repos.Notifications.MarkRead(ctx, id, owner, time.Now())
		if err != nil {
			return fmt.Errorf("marking notification read: %w", err)
		}
		if !ok {
			return ErrNotificationNotFound
		}
		return nil
	})
}

func (s *NotificationService) MarkAllRead(ctx context.Context, owner domain.Identity) (int64, error) {
	var count int64
	err := s.exec.RunScoped(ctx, owner, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		count, err = repos.Notifications.MarkAllRead(ctx, owner, time.Now())
		if err != nil {
			return fmt.Errorf("marking all notifications read: %w", err)
		}
		return nil
	})
	return count, err
}

func (s *NotificationService) UnreadCount(ctx context.Context, owner domain.Identity) (int, error) {
	var count int
	err := s.exec.RunScoped(ctx, owner, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		count, err = repos.Notifications.CountUnread(ctx, owner)
		if err != nil {
			return fmt.Errorf("counting unread notifications: %w", err)
		}
		return nil
	}, repository.ReadOnly())
	return count, err
}
