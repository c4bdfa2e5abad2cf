package service

import (
	"context"

	"github.com/vedran77/campusnet/internal/domain"
)

// Publisher pushes realtime events to connected identities. Delivery is best
// effort; implementations log their own failures.
type Publisher interface {
	PublishNotification(n *domain.Notification)
	PublishMessage(recipients []domain.Identity, msg *domain.Message)
}

// Dispatcher records a notification for recipient on behalf of actor. It never
// fails the caller.
type Dispatcher interface {
	Notify(ctx context.Context, actor, recipient domain.Identity, kind domain.NotificationKind, message, actionRef string)
}

// clampLimit applies a page size default and ceiling.
func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, ceiling)
}
