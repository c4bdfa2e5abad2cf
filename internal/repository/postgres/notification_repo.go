package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/campusnet/internal/database"
	"github.com/vedran77/campusnet/internal/domain"
)

type NotificationRepo struct {
	db database.DBTX
}

func NewNotificationRepo(db database.DBTX) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient, actor, kind, message, action_ref, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		n.ID, n.Recipient, n.Actor, n.Kind, n.Message, n.ActionRef, n.IsRead, n.CreatedAt,
	)
	return err
}

func (r *NotificationRepo) List(ctx context.Context, owner domain.Identity, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := `
		SELECT id, recipient, actor, kind, message, action_ref, is_read, created_at, read_at
		FROM notifications
		WHERE recipient = $1 AND (NOT $2 OR is_read = FALSE)
		ORDER BY created_at DESC, id
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, owner, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID, &n.Recipient, &n.Actor, &n.Kind, &n.Message, &n.ActionRef, &n.IsRead, &n.CreatedAt, &n.ReadAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id uuid.UUID, owner domain.Identity, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $1) WHERE id = $2 AND recipient = $3`,
		at, id, owner,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, owner domain.Identity, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $1 WHERE recipient = $2 AND is_read = FALSE`,
		at, owner,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, owner domain.Identity) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient = $1 AND is_read = FALSE`, owner,
	).Scan(&count)
	return count, err
}
