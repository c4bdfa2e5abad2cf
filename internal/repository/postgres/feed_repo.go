package postgres

import (
	"context"
	"time"

	"github.com/vedran77/campusnet/internal/database"
	"github.com/vedran77/campusnet/internal/domain"
)

type FeedRepo struct {
	db database.DBTX
}

func NewFeedRepo(db database.DBTX) *FeedRepo {
	return &FeedRepo{db: db}
}

// ListFeed returns posts by the viewer and by identities with an accepted
// connection to the viewer, newest first.
func (r *FeedRepo) ListFeed(ctx context.Context, viewer domain.Identity, before *time.Time, limit int) ([]domain.FeedItem, error) {
	query := `
		SELECT p.id, p.author, p.body, p.created_at, pr.display_name,
			(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id),
			(SELECT COUNT(*) FROM post_comments c WHERE c.post_id = p.id),
			EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.identity = $1)
		FROM posts p
		JOIN profiles pr ON pr.identity = p.author
		WHERE (p.author = $1 OR EXISTS (
				SELECT 1 FROM connection_requests r
				WHERE r.status = 'accepted'
					AND ((r.requester = $1 AND r.target = p.author) OR (r.target = $1 AND r.requester = p.author))
			))
			AND ($2::timestamptz IS NULL OR p.created_at < $2)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, viewer, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.FeedItem
	for rows.Next() {
		var it domain.FeedItem
		if err := rows.Scan(
			&it.ID, &it.Author, &it.Body, &it.CreatedAt, &it.AuthorName,
			&it.LikeCount, &it.CommentCount, &it.LikedByViewer,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
