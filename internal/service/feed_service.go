package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/repository"
)

type FeedService struct {
	exec repository.Executor
}

func NewFeedService(exec repository.Executor) *FeedService {
	return &FeedService{exec: exec}
}

// Feed returns posts by viewer and viewer's connections, newest first.
// Passing the created_at of the last item as before fetches the next page.
func (s *FeedService) Feed(ctx context.Context, viewer domain.Identity, before *time.Time, limit int) ([]domain.FeedItem, error) {
	limit = clampLimit(limit, 20, 100)

	var items []domain.FeedItem
	err := s.exec.RunScoped(ctx, viewer, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		items, err = repos.Feed.ListFeed(ctx, viewer, before, limit)
		if err != nil {
			return fmt.Errorf("listing feed: %w", err)
		}
		return nil
	}, repository.ReadOnly())
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.FeedItem{}
	}
	return items, nil
}
