package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/repository"
	"github.com/vedran77/campusnet/pkg/textutil"
)

var ErrQueryTooShort = domain.NewError(domain.KindValidation, "QueryTooShort", "search query must be at least 2 characters")

const minQueryLength = 2

type SearchService struct {
	exec repository.Executor
}

func NewSearchService(exec repository.Executor) *SearchService {
	return &SearchService{exec: exec}
}

// Search finds profiles whose name or identity contains query, ignoring case
// and accents. Each hit carries viewer's connection status.
func (s *SearchService) Search(ctx context.Context, viewer domain.Identity, query string, limit int) ([]domain.ProfileHit, error) {
	folded := textutil.Fold(query)
	if utf8.RuneCountInString(folded) < minQueryLength {
		return nil, ErrQueryTooShort
	}
	limit = clampLimit(limit, 20, 50)

	var hits []domain.ProfileHit
	err := s.exec.RunScoped(ctx, viewer, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		hits, err = repos.Profiles.Search(ctx, viewer, textutil.EscapeLike(folded), limit)
		if err != nil {
			return fmt.Errorf("searching profiles: %w", err)
		}
		return nil
	}, repository.ReadOnly())
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []domain.ProfileHit{}
	}
	return hits, nil
}
