package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/campusnet/internal/database"
	"github.com/vedran77/campusnet/internal/domain"
)

type ProfileRepo struct {
	db database.DBTX
}

func NewProfileRepo(db database.DBTX) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) GetByIdentity(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	query := `SELECT identity, display_name, kind, headline, created_at FROM profiles WHERE identity = $1`
	var p domain.Profile
	err := r.db.QueryRow(ctx, query, id).Scan(&p.Identity, &p.DisplayName, &p.Kind, &p.Headline, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &p, err
}

func (r *ProfileRepo) Exists(ctx context.Context, id domain.Identity) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE identity = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *ProfileRepo) Search(ctx context.Context, viewer domain.Identity, fragment string, limit int) ([]domain.ProfileHit, error) {
	query := `
		SELECT p.identity, p.display_name, p.kind, p.headline, p.created_at,
			r.id, r.requester, r.target, r.status
		FROM profiles p
		LEFT JOIN connection_requests r
			ON (r.requester = $1 AND r.target = p.identity) OR (r.target = $1 AND r.requester = p.identity)
		WHERE p.identity <> $1
			AND (regexp_replace(unaccent(lower(p.display_name)), '\s+', ' ', 'g') LIKE '%' || $2 || '%' ESCAPE '\'
				OR lower(p.identity) LIKE '%' || $2 || '%' ESCAPE '\')
		ORDER BY p.display_name, p.identity
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, viewer, fragment, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []domain.ProfileHit
	for rows.Next() {
		var (
			hit       domain.ProfileHit
			reqID     *uuid.UUID
			requester *domain.Identity
			target    *domain.Identity
			status    *domain.ConnectionStatus
		)
		if err := rows.Scan(
			&hit.Identity, &hit.DisplayName, &hit.Kind, &hit.Headline, &hit.CreatedAt,
			&reqID, &requester, &target, &status,
		); err != nil {
			return nil, err
		}
		var req *domain.ConnectionRequest
		if reqID != nil {
			req = &domain.ConnectionRequest{ID: *reqID, Requester: *requester, Target: *target, Status: *status}
		}
		hit.Connection = domain.RelationshipFor(req, viewer)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
