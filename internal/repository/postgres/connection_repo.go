package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/campusnet/internal/database"
	"github.com/vedran77/campusnet/internal/domain"
)

type ConnectionRepo struct {
	db database.DBTX
}

func NewConnectionRepo(db database.DBTX) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

const connectionColumns = `id, requester, target, status, created_at, responded_at`

func (r *ConnectionRepo) Create(ctx context.Context, req *domain.ConnectionRequest) error {
	query := `
		INSERT INTO connection_requests (id, requester, target, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query, req.ID, req.Requester, req.Target, req.Status, req.CreatedAt)
	return translate(err)
}

func (r *ConnectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ConnectionRequest, error) {
	return r.scanRequest(ctx, `SELECT `+connectionColumns+` FROM connection_requests WHERE id = $1`, id)
}

func (r *ConnectionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ConnectionRequest, error) {
	return r.scanRequest(ctx, `SELECT `+connectionColumns+` FROM connection_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *ConnectionRepo) GetByPair(ctx context.Context, a, b domain.Identity) (*domain.ConnectionRequest, error) {
	query := `SELECT ` + connectionColumns + ` FROM connection_requests
		WHERE (requester = $1 AND target = $2) OR (requester = $2 AND target = $1)`
	return r.scanRequest(ctx, query, a, b)
}

func (r *ConnectionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ConnectionStatus, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE connection_requests SET status = $1, responded_at = $2 WHERE id = $3 AND status = $4`,
		to, at, id, from,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ConnectionRepo) ListIncoming(ctx context.Context, id domain.Identity) ([]domain.ConnectionRequest, error) {
	query := `
		SELECT r.id, r.requester, r.target, r.status, r.created_at, r.responded_at, p.display_name
		FROM connection_requests r
		JOIN profiles p ON r.requester = p.identity
		WHERE r.target = $1 AND r.status = 'pending'
		ORDER BY r.created_at DESC`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.ConnectionRequest
	for rows.Next() {
		var req domain.ConnectionRequest
		if err := rows.Scan(
			&req.ID, &req.Requester, &req.Target, &req.Status, &req.CreatedAt, &req.RespondedAt,
			&req.RequesterName,
		); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *ConnectionRepo) ListOutgoing(ctx context.Context, id domain.Identity) ([]domain.ConnectionRequest, error) {
	query := `
		SELECT r.id, r.requester, r.target, r.status, r.created_at, r.responded_at, p.display_name
		FROM connection_requests r
		JOIN profiles p ON r.target = p.identity
		WHERE r.requester = $1 AND r.status = 'pending'
		ORDER BY r.created_at DESC`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.ConnectionRequest
	for rows.Next() {
		var req domain.ConnectionRequest
		if err := rows.Scan(
			&req.ID, &req.Requester, &req.Target, &req.Status, &req.CreatedAt, &req.RespondedAt,
			&req.TargetName,
		); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *ConnectionRepo) ListConnections(ctx context.Context, id domain.Identity) ([]domain.Connection, error) {
	query := `
		SELECT r.id,
			CASE WHEN r.requester = $1 THEN r.target ELSE r.requester END AS other_identity,
			p.display_name,
			COALESCE(r.responded_at, r.created_at) AS since
		FROM connection_requests r
		JOIN profiles p ON p.identity = CASE WHEN r.requester = $1 THEN r.target ELSE r.requester END
		WHERE (r.requester = $1 OR r.target = $1) AND r.status = 'accepted'
		ORDER BY p.display_name ASC`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []domain.Connection
	for rows.Next() {
		var c domain.Connection
		if err := rows.Scan(&c.RequestID, &c.OtherIdentity, &c.OtherDisplayName, &c.Since); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (r *ConnectionRepo) scanRequest(ctx context.Context, query string, args ...any) (*domain.ConnectionRequest, error) {
	var req domain.ConnectionRequest
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&req.ID, &req.Requester, &req.Target, &req.Status, &req.CreatedAt, &req.RespondedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("connection request %s: unknown status %q", req.ID, req.Status)
	}
	return &req, nil
}
