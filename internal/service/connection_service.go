package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/repository"
)

var (
	ErrCannotRequestSelf = domain.NewError(domain.KindConflict, "InvalidRequest", "cannot send a connection request to yourself")
	ErrProfileNotFound   = domain.NewError(domain.KindNotFound, "ProfileNotFound", "profile not found")
	ErrAlreadyConnected  = domain.NewError(domain.KindConflict, "AlreadyConnected", "you are already connected")
	ErrRequestExists     = domain.NewError(domain.KindConflict, "RequestExists", "a connection request already exists")
	ErrRequestNotFound   = domain.NewError(domain.KindNotFound, "RequestNotFound", "connection request not found")
	ErrNotPending        = domain.NewError(domain.KindConflict, "NotPending", "connection request is no longer pending")
)

type ConnectionService struct {
	exec     repository.Executor
	notifier Dispatcher
}

func NewConnectionService(exec repository.Executor, notifier Dispatcher) *ConnectionService {
	return &ConnectionService{
		exec:     exec,
		notifier: notifier,
	}
}

// Request creates a pending request from requester to target and notifies target.
// At most one request ever exists for an unordered pair.
func (s *ConnectionService) Request(ctx context.Context, requester, target domain.Identity) (*domain.ConnectionRequest, error) {
	if requester == target {
		return nil, ErrCannotRequestSelf
	}
	if err := profileExists(ctx, s.exec, target); err != nil {
		return nil, err
	}

	req := &domain.ConnectionRequest{
		ID:        uuid.New(),
		Requester: requester,
		Target:    target,
		Status:    domain.ConnectionPending,
		CreatedAt: time.Now(),
	}

	var actorName string
	err := s.exec.RunScoped(ctx, requester, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Connections.GetByPair(ctx, requester, target)
		if err != nil {
			return fmt.Errorf("looking up connection request: %w", err)
		}
		if existing != nil {
			return pairConflict(existing)
		}

		if err := repos.Connections.Create(ctx, req); err != nil {
			return fmt.Errorf("creating connection request: %w", err)
		}
		actorName, err = displayName(ctx, repos, requester)
		return err
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent request for the same pair.
		return nil, s.conflictFor(ctx, requester, target)
	}
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, requester, target, domain.NotificationConnection,
		fmt.Sprintf("%s wants to connect with you", actorName),
		requestRef(req.ID),
	)
	return req, nil
}

// Accept moves a pending request to accepted. Only the target may accept.
func (s *ConnectionService) Accept(ctx context.Context, requestID uuid.UUID, actor domain.Identity) (*domain.ConnectionRequest, error) {
	return s.respond(ctx, requestID, actor, domain.ConnectionAccepted, "%s accepted your connection request")
}

// Reject moves a pending request to rejected. Only the target may reject.
func (s *ConnectionService) Reject(ctx context.Context, requestID uuid.UUID, actor domain.Identity) (*domain.ConnectionRequest, error) {
	return s.respond(ctx, requestID, actor, domain.ConnectionRejected, "%s declined your connection request")
}

func (s *ConnectionService) respond(ctx context.Context, requestID uuid.UUID, actor domain.Identity, to domain.ConnectionStatus, format string) (*domain.ConnectionRequest, error) {
	var (
		req       *domain.ConnectionRequest
		actorName string
	)
	err := s.exec.RunScoped(ctx, actor, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		req, err = repos.Connections.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("loading connection request: %w", err)
		}
		if req == nil || req.Target != actor {
			return ErrRequestNotFound
		}
		if !req.Status.CanTransitionTo(to) {
			return ErrNotPending.WithStatus(req.Status)
		}

		now := time.Now()
		ok, err := repos.Connections.UpdateStatus(ctx, requestID, domain.ConnectionPending, to, now)
		if err != nil {
			return fmt.Errorf("updating connection request: %w", err)
		}
		if !ok {
			return ErrNotPending
		}
		req.Status = to
		req.RespondedAt = &now

		actorName, err = displayName(ctx, repos, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, actor, req.Requester, domain.NotificationConnection,
		fmt.Sprintf(format, actorName),
		requestRef(req.ID),
	)
	return req, nil
}

// Get returns a request visible to viewer, who must be one of its parties.
func (s *ConnectionService) Get(ctx context.Context, requestID uuid.UUID, viewer domain.Identity) (*domain.ConnectionRequest, error) {
	var req *domain.ConnectionRequest
	err := s.exec.RunScoped(ctx, viewer, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		req, err = repos.Connections.GetByID(ctx, requestID)
		if err != nil {
			return fmt.Errorf("loading connection request: %w", err)
		}
		if req == nil || !req.Involves(viewer) {
			return ErrRequestNotFound
		}
		return nil
	}, repository.ReadOnly())
	if err != nil {
		return nil, err
	}
	return req, nil
}

// StatusBetween reports the relationship between viewer and other as seen by viewer.
func (s *ConnectionService) StatusBetween(ctx context.Context, viewer, other domain.Identity) (domain.RelationshipStatus, error) {
	if viewer == other {
		return domain.RelationshipStatus{}, ErrCannotRequestSelf
	}
	var req *domain.ConnectionRequest
	err := s.exec.RunScoped(ctx, viewer, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		req, err = repos.Connections.GetByPair(ctx, viewer, other)
		if err != nil {
			return fmt.Errorf("looking up connection request: %w", err)
		}
		return nil
	}, repository.ReadOnly())
	if err != nil {
		return domain.RelationshipStatus{}, err
	}
	return domain.RelationshipFor(req, viewer), nil
}

// ListIncoming returns pending requests received by id.
func (s *ConnectionService) ListIncoming(ctx context.Context, id domain.Identity) ([]domain.ConnectionRequest, error) {
	return s.listRequests(ctx, id, repository.ConnectionRepository.ListIncoming)
}

// ListOutgoing returns pending requests sent by id.
func (s *ConnectionService) ListOutgoing(ctx context.Context, id domain.Identity) ([]domain.ConnectionRequest, error) {
	return s.listRequests(ctx, id, repository.ConnectionRepository.ListOutgoing)
}

func (s *ConnectionService) listRequests(
	ctx context.Context,
	id domain.Identity,
	list func(repository.ConnectionRepository, context.Context, domain.Identity) ([]domain.ConnectionRequest, error),
) ([]domain.ConnectionRequest, error) {
	var reqs []domain.ConnectionRequest
	err := s.exec.RunScoped(ctx, id, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		reqs, err = list(repos.Connections, ctx, id)
		if err != nil {
			return fmt.Errorf("listing connection requests: %w", err)
		}
		return nil
	}, repository.ReadOnly())
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []domain.ConnectionRequest{}
	}
	return reqs, nil
}

// ListConnections returns everyone id has an accepted request with.
func (s *ConnectionService) ListConnections(ctx context.Context, id domain.Identity) ([]domain.Connection, error) {
	var conns []domain.Connection
	err := s.exec.RunScoped(ctx, id, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		conns, err = repos.Connections.ListConnections(ctx, id)
		if err != nil {
			return fmt.Errorf("listing connections: %w", err)
		}
		return nil
	}, repository.ReadOnly())
	if err != nil {
		return nil, err
	}
	if conns == nil {
		conns = []domain.Connection{}
	}
	return conns, nil
}

// conflictFor re-reads the pair after a lost insert race; the failed unit
// cannot be queried any further.
func (s *ConnectionService) conflictFor(ctx context.Context, requester, target domain.Identity) error {
	var existing *domain.ConnectionRequest
	err := s.exec.RunScoped(ctx, requester, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		existing, err = repos.Connections.GetByPair(ctx, requester, target)
		return err
	}, repository.ReadOnly())
	if err != nil {
		return fmt.Errorf("looking up connection request: %w", err)
	}
	if existing == nil {
		return ErrRequestExists
	}
	return pairConflict(existing)
}

func pairConflict(existing *domain.ConnectionRequest) error {
	if existing.Status == domain.ConnectionAccepted {
		return ErrAlreadyConnected
	}
	return ErrRequestExists.WithStatus(existing.Status)
}

// profileExists checks that id has a profile. Profiles carry no row-level
// restriction so the check runs unscoped.
func profileExists(ctx context.Context, exec repository.Executor, id domain.Identity) error {
	return exec.RunUnscoped(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ok, err := repos.Profiles.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("checking profile: %w", err)
		}
		if !ok {
			return ErrProfileNotFound
		}
		return nil
	}, repository.ReadOnly())
}

// displayName falls back to the raw identity when no profile exists.
func displayName(ctx context.Context, repos repository.Repositories, id domain.Identity) (string, error) {
	p, err := repos.Profiles.GetByIdentity(ctx, id)
	if err != nil {
		return "", fmt.Errorf("loading profile: %w", err)
	}
	if p == nil || p.DisplayName == "" {
		return id.String(), nil
	}
	return p.DisplayName, nil
}

func requestRef(id uuid.UUID) string {
	return "/connections/requests/" + id.String()
}
