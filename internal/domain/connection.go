package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionRejected ConnectionStatus = "rejected"
)

// connectionTransitions lists the legal moves; accepted and rejected are terminal.
var connectionTransitions = map[ConnectionStatus][]ConnectionStatus{
	ConnectionPending: {ConnectionAccepted, ConnectionRejected},
}

// CanTransitionTo reports whether a request in status s may move to next.
func (s ConnectionStatus) CanTransitionTo(next ConnectionStatus) bool {
	for _, allowed := range connectionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionPending, ConnectionAccepted, ConnectionRejected:
		return true
	}
	return false
}

type ConnectionRequest struct {
	ID          uuid.UUID        `json:"id"`
	Requester   Identity         `json:"requester"`
	Target      Identity         `json:"target"`
	Status      ConnectionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
	// Joined fields
	RequesterName string `json:"requester_name,omitempty"`
	TargetName    string `json:"target_name,omitempty"`
}

// Involves reports whether id is one side of the request.
func (r *ConnectionRequest) Involves(id Identity) bool {
	return r.Requester == id || r.Target == id
}

// Connection is an accepted request seen from one side.
type Connection struct {
	RequestID        uuid.UUID `json:"request_id"`
	OtherIdentity    Identity  `json:"other_identity"`
	OtherDisplayName string    `json:"other_display_name"`
	Since            time.Time `json:"since"`
}

type PendingDirection string

const (
	DirectionSent     PendingDirection = "sent"
	DirectionReceived PendingDirection = "received"
)

// RelationshipNone is reported when no request exists for a pair.
const RelationshipNone = "none"

type RelationshipStatus struct {
	Status    string           `json:"status"`
	Direction PendingDirection `json:"direction,omitempty"`
	RequestID *uuid.UUID       `json:"request_id,omitempty"`
}

// RelationshipFor resolves the status of req as seen by viewer. A nil request
// means the pair has never interacted.
func RelationshipFor(req *ConnectionRequest, viewer Identity) RelationshipStatus {
	if req == nil {
		return RelationshipStatus{Status: RelationshipNone}
	}
	rs := RelationshipStatus{Status: string(req.Status), RequestID: &req.ID}
	if req.Status == ConnectionPending {
		if req.Requester == viewer {
			rs.Direction = DirectionSent
		} else {
			rs.Direction = DirectionReceived
		}
	}
	return rs
}
