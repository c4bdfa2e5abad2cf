package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationConnection NotificationKind = "Connection"
	NotificationMessage    NotificationKind = "Message"
)

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Recipient Identity         `json:"recipient"`
	Actor     Identity         `json:"actor"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	ActionRef string           `json:"action_ref"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
}
