package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConversationKind string

const (
	ConversationPrivate ConversationKind = "private"
	ConversationGroup   ConversationKind = "group"
)

type Conversation struct {
	ID        uuid.UUID        `json:"id"`
	Creator   Identity         `json:"creator"`
	Kind      ConversationKind `json:"kind"`
	Title     *string          `json:"title,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	// PairLow/PairHigh hold the canonical pair of a private conversation.
	PairLow      *Identity     `json:"-"`
	PairHigh     *Identity     `json:"-"`
	Participants []Participant `json:"participants,omitempty"`
}

type Participant struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Identity       Identity  `json:"identity"`
	JoinedAt       time.Time `json:"joined_at"`
}

// ConversationSummary is a conversation annotated for the inbox list.
type ConversationSummary struct {
	Conversation
	LastMessagePreview *string    `json:"last_message_preview,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	UnreadCount        int        `json:"unread_count"`
}

type MessageStatus string

const (
	MessageSent MessageStatus = "sent"
	MessageRead MessageStatus = "read"
)

type Message struct {
	ID             uuid.UUID     `json:"id"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	Seq            int64         `json:"-"`
	Author         Identity      `json:"author"`
	Body           string        `json:"body"`
	Status         MessageStatus `json:"status"`
	SentAt         time.Time     `json:"sent_at"`
}
