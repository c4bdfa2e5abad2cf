package domain

import (
	"time"

	"github.com/google/uuid"
)

type ProfileKind string

const (
	ProfileStudent      ProfileKind = "student"
	ProfileOrganization ProfileKind = "organization"
)

type Profile struct {
	Identity    Identity    `json:"identity"`
	DisplayName string      `json:"display_name"`
	Kind        ProfileKind `json:"kind"`
	Headline    *string     `json:"headline,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ProfileHit is a search result annotated with the viewer's relationship.
type ProfileHit struct {
	Profile
	Connection RelationshipStatus `json:"connection"`
}

type Post struct {
	ID        uuid.UUID `json:"id"`
	Author    Identity  `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedItem is a post with the aggregates shown in the feed.
type FeedItem struct {
	Post
	AuthorName    string `json:"author_name"`
	LikeCount     int    `json:"like_count"`
	CommentCount  int    `json:"comment_count"`
	LikedByViewer bool   `json:"liked_by_viewer"`
}
