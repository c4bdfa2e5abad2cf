package handlers

import (
	"net/http"
)

type Handlers struct {
	Connections   *ConnectionHandler
	Conversations *ConversationHandler
	Notifications *NotificationHandler
	ReadModels    *ReadModelHandler
}

// Register mounts the protected API routes on mux behind auth.
func Register(mux *http.ServeMux, auth func(http.Handler) http.Handler, h Handlers) {
	protect := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, auth(fn))
	}

	// Connections
	protect("POST /api/v1/connections/requests", h.Connections.SendRequest)
	protect("POST /api/v1/connections/requests/{id}/accept", h.Connections.Accept)
	protect("POST /api/v1/connections/requests/{id}/reject", h.Connections.Reject)
	protect("GET /api/v1/connections/requests/incoming", h.Connections.ListIncoming)
	protect("GET /api/v1/connections/requests/outgoing", h.Connections.ListOutgoing)
	protect("GET /api/v1/connections/requests/{id}", h.Connections.Get)
	protect("GET /api/v1/connections/status/{identity}", h.Connections.Status)
	protect("GET /api/v1/connections", h.Connections.ListConnections)

	// Conversations
	protect("POST /api/v1/conversations/private", h.Conversations.OpenPrivate)
	protect("POST /api/v1/conversations/group", h.Conversations.CreateGroup)
	protect("GET /api/v1/conversations", h.Conversations.List)
	protect("POST /api/v1/conversations/{id}/messages", h.Conversations.SendMessage)
	protect("GET /api/v1/conversations/{id}/messages", h.Conversations.ListMessages)

	// Notifications
	protect("GET /api/v1/notifications", h.Notifications.List)
	protect("GET /api/v1/notifications/unread-count", h.Notifications.UnreadCount)
	protect("POST /api/v1/notifications/read-all", h.Notifications.MarkAllRead)
	protect("POST /api/v1/notifications/{id}/read", h.Notifications.MarkRead)

	// Read models
	protect("GET /api/v1/feed", h.ReadModels.Feed)
	protect("GET /api/v1/search", h.ReadModels.Search)
}
