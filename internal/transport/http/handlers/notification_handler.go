package handlers

import (
	"net/http"

	"github.com/vedran77/campusnet/internal/service"
	"github.com/vedran77/campusnet/internal/transport/http/middleware"
)

type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifService: notifService}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.notifService.List(r.Context(), me, unreadOnly, queryLimit(r))
	if err != nil {
		writeServiceError(w, "list notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifService.UnreadCount(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, "unread count", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifService.MarkRead(r.Context(), id, middleware.GetIdentity(r.Context())); err != nil {
		writeServiceError(w, "mark notification read", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifService.MarkAllRead(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, "mark all notifications read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": count})
}
