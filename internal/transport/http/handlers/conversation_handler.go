package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/service"
	"github.com/vedran77/campusnet/internal/transport/http/middleware"
	"github.com/vedran77/campusnet/pkg/validator"
)

type ConversationHandler struct {
	convService *service.ConversationService
}

func NewConversationHandler(convService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convService: convService}
}

type privateConversationResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
	IsNew        bool                 `json:"is_new"`
}

func (h *ConversationHandler) OpenPrivate(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())

	var input validator.PrivateConversationInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}
	other, err := domain.ParseIdentity(input.Identity)
	if err != nil {
		writeServiceError(w, "open private conversation", err)
		return
	}

	conv, isNew, err := h.convService.FindOrCreatePrivate(r.Context(), me, other)
	if err != nil {
		writeServiceError(w, "open private conversation", err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, privateConversationResponse{Conversation: conv, IsNew: isNew})
}

func (h *ConversationHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())

	var input validator.GroupConversationInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	members := make([]domain.Identity, 0, len(input.Members))
	for _, raw := range input.Members {
		id, err := domain.ParseIdentity(raw)
		if err != nil {
			writeServiceError(w, "create group", err)
			return
		}
		members = append(members, id)
	}

	conv, err := h.convService.CreateGroup(r.Context(), me, input.Title, members)
	if err != nil {
		writeServiceError(w, "create group", err)
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.convService.ListConversations(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())
	convID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var input validator.SendMessageInput
	if !decodeJSON(w, r, &input) {
		return
	}

	msg, err := h.convService.SendMessage(r.Context(), convID, me, input.Content)
	if err != nil {
		writeServiceError(w, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())
	convID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var before *uuid.UUID
	if b := r.URL.Query().Get("before"); b != "" {
		id, err := uuid.Parse(b)
		if err != nil {
			writeError(w, http.StatusBadRequest, domain.KindValidation, "INVALID_CURSOR", "Invalid before cursor")
			return
		}
		before = &id
	}

	resp, err := h.convService.ListMessages(r.Context(), convID, me, before, queryLimit(r))
	if err != nil {
		writeServiceError(w, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
