package handlers

import (
	"net/http"

	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/service"
	"github.com/vedran77/campusnet/internal/transport/http/middleware"
	"github.com/vedran77/campusnet/pkg/validator"
)

type ConnectionHandler struct {
	connService *service.ConnectionService
}

func NewConnectionHandler(connService *service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connService: connService}
}

func (h *ConnectionHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())

	var input validator.ConnectionRequestInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}
	target, err := domain.ParseIdentity(input.Target)
	if err != nil {
		writeServiceError(w, "send connection request", err)
		return
	}

	req, err := h.connService.Request(r.Context(), me, target)
	if err != nil {
		writeServiceError(w, "send connection request", err)
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

func (h *ConnectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	req, err := h.connService.Get(r.Context(), id, me)
	if err != nil {
		writeServiceError(w, "get connection request", err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func (h *ConnectionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	req, err := h.connService.Accept(r.Context(), id, me)
	if err != nil {
		writeServiceError(w, "accept connection request", err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func (h *ConnectionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	req, err := h.connService.Reject(r.Context(), id, me)
	if err != nil {
		writeServiceError(w, "reject connection request", err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func (h *ConnectionHandler) Status(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())
	other, err := domain.ParseIdentity(r.PathValue("identity"))
	if err != nil {
		writeServiceError(w, "connection status", err)
		return
	}

	status, err := h.connService.StatusBetween(r.Context(), me, other)
	if err != nil {
		writeServiceError(w, "connection status", err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *ConnectionHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.connService.ListIncoming(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, "list incoming requests", err)
		return
	}

	writeJSON(w, http.StatusOK, reqs)
}

func (h *ConnectionHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.connService.ListOutgoing(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, "list outgoing requests", err)
		return
	}

	writeJSON(w, http.StatusOK, reqs)
}

func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.connService.ListConnections(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, "list connections", err)
		return
	}

	writeJSON(w, http.StatusOK, conns)
}
