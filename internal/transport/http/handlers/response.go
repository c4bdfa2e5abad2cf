package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/pkg/validator"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind domain.ErrorKind, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"kind":    string(kind),
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"kind":   domain.KindValidation,
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

// writeServiceError renders a typed engine error. Anything else is logged and
// reported as an internal failure.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind == domain.KindPersistence {
		slog.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, domain.KindPersistence, "INTERNAL", "Something went wrong")
		return
	}

	body := map[string]any{
		"kind":    de.Kind,
		"code":    de.Code,
		"message": de.Message,
	}
	if de.Status != "" {
		body["status"] = de.Status
	}
	writeJSON(w, statusFor(de), map[string]any{"error": body})
}

func statusFor(de *domain.Error) int {
	switch de.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		if de.Code == "Forbidden" {
			return http.StatusForbidden
		}
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "INVALID_ID", "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// queryLimit returns 0 when absent so the service default applies.
func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
