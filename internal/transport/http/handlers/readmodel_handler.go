package handlers

import (
	"net/http"
	"time"

	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/service"
	"github.com/vedran77/campusnet/internal/transport/http/middleware"
)

type ReadModelHandler struct {
	feedService   *service.FeedService
	searchService *service.SearchService
}

func NewReadModelHandler(feedService *service.FeedService, searchService *service.SearchService) *ReadModelHandler {
	return &ReadModelHandler{feedService: feedService, searchService: searchService}
}

func (h *ReadModelHandler) Feed(w http.ResponseWriter, r *http.Request) {
	var before *time.Time
	if b := r.URL.Query().Get("before"); b != "" {
		t, err := time.Parse(time.RFC3339Nano, b)
		if err != nil {
			writeError(w, http.StatusBadRequest, domain.KindValidation, "INVALID_CURSOR", "before must be an RFC 3339 timestamp")
			return
		}
		before = &t
	}

	items, err := h.feedService.Feed(r.Context(), middleware.GetIdentity(r.Context()), before, queryLimit(r))
	if err != nil {
		writeServiceError(w, "feed", err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *ReadModelHandler) Search(w http.ResponseWriter, r *http.Request) {
	hits, err := h.searchService.Search(r.Context(), middleware.GetIdentity(r.Context()), r.URL.Query().Get("q"), queryLimit(r))
	if err != nil {
		writeServiceError(w, "search", err)
		return
	}

	writeJSON(w, http.StatusOK, hits)
}
