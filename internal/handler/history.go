package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trialq/trialq/internal/config"
	"github.com/trialq/trialq/internal/model"
)

const (
	defaultHistoryLimit = 25
	maxHistoryLimit     = 500
)

// HistoryHandler exposes the recorded questions.
type HistoryHandler struct {
	store *config.Store
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(store *config.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// List returns a page of history, newest first.
// GET /api/v1/history?limit=&offset=
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(queryInt(r, "limit", defaultHistoryLimit), 1, maxHistoryLimit)
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.store.ListHistory(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list history: "+err.Error())
		return
	}
	total, err := h.store.CountHistory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count history: "+err.Error())
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: entries,
		Meta: &model.ResponseMeta{
			Count:  int(total),
			Limit:  limit,
			Offset: offset,
		},
	})
}

// Get returns one history entry.
// GET /api/v1/history/{id}
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid history ID")
		return
	}

	entry, err := h.store.GetHistory(r.Context(), id)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "History entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get history: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Clear deletes every history entry.
// DELETE /api/v1/history
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.ClearHistory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear history: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": n})
}
