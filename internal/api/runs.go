package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eugenenazirov/code-allocator/internal/storage"
)

type runsResponse struct {
	Runs  []storage.Run `json:"runs"`
	Count int           `json:"count"`
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid request", "limit must be a positive integer")
			return
		}
		limit = value
	}

	runs, err := h.storage.ListRuns(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runsResponse{Runs: runs, Count: len(runs)})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.storage.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "Run not found", "no run with id "+id)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
