package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"pixelbox/internal/batch"
	"pixelbox/internal/logging"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// GetReport returns the report of the last finished run.
func (h *Handlers) GetReport(w http.ResponseWriter, _ *http.Request) {
	report := h.runner.LastReport()
	if report == nil {
		writeJSONError(w, "no run has finished yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, report)
}

// ListRuns returns recent runs from the ledger, newest first.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "run ledger is disabled", http.StatusNotFound)
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.history.RecentRuns(r.Context(), limit)
	if err != nil {
		logging.Error("failed to list runs: %v", err)
		writeJSONError(w, "failed to list runs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

// TriggerRun starts a run unless one is already in progress.
func (h *Handlers) TriggerRun(w http.ResponseWriter, _ *http.Request) {
	err := h.runner.Start(h.baseCtx, batch.TriggerAPI)
	if errors.Is(err, batch.ErrRunInProgress) {
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		logging.Error("failed to start run: %v", err)
		writeJSONError(w, "failed to start run", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
