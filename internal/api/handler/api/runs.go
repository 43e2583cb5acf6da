package api

import (
	"net/http"
	"strconv"

	"github.com/marketlens/marketlens/internal/api/response"
	"github.com/marketlens/marketlens/internal/history"
)

// RunsHandler serves the persisted run history.
type RunsHandler struct {
	store *history.Store
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(store *history.Store) *RunsHandler {
	return &RunsHandler{store: store}
}

// List returns run summaries, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": len(runs),
	})
}

// Get returns one run with its full metrics bundle.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.store.GetRun(r.Context(), runID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, run)
}

// Trades returns the trade ledger of one run.
func (h *RunsHandler) Trades(w http.ResponseWriter, r *http.Request, runID string) {
	trades, err := h.store.ListTrades(r.Context(), runID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"run_id": runID,
		"trades": trades,
	})
}
