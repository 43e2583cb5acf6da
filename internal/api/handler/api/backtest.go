// Package api contains the JSON API handlers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/marketlens/marketlens/internal/api/job"
	"github.com/marketlens/marketlens/internal/api/response"
	"github.com/marketlens/marketlens/internal/app"
	"github.com/marketlens/marketlens/internal/core"
	"github.com/marketlens/marketlens/internal/metrics"
)

const (
	backtestTimeout = 5 * time.Minute
	defaultLookback = 365 // days of history when no start date is given
)

// BacktestRequest is the request body for starting a backtest.
type BacktestRequest struct {
	Symbol string `json:"symbol"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore *job.Store
	app      *app.App
	registry *metrics.Registry
}

// NewBacktestHandler creates a new backtest handler. The registry may
// be nil when metrics are disabled.
func NewBacktestHandler(jobStore *job.Store, a *app.App, reg *metrics.Registry) *BacktestHandler {
	return &BacktestHandler{
		jobStore: jobStore,
		app:      a,
		registry: reg,
	}
}

func (h *BacktestHandler) syncJobsGauge() {
	if h.registry != nil {
		h.registry.SetJobsActive(h.jobStore.Active())
	}
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.FromError(w, core.WrapError(core.ErrInvalidInput, err))
		return
	}

	if req.Symbol == "" {
		response.FromError(w, core.WrapError(core.ErrInvalidInput, nil))
		return
	}

	start, end, err := parseDateRange(req.Start, req.End)
	if err != nil {
		response.FromError(w, core.WrapError(core.ErrInvalidInput, err))
		return
	}

	j := h.jobStore.Create("backtest")

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	h.syncJobsGauge()
	go h.runBacktest(jobID, req.Symbol, start, end)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

// runBacktest executes the backtest and updates job status.
func (h *BacktestHandler) runBacktest(jobID, symbol string, start, end time.Time) {
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()
	result, err := h.app.RunBacktest(ctx, symbol, start, end)

	defer h.syncJobsGauge()

	if err != nil {
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = core.WrapError(core.ErrBacktestFailed, err)
		})
		return
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = result
	})
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	j, err := h.jobStore.Get(jobID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if endStr != "" {
		t, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
	}

	start := end.AddDate(0, 0, -defaultLookback)
	if startStr != "" {
		t, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}

	return start, end, nil
}
