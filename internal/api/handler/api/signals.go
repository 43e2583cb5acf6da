package api

import (
	"net/http"
	"time"

	"github.com/marketlens/marketlens/internal/api/response"
	"github.com/marketlens/marketlens/internal/app"
	"github.com/marketlens/marketlens/internal/core"
)

// SignalsHandler scores symbols on demand.
type SignalsHandler struct {
	app *app.App
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(a *app.App) *SignalsHandler {
	return &SignalsHandler{app: a}
}

// Get fetches recent history for the symbol and returns its current
// signal.
func (h *SignalsHandler) Get(w http.ResponseWriter, r *http.Request, symbol string) {
	if symbol == "" {
		response.FromError(w, core.WrapError(core.ErrInvalidInput, nil))
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -defaultLookback)

	sig, err := h.app.Analyze(r.Context(), symbol, start, end)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, sig)
}
