package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marketlens/marketlens/internal/api/response"
	"github.com/marketlens/marketlens/internal/core"
)

func TestSignalsHandler_Get(t *testing.T) {
	handler := NewSignalsHandler(newTestApp(&fakeProvider{}))

	req := httptest.NewRequest("GET", "/api/v1/signals/AAPL", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req, "AAPL")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	data := resp.Data.(map[string]any)
	if data["Symbol"] != "AAPL" {
		t.Errorf("expected symbol AAPL, got %v", data["Symbol"])
	}
	if data["Action"] == nil {
		t.Error("expected an action in the signal")
	}
}

func TestSignalsHandler_Get_EmptySymbol(t *testing.T) {
	handler := NewSignalsHandler(newTestApp(&fakeProvider{}))

	req := httptest.NewRequest("GET", "/api/v1/signals/", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSignalsHandler_Get_FetchFailure(t *testing.T) {
	handler := NewSignalsHandler(newTestApp(&fakeProvider{err: core.ErrCollectorFailed}))

	req := httptest.NewRequest("GET", "/api/v1/signals/AAPL", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req, "AAPL")

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}
