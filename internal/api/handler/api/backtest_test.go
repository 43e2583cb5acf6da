package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marketlens/marketlens/internal/api/job"
	"github.com/marketlens/marketlens/internal/api/response"
	"github.com/marketlens/marketlens/internal/app"
	"github.com/marketlens/marketlens/internal/core"
	"github.com/marketlens/marketlens/internal/metrics"
)

// fakeProvider serves a deterministic bar series for handler tests.
type fakeProvider struct {
	err error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchHistory(symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	bars := make([]core.Bar, 60)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range bars {
		if i%5 == 4 {
			price -= 3
		} else {
			price += 2
		}
		bars[i] = core.Bar{
			Symbol: symbol, Interval: "1d",
			Open: price - 1, High: price + 1, Low: price - 2, Close: price,
			Volume: 1000, Time: base.AddDate(0, 0, i),
		}
	}
	return bars, nil
}

func newTestApp(p *fakeProvider) *app.App {
	a := app.New(nil, nil)
	a.SetProvider(p)
	return a
}

func waitForJob(t *testing.T, store *job.Store, jobID string) *job.Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := store.Get(jobID)
		if err != nil {
			t.Fatalf("Get job: %v", err)
		}
		if j.Status == job.StatusComplete || j.Status == job.StatusFailed {
			return j
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestBacktestHandler_Create(t *testing.T) {
	jobStore := job.NewStore(100, time.Hour)
	handler := NewBacktestHandler(jobStore, newTestApp(&fakeProvider{}), nil)

	body := bytes.NewBufferString(`{
		"symbol": "AAPL",
		"start": "2024-01-01",
		"end": "2024-03-01"
	}`)
	req := httptest.NewRequest("POST", "/api/v1/backtest", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	data := resp.Data.(map[string]any)
	if data["job_id"] == nil {
		t.Fatal("expected job_id in response")
	}
	if data["status"] != "pending" {
		t.Errorf("expected pending status, got %s", data["status"])
	}

	j := waitForJob(t, jobStore, data["job_id"].(string))
	if j.Status != job.StatusComplete {
		t.Fatalf("expected complete, got %s", j.Status)
	}
	if j.Result == nil {
		t.Error("expected result on completed job")
	}
}

func TestBacktestHandler_Create_MissingSymbol(t *testing.T) {
	jobStore := job.NewStore(100, time.Hour)
	handler := NewBacktestHandler(jobStore, newTestApp(&fakeProvider{}), nil)

	body := bytes.NewBufferString(`{"start": "2024-01-01"}`)
	req := httptest.NewRequest("POST", "/api/v1/backtest", body)
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBacktestHandler_Create_BadDate(t *testing.T) {
	jobStore := job.NewStore(100, time.Hour)
	handler := NewBacktestHandler(jobStore, newTestApp(&fakeProvider{}), nil)

	body := bytes.NewBufferString(`{"symbol": "AAPL", "start": "yesterday"}`)
	req := httptest.NewRequest("POST", "/api/v1/backtest", body)
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBacktestHandler_Create_FetchFailureFailsJob(t *testing.T) {
	jobStore := job.NewStore(100, time.Hour)
	handler := NewBacktestHandler(jobStore, newTestApp(&fakeProvider{err: core.ErrNoData}), nil)

	body := bytes.NewBufferString(`{"symbol": "AAPL"}`)
	req := httptest.NewRequest("POST", "/api/v1/backtest", body)
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp.Data.(map[string]any)

	j := waitForJob(t, jobStore, data["job_id"].(string))
	if j.Status != job.StatusFailed {
		t.Fatalf("expected failed, got %s", j.Status)
	}
	if j.Error == nil {
		t.Error("expected error on failed job")
	}
}

func TestBacktestHandler_FeedsJobsGauge(t *testing.T) {
	jobStore := job.NewStore(100, time.Hour)
	reg := metrics.NewRegistry()
	handler := NewBacktestHandler(jobStore, newTestApp(&fakeProvider{}), reg)

	body := bytes.NewBufferString(`{"symbol": "AAPL"}`)
	req := httptest.NewRequest("POST", "/api/v1/backtest", body)
	w := httptest.NewRecorder()

	handler.Create(w, req)

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp.Data.(map[string]any)
	waitForJob(t, jobStore, data["job_id"].(string))

	// The gauge settles to zero once the worker goroutine is done.
	deadline := time.Now().Add(2 * time.Second)
	for {
		v, ok := jobsGaugeValue(reg)
		if !ok {
			t.Fatal("expected marketlens_jobs_active to be registered")
		}
		if v == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 0 active jobs after completion, got %v", v)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func jobsGaugeValue(reg *metrics.Registry) (float64, bool) {
	mfs, _ := reg.Gather()
	for _, mf := range mfs {
		if mf.GetName() == "marketlens_jobs_active" {
			for _, m := range mf.GetMetric() {
				return m.GetGauge().GetValue(), true
			}
		}
	}
	return 0, false
}

func TestBacktestHandler_GetStatus_NotFound(t *testing.T) {
	jobStore := job.NewStore(100, time.Hour)
	handler := NewBacktestHandler(jobStore, newTestApp(&fakeProvider{}), nil)

	req := httptest.NewRequest("GET", "/api/v1/backtest/unknown", nil)
	w := httptest.NewRecorder()

	handler.GetStatus(w, req, "unknown")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
