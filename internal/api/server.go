// Package api is the HTTP server exposing backtests, run history, and
// signals as a JSON API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handler "github.com/marketlens/marketlens/internal/api/handler/api"
	"github.com/marketlens/marketlens/internal/api/job"
	"github.com/marketlens/marketlens/internal/app"
	"github.com/marketlens/marketlens/internal/history"
	"github.com/marketlens/marketlens/internal/metrics"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	jobs       *job.Store
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	JobTTL      time.Duration
	MaxJobs     int
	MetricsPath string
}

// NewServer creates a new HTTP server wired to the orchestrator.
func NewServer(cfg Config, a *app.App, hist *history.Store, reg *metrics.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}

	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
		jobs:   job.NewStore(cfg.MaxJobs, cfg.JobTTL),
	}

	s.setupRoutes(a, hist, reg, cfg.MetricsPath)

	var root http.Handler = mux
	if reg != nil {
		root = metrics.HTTPMiddleware(reg)(mux)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(a *app.App, hist *history.Store, reg *metrics.Registry, metricsPath string) {
	backtests := handler.NewBacktestHandler(s.jobs, a, reg)
	signals := handler.NewSignalsHandler(a)

	s.mux.HandleFunc("POST /api/v1/backtest", backtests.Create)
	s.mux.HandleFunc("GET /api/v1/backtest/{id}", func(w http.ResponseWriter, r *http.Request) {
		backtests.GetStatus(w, r, r.PathValue("id"))
	})

	s.mux.HandleFunc("GET /api/v1/signals/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		signals.Get(w, r, r.PathValue("symbol"))
	})

	if hist != nil {
		runs := handler.NewRunsHandler(hist)
		s.mux.HandleFunc("GET /api/v1/runs", runs.List)
		s.mux.HandleFunc("GET /api/v1/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
			runs.Get(w, r, r.PathValue("id"))
		})
		s.mux.HandleFunc("GET /api/v1/runs/{id}/trades", func(w http.ResponseWriter, r *http.Request) {
			runs.Trades(w, r, r.PathValue("id"))
		})
	}

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if reg != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		s.mux.Handle("GET "+metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
