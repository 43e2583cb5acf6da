// Package app wires collectors, the backtest engine, and the storage
// layers into one orchestrator shared by the CLI and the HTTP server.
package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/marketlens/marketlens/internal/backtest"
	"github.com/marketlens/marketlens/internal/collector"
	"github.com/marketlens/marketlens/internal/config"
	"github.com/marketlens/marketlens/internal/core"
	"github.com/marketlens/marketlens/internal/dataset"
	"github.com/marketlens/marketlens/internal/history"
	"github.com/marketlens/marketlens/internal/metrics"
	"github.com/marketlens/marketlens/internal/predictor"
	"github.com/marketlens/marketlens/internal/storage/archive"
)

// App is the main application orchestrator.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *metrics.Registry

	provider collector.HistoryProvider
	history  *history.Store
	archive  archive.Storage
}

// New creates a new App instance. Storage and collector backends are
// attached afterwards; an App without them can still run in-memory
// backtests.
func New(cfg *config.Config, logger *zap.Logger) *App {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// SetProvider attaches the market data collector.
func (a *App) SetProvider(p collector.HistoryProvider) {
	a.provider = p
}

// SetHistory attaches the run history store.
func (a *App) SetHistory(h *history.Store) {
	a.history = h
}

// SetArchive attaches the cold report archive.
func (a *App) SetArchive(s archive.Storage) {
	a.archive = s
}

// SetMetrics attaches the Prometheus registry.
func (a *App) SetMetrics(r *metrics.Registry) {
	a.registry = r
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// BacktestResult bundles a finished run with its persisted ID. RunID is
// empty when no history store is attached.
type BacktestResult struct {
	RunID   string            `json:"run_id,omitempty"`
	Symbol  string            `json:"symbol"`
	Metrics *backtest.Metrics `json:"metrics"`
}

// RunBacktest fetches history for the symbol, runs the engine over it,
// and persists the result to the history store and report archive when
// they are attached.
func (a *App) RunBacktest(ctx context.Context, symbol string, start, end time.Time) (*BacktestResult, error) {
	began := time.Now()

	d, err := a.loadDataset(symbol, start, end)
	if err != nil {
		a.recordBacktest("error", began)
		return nil, err
	}

	cfg := backtest.Config{
		StrategyName:   a.cfg.Backtest.Strategy,
		InitialCapital: a.cfg.Backtest.InitialCapital,
		Commission:     a.cfg.Backtest.Commission,
		TradeOnClose:   true,
		PositionType:   "Long-only",
	}

	m, err := backtest.Run(d.BacktestInput(), cfg)
	if err != nil {
		a.recordBacktest("error", began)
		return nil, err
	}

	result := &BacktestResult{Symbol: symbol, Metrics: m}

	if a.history != nil {
		runID, err := a.history.SaveRun(ctx, symbol, m)
		if err != nil {
			a.recordBacktest("error", began)
			return nil, err
		}
		result.RunID = runID

		if a.archive != nil {
			if err := archive.WriteReport(ctx, a.archive, runID, m); err != nil {
				// The run is already queryable; losing the cold copy
				// is not fatal.
				a.logger.Warn("archiving report failed",
					zap.String("run_id", runID), zap.Error(err))
			}
		}
	}

	a.recordBacktest("success", began)
	a.logger.Info("backtest complete",
		zap.String("symbol", symbol),
		zap.String("run_id", result.RunID),
		zap.Int("trades", m.TotalTrades),
		zap.Float64("total_return", m.TotalReturn),
	)
	return result, nil
}

// Analyze fetches history for the symbol and scores the latest bar.
func (a *App) Analyze(ctx context.Context, symbol string, start, end time.Time) (core.Signal, error) {
	d, err := a.loadDataset(symbol, start, end)
	if err != nil {
		return core.Signal{}, err
	}

	sig, err := predictor.Predict(d)
	if err != nil {
		return core.Signal{}, err
	}

	if a.registry != nil {
		a.registry.RecordSignal(string(sig.Action))
	}
	return sig, nil
}

func (a *App) loadDataset(symbol string, start, end time.Time) (*dataset.Data, error) {
	if a.provider == nil {
		return nil, core.ErrCollectorFailed
	}

	bars, err := a.provider.FetchHistory(symbol, start, end, "1d")
	if err != nil {
		a.recordFetch("error")
		return nil, err
	}
	a.recordFetch("success")

	return dataset.Build(symbol, bars)
}

// PruneHistory applies the hot storage retention policy: runs older
// than the configured window are deleted, together with their archived
// reports. It returns the number of runs removed.
func (a *App) PruneHistory(ctx context.Context) (int, error) {
	if a.history == nil {
		return 0, nil
	}

	ids, err := a.history.Prune(ctx, a.cfg.Storage.Hot.RetentionDays)
	if err != nil {
		return 0, err
	}

	if a.archive != nil {
		for _, id := range ids {
			if err := archive.DeleteReport(ctx, a.archive, id); err != nil {
				a.logger.Warn("deleting archived report failed",
					zap.String("run_id", id), zap.Error(err))
			}
		}
	}

	if len(ids) > 0 {
		a.logger.Info("pruned expired runs",
			zap.Int("count", len(ids)),
			zap.Int("retention_days", a.cfg.Storage.Hot.RetentionDays))
	}
	return len(ids), nil
}

func (a *App) recordFetch(status string) {
	if a.registry == nil || a.provider == nil {
		return
	}
	a.registry.RecordFetch(a.provider.Name(), status)
}

func (a *App) recordBacktest(status string, began time.Time) {
	if a.registry == nil {
		return
	}
	a.registry.RecordBacktest(status, time.Since(began).Seconds())
}

// Close releases the attached storage backends.
func (a *App) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}
