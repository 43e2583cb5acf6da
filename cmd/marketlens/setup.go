package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/marketlens/marketlens/internal/app"
	"github.com/marketlens/marketlens/internal/collector"
	"github.com/marketlens/marketlens/internal/collector/csvfile"
	"github.com/marketlens/marketlens/internal/collector/yahoo"
	"github.com/marketlens/marketlens/internal/config"
	"github.com/marketlens/marketlens/internal/history"
	"github.com/marketlens/marketlens/internal/logger"
	"github.com/marketlens/marketlens/internal/metrics"
	"github.com/marketlens/marketlens/internal/storage/archive"
)

func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
		return config.Defaults(), nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// configLogger rebuilds the logger at the configured level. The --debug
// flag always wins over the config.
func configLogger(log *zap.Logger, cfg *config.Config) *zap.Logger {
	if debug || cfg.Logging.Level == "" {
		return log
	}

	leveled, err := logger.NewWithLevel(false, cfg.Logging.Level)
	if err != nil {
		log.Warn("could not apply configured log level",
			zap.String("level", cfg.Logging.Level), zap.Error(err))
		return log
	}
	return leveled
}

// newProvider picks the market data source. A non-empty csvPath wins
// over the network collector.
func newProvider(csvPath string) collector.HistoryProvider {
	if csvPath != "" {
		return csvfile.New(csvPath, "1d")
	}
	return yahoo.New()
}

// buildApp assembles the orchestrator with all storage backends.
func buildApp(cfg *config.Config, log *zap.Logger, csvPath string) (*app.App, *history.Store, *metrics.Registry, error) {
	a := app.New(cfg, log)
	a.SetProvider(newProvider(csvPath))

	reg := metrics.NewRegistry()
	a.SetMetrics(reg)

	hist, err := history.Open(cfg.Storage.Hot.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening history store: %w", err)
	}
	a.SetHistory(hist)

	cold, err := archive.New(cfg.Storage.Cold)
	if err != nil {
		hist.Close()
		return nil, nil, nil, fmt.Errorf("opening archive: %w", err)
	}
	a.SetArchive(cold)

	return a, hist, reg, nil
}
