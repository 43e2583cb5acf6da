package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketlens/marketlens/internal/api"
	"github.com/marketlens/marketlens/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MarketLens server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	log = configLogger(log, cfg)

	a, hist, reg, err := buildApp(cfg, log, "")
	if err != nil {
		return err
	}
	defer hist.Close()

	if !cfg.Metrics.Enabled {
		reg = nil
	}

	// Apply the retention policy before taking traffic.
	pruneCtx, pruneCancel := context.WithTimeout(context.Background(), time.Minute)
	if _, err := a.PruneHistory(pruneCtx); err != nil {
		log.Warn("pruning run history failed", zap.Error(err))
	}
	pruneCancel()

	log.Info("starting MarketLens server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	server := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		JobTTL:      time.Duration(cfg.Server.JobTTLHours) * time.Hour,
		MaxJobs:     cfg.Server.MaxJobs,
		MetricsPath: cfg.Metrics.Path,
	}, a, hist, reg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down MarketLens server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
