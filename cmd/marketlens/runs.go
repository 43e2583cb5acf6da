package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketlens/marketlens/internal/history"
	"github.com/marketlens/marketlens/internal/logger"
)

var (
	runsLimit int
	runsPrune bool
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List persisted backtest runs, or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list")
	runsCmd.Flags().BoolVar(&runsPrune, "prune", false,
		"Delete runs older than the configured retention window")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	log = configLogger(log, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if runsPrune {
		// The orchestrator also removes the archived reports of the
		// pruned runs.
		a, prunedHist, _, err := buildApp(cfg, log, "")
		if err != nil {
			return err
		}
		defer prunedHist.Close()

		n, err := a.PruneHistory(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d runs\n", n)
		return nil
	}

	hist, err := history.Open(cfg.Storage.Hot.DSN)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer hist.Close()

	if len(args) == 1 {
		return showRun(ctx, hist, args[0])
	}

	runs, err := hist.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	fmt.Printf("%-26s  %-8s  %-19s  %10s  %8s  %6s\n",
		"RUN ID", "SYMBOL", "CREATED", "RETURN", "SHARPE", "TRADES")
	for _, r := range runs {
		fmt.Printf("%-26s  %-8s  %-19s  %9.2f%%  %8.2f  %6d\n",
			r.RunID, r.Symbol, r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.TotalReturn, r.SharpeRatio, r.TotalTrades)
	}
	return nil
}

func showRun(ctx context.Context, hist *history.Store, runID string) error {
	run, err := hist.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	printReport(run.Symbol, run.RunID, run.Metrics)
	return nil
}
