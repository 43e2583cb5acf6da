package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketlens/marketlens/internal/logger"
)

var (
	analyzeCSV string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [symbol]",
	Short: "Score a symbol's current indicator posture",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCSV, "csv", "", "Load bars from a CSV file instead of the network")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	symbol := args[0]

	log := logger.Must(debug)
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	log = configLogger(log, cfg)

	a, hist, _, err := buildApp(cfg, log, analyzeCSV)
	if err != nil {
		return err
	}
	defer hist.Close()

	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sig, err := a.Analyze(ctx, symbol, start, end)
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	fmt.Println("=== MarketLens Signal ===")
	fmt.Printf("Symbol:     %s\n", sig.Symbol)
	fmt.Printf("Action:     %s\n", sig.Action)
	fmt.Printf("Score:      %.1f\n", sig.Score)
	fmt.Printf("Confidence: %.1f%%\n", sig.Confidence*100)
	fmt.Printf("Price:      %.2f\n", sig.Price)
	for _, reason := range sig.Reasons {
		fmt.Printf("  - %s\n", reason)
	}
	return nil
}
