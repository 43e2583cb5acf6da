package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketlens/marketlens/internal/backtest"
	"github.com/marketlens/marketlens/internal/logger"
)

var (
	backtestSymbol string
	backtestFrom   string
	backtestTo     string
	backtestCSV    string
	backtestTrades bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a MACD crossover backtest",
	Long:  "Run the MACD crossover strategy against historical data and show performance statistics",
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestCSV, "csv", "", "Load bars from a CSV file instead of the network")
	backtestCmd.Flags().BoolVar(&backtestTrades, "trades", false, "Print the trade ledger")

	backtestCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	log = configLogger(log, cfg)

	start, end, err := parseRange(backtestFrom, backtestTo)
	if err != nil {
		return err
	}

	a, hist, _, err := buildApp(cfg, log, backtestCSV)
	if err != nil {
		return err
	}
	defer hist.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := a.RunBacktest(ctx, backtestSymbol, start, end)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printReport(backtestSymbol, result.RunID, result.Metrics)
	return nil
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date (expected YYYY-MM-DD): %w", err)
		}
		end = t
	}

	start := end.AddDate(-1, 0, 0)
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date (expected YYYY-MM-DD): %w", err)
		}
		start = t
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date must be after start date")
	}
	return start, end, nil
}

func printReport(symbol, runID string, m *backtest.Metrics) {
	fmt.Println("=== MarketLens Backtest ===")
	fmt.Printf("Symbol:    %s\n", symbol)
	fmt.Printf("Strategy:  %s (%s)\n", m.Config.StrategyName, m.PositionStrategy)
	fmt.Printf("Period:    %s (%d bars)\n", m.DateRange, m.DataPoints)
	if runID != "" {
		fmt.Printf("Run ID:    %s\n", runID)
	}
	fmt.Println()

	fmt.Printf("Initial capital:   %14.2f\n", m.InitialCapital)
	fmt.Printf("Final equity:      %14.2f\n", m.FinalEquity)
	fmt.Printf("Total return:      %13.2f%%\n", m.TotalReturn)
	fmt.Printf("Annual return:     %13.2f%%\n", m.AnnualReturn)
	fmt.Printf("CAGR:              %13.2f%%\n", m.CAGR)
	fmt.Printf("Volatility:        %13.2f%%\n", m.Volatility)
	fmt.Printf("Sharpe ratio:      %14.2f\n", m.SharpeRatio)
	fmt.Printf("Max drawdown:      %13.2f%%\n", m.MaxDrawdown)
	fmt.Printf("Win rate:          %13.2f%%\n", m.WinRate)
	fmt.Printf("Trades:            %14d\n", m.TotalTrades)
	fmt.Printf("Avg trade return:  %13.2f%%\n", m.AvgTradeReturn)
	fmt.Printf("Confidence ratio:  %14.2f\n", m.ConfidenceRatio)
	fmt.Println()

	fmt.Println("--- vs buy-and-hold ---")
	fmt.Printf("Market return:     %13.2f%%\n", m.MarketTotalReturn)
	fmt.Printf("Market sharpe:     %14.2f\n", m.MarketSharpeRatio)
	fmt.Printf("Market drawdown:   %13.2f%%\n", m.MarketMaxDrawdown)
	fmt.Printf("Alpha:             %14.4f\n", m.Alpha)
	fmt.Printf("Beta:              %14.4f\n", m.Beta)
	fmt.Printf("Information ratio: %14.4f\n", m.InformationRatio)

	if backtestTrades && len(m.Trades) > 0 {
		fmt.Println()
		fmt.Println("--- trades ---")
		for i, tr := range m.Trades {
			fmt.Printf("%3d  %s -> %s  entry %10.2f  exit %10.2f  pl %10.2f (%6.2f%%)  %d bars\n",
				i+1,
				tr.EntryDate.Format("2006-01-02"),
				tr.ExitDate.Format("2006-01-02"),
				tr.EntryPrice, tr.ExitPrice,
				tr.ProfitLoss, tr.ProfitLossPct, tr.Duration)
		}
	}
}
