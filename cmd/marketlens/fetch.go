package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketlens/marketlens/internal/collector/yahoo"
	"github.com/marketlens/marketlens/internal/dataset"
	"github.com/marketlens/marketlens/internal/logger"
)

var (
	fetchFrom string
	fetchTo   string
	fetchOut  string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [symbol]",
	Short: "Fetch historical bars with derived indicators to CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "Start date YYYY-MM-DD")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "End date YYYY-MM-DD")
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "Output CSV path (default <symbol>.csv)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	symbol := args[0]

	log := logger.Must(debug)
	defer log.Sync()

	start, end, err := parseRange(fetchFrom, fetchTo)
	if err != nil {
		return err
	}

	out := fetchOut
	if out == "" {
		out = symbol + ".csv"
	}

	y := yahoo.New()
	bars, err := y.FetchHistory(symbol, start, end, "1d")
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	d, err := dataset.Build(symbol, bars)
	if err != nil {
		return err
	}

	if err := writeDatasetCSV(out, d); err != nil {
		return err
	}

	log.Info("dataset written",
		zap.String("symbol", symbol),
		zap.String("path", out),
		zap.Int("bars", d.Len()),
	)
	return nil
}

func writeDatasetCSV(path string, d *dataset.Data) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"date", "open", "high", "low", "close", "volume",
		"rsi", "sma_20", "sma_50", "ema_12", "ema_26", "macd", "macd_signal",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := 0; i < d.Len(); i++ {
		row := []string{
			d.Dates[i].Format("2006-01-02"),
			formatFloat(d.Opens[i]),
			formatFloat(d.Highs[i]),
			formatFloat(d.Lows[i]),
			formatFloat(d.Closes[i]),
			strconv.FormatInt(d.Volumes[i], 10),
			formatFloat(d.RSI[i]),
			formatFloat(d.SMA20[i]),
			formatFloat(d.SMA50[i]),
			formatFloat(d.EMA12[i]),
			formatFloat(d.EMA26[i]),
			formatFloat(d.MACD[i]),
			formatFloat(d.MACDSignal[i]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
