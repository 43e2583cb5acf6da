// Package csvfile loads historical bars from local CSV files, for
// offline backtests and tests that should not touch the network.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/marketlens/marketlens/internal/core"
)

// Expected header: date,open,high,low,close,volume
const dateLayout = "2006-01-02"

// CSVFile reads bars from a single CSV file. The file covers one symbol
// at one interval.
type CSVFile struct {
	path     string
	interval string
}

// New creates a collector backed by the CSV file at path.
func New(path, interval string) *CSVFile {
	if interval == "" {
		interval = "1d"
	}
	return &CSVFile{path: path, interval: interval}
}

func (c *CSVFile) Name() string {
	return "csvfile"
}

// FetchHistory reads all rows, keeps those with dates in [start, end],
// and returns them in file order. The interval argument is ignored; the
// file's configured interval is used.
func (c *CSVFile) FetchHistory(symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	defer f.Close()

	bars, err := c.parse(f, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.ErrNoData
	}
	return bars, nil
}

func (c *CSVFile) parse(r io.Reader, symbol string, start, end time.Time) ([]core.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("reading header: %w", err))
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidInput, err)
	}

	var bars []core.Bar
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("line %d: %w", line, err))
		}

		bar, err := parseRow(record, cols, symbol, c.interval)
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("line %d: %w", line, err))
		}

		if !start.IsZero() && bar.Time.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Time.After(end) {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

type columns struct {
	date, open, high, low, close, volume int
}

func indexColumns(header []string) (columns, error) {
	cols := columns{date: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range header {
		switch name {
		case "date":
			cols.date = i
		case "open":
			cols.open = i
		case "high":
			cols.high = i
		case "low":
			cols.low = i
		case "close":
			cols.close = i
		case "volume":
			cols.volume = i
		}
	}
	if cols.date < 0 || cols.open < 0 || cols.high < 0 || cols.low < 0 || cols.close < 0 || cols.volume < 0 {
		return cols, fmt.Errorf("missing required columns, want date,open,high,low,close,volume")
	}
	return cols, nil
}

func parseRow(record []string, cols columns, symbol, interval string) (core.Bar, error) {
	var bar core.Bar

	ts, err := time.Parse(dateLayout, record[cols.date])
	if err != nil {
		return bar, fmt.Errorf("parsing date %q: %w", record[cols.date], err)
	}

	fields := []struct {
		idx int
		dst *float64
	}{
		{cols.open, &bar.Open},
		{cols.high, &bar.High},
		{cols.low, &bar.Low},
		{cols.close, &bar.Close},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(record[f.idx], 64)
		if err != nil {
			return bar, fmt.Errorf("parsing price %q: %w", record[f.idx], err)
		}
		*f.dst = v
	}

	vol, err := strconv.ParseFloat(record[cols.volume], 64)
	if err != nil {
		return bar, fmt.Errorf("parsing volume %q: %w", record[cols.volume], err)
	}

	bar.Symbol = symbol
	bar.Interval = interval
	bar.Volume = int64(vol)
	bar.Time = ts
	return bar, nil
}
