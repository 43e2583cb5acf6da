// Package dataset materializes the table the analysis layers run over:
// raw bars plus the derived indicator series, all aligned to the same index.
package dataset

import (
	"time"

	"github.com/marketlens/marketlens/internal/backtest"
	"github.com/marketlens/marketlens/internal/core"
	"github.com/marketlens/marketlens/internal/indicator"
)

// Standard indicator parameters.
const (
	RSIPeriod      = 14
	FastSMAPeriod  = 20
	SlowSMAPeriod  = 50
	FastEMASpan    = 12
	SlowEMASpan    = 26
	MACDSignalSpan = 9
)

// Data holds one symbol's history with derived indicator series. All slices
// share the same length and ordering; indicator warmup gaps are zero-filled.
type Data struct {
	Symbol         string
	CurrentPrice   float64
	PriceChange    float64
	PriceChangePct float64
	LastUpdated    time.Time

	Dates   []time.Time
	Opens   []float64
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []int64

	RSI        []float64
	SMA20      []float64
	SMA50      []float64
	EMA12      []float64
	EMA26      []float64
	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64
}

// Build derives the indicator series from time-ordered bars.
func Build(symbol string, bars []core.Bar) (*Data, error) {
	if len(bars) == 0 {
		return nil, core.ErrNoData
	}

	n := len(bars)
	d := &Data{
		Symbol:      symbol,
		LastUpdated: time.Now(),
		Dates:       make([]time.Time, n),
		Opens:       make([]float64, n),
		Highs:       make([]float64, n),
		Lows:        make([]float64, n),
		Closes:      make([]float64, n),
		Volumes:     make([]int64, n),
	}

	for i, b := range bars {
		d.Dates[i] = b.Time
		d.Opens[i] = b.Open
		d.Highs[i] = b.High
		d.Lows[i] = b.Low
		d.Closes[i] = b.Close
		d.Volumes[i] = b.Volume
	}

	d.RSI = indicator.RSI(d.Closes, RSIPeriod)
	d.SMA20 = indicator.SMA(d.Closes, FastSMAPeriod)
	d.SMA50 = indicator.SMA(d.Closes, SlowSMAPeriod)
	d.EMA12 = indicator.EMA(d.Closes, FastEMASpan)
	d.EMA26 = indicator.EMA(d.Closes, SlowEMASpan)

	macd := indicator.MACD(d.Closes, FastEMASpan, SlowEMASpan, MACDSignalSpan)
	d.MACD = macd.Line
	d.MACDSignal = macd.Signal
	d.MACDHist = macd.Histogram

	d.CurrentPrice = d.Closes[n-1]
	prevClose := d.CurrentPrice
	if n > 1 {
		prevClose = d.Closes[n-2]
	}
	d.PriceChange = d.CurrentPrice - prevClose
	if prevClose != 0 {
		d.PriceChangePct = d.PriceChange / prevClose * 100
	}

	return d, nil
}

// Len returns the number of periods.
func (d *Data) Len() int {
	return len(d.Dates)
}

// BacktestInput exposes the series the backtest engine consumes.
func (d *Data) BacktestInput() backtest.Input {
	return backtest.Input{
		Symbol:     d.Symbol,
		Dates:      d.Dates,
		Closes:     d.Closes,
		MACD:       d.MACD,
		MACDSignal: d.MACDSignal,
		Volumes:    d.Volumes,
	}
}
