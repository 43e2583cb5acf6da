package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/marketlens/marketlens/internal/core"
)

func TestRun_Scenario(t *testing.T) {
	in := testInput(
		[]float64{100, 100, 110, 110, 90},
		[]float64{1, 1, 2, -1, -1},
		[]float64{0, 0, 1, 0, 0},
	)
	cfg := Config{
		StrategyName:   "macd_crossover",
		InitialCapital: 1_000_000,
		Commission:     0.002,
		TradeOnClose:   true,
		PositionType:   "Long-only",
	}

	m, err := Run(in, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// One trade: opened at index 0 (Target flips to 1), closed at index 3
	// (Target drops to 0).
	if m.TotalTrades != 1 {
		t.Fatalf("TotalTrades = %d, want 1", m.TotalTrades)
	}
	tr := m.Trades[0]
	if tr.EntryPrice != 100 {
		t.Errorf("EntryPrice = %f, want 100", tr.EntryPrice)
	}
	if tr.ExitPrice != 110 {
		t.Errorf("ExitPrice = %f, want 110", tr.ExitPrice)
	}
	if math.Abs(tr.ProfitLoss-9.6) > 1e-9 {
		t.Errorf("ProfitLoss = %f, want 9.6", tr.ProfitLoss)
	}
	if math.Abs(tr.ProfitLossPct-9.6) > 1e-9 {
		t.Errorf("ProfitLossPct = %f, want 9.6", tr.ProfitLossPct)
	}
	if tr.Duration != 3 {
		t.Errorf("Duration = %d, want 3", tr.Duration)
	}
	if tr.Type != "LONG" {
		t.Errorf("Type = %q, want LONG", tr.Type)
	}

	if len(m.BuySignals) != 1 || m.BuySignals[0] != 0 {
		t.Errorf("BuySignals = %v, want [0]", m.BuySignals)
	}
	if len(m.SellSignals) != 1 || m.SellSignals[0] != 3 {
		t.Errorf("SellSignals = %v, want [3]", m.SellSignals)
	}

	// Lagged execution: commission toggles realize at t=1 and t=4, the one
	// profitable holding period is t=2.
	wantReturns := []float64{0, -0.002, 0.1, 0, -0.002}
	for i, want := range wantReturns {
		if math.Abs(m.Returns[i]-want) > 1e-12 {
			t.Errorf("Returns[%d] = %f, want %f", i, m.Returns[i], want)
		}
	}

	wantFinal := 1_000_000 * 0.998 * 1.1 * 0.998
	if math.Abs(m.FinalEquity-wantFinal) > 1e-6 {
		t.Errorf("FinalEquity = %f, want %f", m.FinalEquity, wantFinal)
	}

	// Win rate counts nonzero-return periods (t=1,2,4), one of them positive.
	if math.Abs(m.WinRate-100.0/3) > 1e-9 {
		t.Errorf("WinRate = %f, want %f", m.WinRate, 100.0/3)
	}

	// Average toggle-period return: (-0.002 + -0.002)/2 * 100
	if math.Abs(m.AvgTradeReturn-(-0.2)) > 1e-9 {
		t.Errorf("AvgTradeReturn = %f, want -0.2", m.AvgTradeReturn)
	}

	if m.DataPoints != 5 {
		t.Errorf("DataPoints = %d, want 5", m.DataPoints)
	}
	if m.DateRange != "2024-01-02 to 2024-01-06" {
		t.Errorf("DateRange = %q", m.DateRange)
	}
}

func TestRun_EquityConsistency(t *testing.T) {
	in := testInput(
		[]float64{100, 102, 101, 105, 103, 108, 107, 111},
		[]float64{1, 2, -1, 3, -2, 1, 2, -1},
		[]float64{0, 1, 0, 1, 0, 0, 1, 0},
	)
	cfg := DefaultConfig()

	m, err := Run(in, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	cum := 1.0
	for i, r := range m.Returns {
		cum *= 1 + r
		want := cfg.InitialCapital * cum
		if math.Abs(m.EquityCurve[i]-want) > math.Abs(want)*1e-12 {
			t.Fatalf("EquityCurve[%d] = %f, want %f", i, m.EquityCurve[i], want)
		}
	}
	if m.FinalEquity != m.EquityCurve[len(m.EquityCurve)-1] {
		t.Error("FinalEquity must equal last equity point")
	}
}

func TestRun_DrawdownBound(t *testing.T) {
	in := testInput(
		[]float64{100, 110, 90, 120, 80, 130},
		[]float64{1, 1, 1, 1, 1, 1},
		[]float64{0, 0, 0, 0, 0, 0},
	)

	m, err := Run(in, DefaultConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	peak := math.Inf(-1)
	for i, e := range m.EquityCurve {
		if e > peak {
			peak = e
		}
		if m.DrawdownCurve[i] > 1e-12 {
			t.Errorf("DrawdownCurve[%d] = %f, want <= 0", i, m.DrawdownCurve[i])
		}
		if e == peak && math.Abs(m.DrawdownCurve[i]) > 1e-12 {
			t.Errorf("DrawdownCurve[%d] = %f, want 0 at running max", i, m.DrawdownCurve[i])
		}
	}
	if m.MaxDrawdown > 0 {
		t.Errorf("MaxDrawdown = %f, want <= 0", m.MaxDrawdown)
	}
}

func TestRun_CommissionSymmetry(t *testing.T) {
	// One open-then-close pair charges commission exactly twice on the
	// entry price, regardless of hold duration.
	for _, hold := range []int{1, 3, 6} {
		n := hold + 3
		closes := make([]float64, n)
		macd := make([]float64, n)
		signal := make([]float64, n)
		for i := range closes {
			closes[i] = 100 + float64(i)
			if i >= 1 && i <= hold {
				macd[i] = 1
			} else {
				macd[i] = -1
			}
		}

		m, err := Run(testInput(closes, macd, signal), Config{
			StrategyName:   "macd_crossover",
			InitialCapital: 10_000,
			Commission:     0.005,
			PositionType:   "Long-only",
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if m.TotalTrades != 1 {
			t.Fatalf("hold=%d: TotalTrades = %d, want 1", hold, m.TotalTrades)
		}
		tr := m.Trades[0]
		gross := tr.ExitPrice - tr.EntryPrice
		wantPL := gross - tr.EntryPrice*0.005*2
		if math.Abs(tr.ProfitLoss-wantPL) > 1e-9 {
			t.Errorf("hold=%d: ProfitLoss = %f, want %f", hold, tr.ProfitLoss, wantPL)
		}
	}
}

func TestRun_LedgerCompleteness(t *testing.T) {
	// Targets: three flat-to-long transitions, last position never closed.
	macd := []float64{-1, 1, -1, 1, 1, -1, -1, 1, 1}
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107, 108}
	signal := make([]float64, len(macd))

	m, err := Run(testInput(closes, macd, signal), DefaultConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	opens := 0
	prev := 0
	for _, v := range macd {
		cur := 0
		if v > 0 {
			cur = 1
		}
		if prev == 0 && cur == 1 {
			opens++
		}
		prev = cur
	}

	if m.TotalTrades != opens {
		t.Errorf("TotalTrades = %d, want %d transitions", m.TotalTrades, opens)
	}

	// The unclosed position produces exactly one forced-close trade at the
	// final period's price.
	last := m.Trades[len(m.Trades)-1]
	if last.ExitPrice != closes[len(closes)-1] {
		t.Errorf("forced close ExitPrice = %f, want %f", last.ExitPrice, closes[len(closes)-1])
	}
	if !last.ExitDate.Equal(m.Dates[len(m.Dates)-1]) {
		t.Error("forced close must use the final period's date")
	}
}

func TestRun_DegenerateConstantPrice(t *testing.T) {
	n := 10
	closes := make([]float64, n)
	macd := make([]float64, n)
	signal := make([]float64, n)
	for i := range closes {
		closes[i] = 100
		macd[i] = 1
	}

	m, err := Run(testInput(closes, macd, signal), Config{
		StrategyName:   "macd_crossover",
		InitialCapital: 1000,
		Commission:     0, // zero cost keeps the return series exactly constant
		PositionType:   "Long-only",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if m.Volatility != 0 {
		t.Errorf("Volatility = %f, want 0", m.Volatility)
	}
	if m.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %f, want 0", m.SharpeRatio)
	}
	if m.MarketVolatility != 0 || m.MarketSharpeRatio != 0 {
		t.Error("market stats should be 0 on constant prices")
	}
	// Zero market variance falls back to beta 1
	if m.Beta != 1 {
		t.Errorf("Beta = %f, want fallback 1", m.Beta)
	}
	if m.InformationRatio != 0 {
		t.Errorf("InformationRatio = %f, want 0", m.InformationRatio)
	}
	if m.WinRate != 0 {
		t.Errorf("WinRate = %f, want 0 with no active periods", m.WinRate)
	}
}

func TestRun_BenchmarkEquivalence(t *testing.T) {
	// Always-long target: strategy returns equal market returns except for
	// the single entry toggle.
	closes := []float64{100, 103, 101, 106, 110, 108}
	macd := []float64{1, 1, 1, 1, 1, 1}
	signal := make([]float64, len(closes))
	commission := 0.002

	m, err := Run(testInput(closes, macd, signal), Config{
		StrategyName:   "macd_crossover",
		InitialCapital: 1000,
		Commission:     commission,
		PositionType:   "Long-only",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i := range closes {
		marketReturn := 0.0
		if i > 0 {
			marketReturn = closes[i]/closes[i-1] - 1
		}
		want := marketReturn
		if i == 1 {
			want -= commission // entry toggle realized one period after t=0
		}
		if i == 0 {
			want = 0
		}
		if math.Abs(m.Returns[i]-want) > 1e-12 {
			t.Errorf("Returns[%d] = %f, want %f", i, m.Returns[i], want)
		}
	}
}

func TestRun_ConfidenceRatioDefault(t *testing.T) {
	// Never long: confidence ratio falls back to 50.
	in := testInput(
		[]float64{100, 101, 102},
		[]float64{-1, -1, -1},
		[]float64{0, 0, 0},
	)
	m, err := Run(in, DefaultConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if m.ConfidenceRatio != 50.0 {
		t.Errorf("ConfidenceRatio = %f, want 50", m.ConfidenceRatio)
	}
	if m.TotalTrades != 0 {
		t.Errorf("TotalTrades = %d, want 0", m.TotalTrades)
	}
}

func TestRun_ConfidenceRatioScaling(t *testing.T) {
	// Constant divergence of 1 on price 100 over all long periods: 10.0
	in := testInput(
		[]float64{100, 100, 100},
		[]float64{1, 1, 1},
		[]float64{0, 0, 0},
	)
	m, err := Run(in, DefaultConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if math.Abs(m.ConfidenceRatio-10) > 1e-9 {
		t.Errorf("ConfidenceRatio = %f, want 10", m.ConfidenceRatio)
	}
}

func TestRun_MonthlyReturns(t *testing.T) {
	base := time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC)
	in := Input{
		Symbol:     "TEST",
		Dates:      []time.Time{base, base.AddDate(0, 0, 1), base.AddDate(0, 0, 3), base.AddDate(0, 0, 4)},
		Closes:     []float64{100, 110, 121, 133.1},
		MACD:       []float64{1, 1, 1, 1},
		MACDSignal: []float64{0, 0, 0, 0},
	}

	m, err := Run(in, Config{InitialCapital: 1000, Commission: 0, StrategyName: "macd_crossover"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(m.MonthlyReturns) != 2 {
		t.Fatalf("MonthlyReturns length = %d, want 2", len(m.MonthlyReturns))
	}
	if m.MonthlyReturns[0].Month != "2024-01" || m.MonthlyReturns[1].Month != "2024-02" {
		t.Errorf("months = %v, want chronological 2024-01, 2024-02", m.MonthlyReturns)
	}
	// January holds t=0 (0) and t=1 (+10%); February t=2 and t=3 (+10% each)
	if math.Abs(m.MonthlyReturns[0].Return-0.1) > 1e-9 {
		t.Errorf("January return = %f, want 0.1", m.MonthlyReturns[0].Return)
	}
	if math.Abs(m.MonthlyReturns[1].Return-0.2) > 1e-9 {
		t.Errorf("February return = %f, want 0.2", m.MonthlyReturns[1].Return)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	in := testInput([]float64{100}, []float64{1}, []float64{0})

	_, err := Run(in, Config{InitialCapital: 0, Commission: 0.002})
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("zero capital: error = %v, want ErrConfigInvalid", err)
	}

	_, err = Run(in, Config{InitialCapital: 1000, Commission: 1})
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("commission 1: error = %v, want ErrConfigInvalid", err)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	_, err := Run(Input{}, DefaultConfig())
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("error = %v, want ErrInsufficientData", err)
	}
}

func TestRun_SeriesLengthsMatchInput(t *testing.T) {
	in := testInput(
		[]float64{100, 101, 99, 104, 102},
		[]float64{1, -1, 1, -1, 1},
		[]float64{0, 0, 0, 0, 0},
	)
	m, err := Run(in, DefaultConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	n := len(in.Closes)
	for name, l := range map[string]int{
		"EquityCurve":   len(m.EquityCurve),
		"MarketEquity":  len(m.MarketEquity),
		"DrawdownCurve": len(m.DrawdownCurve),
		"Returns":       len(m.Returns),
		"Dates":         len(m.Dates),
		"Prices":        len(m.Prices),
		"Volumes":       len(m.Volumes),
	} {
		if l != n {
			t.Errorf("%s length = %d, want %d", name, l, n)
		}
	}
}
