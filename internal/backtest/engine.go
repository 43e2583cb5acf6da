// Package backtest implements a vectorized long-only backtest over a price
// series with MACD indicator series, producing a trade ledger, equity and
// drawdown curves, and risk/return statistics against a buy-and-hold
// benchmark.
//
// The engine is a pure function: no I/O, no shared state, safe to call
// concurrently as long as each call gets its own input.
package backtest

import (
	"fmt"
	"math"
)

// Run executes a backtest of the MACD crossover strategy over the input
// table. It returns the full metrics bundle, or an error when the input is
// empty or misaligned; it never returns a partial result.
func Run(in Input, cfg Config) (*Metrics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := buildSeries(in, cfg.Commission)
	if err != nil {
		return nil, err
	}

	n := len(in.Closes)
	capital := cfg.InitialCapital

	equity := equityCurve(s.netReturns, capital)
	marketEquity := equityCurve(s.returns, capital)
	finalEquity := equity[n-1]

	ddCurve, maxDD := drawdownCurve(equity)
	_, marketMaxDD := drawdownCurve(marketEquity)

	years := float64(n) / TradingDaysPerYear

	totalReturn := (finalEquity/capital - 1) * 100
	cagr := annualizedGrowth(finalEquity/capital, years)

	marketFinal := marketEquity[n-1]
	marketTotalReturn := (marketFinal/capital - 1) * 100
	marketAnnual := annualizedGrowth(marketFinal/capital, years)

	// Win rate counts profitable periods out of periods with any nonzero
	// return, not closed trades. Downstream displays assume this definition.
	var winning, active int
	for _, r := range s.netReturns {
		if r > 0 {
			winning++
		}
		if r != 0 {
			active++
		}
	}
	var winRate float64
	if active > 0 {
		winRate = float64(winning) / float64(active) * 100
	}

	// Average return over periods where the position toggled.
	var toggleSum float64
	var toggles int
	for t := range s.changes {
		if s.changes[t] > 0 {
			toggleSum += s.netReturns[t]
			toggles++
		}
	}
	var avgTradeReturn float64
	if toggles > 0 {
		avgTradeReturn = toggleSum / float64(toggles) * 100
	}

	// Beta against the benchmark, CAPM alpha with risk-free rate 0.
	beta := 1.0
	if mv := variance(s.returns); mv != 0 {
		beta = covariance(s.netReturns, s.returns) / mv
	}
	alpha := cagr - beta*marketAnnual

	// Information ratio over the active return series.
	activeReturns := make([]float64, n)
	for t := range activeReturns {
		activeReturns[t] = s.netReturns[t] - s.returns[t]
	}
	trackingError := stddev(activeReturns) * math.Sqrt(TradingDaysPerYear)
	var infoRatio float64
	if trackingError != 0 {
		infoRatio = mean(activeReturns) * TradingDaysPerYear / trackingError
	}

	trades, buySignals, sellSignals := buildLedger(in, s.targets, cfg.Commission)

	m := &Metrics{
		Config:         cfg,
		InitialCapital: capital,
		FinalEquity:    finalEquity,

		TotalTrades:     len(trades),
		WinRate:         winRate,
		MaxDrawdown:     maxDD,
		TotalReturn:     totalReturn,
		AnnualReturn:    cagr,
		CAGR:            cagr,
		Volatility:      annualizedVolatility(s.netReturns),
		SharpeRatio:     sharpeRatio(s.netReturns),
		AvgTradeReturn:  avgTradeReturn,
		ConfidenceRatio: confidenceRatio(in, s.targets),

		MarketTotalReturn:  marketTotalReturn,
		MarketAnnualReturn: marketAnnual,
		MarketVolatility:   annualizedVolatility(s.returns),
		MarketSharpeRatio:  sharpeRatio(s.returns),
		MarketMaxDrawdown:  marketMaxDD,

		Alpha:            alpha,
		Beta:             beta,
		TrackingError:    trackingError,
		InformationRatio: infoRatio,

		EntryRule:        "Buy when MACD crosses above its signal line",
		ExitRule:         "Close position when MACD falls to or below its signal line",
		PositionStrategy: "No short selling",

		EquityCurve:   equity,
		MarketEquity:  marketEquity,
		DrawdownCurve: ddCurve,
		Returns:       s.netReturns,
		Dates:         in.Dates,
		Prices:        in.Closes,
		Volumes:       in.Volumes,

		MonthlyReturns: monthlyReturns(in, s.netReturns),
		Trades:         trades,
		BuySignals:     buySignals,
		SellSignals:    sellSignals,

		DataPoints: n,
		DateRange: fmt.Sprintf("%s to %s",
			in.Dates[0].Format("2006-01-02"),
			in.Dates[n-1].Format("2006-01-02")),
	}

	return m, nil
}

// buildLedger reconstructs round-trip trades with a sequential scan over the
// undelayed target series. P&L realization is lagged by construction of the
// net return series, but trade boundaries follow the same-period decision
// indicator; the two series are intentionally distinct.
func buildLedger(in Input, targets []int, commission float64) ([]TradeRecord, []int, []int) {
	var trades []TradeRecord
	var buySignals, sellSignals []int

	open := false
	entryIdx := 0
	entryPrice := 0.0

	for idx := range targets {
		switch {
		case targets[idx] == 1 && !open:
			open = true
			entryIdx = idx
			entryPrice = in.Closes[idx]
			buySignals = append(buySignals, idx)
		case targets[idx] == 0 && open:
			open = false
			trades = append(trades, closeTrade(in, entryIdx, idx, entryPrice, commission))
			sellSignals = append(sellSignals, idx)
		}
	}

	// Force-close any position still open at series end.
	if open {
		last := len(targets) - 1
		trades = append(trades, closeTrade(in, entryIdx, last, entryPrice, commission))
		sellSignals = append(sellSignals, last)
	}

	return trades, buySignals, sellSignals
}

// closeTrade builds the ledger row for a round trip. Round-trip commission
// is charged on the entry price for both legs.
func closeTrade(in Input, entryIdx, exitIdx int, entryPrice, commission float64) TradeRecord {
	exitPrice := in.Closes[exitIdx]
	pl := (exitPrice - entryPrice) - entryPrice*commission*2
	return TradeRecord{
		EntryDate:     in.Dates[entryIdx],
		ExitDate:      in.Dates[exitIdx],
		EntryPrice:    entryPrice,
		ExitPrice:     exitPrice,
		ProfitLoss:    pl,
		ProfitLossPct: pl / entryPrice * 100,
		Duration:      exitIdx - entryIdx,
		Type:          "LONG",
	}
}

// confidenceRatio is a display heuristic: the mean indicator divergence
// relative to price over long periods, scaled for readability. It defaults
// to 50 when the strategy never goes long.
func confidenceRatio(in Input, targets []int) float64 {
	var sum float64
	var count int
	for t := range targets {
		if targets[t] != 1 {
			continue
		}
		sum += math.Abs(in.MACD[t]-in.MACDSignal[t]) / in.Closes[t]
		count++
	}
	if count == 0 {
		return 50.0
	}
	return sum / float64(count) * 1000
}

// monthlyReturns sums net strategy returns by calendar month, in
// chronological order. Dates are ascending, so first-seen order is enough.
func monthlyReturns(in Input, netReturns []float64) []MonthlyReturn {
	var out []MonthlyReturn
	idx := make(map[string]int)
	for t, d := range in.Dates {
		key := d.Format("2006-01")
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, MonthlyReturn{Month: key})
		}
		out[i].Return += netReturns[t]
	}
	return out
}
