package backtest

import "math"

// Statistical helpers over return series. Standard deviation, variance and
// covariance are the sample (n-1) forms; all of them degrade to 0 rather
// than NaN on degenerate input so the report is always fully populated.

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return sum / float64(len(xs)-1)
}

func stddev(xs []float64) float64 {
	return math.Sqrt(variance(xs))
}

func covariance(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	mx := mean(xs)
	my := mean(ys)
	var sum float64
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(len(xs)-1)
}

// equityCurve compounds per-period returns onto the initial capital.
func equityCurve(returns []float64, capital float64) []float64 {
	curve := make([]float64, len(returns))
	cum := 1.0
	for i, r := range returns {
		cum *= 1 + r
		curve[i] = capital * cum
	}
	return curve
}

// drawdownCurve returns the peak-to-current decline of the equity curve in
// percent (each value <= 0) and the deepest decline observed.
func drawdownCurve(equity []float64) ([]float64, float64) {
	curve := make([]float64, len(equity))
	var maxDD float64
	peak := math.Inf(-1)
	for i, e := range equity {
		if e > peak {
			peak = e
		}
		curve[i] = (e/peak - 1) * 100
		if curve[i] < maxDD {
			maxDD = curve[i]
		}
	}
	return curve, maxDD
}

// annualizedGrowth computes CAGR in percent for the given growth ratio over
// the elapsed years. Degenerate spans or non-positive ratios yield 0.
func annualizedGrowth(ratio, years float64) float64 {
	if years <= 0 || ratio <= 0 {
		return 0
	}
	return (math.Pow(ratio, 1/years) - 1) * 100
}

// annualizedVolatility scales the sample stddev of per-period returns to a
// yearly figure in percent.
func annualizedVolatility(returns []float64) float64 {
	sd := stddev(returns)
	if sd == 0 {
		return 0
	}
	return sd * math.Sqrt(TradingDaysPerYear) * 100
}

// sharpeRatio is the annualized mean/stddev of per-period returns with a
// risk-free rate of 0, or 0 when volatility vanishes.
func sharpeRatio(returns []float64) float64 {
	sd := stddev(returns)
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * math.Sqrt(TradingDaysPerYear)
}
