package indicator

// MACDSeries holds the MACD line, its signal line, and the histogram.
// All three series are aligned with the input prices.
type MACDSeries struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates the Moving Average Convergence Divergence: the difference
// of a fast and slow EMA, with a signal line smoothing the difference.
// The conventional parameters are (12, 26, 9).
func MACD(prices []float64, fast, slow, signal int) MACDSeries {
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine := EMA(line, signal)

	hist := make([]float64, len(prices))
	for i := range prices {
		hist[i] = line[i] - signalLine[i]
	}

	return MACDSeries{
		Line:      line,
		Signal:    signalLine,
		Histogram: hist,
	}
}
