// Package indicator computes technical indicator series from price data.
//
// All functions return a series with exactly the same length and index
// alignment as the input. Warmup positions that have no defined value are
// zero-filled rather than dropped, so downstream consumers never see NaN
// or a shortened series.
package indicator

// SMA calculates the Simple Moving Average over the given period.
// Positions before the first full window are zero.
func SMA(prices []float64, period int) []float64 {
	result := make([]float64, len(prices))
	if period <= 0 || len(prices) < period {
		return result
	}

	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			result[i] = sum / float64(period)
		}
	}

	return result
}

// EMA calculates the Exponential Moving Average with the given span,
// seeded from the first price so every position is defined.
func EMA(prices []float64, span int) []float64 {
	result := make([]float64, len(prices))
	if span <= 0 || len(prices) == 0 {
		return result
	}

	multiplier := 2.0 / float64(span+1)

	ema := prices[0]
	result[0] = ema
	for i := 1; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		result[i] = ema
	}

	return result
}

// RSI calculates the Relative Strength Index over the given period using a
// rolling mean of gains and losses. Warmup positions are zero.
func RSI(prices []float64, period int) []float64 {
	result := make([]float64, len(prices))
	if period <= 0 || len(prices) <= period {
		return result
	}

	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(prices); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			continue
		}

		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		switch {
		case avgLoss == 0 && avgGain == 0:
			result[i] = 0
		case avgLoss == 0:
			result[i] = 100
		default:
			rs := avgGain / avgLoss
			result[i] = 100 - (100 / (1 + rs))
		}
	}

	return result
}
