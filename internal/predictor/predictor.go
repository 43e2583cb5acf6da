// Package predictor generates display-level BUY/SELL/HOLD signals from
// indicator posture. The scoring is a deterministic heuristic; it sits
// entirely outside the backtest engine's numeric contract.
package predictor

import (
	"fmt"
	"time"

	"github.com/marketlens/marketlens/internal/core"
	"github.com/marketlens/marketlens/internal/dataset"
)

// Score thresholds for mapping the aggregate score to an action.
const (
	buyThreshold  = 2.0
	sellThreshold = -2.0
)

// Predict scores the latest indicator values and returns a signal with the
// contributing reasons. Requires at least two periods of history.
func Predict(d *dataset.Data) (core.Signal, error) {
	n := d.Len()
	if n < 2 {
		return core.Signal{}, core.ErrInsufficientData
	}

	price := d.CurrentPrice
	rsi := d.RSI[n-1]
	macd := d.MACD[n-1]
	macdSignal := d.MACDSignal[n-1]
	macdHist := d.MACDHist[n-1]
	sma20, prevSMA20 := d.SMA20[n-1], d.SMA20[n-2]
	sma50, prevSMA50 := d.SMA50[n-1], d.SMA50[n-2]

	var score float64
	var reasons []string

	switch {
	case rsi < 30:
		score += 2
		reasons = append(reasons, fmt.Sprintf("RSI is oversold (%.1f), suggesting a potential rebound", rsi))
	case rsi > 70:
		score -= 2
		reasons = append(reasons, fmt.Sprintf("RSI is overbought (%.1f), suggesting a potential pullback", rsi))
	default:
		reasons = append(reasons, fmt.Sprintf("RSI is neutral (%.1f)", rsi))
	}

	if macd > macdSignal {
		score++
		reasons = append(reasons, "MACD line is above the signal line (bullish)")
	} else {
		score--
		reasons = append(reasons, "MACD line is below the signal line (bearish)")
	}

	if sma50 > 0 && price > sma50 {
		score++
		reasons = append(reasons, "Price is above the 50-day SMA (uptrend)")
	} else {
		score--
		reasons = append(reasons, "Price is below the 50-day SMA (downtrend)")
	}

	if macdHist > 0 {
		score += 0.5
		reasons = append(reasons, "MACD histogram shows increasing bullish momentum")
	} else if macdHist < 0 {
		score -= 0.5
		reasons = append(reasons, "MACD histogram shows increasing bearish momentum")
	}

	// Golden/death cross on the SMA pair, once both windows are warm.
	if prevSMA20 > 0 && prevSMA50 > 0 && sma20 > 0 && sma50 > 0 {
		if prevSMA20 <= prevSMA50 && sma20 > sma50 {
			score += 2
			reasons = append(reasons, fmt.Sprintf("Golden cross: SMA %d crossed above SMA %d", dataset.FastSMAPeriod, dataset.SlowSMAPeriod))
		} else if prevSMA20 >= prevSMA50 && sma20 < sma50 {
			score -= 2
			reasons = append(reasons, fmt.Sprintf("Death cross: SMA %d crossed below SMA %d", dataset.FastSMAPeriod, dataset.SlowSMAPeriod))
		}
	}

	action, confidence := resolve(score)

	return core.Signal{
		Symbol:      d.Symbol,
		Action:      action,
		Score:       score,
		Confidence:  confidence,
		Price:       price,
		Reasons:     reasons,
		GeneratedAt: time.Now(),
	}, nil
}

// resolve maps the aggregate score to an action and a confidence in [0,1].
func resolve(score float64) (core.Action, float64) {
	abs := score
	if abs < 0 {
		abs = -abs
	}

	var action core.Action
	var confidence float64
	switch {
	case score >= buyThreshold:
		action = core.ActionBuy
		confidence = 0.75 + score*0.05
	case score <= sellThreshold:
		action = core.ActionSell
		confidence = 0.75 + abs*0.05
	default:
		action = core.ActionHold
		confidence = 0.50
	}

	if confidence > 0.985 {
		confidence = 0.985
	}
	if confidence < 0.50 {
		confidence = 0.50
	}
	return action, confidence
}
