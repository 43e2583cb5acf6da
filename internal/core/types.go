package core

import "time"

// Bar represents one period of historical price data.
type Bar struct {
	Symbol   string
	Interval string // "1m", "1h", "1d"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// Quote represents the latest price snapshot for a symbol.
type Quote struct {
	Symbol string
	Price  float64
	Volume int64
	Time   time.Time
	Source string
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// Action represents a trading signal action
type Action string

const (
	ActionBuy        Action = "buy"
	ActionSell       Action = "sell"
	ActionHold       Action = "hold"
	ActionStrongBuy  Action = "strong_buy"
	ActionStrongSell Action = "strong_sell"
)

// Signal is a display-level trading signal derived from indicator posture.
// The backtest engine never consumes signals; it works from the raw
// indicator series directly.
type Signal struct {
	Symbol      string
	Action      Action
	Score       float64
	Confidence  float64
	Price       float64
	Reasons     []string
	GeneratedAt time.Time
}
