package backtest

import (
	"time"

	"github.com/marketlens/marketlens/internal/core"
)

// TradingDaysPerYear is the annualization constant for daily series.
const TradingDaysPerYear = 252

// Input is the materialized table the engine runs over: a time-ordered
// price series with its derived MACD indicator series. All slices must be
// the same length; dates must be unique and strictly increasing. The engine
// borrows the slices read-only.
type Input struct {
	Symbol     string
	Dates      []time.Time
	Closes     []float64
	MACD       []float64
	MACDSignal []float64
	Volumes    []int64 // display only
}

// Validate checks the input series for emptiness and misalignment.
func (in Input) Validate() error {
	n := len(in.Dates)
	if n == 0 {
		return core.ErrInsufficientData
	}
	if len(in.Closes) != n || len(in.MACD) != n || len(in.MACDSignal) != n {
		return core.ErrInvalidInput
	}
	if in.Volumes != nil && len(in.Volumes) != n {
		return core.ErrInvalidInput
	}
	return nil
}

// Config holds the fixed strategy configuration for a run.
type Config struct {
	StrategyName   string  `json:"strategy_name"`
	InitialCapital float64 `json:"initial_capital"`
	Commission     float64 `json:"commission"` // fraction of notional per position change
	TradeOnClose   bool    `json:"trade_on_close"`
	PositionType   string  `json:"position_type"`
}

// DefaultConfig returns the standard long-only MACD crossover configuration.
func DefaultConfig() Config {
	return Config{
		StrategyName:   "macd_crossover",
		InitialCapital: 1_000_000,
		Commission:     0.002,
		TradeOnClose:   true,
		PositionType:   "Long-only",
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return core.ErrConfigInvalid
	}
	if c.Commission < 0 || c.Commission >= 1 {
		return core.ErrConfigInvalid
	}
	return nil
}

// TradeRecord is one completed round trip in the ledger. A position still
// open at the end of the series is force-closed at the final price.
type TradeRecord struct {
	EntryDate     time.Time `json:"entry_date"`
	ExitDate      time.Time `json:"exit_date"`
	EntryPrice    float64   `json:"entry_price"`
	ExitPrice     float64   `json:"exit_price"`
	ProfitLoss    float64   `json:"profit_loss"`
	ProfitLossPct float64   `json:"profit_loss_pct"`
	Duration      int       `json:"duration"` // periods held
	Type          string    `json:"type"`     // always "LONG"
}

// IsWin returns true if the trade was profitable after commission.
func (t TradeRecord) IsWin() bool {
	return t.ProfitLoss > 0
}

// MonthlyReturn is the strategy return summed over one calendar month.
type MonthlyReturn struct {
	Month  string  `json:"month"` // "YYYY-MM"
	Return float64 `json:"return"`
}

// Metrics is the complete output bundle of a backtest run. Every series has
// the same length as the input; consumers treat the bundle as read-only.
type Metrics struct {
	Config         Config  `json:"config"`
	InitialCapital float64 `json:"initial_capital"`
	FinalEquity    float64 `json:"final_equity"`

	TotalTrades     int     `json:"total_trades"`
	WinRate         float64 `json:"win_rate"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	TotalReturn     float64 `json:"total_return"`
	AnnualReturn    float64 `json:"annual_return"`
	CAGR            float64 `json:"cagr"`
	Volatility      float64 `json:"volatility"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	AvgTradeReturn  float64 `json:"avg_trade_return"`
	ConfidenceRatio float64 `json:"confidence_ratio"`

	MarketTotalReturn  float64 `json:"market_total_return"`
	MarketAnnualReturn float64 `json:"market_annual_return"`
	MarketVolatility   float64 `json:"market_volatility"`
	MarketSharpeRatio  float64 `json:"market_sharpe_ratio"`
	MarketMaxDrawdown  float64 `json:"market_max_drawdown"`

	Alpha            float64 `json:"alpha"`
	Beta             float64 `json:"beta"`
	TrackingError    float64 `json:"tracking_error"`
	InformationRatio float64 `json:"information_ratio"`

	EntryRule        string `json:"entry_rule"`
	ExitRule         string `json:"exit_rule"`
	PositionStrategy string `json:"position_strategy"`

	EquityCurve   []float64   `json:"equity_curve"`
	MarketEquity  []float64   `json:"market_equity"`
	DrawdownCurve []float64   `json:"drawdown_curve"`
	Returns       []float64   `json:"returns"`
	Dates         []time.Time `json:"dates"`
	Prices        []float64   `json:"prices"`
	Volumes       []int64     `json:"volumes"`

	MonthlyReturns []MonthlyReturn `json:"monthly_returns"`
	Trades         []TradeRecord   `json:"trades"`
	BuySignals     []int           `json:"buy_signals"`
	SellSignals    []int           `json:"sell_signals"`

	DataPoints int    `json:"data_points"`
	DateRange  string `json:"date_range"`
}
