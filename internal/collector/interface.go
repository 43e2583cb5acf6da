package collector

import (
	"time"

	"github.com/marketlens/marketlens/internal/core"
)

// HistoryProvider supplies historical bars for a symbol.
type HistoryProvider interface {
	// Name returns a stable provider identifier like "yahoo" or "csv".
	Name() string

	// FetchHistory returns time-ordered bars for the symbol in [start, end].
	FetchHistory(symbol string, start, end time.Time, interval string) ([]core.Bar, error)
}

// QuoteProvider supplies the latest price snapshot for a symbol.
type QuoteProvider interface {
	FetchQuote(symbol string) (*core.Quote, error)
}
