// Package yahoo fetches quotes and historical bars from the Yahoo Finance
// chart API.
package yahoo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/marketlens/marketlens/internal/core"
)

const baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// validSymbol matches stock symbols like AAPL, MSFT, 0700.HK
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9]{1,10}(\.[A-Za-z]{1,4})?$`)

func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance history and quote provider.
type Yahoo struct {
	client *http.Client
}

// New creates a new Yahoo collector
func New() *Yahoo {
	return &Yahoo{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// FetchQuote fetches the latest price snapshot.
func (y *Yahoo) FetchQuote(symbol string) (*core.Quote, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/%s?interval=1d&range=1d", baseURL, symbol)

	result, err := y.getChart(url)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}

	meta := result.Meta
	return &core.Quote{
		Symbol: symbol,
		Price:  meta.RegularMarketPrice,
		Volume: int64(meta.RegularMarketVolume),
		Time:   time.Unix(int64(meta.RegularMarketTime), 0),
		Source: "yahoo",
	}, nil
}

// FetchHistory fetches historical bars. Periods with missing quotes are
// skipped, so the result has no gaps.
func (y *Yahoo) FetchHistory(symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?interval=%s&period1=%d&period2=%d",
		baseURL, symbol, toYahooInterval(interval), start.Unix(), end.Unix())

	result, err := y.getChart(url)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}

	if len(result.Indicators.Quote) == 0 {
		return nil, core.ErrNoData
	}

	bars := buildBars(symbol, interval, result.Timestamp, result.Indicators.Quote[0])
	if len(bars) == 0 {
		return nil, core.ErrNoData
	}
	return bars, nil
}

// buildBars converts one chart quote block into bars. Periods with any
// missing field are skipped, so the result has no gaps.
func buildBars(symbol, interval string, timestamps []int, quotes quoteIndicator) []core.Bar {
	bars := make([]core.Bar, 0, len(timestamps))
	for i, ts := range timestamps {
		if quotes.Open[i] == nil || quotes.High[i] == nil || quotes.Low[i] == nil ||
			quotes.Close[i] == nil || quotes.Volume[i] == nil {
			continue
		}
		bars = append(bars, core.Bar{
			Symbol:   symbol,
			Interval: interval,
			Open:     *quotes.Open[i],
			High:     *quotes.High[i],
			Low:      *quotes.Low[i],
			Close:    *quotes.Close[i],
			Volume:   int64(*quotes.Volume[i]),
			Time:     time.Unix(int64(ts), 0),
		})
	}
	return bars
}

func (y *Yahoo) getChart(url string) (*chartResult, error) {
	resp, err := y.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching chart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data returned")
	}

	return &result.Chart.Result[0], nil
}

func toYahooInterval(interval string) string {
	switch interval {
	case "1m", "5m", "1h", "1d":
		return interval
	default:
		return "1d"
	}
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int      `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol              string  `json:"symbol"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	RegularMarketVolume int     `json:"regularMarketVolume"`
	RegularMarketTime   int     `json:"regularMarketTime"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
