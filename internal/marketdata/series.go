// Package marketdata provides read-only, time-bounded access to historical
// price series. It is the only source of prices for strategies and the
// executor.
package marketdata

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/internal/domain"
)

// Series holds the immutable per-ticker bar history of a simulation.
type Series struct {
	bars    map[string][]domain.Bar
	tickers []string
}

// NewSeries validates and wraps per-ticker bar slices. Bars must be ordered
// by ascending date with no duplicates and carry positive close prices.
func NewSeries(bars map[string][]domain.Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, errors.New("series requires at least one ticker")
	}

	tickers := make([]string, 0, len(bars))
	copied := make(map[string][]domain.Bar, len(bars))
	for ticker, tickerBars := range bars {
		for i, bar := range tickerBars {
			if i > 0 && !tickerBars[i-1].Date.Before(bar.Date) {
				return nil, errors.Errorf("bars for %s are not strictly ascending at %s", ticker, bar.Date.Format("2006-01-02"))
			}
			if !bar.Close.IsPositive() {
				return nil, errors.Errorf("non-positive close price for %s at %s", ticker, bar.Date.Format("2006-01-02"))
			}
		}
		copied[ticker] = append([]domain.Bar(nil), tickerBars...)
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	return &Series{bars: copied, tickers: tickers}, nil
}

// Tickers returns the tracked tickers in deterministic order.
func (s *Series) Tickers() []string {
	return append([]string(nil), s.tickers...)
}

// Dates returns the ordered union of bar dates across all tickers
// within [start, end] inclusive.
func (s *Series) Dates(start, end time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, tickerBars := range s.bars {
		for _, bar := range tickerBars {
			if bar.Date.Before(start) || bar.Date.After(end) {
				continue
			}
			seen[bar.Date] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// barsFor returns the raw bar slice for a ticker.
func (s *Series) barsFor(ticker string) ([]domain.Bar, bool) {
	tickerBars, ok := s.bars[ticker]
	return tickerBars, ok
}
