package marketdata

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
)

// View is a time-bounded accessor over a Series. A view never serves data
// beyond its cutoff, which turns the no-future-leak rule into a checked
// invariant instead of a caller convention.
type View struct {
	series *Series
	cutoff time.Time
	// inclusive views serve bars through the cutoff date; exclusive views
	// (handed to strategies) stop strictly before it.
	inclusive bool
}

// NewView creates a view serving bars through cutoff inclusive.
// The executor holds one over the full simulation horizon.
func NewView(series *Series, cutoff time.Time) *View {
	return &View{series: series, cutoff: cutoff, inclusive: true}
}

// Restrict derives the strategy-facing view for one simulated date:
// it serves only bars strictly before the given date.
func (v *View) Restrict(date time.Time) *View {
	return &View{series: v.series, cutoff: date, inclusive: false}
}

// Tickers returns the tracked tickers in deterministic order.
func (v *View) Tickers() []string {
	return v.series.Tickers()
}

func (v *View) allowed(date time.Time) bool {
	if v.inclusive {
		return !date.After(v.cutoff)
	}
	return date.Before(v.cutoff)
}

// GetPrice returns the close of the most recent bar at or before date.
// It fails with domain.ErrFutureData when date lies beyond the view cutoff
// and domain.ErrDataUnavailable when no bar exists yet.
func (v *View) GetPrice(ticker string, date time.Time) (decimal.Decimal, error) {
	if !v.allowed(date) {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrFutureData, "price for %s at %s", ticker, date.Format("2006-01-02"))
	}

	bars, ok := v.series.barsFor(ticker)
	if !ok {
		return decimal.Decimal{}, errors.Wrap(domain.ErrUnknownTicker, ticker)
	}

	// index of the first bar after date
	idx := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(date) })
	if idx == 0 {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrDataUnavailable, "%s at %s", ticker, date.Format("2006-01-02"))
	}
	return bars[idx-1].Close, nil
}

// PriceAt returns the close of the bar exactly at date, if one exists.
func (v *View) PriceAt(ticker string, date time.Time) (decimal.Decimal, error) {
	if !v.allowed(date) {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrFutureData, "price for %s at %s", ticker, date.Format("2006-01-02"))
	}

	bars, ok := v.series.barsFor(ticker)
	if !ok {
		return decimal.Decimal{}, errors.Wrap(domain.ErrUnknownTicker, ticker)
	}

	idx := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(date) })
	if idx == len(bars) || !bars[idx].Date.Equal(date) {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrDataUnavailable, "%s has no bar at %s", ticker, date.Format("2006-01-02"))
	}
	return bars[idx].Close, nil
}

// LatestPrice returns the close of the most recent bar the view may serve.
func (v *View) LatestPrice(ticker string) (decimal.Decimal, error) {
	bars, ok := v.series.barsFor(ticker)
	if !ok {
		return decimal.Decimal{}, errors.Wrap(domain.ErrUnknownTicker, ticker)
	}

	idx := v.boundary(bars)
	if idx == 0 {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrDataUnavailable, "%s has no bars before cutoff", ticker)
	}
	return bars[idx-1].Close, nil
}

// GetHistory returns at most window bars strictly before date, fewer at the
// start of history. Requesting history for a date beyond the cutoff fails
// with domain.ErrFutureData.
func (v *View) GetHistory(ticker string, date time.Time, window int) ([]domain.Bar, error) {
	if window <= 0 {
		return nil, errors.Errorf("window must be positive, got %d", window)
	}
	if date.After(v.cutoff) {
		return nil, errors.Wrapf(domain.ErrFutureData, "history for %s ending %s", ticker, date.Format("2006-01-02"))
	}

	bars, ok := v.series.barsFor(ticker)
	if !ok {
		return nil, errors.Wrap(domain.ErrUnknownTicker, ticker)
	}

	// strictly before both the requested date and the view boundary
	end := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(date) })
	if limit := v.boundary(bars); limit < end {
		end = limit
	}

	start := end - window
	if start < 0 {
		start = 0
	}
	return append([]domain.Bar(nil), bars[start:end]...), nil
}

// boundary returns the number of leading bars the view may serve.
func (v *View) boundary(bars []domain.Bar) int {
	if v.inclusive {
		return sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(v.cutoff) })
	}
	return sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(v.cutoff) })
}
