// Package ingest materializes historical bar data before a simulation run.
// The simulation core never fetches; it consumes the in-memory series this
// package prepares.
package ingest

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/internal/domain"
)

// BarSource fetches the daily bar history of one ticker.
type BarSource interface {
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error)
}

// Load fetches bars for every ticker from the source.
func Load(ctx context.Context, source BarSource, tickers []string, start, end time.Time) (map[string][]domain.Bar, error) {
	bars := make(map[string][]domain.Bar, len(tickers))
	for _, ticker := range tickers {
		tickerBars, err := source.Fetch(ctx, ticker, start, end)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch bars for %s", ticker)
		}
		if len(tickerBars) == 0 {
			return nil, errors.Wrapf(domain.ErrDataUnavailable, "%s between %s and %s",
				ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		bars[ticker] = tickerBars
	}
	return bars, nil
}
