package strategy

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/marketdata"
)

// BuyHold goes long every ticker once, on the first date it has any history,
// and stays flat afterwards. Internal state makes it single-run: construct a
// fresh instance per run.
type BuyHold struct {
	bought map[string]bool
}

// NewBuyHold creates a buy-and-hold strategy.
func NewBuyHold() *BuyHold {
	return &BuyHold{bought: make(map[string]bool)}
}

// NewBuyHoldFromParams builds a BuyHold from registry parameters.
func NewBuyHoldFromParams(map[string]any) (Strategy, error) {
	return NewBuyHold(), nil
}

// Name returns the strategy name.
func (b *BuyHold) Name() string {
	return "buyhold"
}

// GenerateSignals signals long for each ticker exactly once.
func (b *BuyHold) GenerateSignals(ctx context.Context, view *marketdata.View, date time.Time, lookback int) (map[string]domain.Signal, error) {
	signals := make(map[string]domain.Signal)
	for _, ticker := range view.Tickers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if b.bought[ticker] {
			continue
		}

		if _, err := view.LatestPrice(ticker); err != nil {
			if errors.Is(err, domain.ErrDataUnavailable) {
				continue
			}
			return nil, errors.Wrapf(err, "latest price for %s", ticker)
		}

		signals[ticker] = domain.SignalLong
		b.bought[ticker] = true
	}
	return signals, nil
}
