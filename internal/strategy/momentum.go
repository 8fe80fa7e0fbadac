package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/marketdata"
	"github.com/vadiminshakov/folio/pkg/indicators"
)

const (
	defaultShortWindow = 10
	defaultLongWindow  = 30
)

// Momentum signals on simple moving average crossovers: long when the short
// SMA crosses above the long SMA, short (exit) when it crosses below.
type Momentum struct {
	shortWindow int
	longWindow  int
}

// NewMomentum creates a crossover strategy with the given windows.
func NewMomentum(shortWindow, longWindow int) (*Momentum, error) {
	if shortWindow < 1 || longWindow < 1 {
		return nil, errors.Errorf("windows must be positive, got short=%d long=%d", shortWindow, longWindow)
	}
	if shortWindow >= longWindow {
		return nil, errors.Errorf("short window %d must be below long window %d", shortWindow, longWindow)
	}
	return &Momentum{shortWindow: shortWindow, longWindow: longWindow}, nil
}

// NewMomentumFromParams builds a Momentum from registry parameters
// short_window and long_window.
func NewMomentumFromParams(params map[string]any) (Strategy, error) {
	short, err := intParam(params, "short_window", defaultShortWindow)
	if err != nil {
		return nil, err
	}
	long, err := intParam(params, "long_window", defaultLongWindow)
	if err != nil {
		return nil, err
	}
	return NewMomentum(short, long)
}

// Name returns the parameterized strategy name.
func (m *Momentum) Name() string {
	return fmt.Sprintf("momentum_%d_%d", m.shortWindow, m.longWindow)
}

// GenerateSignals emits a signal per ticker with enough history for both
// moving averages. Tickers with short history are skipped, not failed.
func (m *Momentum) GenerateSignals(ctx context.Context, view *marketdata.View, date time.Time, lookback int) (map[string]domain.Signal, error) {
	if lookback < m.longWindow+1 {
		lookback = m.longWindow + 1
	}

	signals := make(map[string]domain.Signal)
	for _, ticker := range view.Tickers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		history, err := view.GetHistory(ticker, date, lookback)
		if err != nil {
			if errors.Is(err, domain.ErrDataUnavailable) {
				continue
			}
			return nil, errors.Wrapf(err, "history for %s", ticker)
		}
		// need two points of the long SMA for the crossover check
		if len(history) < m.longWindow+1 {
			continue
		}

		closes := make([]decimal.Decimal, len(history))
		for i, bar := range history {
			closes[i] = bar.Close
		}

		shortMA, err := indicators.CalculateSMA(closes, m.shortWindow)
		if err != nil {
			return nil, errors.Wrapf(err, "short SMA for %s", ticker)
		}
		longMA, err := indicators.CalculateSMA(closes, m.longWindow)
		if err != nil {
			return nil, errors.Wrapf(err, "long SMA for %s", ticker)
		}
		if len(shortMA) < 2 || len(longMA) < 2 {
			continue
		}

		shortPrev, shortLast := shortMA[len(shortMA)-2], shortMA[len(shortMA)-1]
		longPrev, longLast := longMA[len(longMA)-2], longMA[len(longMA)-1]

		switch {
		case shortPrev.LessThanOrEqual(longPrev) && shortLast.GreaterThan(longLast):
			signals[ticker] = domain.SignalLong
		case shortPrev.GreaterThanOrEqual(longPrev) && shortLast.LessThan(longLast):
			signals[ticker] = domain.SignalShort
		}
	}

	return signals, nil
}
