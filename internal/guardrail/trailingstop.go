package guardrail

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/marketdata"
	"go.uber.org/zap"
)

// TrailingStop tracks the peak price of every entered position and, once the
// price falls more than stopPct below the peak, blocks further buys of that
// ticker. The block takes effect from the date the breach is observed and is
// lifted when the position is fully exited.
type TrailingStop struct {
	stopPct decimal.Decimal
	peaks   map[string]decimal.Decimal
	held    map[string]decimal.Decimal
	blocked map[string]bool
	logger  *zap.Logger
}

// NewTrailingStop creates a trailing stop with the given drop fraction
// (0.05 blocks after a 5% fall from the peak).
func NewTrailingStop(stopPct decimal.Decimal, logger *zap.Logger) (*TrailingStop, error) {
	if !stopPct.IsPositive() || stopPct.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("stop percent must be in (0, 1), got %s", stopPct.String())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrailingStop{
		stopPct: stopPct,
		peaks:   make(map[string]decimal.Decimal),
		held:    make(map[string]decimal.Decimal),
		blocked: make(map[string]bool),
		logger:  logger,
	}, nil
}

// NewTrailingStopFromParams builds a TrailingStop from the stop_pct parameter.
func NewTrailingStopFromParams(params map[string]any) (Guardrail, error) {
	stopPct, err := decimalParam(params, "stop_pct", "0.05")
	if err != nil {
		return nil, err
	}
	return NewTrailingStop(stopPct, nil)
}

// Name returns the guardrail name.
func (t *TrailingStop) Name() string {
	return "trailing_stop"
}

// ObserveDate refreshes peaks from the latest causal price and marks
// breached tickers. The view only serves data before the simulated date, so
// a breach observed here acts on later decisions, never retroactively.
func (t *TrailingStop) ObserveDate(date time.Time, state domain.PortfolioState, view *marketdata.View) {
	for ticker, peak := range t.peaks {
		price, err := view.LatestPrice(ticker)
		if err != nil {
			continue
		}
		if price.GreaterThan(peak) {
			t.peaks[ticker] = price
			continue
		}
		threshold := peak.Mul(decimal.NewFromInt(1).Sub(t.stopPct))
		if price.LessThan(threshold) && !t.blocked[ticker] {
			t.blocked[ticker] = true
			t.logger.Info("trailing stop breached",
				zap.String("ticker", ticker),
				zap.String("price", price.String()),
				zap.String("peak", peak.String()))
		}
	}
}

// ObserveTrade registers entries on buys and unregisters tickers whose
// position was fully exited.
func (t *TrailingStop) ObserveTrade(trade domain.TradeRecord) {
	held := t.held[trade.Ticker].Add(trade.PositionDelta)
	t.held[trade.Ticker] = held

	if trade.PositionDelta.IsPositive() {
		if _, tracked := t.peaks[trade.Ticker]; !tracked {
			t.peaks[trade.Ticker] = trade.Price
		}
		return
	}

	if held.IsZero() {
		delete(t.peaks, trade.Ticker)
		delete(t.held, trade.Ticker)
		delete(t.blocked, trade.Ticker)
	}
}

// Evaluate vetoes buys of blocked tickers. Sells always pass so a breached
// position can still be unwound.
func (t *TrailingStop) Evaluate(order domain.Order, state domain.PortfolioState, view *marketdata.View) Decision {
	if order.IsBuy() && t.blocked[order.Ticker] {
		return Veto("trailing stop breached for " + order.Ticker)
	}
	return Approve()
}
