// Package portfolio implements the authoritative ledger of a simulation run:
// cash, open positions, the trade log, and the equity curve.
package portfolio

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"go.uber.org/zap"
)

// Option configures optional portfolio capabilities.
type Option func(*Portfolio)

// WithShortSelling permits negative position quantities.
func WithShortSelling() Option {
	return func(p *Portfolio) { p.allowShort = true }
}

// WithMargin permits a negative cash balance on buys.
func WithMargin() Option {
	return func(p *Portfolio) { p.allowMargin = true }
}

// Portfolio is the single component allowed to mutate balances.
// All mutations happen under one lock so readers never observe a
// half-applied trade.
type Portfolio struct {
	mu sync.RWMutex

	name        string
	universe    map[string]struct{}
	initialCash decimal.Decimal
	cash        decimal.Decimal
	positions   map[string]*domain.Position
	trades      []domain.TradeRecord
	rejections  []domain.Rejection
	equity      []domain.EquitySnapshot
	allowShort  bool
	allowMargin bool
	logger      *zap.Logger
}

// New constructs a portfolio for one simulation run.
func New(name string, tickers []string, startingCash decimal.Decimal, logger *zap.Logger, opts ...Option) (*Portfolio, error) {
	if len(tickers) == 0 {
		return nil, errors.New("portfolio requires at least one ticker")
	}
	if startingCash.IsNegative() {
		return nil, errors.Errorf("starting cash must be non-negative, got %s", startingCash.String())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	universe := make(map[string]struct{}, len(tickers))
	for _, ticker := range tickers {
		if ticker == "" {
			return nil, errors.New("empty ticker in universe")
		}
		universe[ticker] = struct{}{}
	}

	p := &Portfolio{
		name:        name,
		universe:    universe,
		initialCash: startingCash,
		cash:        startingCash,
		positions:   make(map[string]*domain.Position),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ExecuteTrade applies a signed-quantity fill. It validates universe
// membership, available cash, and held quantity, then updates cash, the
// position, its cost basis, and the trade log as one transaction.
func (p *Portfolio) ExecuteTrade(ticker string, quantity, price decimal.Decimal, date time.Time) (domain.TradeRecord, error) {
	if quantity.IsZero() {
		return domain.TradeRecord{}, errors.New("trade quantity must be non-zero")
	}
	if !price.IsPositive() {
		return domain.TradeRecord{}, errors.Errorf("trade price must be positive, got %s", price.String())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.universe[ticker]; !ok {
		return domain.TradeRecord{}, errors.Wrap(domain.ErrUnknownTicker, ticker)
	}

	cashDelta := quantity.Mul(price).Neg()

	if quantity.IsPositive() {
		if !p.allowMargin && p.cash.Add(cashDelta).IsNegative() {
			return domain.TradeRecord{}, errors.Wrapf(domain.ErrInsufficientFunds,
				"buy %s %s at %s needs %s, have %s",
				quantity.String(), ticker, price.String(), cashDelta.Neg().String(), p.cash.String())
		}
	} else {
		held := decimal.Zero
		if pos, ok := p.positions[ticker]; ok {
			held = pos.Quantity
		}
		if !p.allowShort && held.Add(quantity).IsNegative() {
			return domain.TradeRecord{}, errors.Wrapf(domain.ErrInsufficientPosition,
				"sell %s %s, hold %s", quantity.Abs().String(), ticker, held.String())
		}
	}

	pos, ok := p.positions[ticker]
	if !ok {
		pos = &domain.Position{Ticker: ticker}
		p.positions[ticker] = pos
	}
	pos.Apply(quantity, price)
	if pos.IsFlat() {
		delete(p.positions, ticker)
	}

	p.cash = p.cash.Add(cashDelta)

	record := domain.TradeRecord{
		Date:          date,
		Ticker:        ticker,
		Quantity:      quantity,
		Price:         price,
		CashDelta:     cashDelta,
		PositionDelta: quantity,
	}
	p.trades = append(p.trades, record)

	p.logger.Debug("trade executed",
		zap.String("portfolio", p.name),
		zap.String("ticker", ticker),
		zap.String("quantity", quantity.String()),
		zap.String("price", price.String()),
		zap.String("cash", p.cash.String()))

	return record, nil
}

// RecordRejection appends a rejected order to the rejection log.
func (p *Portfolio) RecordRejection(rejection domain.Rejection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejections = append(p.rejections, rejection)

	p.logger.Debug("trade rejected",
		zap.String("portfolio", p.name),
		zap.String("ticker", rejection.Ticker),
		zap.String("reason", rejection.Reason))
}

// MarkEquity appends an equity snapshot for date using the given per-ticker
// marks. Held tickers missing from marks contribute nothing.
func (p *Portfolio) MarkEquity(date time.Time, marks map[string]decimal.Decimal) domain.EquitySnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	value := p.cash
	for ticker, pos := range p.positions {
		price, ok := marks[ticker]
		if !ok {
			p.logger.Warn("no mark for held position, valuing at zero",
				zap.String("portfolio", p.name),
				zap.String("ticker", ticker))
			continue
		}
		value = value.Add(pos.MarketValue(price))
	}

	snapshot := domain.EquitySnapshot{Date: date, Value: value}
	p.equity = append(p.equity, snapshot)
	return snapshot
}

// Name returns the portfolio name.
func (p *Portfolio) Name() string {
	return p.name
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cash
}

// InitialCash returns the starting cash balance.
func (p *Portfolio) InitialCash() decimal.Decimal {
	return p.initialCash
}

// ShortSellingEnabled reports whether negative positions are permitted.
func (p *Portfolio) ShortSellingEnabled() bool {
	return p.allowShort
}

// Tracks reports whether the ticker belongs to the tracked universe.
func (p *Portfolio) Tracks(ticker string) bool {
	_, ok := p.universe[ticker]
	return ok
}

// Universe returns the tracked tickers in deterministic order.
func (p *Portfolio) Universe() []string {
	tickers := make([]string, 0, len(p.universe))
	for ticker := range p.universe {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// Position returns a copy of the position for a ticker.
func (p *Portfolio) Position(ticker string) (domain.Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[ticker]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// Positions returns a copy of all open positions.
func (p *Portfolio) Positions() map[string]domain.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]domain.Position, len(p.positions))
	for ticker, pos := range p.positions {
		out[ticker] = *pos
	}
	return out
}

// Trades returns a copy of the trade log ordered by simulation date.
func (p *Portfolio) Trades() []domain.TradeRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.TradeRecord(nil), p.trades...)
}

// Rejections returns a copy of the rejection log.
func (p *Portfolio) Rejections() []domain.Rejection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.Rejection(nil), p.rejections...)
}

// EquityCurve returns a copy of the recorded equity snapshots.
func (p *Portfolio) EquityCurve() []domain.EquitySnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.EquitySnapshot(nil), p.equity...)
}

// State captures a consistent point-in-time snapshot for guardrails,
// valued with the given marks.
func (p *Portfolio) State(date time.Time, marks map[string]decimal.Decimal) domain.PortfolioState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make(map[string]domain.Position, len(p.positions))
	equity := p.cash
	for ticker, pos := range p.positions {
		positions[ticker] = *pos
		if price, ok := marks[ticker]; ok {
			equity = equity.Add(pos.MarketValue(price))
		}
	}

	return domain.PortfolioState{
		Date:      date,
		Cash:      p.cash,
		Equity:    equity,
		Positions: positions,
	}
}
