// Package executor drives the day-by-day simulation loop: it owns the clock,
// wires market data, one strategy, the guardrail chain, and the portfolio
// together, and guarantees that strategies never see future data.
package executor

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/guardrail"
	"github.com/vadiminshakov/folio/internal/marketdata"
	"github.com/vadiminshakov/folio/internal/portfolio"
	"github.com/vadiminshakov/folio/internal/strategy"
	"go.uber.org/zap"
)

// State is the executor lifecycle phase.
type State int

const (
	// StateInitialized means Run has not started yet.
	StateInitialized State = iota
	// StateRunning means the per-date loop is in progress.
	StateRunning
	// StateCompleted means the horizon is exhausted and the portfolio
	// history is final.
	StateCompleted
	// StateFailed means an unrecoverable error stopped the run; history up
	// to the failing date remains valid.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Recorder receives every trade, rejection, and equity point as the run
// progresses, so a crash leaves an inspectable prefix on disk.
type Recorder interface {
	RecordTrade(trade domain.TradeRecord) error
	RecordRejection(rejection domain.Rejection) error
	RecordEquity(snapshot domain.EquitySnapshot) error
}

// Option configures the executor.
type Option func(*PortfolioExecutor)

// WithRecorder attaches a run journal.
func WithRecorder(recorder Recorder) Option {
	return func(e *PortfolioExecutor) { e.recorder = recorder }
}

// WithLookback overrides the default lookback window handed to the strategy.
func WithLookback(window int) Option {
	return func(e *PortfolioExecutor) { e.lookback = window }
}

const defaultLookback = 60

// PortfolioExecutor runs one simulation from start to end date. It is not
// safe for concurrent use; run independent simulations with independent
// executors.
type PortfolioExecutor struct {
	portfolio  *portfolio.Portfolio
	series     *marketdata.Series
	view       *marketdata.View
	strat      strategy.Strategy
	guardrails []guardrail.Guardrail
	lookback   int
	recorder   Recorder
	logger     *zap.Logger

	state      State
	failedDate time.Time
	failure    error
}

// New wires a simulation run. The guardrail slice order is the evaluation
// order for every date of the run.
func New(p *portfolio.Portfolio, series *marketdata.Series, strat strategy.Strategy, guardrails []guardrail.Guardrail, logger *zap.Logger, opts ...Option) (*PortfolioExecutor, error) {
	if p == nil {
		return nil, errors.New("portfolio is required")
	}
	if series == nil {
		return nil, errors.New("market data series is required")
	}
	if strat == nil {
		return nil, errors.New("strategy is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &PortfolioExecutor{
		portfolio:  p,
		strat:      strat,
		guardrails: guardrails,
		lookback:   defaultLookback,
		logger:     logger,
		state:      StateInitialized,
		series:     series,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// State returns the current lifecycle phase.
func (e *PortfolioExecutor) State() State {
	return e.state
}

// Failure returns the failing date and cause after a StateFailed run.
func (e *PortfolioExecutor) Failure() (time.Time, error) {
	return e.failedDate, e.failure
}

// Portfolio exposes the run's ledger for analytics after completion.
func (e *PortfolioExecutor) Portfolio() *portfolio.Portfolio {
	return e.portfolio
}

// Run executes the simulation over [start, end]. Per-ticker and per-order
// failures are absorbed into the rejection log; strategy or data failures
// stop the run with the failing date attached, preserving accumulated
// history.
func (e *PortfolioExecutor) Run(ctx context.Context, start, end time.Time) error {
	if e.state != StateInitialized {
		return errors.Errorf("executor already ran (state %s)", e.state)
	}
	if end.Before(start) {
		return errors.Errorf("end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	horizon := e.series.Dates(start, end)
	if len(horizon) == 0 {
		e.state = StateFailed
		e.failure = errors.Wrap(domain.ErrDataUnavailable, "no bars inside the simulation horizon")
		return e.failure
	}

	e.view = marketdata.NewView(e.series, horizon[len(horizon)-1])
	e.state = StateRunning
	e.logger.Info("simulation started",
		zap.String("portfolio", e.portfolio.Name()),
		zap.String("strategy", e.strat.Name()),
		zap.Int("dates", len(horizon)))

	for _, date := range horizon {
		// cancellation is honored between dates only; a date step is atomic
		if err := ctx.Err(); err != nil {
			return e.fail(date, err)
		}
		if err := e.step(ctx, date); err != nil {
			return e.fail(date, err)
		}
	}

	e.state = StateCompleted
	e.logger.Info("simulation completed",
		zap.String("portfolio", e.portfolio.Name()),
		zap.String("final_cash", e.portfolio.Cash().String()))
	return nil
}

func (e *PortfolioExecutor) fail(date time.Time, cause error) error {
	e.state = StateFailed
	e.failedDate = date
	e.failure = errors.Wrapf(cause, "simulation failed at %s", date.Format("2006-01-02"))
	e.logger.Error("simulation failed",
		zap.String("portfolio", e.portfolio.Name()),
		zap.Time("date", date),
		zap.Error(cause))
	return e.failure
}

// step runs one simulated date: signals, sizing, guardrails, fills, and the
// equity snapshot.
func (e *PortfolioExecutor) step(ctx context.Context, date time.Time) error {
	strategyView := e.view.Restrict(date)
	marks := e.carryForwardMarks(date)

	state := e.portfolio.State(date, marks)
	for _, g := range e.guardrails {
		if observer, ok := g.(guardrail.DateObserver); ok {
			observer.ObserveDate(date, state, strategyView)
		}
	}

	signals, err := e.strat.GenerateSignals(ctx, strategyView, date, e.lookback)
	if err != nil {
		return errors.Wrap(err, "strategy failed")
	}
	for ticker := range signals {
		if !e.portfolio.Tracks(ticker) {
			return errors.Wrapf(domain.ErrUnknownTicker, "strategy signaled %s", ticker)
		}
	}

	orders := e.sizeOrders(date, signals)
	for _, order := range orders {
		e.processOrder(order, date, marks)
	}

	snapshot := e.portfolio.MarkEquity(date, e.carryForwardMarks(date))
	e.record(func(r Recorder) error { return r.RecordEquity(snapshot) })

	return nil
}

// carryForwardMarks collects the latest price at or before date for every
// tracked ticker that has traded at all.
func (e *PortfolioExecutor) carryForwardMarks(date time.Time) map[string]decimal.Decimal {
	marks := make(map[string]decimal.Decimal)
	for _, ticker := range e.portfolio.Universe() {
		price, err := e.view.GetPrice(ticker, date)
		if err != nil {
			continue
		}
		marks[ticker] = price
	}
	return marks
}

// sizeOrders converts signals into concrete orders. Available cash is split
// equally across long signals with a conservative pre-check, so the executor
// never proposes a buy its own portfolio would reject. A short signal exits
// the held position when short selling is disabled, and opens a symmetric
// short otherwise. Only tickers with a bar exactly at date are tradable.
func (e *PortfolioExecutor) sizeOrders(date time.Time, signals map[string]domain.Signal) []domain.Order {
	longs := make([]string, 0, len(signals))
	shorts := make([]string, 0, len(signals))
	prices := make(map[string]decimal.Decimal, len(signals))

	tickers := make([]string, 0, len(signals))
	for ticker := range signals {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		price, err := e.view.PriceAt(ticker, date)
		if err != nil {
			// no bar today: skip this ticker for this step
			e.logger.Debug("no price for signal, skipping ticker",
				zap.String("ticker", ticker),
				zap.Time("date", date))
			continue
		}
		prices[ticker] = price

		switch signals[ticker] {
		case domain.SignalLong:
			longs = append(longs, ticker)
		case domain.SignalShort:
			shorts = append(shorts, ticker)
		}
	}

	orders := make([]domain.Order, 0, len(longs)+len(shorts))

	if len(longs) > 0 {
		perLong := e.portfolio.Cash().Div(decimal.NewFromInt(int64(len(longs))))
		remaining := e.portfolio.Cash()
		for _, ticker := range longs {
			price := prices[ticker]
			quantity := perLong.Div(price).Floor()
			if cost := quantity.Mul(price); cost.GreaterThan(remaining) {
				quantity = remaining.Div(price).Floor()
			}
			if quantity.IsZero() {
				continue
			}
			remaining = remaining.Sub(quantity.Mul(price))
			orders = append(orders, e.newOrder(ticker, quantity, price, date))
		}
	}

	for _, ticker := range shorts {
		price := prices[ticker]
		if e.portfolio.ShortSellingEnabled() {
			notional := e.portfolio.Cash()
			if len(longs) > 0 {
				notional = notional.Div(decimal.NewFromInt(int64(len(longs))))
			}
			quantity := notional.Div(price).Floor()
			if quantity.IsZero() {
				continue
			}
			orders = append(orders, e.newOrder(ticker, quantity.Neg(), price, date))
			continue
		}

		// shorting disabled: a short signal liquidates the held position
		pos, ok := e.portfolio.Position(ticker)
		if !ok || !pos.Quantity.IsPositive() {
			continue
		}
		orders = append(orders, e.newOrder(ticker, pos.Quantity.Neg(), price, date))
	}

	return orders
}

func (e *PortfolioExecutor) newOrder(ticker string, quantity, price decimal.Decimal, date time.Time) domain.Order {
	return domain.Order{
		ID:       uuid.NewString(),
		Ticker:   ticker,
		Quantity: quantity,
		Price:    price,
		Date:     date,
	}
}

// processOrder runs the guardrail chain and applies the surviving order.
// Vetoes and portfolio rejections are absorbed into the rejection log.
func (e *PortfolioExecutor) processOrder(order domain.Order, date time.Time, marks map[string]decimal.Decimal) {
	state := e.portfolio.State(date, marks)

	for _, g := range e.guardrails {
		decision := g.Evaluate(order, state, e.view.Restrict(date))
		switch decision.Kind {
		case guardrail.KindVeto:
			e.reject(order, g.Name()+": "+decision.Reason)
			return
		case guardrail.KindModify:
			e.logger.Debug("order modified by guardrail",
				zap.String("guardrail", g.Name()),
				zap.String("reason", decision.Reason),
				zap.String("order", decision.Order.String()))
			order = decision.Order
		}
	}

	trade, err := e.portfolio.ExecuteTrade(order.Ticker, order.Quantity, order.Price, order.Date)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrInsufficientPosition) {
			e.reject(order, err.Error())
			return
		}
		// unknown ticker and friends were validated upstream; treat the
		// rest as rejections too rather than corrupt the run
		e.reject(order, err.Error())
		return
	}

	for _, g := range e.guardrails {
		if observer, ok := g.(guardrail.TradeObserver); ok {
			observer.ObserveTrade(trade)
		}
	}
	e.record(func(r Recorder) error { return r.RecordTrade(trade) })
}

func (e *PortfolioExecutor) reject(order domain.Order, reason string) {
	rejection := domain.Rejection{
		Date:     order.Date,
		Ticker:   order.Ticker,
		Quantity: order.Quantity,
		Price:    order.Price,
		Reason:   reason,
	}
	e.portfolio.RecordRejection(rejection)
	e.record(func(r Recorder) error { return r.RecordRejection(rejection) })
}

// record writes to the journal if one is attached; journal failures are
// logged, not fatal.
func (e *PortfolioExecutor) record(write func(Recorder) error) {
	if e.recorder == nil {
		return
	}
	if err := write(e.recorder); err != nil {
		e.logger.Warn("journal write failed", zap.Error(err))
	}
}
