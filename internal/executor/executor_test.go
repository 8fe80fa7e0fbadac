package executor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/guardrail"
	"github.com/vadiminshakov/folio/internal/marketdata"
	"github.com/vadiminshakov/folio/internal/portfolio"
	"github.com/vadiminshakov/folio/internal/strategy"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func barsFromCloses(closes map[int]int64) []domain.Bar {
	days := make([]int, 0, len(closes))
	for d := range closes {
		days = append(days, d)
	}
	// keep ascending
	for i := 0; i < len(days); i++ {
		for j := i + 1; j < len(days); j++ {
			if days[j] < days[i] {
				days[i], days[j] = days[j], days[i]
			}
		}
	}

	bars := make([]domain.Bar, 0, len(days))
	for _, d := range days {
		price := decimal.NewFromInt(closes[d])
		bars = append(bars, domain.Bar{Date: day(d), Open: price, High: price, Low: price, Close: price, Volume: decimal.NewFromInt(1)})
	}
	return bars
}

func flatSeries(t *testing.T, price int64, days int) *marketdata.Series {
	t.Helper()
	closes := make(map[int]int64, days)
	for d := 1; d <= days; d++ {
		closes[d] = price
	}
	series, err := marketdata.NewSeries(map[string][]domain.Bar{"AAA": barsFromCloses(closes)})
	require.NoError(t, err)
	return series
}

// stubStrategy emits scripted signals per date.
type stubStrategy struct {
	name    string
	signals map[time.Time]map[string]domain.Signal
	fn      func(view *marketdata.View, date time.Time) (map[string]domain.Signal, error)
}

func (s *stubStrategy) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubStrategy) GenerateSignals(_ context.Context, view *marketdata.View, date time.Time, _ int) (map[string]domain.Signal, error) {
	if s.fn != nil {
		return s.fn(view, date)
	}
	if signals, ok := s.signals[date]; ok {
		return signals, nil
	}
	return map[string]domain.Signal{}, nil
}

var _ strategy.Strategy = (*stubStrategy)(nil)

// spyGuardrail records every order it evaluates.
type spyGuardrail struct {
	seen     []domain.Order
	decision func(order domain.Order) guardrail.Decision
}

func (s *spyGuardrail) Name() string { return "spy" }

func (s *spyGuardrail) Evaluate(order domain.Order, _ domain.PortfolioState, _ *marketdata.View) guardrail.Decision {
	s.seen = append(s.seen, order)
	if s.decision != nil {
		return s.decision(order)
	}
	return guardrail.Approve()
}

// memoryRecorder collects journal writes in memory.
type memoryRecorder struct {
	trades     []domain.TradeRecord
	rejections []domain.Rejection
	equity     []domain.EquitySnapshot
}

func (m *memoryRecorder) RecordTrade(trade domain.TradeRecord) error {
	m.trades = append(m.trades, trade)
	return nil
}

func (m *memoryRecorder) RecordRejection(rejection domain.Rejection) error {
	m.rejections = append(m.rejections, rejection)
	return nil
}

func (m *memoryRecorder) RecordEquity(snapshot domain.EquitySnapshot) error {
	m.equity = append(m.equity, snapshot)
	return nil
}

func newPortfolio(t *testing.T, cash int64, tickers ...string) *portfolio.Portfolio {
	t.Helper()
	if len(tickers) == 0 {
		tickers = []string{"AAA"}
	}
	p, err := portfolio.New("test", tickers, decimal.NewFromInt(cash), nil)
	require.NoError(t, err)
	return p
}

func TestFlatPriceBuyAndHold(t *testing.T) {
	series := flatSeries(t, 100, 5)
	p := newPortfolio(t, 10000)
	strat := &stubStrategy{signals: map[time.Time]map[string]domain.Signal{
		day(1): {"AAA": domain.SignalLong},
	}}

	exec, err := New(p, series, strat, nil, nil)
	require.NoError(t, err)
	require.Equal(t, StateInitialized, exec.State())

	require.NoError(t, exec.Run(context.Background(), day(1), day(5)))
	require.Equal(t, StateCompleted, exec.State())

	// 10000 cash at a flat price of 100 buys exactly 100 shares
	require.Len(t, p.Trades(), 1)
	require.True(t, p.Trades()[0].Quantity.Equal(decimal.NewFromInt(100)))
	require.True(t, p.Cash().IsZero())

	curve := p.EquityCurve()
	require.Len(t, curve, 5)
	for _, snap := range curve {
		require.True(t, snap.Value.Equal(decimal.NewFromInt(10000)), "flat prices keep equity at initial cash")
	}
}

func TestCashConservationAcrossRun(t *testing.T) {
	series, err := marketdata.NewSeries(map[string][]domain.Bar{
		"AAA": barsFromCloses(map[int]int64{1: 100, 2: 110, 3: 120, 4: 90, 5: 95}),
	})
	require.NoError(t, err)

	p := newPortfolio(t, 10000)
	strat := &stubStrategy{signals: map[time.Time]map[string]domain.Signal{
		day(1): {"AAA": domain.SignalLong},
		day(3): {"AAA": domain.SignalShort},
		day(4): {"AAA": domain.SignalLong},
	}}

	exec, err := New(p, series, strat, nil, nil)
	require.NoError(t, err)
	require.NoError(t, exec.Run(context.Background(), day(1), day(5)))

	sum := p.InitialCash()
	for _, trade := range p.Trades() {
		sum = sum.Add(trade.CashDelta)
	}
	require.True(t, sum.Equal(p.Cash()))
	require.NotEmpty(t, p.Trades())
}

func TestStrategiesNeverSeeSameDayPrices(t *testing.T) {
	series := flatSeries(t, 100, 3)
	p := newPortfolio(t, 10000)

	var futureErr error
	strat := &stubStrategy{fn: func(view *marketdata.View, date time.Time) (map[string]domain.Signal, error) {
		if date.Equal(day(2)) {
			_, futureErr = view.GetPrice("AAA", date)
		}
		return nil, nil
	}}

	exec, err := New(p, series, strat, nil, nil)
	require.NoError(t, err)
	require.NoError(t, exec.Run(context.Background(), day(1), day(3)))

	require.ErrorIs(t, futureErr, domain.ErrFutureData)
}

func TestFutureDataCannotInfluenceEarlierDecisions(t *testing.T) {
	run := func(lastClose int64) []domain.TradeRecord {
		series, err := marketdata.NewSeries(map[string][]domain.Bar{
			"AAA": barsFromCloses(map[int]int64{1: 100, 2: 110, 3: 120, 4: lastClose}),
		})
		require.NoError(t, err)

		p := newPortfolio(t, 10000)
		// yesterday's close above 105 buys one share
		strat := &stubStrategy{fn: func(view *marketdata.View, date time.Time) (map[string]domain.Signal, error) {
			price, err := view.LatestPrice("AAA")
			if err != nil {
				return nil, nil
			}
			if price.GreaterThan(decimal.NewFromInt(105)) {
				return map[string]domain.Signal{"AAA": domain.SignalLong}, nil
			}
			return nil, nil
		}}

		exec, err := New(p, series, strat, nil, nil)
		require.NoError(t, err)
		require.NoError(t, exec.Run(context.Background(), day(1), day(3)))
		return p.Trades()
	}

	base := run(10)
	mutated := run(100000)

	require.Equal(t, len(base), len(mutated), "mutating bars after the horizon must not change decisions")
	for i := range base {
		require.True(t, base[i].Quantity.Equal(mutated[i].Quantity))
		require.True(t, base[i].Price.Equal(mutated[i].Price))
	}
}

func TestIdempotentReplay(t *testing.T) {
	build := func() (*portfolio.Portfolio, *PortfolioExecutor) {
		series, err := marketdata.NewSeries(map[string][]domain.Bar{
			"AAA": barsFromCloses(map[int]int64{1: 100, 2: 110, 3: 105, 4: 120, 5: 90}),
			"BBB": barsFromCloses(map[int]int64{1: 50, 2: 55, 3: 60, 4: 45, 5: 52}),
		})
		require.NoError(t, err)

		p := newPortfolio(t, 10000, "AAA", "BBB")
		strat := &stubStrategy{signals: map[time.Time]map[string]domain.Signal{
			day(1): {"AAA": domain.SignalLong, "BBB": domain.SignalLong},
			day(3): {"AAA": domain.SignalShort},
			day(4): {"BBB": domain.SignalShort},
		}}
		exec, err := New(p, series, strat, nil, nil)
		require.NoError(t, err)
		return p, exec
	}

	p1, exec1 := build()
	p2, exec2 := build()
	require.NoError(t, exec1.Run(context.Background(), day(1), day(5)))
	require.NoError(t, exec2.Run(context.Background(), day(1), day(5)))

	require.Equal(t, p1.Trades(), p2.Trades())
	require.Equal(t, p1.EquityCurve(), p2.EquityCurve())
	require.Equal(t, p1.Rejections(), p2.Rejections())
}

func TestVetoShortCircuitsChain(t *testing.T) {
	series := flatSeries(t, 100, 2)
	p := newPortfolio(t, 10000)
	strat := &stubStrategy{signals: map[time.Time]map[string]domain.Signal{
		day(1): {"AAA": domain.SignalLong},
	}}

	veto := &spyGuardrail{decision: func(domain.Order) guardrail.Decision {
		return guardrail.Veto("blocked")
	}}
	downstream := &spyGuardrail{}

	exec, err := New(p, series, strat, []guardrail.Guardrail{veto, downstream}, nil)
	require.NoError(t, err)
	require.NoError(t, exec.Run(context.Background(), day(1), day(2)))

	require.Empty(t, p.Trades())
	require.Len(t, p.Rejections(), 1)
	require.Contains(t, p.Rejections()[0].Reason, "blocked")
	require.Empty(t, downstream.seen, "guardrails after a veto must not run")
}

func TestModifyReplacesOrderDownstream(t *testing.T) {
	series := flatSeries(t, 100, 2)
	p := newPortfolio(t, 10000)
	strat := &stubStrategy{signals: map[time.Time]map[string]domain.Signal{
		day(1): {"AAA": domain.SignalLong},
	}}

	shrink := &spyGuardrail{decision: func(order domain.Order) guardrail.Decision {
		modified := order
		modified.Quantity = decimal.NewFromInt(5)
		return guardrail.Modify(modified, "shrunk")
	}}
	downstream := &spyGuardrail{}

	exec, err := New(p, series, strat, []guardrail.Guardrail{shrink, downstream}, nil)
	require.NoError(t, err)
	require.NoError(t, exec.Run(context.Background(), day(1), day(2)))

	require.Len(t, downstream.seen, 1)
	require.True(t, downstream.seen[0].Quantity.Equal(decimal.NewFromInt(5)), "downstream guardrails see the modified order")
	require.Len(t, p.Trades(), 1)
	require.True(t, p.Trades()[0].Quantity.Equal(decimal.NewFromInt(5)))
}

func TestInsufficientFundsBecomesRejection(t *testing.T) {
	series := flatSeries(t, 100, 2)
	p := newPortfolio(t, 10000)
	strat := &stubStrategy{signals: map[time.Time]map[string]domain.Signal{
		day(1): {"AAA": domain.SignalLong},
	}}

	// inflate the order beyond available cash to bypass the sizing pre-check
	inflate := &spyGuardrail{decision: func(order domain.Order) guardrail.Decision {
		modified := order
		modified.Quantity = decimal.NewFromInt(1000)
		return guardrail.Modify(modified, "inflated")
	}}

	recorder := &memoryRecorder{}
	exec, err := New(p, series, strat, []guardrail.Guardrail{inflate}, nil, WithRecorder(recorder))
	require.NoError(t, err)
	require.NoError(t, exec.Run(context.Background(), day(1), day(2)), "per-order failures must not stop the run")

	require.Equal(t, StateCompleted, exec.State())
	require.Empty(t, p.Trades())
	require.Len(t, p.Rejections(), 2, "one rejection per simulated date")
	require.True(t, p.Cash().Equal(decimal.NewFromInt(10000)))
	require.Len(t, recorder.rejections, 2)
}

func TestMinCashGuardrailScenario(t *testing.T) {
	series := flatSeries(t, 100, 3)
	p := newPortfolio(t, 10000)
	strat := &stubStrategy{signals: map[time.Time]map[string]domain.Signal{
		day(1): {"AAA": domain.SignalLong},
		day(2): {"AAA": domain.SignalLong},
	}}

	floor, err := guardrail.NewMinCash(decimal.NewFromInt(20000))
	require.NoError(t, err)

	exec, err := New(p, series, strat, []guardrail.Guardrail{floor}, nil)
	require.NoError(t, err)
	require.NoError(t, exec.Run(context.Background(), day(1), day(3)))

	require.Empty(t, p.Trades())
	require.NotEmpty(t, p.Rejections())
	require.True(t, p.Cash().Equal(decimal.NewFromInt(10000)))
}

func TestMissingBarCarriesEquityForward(t *testing.T) {
	// BBB has no bar on day 3
	series, err := marketdata.NewSeries(map[string][]domain.Bar{
		"AAA": barsFromCloses(map[int]int64{1: 100, 2: 100, 3: 100}),
		"BBB": barsFromCloses(map[int]int64{1: 50, 2: 60}),
	})
	require.NoError(t, err)

	p := newPortfolio(t, 10000, "AAA", "BBB")
	strat := &stubStrategy{signals: map[time.Time]map[string]domain.Signal{
		day(1): {"BBB": domain.SignalLong},
	}}

	exec, err := New(p, series, strat, nil, nil)
	require.NoError(t, err)
	require.NoError(t, exec.Run(context.Background(), day(1), day(3)))

	require.Len(t, p.Trades(), 1)
	quantity := p.Trades()[0].Quantity

	curve := p.EquityCurve()
	require.Len(t, curve, 3)
	// day 3 marks BBB at its day 2 close of 60
	expected := p.Cash().Add(quantity.Mul(decimal.NewFromInt(60)))
	require.True(t, curve[2].Value.Equal(expected))
}

func TestStrategyErrorFailsRunPreservingHistory(t *testing.T) {
	series := flatSeries(t, 100, 5)
	p := newPortfolio(t, 10000)

	strat := &stubStrategy{fn: func(_ *marketdata.View, date time.Time) (map[string]domain.Signal, error) {
		if date.Equal(day(3)) {
			return nil, context.DeadlineExceeded
		}
		if date.Equal(day(1)) {
			return map[string]domain.Signal{"AAA": domain.SignalLong}, nil
		}
		return nil, nil
	}}

	exec, err := New(p, series, strat, nil, nil)
	require.NoError(t, err)

	err = exec.Run(context.Background(), day(1), day(5))
	require.Error(t, err)
	require.Equal(t, StateFailed, exec.State())

	failedAt, cause := exec.Failure()
	require.Equal(t, day(3), failedAt)
	require.ErrorIs(t, cause, context.DeadlineExceeded)

	require.Len(t, p.Trades(), 1, "history before the failure is preserved")
	require.Len(t, p.EquityCurve(), 2, "snapshots stop at the failing date")
}

func TestUnknownTickerSignalFailsRun(t *testing.T) {
	series := flatSeries(t, 100, 3)
	p := newPortfolio(t, 10000)
	strat := &stubStrategy{signals: map[time.Time]map[string]domain.Signal{
		day(1): {"ZZZ": domain.SignalLong},
	}}

	exec, err := New(p, series, strat, nil, nil)
	require.NoError(t, err)

	err = exec.Run(context.Background(), day(1), day(3))
	require.ErrorIs(t, err, domain.ErrUnknownTicker)
	require.Equal(t, StateFailed, exec.State())
}

func TestExecutorRunsOnlyOnce(t *testing.T) {
	series := flatSeries(t, 100, 2)
	p := newPortfolio(t, 10000)
	exec, err := New(p, series, &stubStrategy{}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, exec.Run(context.Background(), day(1), day(2)))
	require.Error(t, exec.Run(context.Background(), day(1), day(2)))
}

func TestEmptyHorizonFails(t *testing.T) {
	series := flatSeries(t, 100, 2)
	p := newPortfolio(t, 10000)
	exec, err := New(p, series, &stubStrategy{}, nil, nil)
	require.NoError(t, err)

	err = exec.Run(context.Background(), day(10), day(20))
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	require.Equal(t, StateFailed, exec.State())
}

func TestCancelledContextFailsBetweenDates(t *testing.T) {
	series := flatSeries(t, 100, 3)
	p := newPortfolio(t, 10000)
	exec, err := New(p, series, &stubStrategy{}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = exec.Run(ctx, day(1), day(3))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StateFailed, exec.State())
}

func TestRecorderReceivesAllEvents(t *testing.T) {
	series := flatSeries(t, 100, 3)
	p := newPortfolio(t, 10000)
	strat := &stubStrategy{signals: map[time.Time]map[string]domain.Signal{
		day(1): {"AAA": domain.SignalLong},
	}}

	recorder := &memoryRecorder{}
	exec, err := New(p, series, strat, nil, nil, WithRecorder(recorder))
	require.NoError(t, err)
	require.NoError(t, exec.Run(context.Background(), day(1), day(3)))

	require.Len(t, recorder.trades, 1)
	require.Len(t, recorder.equity, 3)
}
