package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/folio/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func newTestPortfolio(t *testing.T, cash int64, opts ...Option) *Portfolio {
	t.Helper()
	p, err := New("test", []string{"AAA", "BBB"}, decimal.NewFromInt(cash), nil, opts...)
	require.NoError(t, err)
	return p
}

func TestExecuteTradeUpdatesEverythingAtomically(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	trade, err := p.ExecuteTrade("AAA", decimal.NewFromInt(10), decimal.NewFromInt(100), day(1))
	require.NoError(t, err)

	require.True(t, p.Cash().Equal(decimal.NewFromInt(9000)))
	pos, ok := p.Position("AAA")
	require.True(t, ok)
	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(10)))
	require.True(t, pos.AvgCost.Equal(decimal.NewFromInt(100)))
	require.Len(t, p.Trades(), 1)
	require.True(t, trade.CashDelta.Equal(decimal.NewFromInt(-1000)))
	require.True(t, trade.PositionDelta.Equal(decimal.NewFromInt(10)))
}

func TestExecuteTradeUnknownTickerChangesNothing(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	_, err := p.ExecuteTrade("ZZZ", decimal.NewFromInt(1), decimal.NewFromInt(100), day(1))
	require.ErrorIs(t, err, domain.ErrUnknownTicker)

	require.True(t, p.Cash().Equal(decimal.NewFromInt(10000)))
	require.Empty(t, p.Trades())
	require.Empty(t, p.Positions())
}

func TestExecuteTradeInsufficientFunds(t *testing.T) {
	p := newTestPortfolio(t, 1000)

	_, err := p.ExecuteTrade("AAA", decimal.NewFromInt(20), decimal.NewFromInt(100), day(1))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	require.True(t, p.Cash().Equal(decimal.NewFromInt(1000)))
	require.Empty(t, p.Trades())
}

func TestExecuteTradeInsufficientPosition(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	_, err := p.ExecuteTrade("AAA", decimal.NewFromInt(-5), decimal.NewFromInt(100), day(1))
	require.ErrorIs(t, err, domain.ErrInsufficientPosition)
	require.Empty(t, p.Trades())
}

func TestShortSellingRequiresOption(t *testing.T) {
	p := newTestPortfolio(t, 10000, WithShortSelling())

	_, err := p.ExecuteTrade("AAA", decimal.NewFromInt(-5), decimal.NewFromInt(100), day(1))
	require.NoError(t, err)

	pos, ok := p.Position("AAA")
	require.True(t, ok)
	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(-5)))
	require.True(t, p.Cash().Equal(decimal.NewFromInt(10500)), "short proceeds are credited")
}

func TestFullExitRemovesPosition(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	_, err := p.ExecuteTrade("AAA", decimal.NewFromInt(10), decimal.NewFromInt(100), day(1))
	require.NoError(t, err)
	_, err = p.ExecuteTrade("AAA", decimal.NewFromInt(-10), decimal.NewFromInt(120), day(2))
	require.NoError(t, err)

	_, ok := p.Position("AAA")
	require.False(t, ok)
	require.True(t, p.Cash().Equal(decimal.NewFromInt(10200)))
}

func TestCashConservation(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	fills := []struct {
		ticker   string
		quantity int64
		price    int64
	}{
		{"AAA", 10, 100},
		{"BBB", 20, 50},
		{"AAA", -5, 110},
		{"BBB", -20, 45},
	}
	for _, f := range fills {
		_, err := p.ExecuteTrade(f.ticker, decimal.NewFromInt(f.quantity), decimal.NewFromInt(f.price), day(1))
		require.NoError(t, err)
	}

	sum := p.InitialCash()
	for _, trade := range p.Trades() {
		sum = sum.Add(trade.CashDelta)
	}
	require.True(t, sum.Equal(p.Cash()), "initial cash plus all cash deltas must equal current cash")
}

func TestMarkEquityValuesPositions(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	_, err := p.ExecuteTrade("AAA", decimal.NewFromInt(10), decimal.NewFromInt(100), day(1))
	require.NoError(t, err)

	snap := p.MarkEquity(day(1), map[string]decimal.Decimal{"AAA": decimal.NewFromInt(110)})
	require.True(t, snap.Value.Equal(decimal.NewFromInt(10100)))
	require.Len(t, p.EquityCurve(), 1)
}

func TestMarkEquityMissingMarkContributesNothing(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	_, err := p.ExecuteTrade("AAA", decimal.NewFromInt(10), decimal.NewFromInt(100), day(1))
	require.NoError(t, err)

	snap := p.MarkEquity(day(1), nil)
	require.True(t, snap.Value.Equal(decimal.NewFromInt(9000)), "unmarked positions add no value")
}

func TestRejectionLogIsSeparateFromTradeLog(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	p.RecordRejection(domain.Rejection{
		Date:     day(1),
		Ticker:   "AAA",
		Quantity: decimal.NewFromInt(10),
		Price:    decimal.NewFromInt(100),
		Reason:   "cash below floor",
	})

	require.Empty(t, p.Trades())
	require.Len(t, p.Rejections(), 1)
	require.Equal(t, "cash below floor", p.Rejections()[0].Reason)
}

func TestStateSnapshotIsConsistent(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	_, err := p.ExecuteTrade("AAA", decimal.NewFromInt(10), decimal.NewFromInt(100), day(1))
	require.NoError(t, err)

	state := p.State(day(1), map[string]decimal.Decimal{"AAA": decimal.NewFromInt(100)})
	require.True(t, state.Cash.Equal(decimal.NewFromInt(9000)))
	require.True(t, state.Equity.Equal(decimal.NewFromInt(10000)))
	require.True(t, state.PositionQuantity("AAA").Equal(decimal.NewFromInt(10)))
	require.True(t, state.PositionQuantity("BBB").IsZero())
}

func TestNewValidation(t *testing.T) {
	_, err := New("test", nil, decimal.NewFromInt(100), nil)
	require.Error(t, err)

	_, err = New("test", []string{"AAA"}, decimal.NewFromInt(-1), nil)
	require.Error(t, err)

	_, err = New("test", []string{""}, decimal.NewFromInt(100), nil)
	require.Error(t, err)
}
