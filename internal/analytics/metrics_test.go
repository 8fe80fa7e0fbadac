package analytics

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

func curveOf(values ...int64) []domain.EquitySnapshot {
	curve := make([]domain.EquitySnapshot, len(values))
	for i, v := range values {
		curve[i] = domain.EquitySnapshot{Date: day(i + 1), Value: decimal.NewFromInt(v)}
	}
	return curve
}

func TestMaxDrawdown(t *testing.T) {
	dd := MaxDrawdown(curveOf(100, 120, 90, 110))
	require.InDelta(t, -0.25, dd, 1e-9, "90 against the 120 peak is a 25% drawdown")

	require.Zero(t, MaxDrawdown(curveOf(100, 110, 120)), "monotonic growth has no drawdown")
	require.Zero(t, MaxDrawdown(nil))
}

func TestSharpeRatio(t *testing.T) {
	require.Zero(t, SharpeRatio(nil, 0))
	require.Zero(t, SharpeRatio([]float64{0.01}, 0), "one return is not enough")
	require.Zero(t, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0), "zero deviation yields zero, not infinity")

	positive := SharpeRatio([]float64{0.01, 0.02, 0.015, 0.005}, 0)
	require.Greater(t, positive, 0.0)
}

func TestCAGRDoublingOverOneYear(t *testing.T) {
	curve := []domain.EquitySnapshot{
		{Date: day(1), Value: decimal.NewFromInt(100)},
		{Date: day(1).AddDate(1, 0, 0), Value: decimal.NewFromInt(200)},
	}
	require.InDelta(t, 1.0, CAGR(curve), 0.01)

	require.Zero(t, CAGR(curveOf(100)))
}

func TestWinRate(t *testing.T) {
	d10 := decimal.NewFromInt(10)
	trades := []domain.TradeRecord{
		{Ticker: "AAA", Quantity: d10, Price: decimal.NewFromInt(100), PositionDelta: d10},
		{Ticker: "AAA", Quantity: d10.Neg(), Price: decimal.NewFromInt(150), PositionDelta: d10.Neg()},
		{Ticker: "BBB", Quantity: d10, Price: decimal.NewFromInt(100), PositionDelta: d10},
		{Ticker: "BBB", Quantity: d10.Neg(), Price: decimal.NewFromInt(80), PositionDelta: d10.Neg()},
	}
	require.InDelta(t, 0.5, WinRate(trades), 1e-9)

	require.Zero(t, WinRate(nil))
}

func TestSummarize(t *testing.T) {
	curve := curveOf(10000, 10100, 9900, 10200)
	trades := []domain.TradeRecord{
		{Ticker: "AAA", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100), PositionDelta: decimal.NewFromInt(10)},
	}
	rejections := []domain.Rejection{{Ticker: "AAA", Reason: "veto"}}

	summary := Summarize(curve, trades, rejections, 0)
	require.True(t, summary.FinalEquity.Equal(decimal.NewFromInt(10200)))
	require.Equal(t, 1, summary.Trades)
	require.Equal(t, 1, summary.Rejections)
	require.Less(t, summary.MaxDrawdown, 0.0)
}
