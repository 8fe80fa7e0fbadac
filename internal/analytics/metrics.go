// Package analytics computes performance metrics over a completed run's
// equity curve and trade log. It only reads the sequences the executor
// produced; it never mutates them.
package analytics

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"gonum.org/v1/gonum/stat"
)

const (
	tradingDaysPerYear = 252
	daysPerYear        = 365.0
)

// Summary aggregates the headline metrics of one run.
type Summary struct {
	FinalEquity decimal.Decimal
	Sharpe      float64
	MaxDrawdown float64
	CAGR        float64
	WinRate     float64
	Trades      int
	Rejections  int
}

// Summarize computes all metrics for a completed run.
func Summarize(curve []domain.EquitySnapshot, trades []domain.TradeRecord, rejections []domain.Rejection, riskFreeRate float64) Summary {
	summary := Summary{
		Sharpe:      SharpeRatio(dailyReturns(curve), riskFreeRate),
		MaxDrawdown: MaxDrawdown(curve),
		CAGR:        CAGR(curve),
		WinRate:     WinRate(trades),
		Trades:      len(trades),
		Rejections:  len(rejections),
	}
	if len(curve) > 0 {
		summary.FinalEquity = curve[len(curve)-1].Value
	}
	return summary
}

// SharpeRatio annualizes the mean daily excess return over its deviation.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	excess := make([]float64, len(returns))
	dailyRiskFree := riskFreeRate / tradingDaysPerYear
	for i, r := range returns {
		excess[i] = r - dailyRiskFree
	}

	mean, std := stat.MeanStdDev(excess, nil)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// MaxDrawdown returns the largest fractional fall from peak equity,
// as a negative number.
func MaxDrawdown(curve []domain.EquitySnapshot) float64 {
	var worst float64
	var peak float64
	for i, snap := range curve {
		value, _ := snap.Value.Float64()
		if i == 0 || value > peak {
			peak = value
		}
		if peak == 0 {
			continue
		}
		drawdown := (value - peak) / peak
		if drawdown < worst {
			worst = drawdown
		}
	}
	return worst
}

// CAGR computes the compound annual growth rate between the first and last
// equity points.
func CAGR(curve []domain.EquitySnapshot) float64 {
	if len(curve) < 2 {
		return 0
	}

	first, _ := curve[0].Value.Float64()
	last, _ := curve[len(curve)-1].Value.Float64()
	if first <= 0 {
		return 0
	}

	days := curve[len(curve)-1].Date.Sub(curve[0].Date).Hours() / 24
	if days <= 0 {
		return 0
	}

	totalReturn := last / first
	return math.Pow(totalReturn, daysPerYear/days) - 1
}

// WinRate returns the fraction of position-reducing trades realized above
// their average cost basis, tracked by replaying the trade log.
func WinRate(trades []domain.TradeRecord) float64 {
	basis := make(map[string]domain.Position)
	var sells, wins int

	for _, trade := range trades {
		pos := basis[trade.Ticker]
		if trade.Quantity.IsNegative() && pos.Quantity.IsPositive() {
			sells++
			if trade.Price.GreaterThan(pos.AvgCost) {
				wins++
			}
		}
		pos.Ticker = trade.Ticker
		pos.Apply(trade.Quantity, trade.Price)
		basis[trade.Ticker] = pos
	}

	if sells == 0 {
		return 0
	}
	return float64(wins) / float64(sells)
}

// dailyReturns converts the equity curve into simple period returns.
func dailyReturns(curve []domain.EquitySnapshot) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev, _ := curve[i-1].Value.Float64()
		cur, _ := curve[i].Value.Float64()
		if prev == 0 {
			continue
		}
		returns = append(returns, cur/prev-1)
	}
	return returns
}
