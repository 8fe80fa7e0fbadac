package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquitySnapshot is one point of the equity curve: cash plus the
// mark-to-market value of every open position.
type EquitySnapshot struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// PortfolioState is a read-only point-in-time snapshot handed to guardrails.
type PortfolioState struct {
	Date      time.Time
	Cash      decimal.Decimal
	Equity    decimal.Decimal
	Positions map[string]Position
}

// PositionQuantity returns the held quantity for a ticker, zero when flat.
func (s PortfolioState) PositionQuantity(ticker string) decimal.Decimal {
	if pos, ok := s.Positions[ticker]; ok {
		return pos.Quantity
	}
	return decimal.Zero
}
