package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a sized trade proposal awaiting guardrail evaluation.
// Quantity is signed: positive buys, negative sells.
type Order struct {
	ID       string
	Ticker   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Date     time.Time
}

// IsBuy reports whether the order increases the position.
func (o Order) IsBuy() bool {
	return o.Quantity.IsPositive()
}

// Notional returns the absolute cash value of the order.
func (o Order) Notional() decimal.Decimal {
	return o.Quantity.Abs().Mul(o.Price)
}

// String returns a human-readable representation.
func (o Order) String() string {
	return fmt.Sprintf("%s %s qty=%s price=%s", o.Date.Format("2006-01-02"), o.Ticker, o.Quantity.String(), o.Price.String())
}
