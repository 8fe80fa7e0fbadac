package domain

import "github.com/shopspring/decimal"

// Position tracks the held quantity and average cost basis of a ticker.
// It is mutated only by the portfolio ledger.
type Position struct {
	Ticker   string
	Quantity decimal.Decimal
	AvgCost  decimal.Decimal
}

// Apply adjusts quantity and average cost for a fill. Fills that grow the
// exposure move the average cost toward the fill price; fills that shrink it
// realize at the existing basis and leave it unchanged.
func (p *Position) Apply(quantity, price decimal.Decimal) {
	next := p.Quantity.Add(quantity)

	grows := p.Quantity.Sign() == 0 || p.Quantity.Sign() == quantity.Sign()
	if grows && !next.IsZero() {
		existing := p.AvgCost.Mul(p.Quantity.Abs())
		added := price.Mul(quantity.Abs())
		p.AvgCost = existing.Add(added).Div(next.Abs())
	}
	if next.IsZero() {
		p.AvgCost = decimal.Zero
	}

	p.Quantity = next
}

// MarketValue returns the signed mark-to-market value at the given price.
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

// IsFlat reports whether no exposure remains.
func (p Position) IsFlat() bool {
	return p.Quantity.IsZero()
}
