package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is an immutable audit-trail entry for an executed trade.
// Quantity is signed: positive buys, negative sells.
type TradeRecord struct {
	Date          time.Time       `json:"date"`
	Ticker        string          `json:"ticker"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	CashDelta     decimal.Decimal `json:"cash_delta"`
	PositionDelta decimal.Decimal `json:"position_delta"`
}

// Rejection records a proposed trade that produced no TradeRecord,
// so rejected orders stay distinguishable in the audit trail.
type Rejection struct {
	Date     time.Time       `json:"date"`
	Ticker   string          `json:"ticker"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Reason   string          `json:"reason"`
}
