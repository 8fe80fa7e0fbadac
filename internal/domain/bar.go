package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is a single OHLCV observation for a ticker.
type Bar struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}
