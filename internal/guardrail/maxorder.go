package guardrail

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/marketdata"
)

// MaxOrder caps the notional of any single order at a fraction of current
// equity, shrinking oversized orders instead of dropping them.
type MaxOrder struct {
	maxFraction decimal.Decimal
}

// NewMaxOrder creates the cap with the given equity fraction (0.25 caps a
// single order at a quarter of equity).
func NewMaxOrder(maxFraction decimal.Decimal) (*MaxOrder, error) {
	if !maxFraction.IsPositive() || maxFraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("max fraction must be in (0, 1], got %s", maxFraction.String())
	}
	return &MaxOrder{maxFraction: maxFraction}, nil
}

// NewMaxOrderFromParams builds a MaxOrder from the max_fraction parameter.
func NewMaxOrderFromParams(params map[string]any) (Guardrail, error) {
	maxFraction, err := decimalParam(params, "max_fraction", "0.25")
	if err != nil {
		return nil, err
	}
	return NewMaxOrder(maxFraction)
}

// Name returns the guardrail name.
func (m *MaxOrder) Name() string {
	return "max_order"
}

// Evaluate shrinks orders whose notional exceeds the equity cap. Whole-share
// sizing applies, so a cap that leaves less than one share vetoes instead.
func (m *MaxOrder) Evaluate(order domain.Order, state domain.PortfolioState, view *marketdata.View) Decision {
	limit := state.Equity.Mul(m.maxFraction)
	if order.Notional().LessThanOrEqual(limit) {
		return Approve()
	}

	quantity := limit.Div(order.Price).Floor()
	if quantity.IsZero() {
		return Veto(fmt.Sprintf("order notional %s exceeds cap %s and cannot be shrunk", order.Notional().String(), limit.String()))
	}
	if order.Quantity.IsNegative() {
		quantity = quantity.Neg()
	}

	modified := order
	modified.Quantity = quantity
	return Modify(modified, fmt.Sprintf("capped notional at %s", limit.String()))
}
