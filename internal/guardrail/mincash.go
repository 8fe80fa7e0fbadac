package guardrail

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/marketdata"
)

// MinCash vetoes every trade while the cash balance sits below a floor.
type MinCash struct {
	floor decimal.Decimal
}

// NewMinCash creates a cash-floor guardrail.
func NewMinCash(floor decimal.Decimal) (*MinCash, error) {
	if floor.IsNegative() {
		return nil, errors.Errorf("cash floor must be non-negative, got %s", floor.String())
	}
	return &MinCash{floor: floor}, nil
}

// NewMinCashFromParams builds a MinCash from the floor parameter.
func NewMinCashFromParams(params map[string]any) (Guardrail, error) {
	floor, err := decimalParam(params, "floor", "0")
	if err != nil {
		return nil, err
	}
	return NewMinCash(floor)
}

// Name returns the guardrail name.
func (m *MinCash) Name() string {
	return "min_cash"
}

// Evaluate vetoes when cash is below the floor.
func (m *MinCash) Evaluate(order domain.Order, state domain.PortfolioState, view *marketdata.View) Decision {
	if state.Cash.LessThan(m.floor) {
		return Veto(fmt.Sprintf("cash %s below floor %s", state.Cash.String(), m.floor.String()))
	}
	return Approve()
}
