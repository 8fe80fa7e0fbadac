// Package guardrail defines risk-control checks applied to proposed trades
// before the portfolio commits them.
package guardrail

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/marketdata"
)

// DecisionKind enumerates guardrail outcomes.
type DecisionKind int

const (
	// KindApprove passes the order through unchanged.
	KindApprove DecisionKind = iota
	// KindVeto drops the order entirely; no partial application.
	KindVeto
	// KindModify replaces the order for the remaining guardrails in the chain.
	KindModify
)

// Decision is the outcome of one guardrail evaluation.
type Decision struct {
	Kind   DecisionKind
	Reason string
	// Order is the replacement trade when Kind is KindModify.
	Order domain.Order
}

// Approve passes the order unchanged.
func Approve() Decision {
	return Decision{Kind: KindApprove}
}

// Veto drops the order with a reason for the rejection log.
func Veto(reason string) Decision {
	return Decision{Kind: KindVeto, Reason: reason}
}

// Modify replaces the order for downstream guardrails.
func Modify(order domain.Order, reason string) Decision {
	return Decision{Kind: KindModify, Reason: reason, Order: order}
}

// Guardrail inspects a proposed trade against portfolio state and market
// data. Guardrails run in registration order; order is part of a run's
// reproducibility contract.
type Guardrail interface {
	Name() string
	Evaluate(order domain.Order, state domain.PortfolioState, view *marketdata.View) Decision
}

// DateObserver is implemented by guardrails that track per-date state,
// such as trailing peaks. The executor invokes it once per simulated date
// before order evaluation, with the strategy-facing (strictly-before) view,
// so observed side effects never act on same-day data.
type DateObserver interface {
	ObserveDate(date time.Time, state domain.PortfolioState, view *marketdata.View)
}

// TradeObserver is implemented by guardrails that track executed fills,
// such as entry prices for trailing stops.
type TradeObserver interface {
	ObserveTrade(trade domain.TradeRecord)
}

// Factory builds a guardrail from config parameters.
type Factory func(params map[string]any) (Guardrail, error)

// Registry maps guardrail names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty guardrail registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under a name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("guardrail name must not be empty")
	}
	if _, exists := r.factories[name]; exists {
		return errors.Errorf("guardrail %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a registered guardrail.
func (r *Registry) Create(name string, params map[string]any) (Guardrail, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.Errorf("guardrail %q is not registered (known: %v)", name, r.Names())
	}
	return factory(params)
}

// Names returns registered guardrail names in deterministic order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with all built-in guardrails.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("trailing_stop", NewTrailingStopFromParams)
	_ = r.Register("min_cash", NewMinCashFromParams)
	_ = r.Register("max_order", NewMaxOrderFromParams)
	return r
}

// decimalParam reads a decimal parameter with a default.
func decimalParam(params map[string]any, key string, def string) (decimal.Decimal, error) {
	raw, ok := params[key]
	if !ok {
		return decimal.NewFromString(def)
	}
	switch v := raw.(type) {
	case string:
		return decimal.NewFromString(v)
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Decimal{}, errors.Errorf("parameter %q must be a number, got %T", key, raw)
	}
}
