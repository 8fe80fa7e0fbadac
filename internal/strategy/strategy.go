// Package strategy defines the signal-generation contract and the concrete
// strategies shipped with the engine.
package strategy

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/marketdata"
)

// Strategy turns a bounded historical window into per-ticker signals.
// Implementations never receive data at or after the decision date: the
// view handed in refuses such requests. A strategy may keep internal state
// across calls; construct a fresh instance per run when determinism matters.
type Strategy interface {
	Name() string
	GenerateSignals(ctx context.Context, view *marketdata.View, date time.Time, lookback int) (map[string]domain.Signal, error)
}

// Factory builds a strategy from config parameters.
type Factory func(params map[string]any) (Strategy, error)

// Registry maps strategy names to factories. It is an explicit object
// passed where needed, not ambient global state.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under a name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("strategy name must not be empty")
	}
	if _, exists := r.factories[name]; exists {
		return errors.Errorf("strategy %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a registered strategy.
func (r *Registry) Create(name string, params map[string]any) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.Errorf("strategy %q is not registered (known: %v)", name, r.Names())
	}
	return factory(params)
}

// Names returns registered strategy names in deterministic order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with all built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("momentum", NewMomentumFromParams)
	_ = r.Register("buyhold", NewBuyHoldFromParams)
	_ = r.Register("noinvest", NewNoInvestFromParams)
	return r
}

// intParam reads an integer parameter with a default.
func intParam(params map[string]any, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, errors.Errorf("parameter %q must be an integer, got %T", key, raw)
	}
}
