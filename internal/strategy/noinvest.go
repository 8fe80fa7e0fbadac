package strategy

import (
	"context"
	"time"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/marketdata"
)

// NoInvest never trades. It serves as a cash baseline in comparisons.
type NoInvest struct{}

// NewNoInvestFromParams builds a NoInvest from registry parameters.
func NewNoInvestFromParams(map[string]any) (Strategy, error) {
	return NoInvest{}, nil
}

// Name returns the strategy name.
func (NoInvest) Name() string {
	return "noinvest"
}

// GenerateSignals returns no signals.
func (NoInvest) GenerateSignals(context.Context, *marketdata.View, time.Time, int) (map[string]domain.Signal, error) {
	return map[string]domain.Signal{}, nil
}
