package risk

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidLimits is returned for a parameter set that cannot be simulated
var ErrInvalidLimits = errors.New("invalid limits")

const (
	DefaultProfitLimit      = 0.02
	DefaultLossLimit        = -0.02
	DefaultPositionFraction = 0.10
)

// Limits holds the exit thresholds and sizing for one simulation run
type Limits struct {
	ProfitLimit      float64 `json:"profitLimit"`      // Fractional gain that arms profit taking (> 0)
	LossLimit        float64 `json:"lossLimit"`        // Fractional loss that forces an exit (< 0)
	PositionFraction float64 `json:"positionFraction"` // Share of cash committed per entry, in (0, 1]
}

// DefaultLimits returns the baseline profit/loss thresholds
func DefaultLimits() Limits {
	return Limits{
		ProfitLimit:      DefaultProfitLimit,
		LossLimit:        DefaultLossLimit,
		PositionFraction: DefaultPositionFraction,
	}
}

// WithThresholds returns a copy with the profit and loss limits replaced
func (l Limits) WithThresholds(profitLimit, lossLimit float64) Limits {
	l.ProfitLimit = profitLimit
	l.LossLimit = lossLimit
	return l
}

// Validate checks that the limits describe a runnable strategy
func (l Limits) Validate() error {
	// Written so NaN fails every check
	if !(l.PositionFraction > 0 && l.PositionFraction <= 1) {
		return fmt.Errorf("%w: position fraction must be in (0, 1], got %v", ErrInvalidLimits, l.PositionFraction)
	}
	if !(l.ProfitLimit > 0) || math.IsInf(l.ProfitLimit, 0) {
		return fmt.Errorf("%w: profit limit must be finite and > 0, got %v", ErrInvalidLimits, l.ProfitLimit)
	}
	if !(l.LossLimit < 0) || math.IsInf(l.LossLimit, 0) {
		return fmt.Errorf("%w: loss limit must be finite and < 0, got %v", ErrInvalidLimits, l.LossLimit)
	}
	return nil
}
