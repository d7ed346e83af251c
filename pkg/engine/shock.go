package engine

import (
	"fmt"
	"math"
)

// ShockEvent specifies an exogenous disturbance injected at one variable.
// Magnitude is expressed in the units of the target variable. A one-time
// shock has Duration 0; a persistent shock keeps injecting through
// Duration periods, decaying multiplicatively by DecayRate each period.
//
// A ShockEvent is immutable once constructed and may be reused across
// propagation runs.
type ShockEvent struct {
	Target                string  `json:"target"`
	Magnitude             float64 `json:"magnitude"`
	Duration              int     `json:"duration"`
	DecayRate             float64 `json:"decay_rate"`
	UncertaintyMultiplier float64 `json:"uncertainty_multiplier"`
	Description           string  `json:"description,omitempty"`
}

// Validate checks the shock's parameter ranges.
func (s ShockEvent) Validate() error {
	if s.Target == "" {
		return fmt.Errorf("shock target cannot be empty")
	}
	if math.IsNaN(s.Magnitude) || math.IsInf(s.Magnitude, 0) {
		return fmt.Errorf("shock magnitude must be finite, got %g", s.Magnitude)
	}
	if s.Duration < 0 {
		return fmt.Errorf("shock duration must be non-negative, got %d", s.Duration)
	}
	if s.DecayRate < 0 || s.DecayRate > 1 {
		return fmt.Errorf("shock decay rate must be in [0, 1], got %g", s.DecayRate)
	}
	if s.UncertaintyMultiplier < 0 {
		return fmt.Errorf("shock uncertainty multiplier must be non-negative, got %g", s.UncertaintyMultiplier)
	}
	return nil
}

// InjectionAt returns the exogenous injection magnitude for period t.
// Period 0 always receives the full magnitude; periods 1..Duration
// receive the decayed sustain; later periods receive nothing (downstream
// effects may still be working through lag buffers).
func (s ShockEvent) InjectionAt(t int) float64 {
	switch {
	case t < 0:
		return 0
	case t == 0:
		return s.Magnitude
	case t <= s.Duration:
		return s.Magnitude * math.Pow(1-s.DecayRate, float64(t))
	default:
		return 0
	}
}

// UncertaintyAt returns the uncertainty injected alongside the period-t
// injection.
func (s ShockEvent) UncertaintyAt(t int) float64 {
	return math.Abs(s.InjectionAt(t)) * s.UncertaintyMultiplier
}

// String renders the shock for logs and reports.
func (s ShockEvent) String() string {
	return fmt.Sprintf("shock(%s, magnitude=%g, duration=%d, decay=%g)",
		s.Target, s.Magnitude, s.Duration, s.DecayRate)
}
