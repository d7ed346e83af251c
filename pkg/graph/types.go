package graph

import "fmt"

// VariableType classifies how an economic variable is determined.
type VariableType string

const (
	VariableExogenous  VariableType = "exogenous"  // external factors (oil prices, weather)
	VariableEndogenous VariableType = "endogenous" // determined inside the model (GDP, inflation)
	VariablePolicy     VariableType = "policy"     // controlled by policy makers (rates, taxes)
	VariableMarket     VariableType = "market"     // set by market forces (FX, equities)
	VariableIndicator  VariableType = "indicator"  // derived summary metrics
)

// Variable represents a node in the causal graph: one economic quantity
// with a current level and an uncertainty expressed as a standard deviation.
// Min/Max are optional hard bounds; a nil pointer means unbounded on that side.
type Variable struct {
	Name        string       `json:"name"`
	Type        VariableType `json:"type"`
	Value       float64      `json:"value"`
	Uncertainty float64      `json:"uncertainty"`
	Description string       `json:"description,omitempty"`
	Unit        string       `json:"unit,omitempty"`
	Min         *float64     `json:"min,omitempty"`
	Max         *float64     `json:"max,omitempty"`
}

// Validate checks the variable's internal consistency.
func (v *Variable) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("variable name cannot be empty")
	}
	if v.Uncertainty < 0 {
		return fmt.Errorf("variable %q: uncertainty must be non-negative, got %g", v.Name, v.Uncertainty)
	}
	if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
		return fmt.Errorf("variable %q: min %g exceeds max %g", v.Name, *v.Min, *v.Max)
	}
	if v.Min != nil && v.Value < *v.Min {
		return fmt.Errorf("variable %q: value %g below min %g", v.Name, v.Value, *v.Min)
	}
	if v.Max != nil && v.Value > *v.Max {
		return fmt.Errorf("variable %q: value %g above max %g", v.Name, v.Value, *v.Max)
	}
	return nil
}

// InBounds reports whether a value respects the variable's bounds.
func (v *Variable) InBounds(value float64) bool {
	if v.Min != nil && value < *v.Min {
		return false
	}
	if v.Max != nil && value > *v.Max {
		return false
	}
	return true
}

// Clip forces a value into the variable's bounds.
func (v *Variable) Clip(value float64) float64 {
	if v.Min != nil && value < *v.Min {
		return *v.Min
	}
	if v.Max != nil && value > *v.Max {
		return *v.Max
	}
	return value
}

// Relationship represents a directed causal edge between two variables.
// Strength carries the sign and magnitude of the effect, Confidence how
// certain we are the edge is real, and LagPeriods how many periods a
// change in the source needs before it reaches the target.
type Relationship struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Strength   float64 `json:"strength"`   // [-1, 1]
	Confidence float64 `json:"confidence"` // [0, 1]
	LagPeriods int     `json:"lag_periods"`
}

// Validate checks the relationship's ranges.
func (r *Relationship) Validate() error {
	if r.Source == "" || r.Target == "" {
		return fmt.Errorf("relationship endpoints cannot be empty")
	}
	if r.Strength < -1 || r.Strength > 1 {
		return fmt.Errorf("relationship %s->%s: strength must be in [-1, 1], got %g", r.Source, r.Target, r.Strength)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("relationship %s->%s: confidence must be in [0, 1], got %g", r.Source, r.Target, r.Confidence)
	}
	if r.LagPeriods < 0 {
		return fmt.Errorf("relationship %s->%s: lag periods must be non-negative, got %d", r.Source, r.Target, r.LagPeriods)
	}
	return nil
}
