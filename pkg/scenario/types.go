// Package scenario loads declarative what-if scenarios from YAML: a
// causal graph, a shock, run parameters, and invariants to check against
// the propagation results.
package scenario

import (
	"github.com/econlab/ripple/pkg/engine"
)

// Scenario is the YAML document root.
type Scenario struct {
	Name          string             `json:"name" yaml:"name"`
	Description   string             `json:"description,omitempty" yaml:"description,omitempty"`
	Variables     []VariableSpec     `json:"variables" yaml:"variables"`
	Relationships []RelationshipSpec `json:"relationships" yaml:"relationships"`
	Shock         ShockSpec          `json:"shock" yaml:"shock"`
	RunParams     RunSpec            `json:"run,omitempty" yaml:"run,omitempty"`
	Invariants    []Invariant        `json:"invariants,omitempty" yaml:"invariants,omitempty"`
}

// VariableSpec declares one economic variable.
type VariableSpec struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	Value       float64  `json:"value" yaml:"value"`
	Uncertainty float64  `json:"uncertainty" yaml:"uncertainty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Unit        string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Min         *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// RelationshipSpec declares one causal edge, optionally with a
// non-linear mechanism shaping its transfer.
type RelationshipSpec struct {
	Source     string         `json:"source" yaml:"source"`
	Target     string         `json:"target" yaml:"target"`
	Strength   float64        `json:"strength" yaml:"strength"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	LagPeriods int            `json:"lag_periods,omitempty" yaml:"lag_periods,omitempty"`
	Mechanism  *MechanismSpec `json:"mechanism,omitempty" yaml:"mechanism,omitempty"`
}

// MechanismSpec names a mechanism kind and its parameters.
type MechanismSpec struct {
	Kind   string             `json:"kind" yaml:"kind"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// ShockSpec declares the exogenous disturbance to propagate.
type ShockSpec struct {
	Target                string  `json:"target" yaml:"target"`
	Magnitude             float64 `json:"magnitude" yaml:"magnitude"`
	Duration              int     `json:"duration,omitempty" yaml:"duration,omitempty"`
	DecayRate             float64 `json:"decay_rate,omitempty" yaml:"decay_rate,omitempty"`
	UncertaintyMultiplier float64 `json:"uncertainty_multiplier,omitempty" yaml:"uncertainty_multiplier,omitempty"`
	Description           string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// RunSpec overrides the default run parameters; zero values keep the
// engine defaults.
type RunSpec struct {
	Periods   int     `json:"periods,omitempty" yaml:"periods,omitempty"`
	Dampening float64 `json:"dampening,omitempty" yaml:"dampening,omitempty"`
	Tolerance float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
}

// Invariant is a declarative check against the propagation results.
// Metric is one of converged, final, peak, cumulative, total_impact;
// final, peak and cumulative require Variable.
type Invariant struct {
	Metric    string  `json:"metric" yaml:"metric"`
	Variable  string  `json:"variable,omitempty" yaml:"variable,omitempty"`
	Condition string  `json:"condition" yaml:"condition"` // ">", ">=", "<", "<=", "=="
	Value     float64 `json:"value" yaml:"value"`
}

// InvariantResult records one evaluated invariant.
type InvariantResult struct {
	Metric   string `json:"metric"`
	Variable string `json:"variable,omitempty"`
	Expected string `json:"expected"` // e.g. "< 0.00"
	Actual   string `json:"actual"`   // e.g. "-0.1805"
	Passed   bool   `json:"passed"`
}

// Result is the outcome of running a scenario: the raw propagation
// results plus the evaluated invariants.
type Result struct {
	ScenarioName string            `json:"scenario_name"`
	Results      *engine.Results   `json:"results"`
	Invariants   []InvariantResult `json:"invariants,omitempty"`
	Success      bool              `json:"success"`
}
