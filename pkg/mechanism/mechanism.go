// Package mechanism implements the non-linear transfer functions applied
// along causal edges during shock propagation. A mechanism is a stateless,
// referentially transparent mapping from a causal input magnitude to an
// output magnitude, parameterized per edge.
package mechanism

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/econlab/ripple/pkg/graph"
)

// Kind identifies the transformation family. The set is closed: every
// kind is dispatched exhaustively in Apply.
type Kind string

const (
	Linear      Kind = "linear"      // proportional pass-through
	Exponential Kind = "exponential" // accelerating (>1) or decelerating (<1) effects
	Threshold   Kind = "threshold"   // dead zone below a minimum magnitude
	Saturation  Kind = "saturation"  // diminishing returns toward an asymptote
)

// Mechanism is an immutable, validated transfer function. Construct one
// with NewLinear, NewExponential, NewThreshold, NewSaturation, or New;
// invalid parameters fail at construction, never at Apply time.
type Mechanism struct {
	kind Kind

	exponent       float64
	threshold      float64
	scaleFactor    float64
	maxEffect      float64
	halfSaturation float64
}

// NewLinear creates a linear mechanism: output = strength * input.
func NewLinear() Mechanism {
	return Mechanism{kind: Linear}
}

// NewExponential creates an exponential mechanism:
// output = strength * sign(input) * |input|^exponent.
// The exponent must be positive; 1 reduces to linear.
func NewExponential(exponent float64) (Mechanism, error) {
	if exponent <= 0 {
		return Mechanism{}, fmt.Errorf("exponential mechanism: exponent must be positive, got %g", exponent)
	}
	return Mechanism{kind: Exponential, exponent: exponent}, nil
}

// NewThreshold creates a threshold mechanism: inputs with |input| below
// the threshold produce no effect; above it the effect is proportional
// to the excess over the threshold, scaled by scaleFactor.
func NewThreshold(threshold, scaleFactor float64) (Mechanism, error) {
	if threshold < 0 {
		return Mechanism{}, fmt.Errorf("threshold mechanism: threshold must be non-negative, got %g", threshold)
	}
	return Mechanism{kind: Threshold, threshold: threshold, scaleFactor: scaleFactor}, nil
}

// NewSaturation creates a saturation mechanism following
// Michaelis-Menten-style kinetics: output approaches strength*maxEffect
// as the input grows, and reaches exactly half of it at halfSaturation.
func NewSaturation(maxEffect, halfSaturation float64) (Mechanism, error) {
	if maxEffect <= 0 {
		return Mechanism{}, fmt.Errorf("saturation mechanism: max_effect must be positive, got %g", maxEffect)
	}
	if halfSaturation <= 0 {
		return Mechanism{}, fmt.Errorf("saturation mechanism: half_saturation must be positive, got %g", halfSaturation)
	}
	return Mechanism{kind: Saturation, maxEffect: maxEffect, halfSaturation: halfSaturation}, nil
}

// New constructs a mechanism from a kind and a parameter map, as parsed
// from scenario files. Missing or out-of-range parameters are rejected
// with the offending key named.
func New(kind Kind, params map[string]float64) (Mechanism, error) {
	switch kind {
	case Linear:
		return NewLinear(), nil
	case Exponential:
		exp, ok := params["exponent"]
		if !ok {
			return Mechanism{}, fmt.Errorf("exponential mechanism: missing parameter %q", "exponent")
		}
		return NewExponential(exp)
	case Threshold:
		th, ok := params["threshold"]
		if !ok {
			return Mechanism{}, fmt.Errorf("threshold mechanism: missing parameter %q", "threshold")
		}
		sf, ok := params["scale_factor"]
		if !ok {
			return Mechanism{}, fmt.Errorf("threshold mechanism: missing parameter %q", "scale_factor")
		}
		return NewThreshold(th, sf)
	case Saturation:
		me, ok := params["max_effect"]
		if !ok {
			return Mechanism{}, fmt.Errorf("saturation mechanism: missing parameter %q", "max_effect")
		}
		hs, ok := params["half_saturation"]
		if !ok {
			return Mechanism{}, fmt.Errorf("saturation mechanism: missing parameter %q", "half_saturation")
		}
		return NewSaturation(me, hs)
	default:
		return Mechanism{}, fmt.Errorf("unknown mechanism kind %q", kind)
	}
}

// Kind returns the mechanism's transformation family.
func (m Mechanism) Kind() Kind { return m.kind }

// Params returns the mechanism's parameters as a map, mirroring the
// shape New accepts.
func (m Mechanism) Params() map[string]float64 {
	switch m.kind {
	case Exponential:
		return map[string]float64{"exponent": m.exponent}
	case Threshold:
		return map[string]float64{"threshold": m.threshold, "scale_factor": m.scaleFactor}
	case Saturation:
		return map[string]float64{"max_effect": m.maxEffect, "half_saturation": m.halfSaturation}
	default:
		return map[string]float64{}
	}
}

// Apply transforms an input magnitude using the mechanism and the edge's
// base strength. It is a total function over all real inputs: no
// validation, no division by zero (halfSaturation is positive by
// construction).
func (m Mechanism) Apply(input, baseStrength float64) float64 {
	switch m.kind {
	case Linear:
		return baseStrength * input

	case Exponential:
		if input == 0 {
			return 0
		}
		return baseStrength * sign(input) * math.Pow(math.Abs(input), m.exponent)

	case Threshold:
		if math.Abs(input) <= m.threshold {
			return 0
		}
		return baseStrength * m.scaleFactor * (input - sign(input)*m.threshold)

	case Saturation:
		return baseStrength * (m.maxEffect * input) / (m.halfSaturation + math.Abs(input))

	default:
		// Unreachable for constructed mechanisms; the zero value acts
		// as linear so an accidental zero Mechanism is still total.
		return baseStrength * input
	}
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// String renders the mechanism for logs and reports.
func (m Mechanism) String() string {
	params := m.Params()
	if len(params) == 0 {
		return string(m.kind)
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, params[k]))
	}
	return fmt.Sprintf("%s(%s)", m.kind, strings.Join(parts, ", "))
}

// EnhancedRelationship binds a causal edge to the mechanism that shapes
// its effect. It is the single integration point between the static
// graph structure and the dynamic mechanism layer: stateless, safe to
// invoke repeatedly across periods.
type EnhancedRelationship struct {
	Relationship *graph.Relationship
	Mechanism    Mechanism
}

// NewEnhancedRelationship composes an edge with a mechanism.
func NewEnhancedRelationship(rel *graph.Relationship, m Mechanism) (*EnhancedRelationship, error) {
	if rel == nil {
		return nil, fmt.Errorf("enhanced relationship requires a base relationship")
	}
	return &EnhancedRelationship{Relationship: rel, Mechanism: m}, nil
}

// ApplyCausalEffect transforms an input magnitude through the mechanism
// using the edge's strength.
func (e *EnhancedRelationship) ApplyCausalEffect(input float64) float64 {
	return e.Mechanism.Apply(input, e.Relationship.Strength)
}
