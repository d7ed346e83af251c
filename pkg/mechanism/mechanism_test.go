package mechanism

import (
	"math"
	"testing"

	"github.com/econlab/ripple/pkg/graph"
)

func TestNew_ParameterValidation(t *testing.T) {
	cases := []struct {
		name    string
		kind    Kind
		params  map[string]float64
		wantErr bool
	}{
		{"linear needs nothing", Linear, nil, false},
		{"exponential ok", Exponential, map[string]float64{"exponent": 1.5}, false},
		{"exponential missing key", Exponential, map[string]float64{}, true},
		{"exponential zero", Exponential, map[string]float64{"exponent": 0}, true},
		{"exponential negative", Exponential, map[string]float64{"exponent": -2}, true},
		{"threshold ok", Threshold, map[string]float64{"threshold": 0.25, "scale_factor": 2}, false},
		{"threshold missing scale", Threshold, map[string]float64{"threshold": 0.25}, true},
		{"threshold negative", Threshold, map[string]float64{"threshold": -1, "scale_factor": 1}, true},
		{"saturation ok", Saturation, map[string]float64{"max_effect": 1, "half_saturation": 5}, false},
		{"saturation zero half", Saturation, map[string]float64{"max_effect": 1, "half_saturation": 0}, true},
		{"saturation negative max", Saturation, map[string]float64{"max_effect": -1, "half_saturation": 5}, true},
		{"saturation missing max", Saturation, map[string]float64{"half_saturation": 5}, true},
		{"unknown kind", Kind("logistic"), nil, true},
	}

	for _, tc := range cases {
		_, err := New(tc.kind, tc.params)
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestLinear_Apply(t *testing.T) {
	m := NewLinear()
	cases := []struct {
		input, strength, want float64
	}{
		{2, 0.5, 1},
		{-2, 0.5, -1},
		{2, -0.5, -1},
		{0, 0.9, 0},
	}
	for _, tc := range cases {
		if got := m.Apply(tc.input, tc.strength); got != tc.want {
			t.Errorf("Apply(%g, %g) = %g, want %g", tc.input, tc.strength, got, tc.want)
		}
	}
}

func TestExponential_Apply(t *testing.T) {
	m, err := NewExponential(2)
	if err != nil {
		t.Fatalf("NewExponential failed: %v", err)
	}

	if got := m.Apply(3, 0.5); math.Abs(got-4.5) > 1e-12 {
		t.Errorf("Apply(3, 0.5) = %g, want 4.5", got)
	}
	// Sign preserved through the absolute-value transform.
	if got := m.Apply(-3, 0.5); math.Abs(got+4.5) > 1e-12 {
		t.Errorf("Apply(-3, 0.5) = %g, want -4.5", got)
	}
	if got := m.Apply(0, 0.5); got != 0 {
		t.Errorf("Apply(0, 0.5) = %g, want 0", got)
	}
}

func TestExponential_MonotoneForPositiveInputs(t *testing.T) {
	m, err := NewExponential(1.5)
	if err != nil {
		t.Fatalf("NewExponential failed: %v", err)
	}
	prev := math.Inf(-1)
	for x := 0.0; x <= 10; x += 0.25 {
		out := m.Apply(x, 0.7)
		if out < prev {
			t.Fatalf("Expected non-decreasing output, got %g after %g at x=%g", out, prev, x)
		}
		prev = out
	}
}

func TestThreshold_Exactness(t *testing.T) {
	m, err := NewThreshold(1.0, 2.0)
	if err != nil {
		t.Fatalf("NewThreshold failed: %v", err)
	}

	// Exactly zero up to and including the boundary.
	for _, x := range []float64{0, 0.5, 0.999999, 1.0, -1.0, -0.3} {
		if got := m.Apply(x, 0.5); got != 0 {
			t.Errorf("Apply(%g) = %g, want exactly 0", x, got)
		}
	}

	// Strictly non-zero just past it, proportional to the excess.
	got := m.Apply(1.5, 0.5)
	want := 0.5 * 2.0 * (1.5 - 1.0)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Apply(1.5, 0.5) = %g, want %g", got, want)
	}
	for _, delta := range []float64{1e-9, 1e-6, 0.01} {
		if m.Apply(1.0+delta, 0.5) == 0 {
			t.Errorf("Apply(1+%g) = 0, want non-zero past threshold", delta)
		}
	}

	// Negative side mirrors the positive side.
	neg := m.Apply(-1.5, 0.5)
	if math.Abs(neg+want) > 1e-12 {
		t.Errorf("Apply(-1.5, 0.5) = %g, want %g", neg, -want)
	}
}

func TestSaturation_HalfPoint(t *testing.T) {
	m, err := NewSaturation(1.0, 5.0)
	if err != nil {
		t.Fatalf("NewSaturation failed: %v", err)
	}
	got := m.Apply(5.0, 0.8)
	want := 0.8 * 1.0 / 2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Apply at half-saturation = %g, want %g", got, want)
	}
}

func TestSaturation_AsymptoticBound(t *testing.T) {
	m, err := NewSaturation(2.0, 3.0)
	if err != nil {
		t.Fatalf("NewSaturation failed: %v", err)
	}
	s := 0.6
	limit := s * 2.0
	for _, x := range []float64{0.1, 1, 10, 1e3, 1e6, 1e12} {
		out := m.Apply(x, s)
		if math.Abs(out) >= limit {
			t.Errorf("Apply(%g) = %g, must stay below asymptote %g", x, out, limit)
		}
	}
	// Approaches the asymptote for very large inputs.
	if out := m.Apply(1e12, s); math.Abs(out-limit) > 1e-6 {
		t.Errorf("Apply(1e12) = %g, want close to %g", out, limit)
	}
	// Negative inputs approach the negative asymptote.
	if out := m.Apply(-1e12, s); math.Abs(out+limit) > 1e-6 {
		t.Errorf("Apply(-1e12) = %g, want close to %g", out, -limit)
	}
}

func TestSaturation_DiminishingReturnsTrend(t *testing.T) {
	m, err := NewSaturation(1.0, 5.0)
	if err != nil {
		t.Fatalf("NewSaturation failed: %v", err)
	}

	// Overall trend, not per-step: average marginal gain in the first
	// half of the range must exceed the average in the second half.
	xs := []float64{0, 1, 2, 5, 8, 12, 20, 35, 60, 100}
	var marginals []float64
	for i := 1; i < len(xs); i++ {
		gain := m.Apply(xs[i], 1.0) - m.Apply(xs[i-1], 1.0)
		step := xs[i] - xs[i-1]
		marginals = append(marginals, gain/step)
	}
	half := len(marginals) / 2
	avg := func(vals []float64) float64 {
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum / float64(len(vals))
	}
	if avg(marginals[:half]) <= avg(marginals[half:]) {
		t.Errorf("Expected diminishing marginal returns: first-half avg %g, second-half avg %g",
			avg(marginals[:half]), avg(marginals[half:]))
	}
}

func TestMechanism_ZeroValueIsTotal(t *testing.T) {
	var m Mechanism
	if got := m.Apply(2, 0.5); got != 1 {
		t.Errorf("Zero-value mechanism Apply(2, 0.5) = %g, want linear fallback 1", got)
	}
}

func TestEnhancedRelationship_ApplyCausalEffect(t *testing.T) {
	rel := &graph.Relationship{Source: "fed_funds_rate", Target: "gdp_growth", Strength: -0.3, Confidence: 0.8}
	th, err := NewThreshold(0.25, 2.0)
	if err != nil {
		t.Fatalf("NewThreshold failed: %v", err)
	}
	enh, err := NewEnhancedRelationship(rel, th)
	if err != nil {
		t.Fatalf("NewEnhancedRelationship failed: %v", err)
	}

	// Small rate change below the threshold is absorbed.
	if got := enh.ApplyCausalEffect(0.1); got != 0 {
		t.Errorf("ApplyCausalEffect(0.1) = %g, want 0", got)
	}

	// Large change triggers the amplified negative response.
	got := enh.ApplyCausalEffect(0.5)
	want := -0.3 * 2.0 * (0.5 - 0.25)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("ApplyCausalEffect(0.5) = %g, want %g", got, want)
	}
}

func TestNewEnhancedRelationship_NilBase(t *testing.T) {
	if _, err := NewEnhancedRelationship(nil, NewLinear()); err == nil {
		t.Fatal("Expected error for nil base relationship, got nil")
	}
}

func TestMechanism_String(t *testing.T) {
	m, err := NewSaturation(1.0, 5.0)
	if err != nil {
		t.Fatalf("NewSaturation failed: %v", err)
	}
	got := m.String()
	want := "saturation(half_saturation=5, max_effect=1)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if NewLinear().String() != "linear" {
		t.Errorf("Linear String() = %q, want %q", NewLinear().String(), "linear")
	}
}
