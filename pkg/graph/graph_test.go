package graph

import (
	"testing"
)

func ptr(f float64) *float64 { return &f }

func TestGraph_AddVariable_Duplicate(t *testing.T) {
	g := New()
	v := &Variable{Name: "gdp_growth", Type: VariableEndogenous, Value: 2.5, Uncertainty: 0.5}
	if err := g.AddVariable(v); err != nil {
		t.Fatalf("AddVariable failed: %v", err)
	}
	if err := g.AddVariable(v); err == nil {
		t.Fatal("Expected error for duplicate variable, got nil")
	}
}

func TestGraph_AddVariable_BoundsValidation(t *testing.T) {
	g := New()
	v := &Variable{
		Name:        "unemployment_rate",
		Type:        VariableEndogenous,
		Value:       25.0,
		Uncertainty: 0.3,
		Min:         ptr(0),
		Max:         ptr(15),
	}
	if err := g.AddVariable(v); err == nil {
		t.Fatal("Expected error for value above max, got nil")
	}
}

func TestGraph_AddVariable_NegativeUncertainty(t *testing.T) {
	g := New()
	v := &Variable{Name: "inflation_rate", Type: VariableEndogenous, Value: 3.0, Uncertainty: -0.1}
	if err := g.AddVariable(v); err == nil {
		t.Fatal("Expected error for negative uncertainty, got nil")
	}
}

func buildTriangle(t *testing.T) *Graph {
	t.Helper()
	g := New()
	vars := []*Variable{
		{Name: "fed_funds_rate", Type: VariablePolicy, Value: 5.25, Uncertainty: 0.25},
		{Name: "gdp_growth", Type: VariableEndogenous, Value: 2.1, Uncertainty: 0.5},
		{Name: "unemployment_rate", Type: VariableEndogenous, Value: 3.8, Uncertainty: 0.3},
	}
	for _, v := range vars {
		if err := g.AddVariable(v); err != nil {
			t.Fatalf("AddVariable(%s) failed: %v", v.Name, err)
		}
	}
	rels := []*Relationship{
		{Source: "fed_funds_rate", Target: "gdp_growth", Strength: -0.4, Confidence: 0.8},
		{Source: "fed_funds_rate", Target: "unemployment_rate", Strength: 0.3, Confidence: 0.7, LagPeriods: 2},
		{Source: "gdp_growth", Target: "unemployment_rate", Strength: -0.5, Confidence: 0.9, LagPeriods: 1},
	}
	for _, r := range rels {
		if err := g.AddRelationship(r); err != nil {
			t.Fatalf("AddRelationship(%s->%s) failed: %v", r.Source, r.Target, err)
		}
	}
	return g
}

func TestGraph_AddRelationship_UnknownEndpoint(t *testing.T) {
	g := buildTriangle(t)
	r := &Relationship{Source: "oil_price", Target: "gdp_growth", Strength: -0.3, Confidence: 0.6}
	if err := g.AddRelationship(r); err == nil {
		t.Fatal("Expected error for unknown source variable, got nil")
	}
}

func TestGraph_AddRelationship_SelfLoop(t *testing.T) {
	g := buildTriangle(t)
	r := &Relationship{Source: "gdp_growth", Target: "gdp_growth", Strength: 0.1, Confidence: 0.5}
	if err := g.AddRelationship(r); err == nil {
		t.Fatal("Expected error for self-loop, got nil")
	}
}

func TestGraph_AddRelationship_CycleRejected(t *testing.T) {
	g := buildTriangle(t)
	// unemployment -> fed_funds_rate closes the loop back to the policy rate.
	r := &Relationship{Source: "unemployment_rate", Target: "fed_funds_rate", Strength: 0.2, Confidence: 0.5}
	if err := g.AddRelationship(r); err == nil {
		t.Fatal("Expected error for cycle-creating relationship, got nil")
	}
	// The rejected edge must not leave partial state behind.
	if g.NumRelationships() != 3 {
		t.Errorf("Expected 3 relationships after rejection, got %d", g.NumRelationships())
	}
}

func TestGraph_AddRelationship_RangeValidation(t *testing.T) {
	g := buildTriangle(t)
	cases := []struct {
		name string
		rel  *Relationship
	}{
		{"strength too large", &Relationship{Source: "fed_funds_rate", Target: "gdp_growth", Strength: 1.5, Confidence: 0.5}},
		{"confidence negative", &Relationship{Source: "fed_funds_rate", Target: "gdp_growth", Strength: 0.5, Confidence: -0.1}},
		{"negative lag", &Relationship{Source: "fed_funds_rate", Target: "gdp_growth", Strength: 0.5, Confidence: 0.5, LagPeriods: -1}},
	}
	for _, tc := range cases {
		if err := g.AddRelationship(tc.rel); err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
		}
	}
}

func TestGraph_TopologicalOrder(t *testing.T) {
	g := buildTriangle(t)
	order := g.TopologicalOrder()
	if len(order) != 3 {
		t.Fatalf("Expected 3 variables in order, got %d", len(order))
	}

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	if pos["fed_funds_rate"] > pos["gdp_growth"] {
		t.Error("fed_funds_rate must precede gdp_growth")
	}
	if pos["gdp_growth"] > pos["unemployment_rate"] {
		t.Error("gdp_growth must precede unemployment_rate")
	}
}

func TestGraph_TopologicalOrder_Deterministic(t *testing.T) {
	g := buildTriangle(t)
	first := g.TopologicalOrder()
	for i := 0; i < 10; i++ {
		again := g.TopologicalOrder()
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("Topological order not deterministic: %v vs %v", first, again)
			}
		}
	}
}

func TestGraph_AncestorsDescendants(t *testing.T) {
	g := buildTriangle(t)

	anc, err := g.Ancestors("unemployment_rate")
	if err != nil {
		t.Fatalf("Ancestors failed: %v", err)
	}
	if !anc["fed_funds_rate"] || !anc["gdp_growth"] {
		t.Errorf("Expected both upstream variables as ancestors, got %v", anc)
	}

	desc, err := g.Descendants("fed_funds_rate")
	if err != nil {
		t.Fatalf("Descendants failed: %v", err)
	}
	if !desc["gdp_growth"] || !desc["unemployment_rate"] {
		t.Errorf("Expected both downstream variables as descendants, got %v", desc)
	}

	if _, err := g.Ancestors("missing"); err == nil {
		t.Error("Expected error for unknown variable")
	}
}

func TestGraph_RelationshipsInto(t *testing.T) {
	g := buildTriangle(t)
	into := g.RelationshipsInto("unemployment_rate")
	if len(into) != 2 {
		t.Fatalf("Expected 2 incoming relationships, got %d", len(into))
	}
	// Sorted by source name.
	if into[0].Source != "fed_funds_rate" || into[1].Source != "gdp_growth" {
		t.Errorf("Unexpected incoming edge order: %s, %s", into[0].Source, into[1].Source)
	}
}

func TestGraph_Summarize(t *testing.T) {
	g := buildTriangle(t)
	if err := g.AddVariable(&Variable{Name: "consumer_confidence", Type: VariableIndicator, Value: 101, Uncertainty: 5}); err != nil {
		t.Fatalf("AddVariable failed: %v", err)
	}

	s := g.Summarize()
	if s.NumVariables != 4 {
		t.Errorf("Expected 4 variables, got %d", s.NumVariables)
	}
	if s.NumRelationships != 3 {
		t.Errorf("Expected 3 relationships, got %d", s.NumRelationships)
	}
	if len(s.Isolated) != 1 || s.Isolated[0] != "consumer_confidence" {
		t.Errorf("Expected consumer_confidence flagged as isolated, got %v", s.Isolated)
	}
	if s.VariableTypes[VariablePolicy] != 1 {
		t.Errorf("Expected 1 policy variable, got %d", s.VariableTypes[VariablePolicy])
	}
}

func TestVariable_Clip(t *testing.T) {
	v := &Variable{Name: "rate", Value: 5, Uncertainty: 0, Min: ptr(0), Max: ptr(10)}
	cases := []struct {
		in, want float64
	}{
		{-3, 0},
		{5, 5},
		{12, 10},
	}
	for _, tc := range cases {
		if got := v.Clip(tc.in); got != tc.want {
			t.Errorf("Clip(%g) = %g, want %g", tc.in, got, tc.want)
		}
	}
}
