package scenario

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/econlab/ripple/pkg/engine"
	"github.com/econlab/ripple/pkg/graph"
	"github.com/econlab/ripple/pkg/mechanism"
)

// Load reads and parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse parses a scenario from YAML bytes.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario must have a name")
	}
	if len(s.Variables) == 0 {
		return nil, fmt.Errorf("scenario %q declares no variables", s.Name)
	}
	if s.Shock.Target == "" {
		return nil, fmt.Errorf("scenario %q declares no shock target", s.Name)
	}
	return &s, nil
}

// Digest returns a stable content hash of the scenario, used as a cache
// key for run summaries.
func (s *Scenario) Digest() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to hash scenario: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ShockEvent converts the shock spec into an engine shock.
func (s *Scenario) ShockEvent() engine.ShockEvent {
	return engine.ShockEvent{
		Target:                s.Shock.Target,
		Magnitude:             s.Shock.Magnitude,
		Duration:              s.Shock.Duration,
		DecayRate:             s.Shock.DecayRate,
		UncertaintyMultiplier: s.Shock.UncertaintyMultiplier,
		Description:           s.Shock.Description,
	}
}

// RunConfig converts the run spec into an engine config, filling gaps
// with the engine defaults.
func (s *Scenario) RunConfig() engine.RunConfig {
	cfg := engine.DefaultRunConfig()
	if s.RunParams.Periods > 0 {
		cfg.Periods = s.RunParams.Periods
	}
	if s.RunParams.Dampening > 0 {
		cfg.Dampening = s.RunParams.Dampening
	}
	if s.RunParams.Tolerance > 0 {
		cfg.Tolerance = s.RunParams.Tolerance
	}
	return cfg
}

// Build constructs the causal graph and engine the scenario describes.
func (s *Scenario) Build() (*engine.Engine, error) {
	g := graph.New()
	for _, vs := range s.Variables {
		vtype := graph.VariableType(vs.Type)
		if vs.Type == "" {
			vtype = graph.VariableEndogenous
		}
		v := &graph.Variable{
			Name:        vs.Name,
			Type:        vtype,
			Value:       vs.Value,
			Uncertainty: vs.Uncertainty,
			Description: vs.Description,
			Unit:        vs.Unit,
			Min:         vs.Min,
			Max:         vs.Max,
		}
		if err := g.AddVariable(v); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}

	eng, err := engine.New(g)
	if err != nil {
		return nil, err
	}

	for _, rs := range s.Relationships {
		rel := &graph.Relationship{
			Source:     rs.Source,
			Target:     rs.Target,
			Strength:   rs.Strength,
			Confidence: rs.Confidence,
			LagPeriods: rs.LagPeriods,
		}
		if err := g.AddRelationship(rel); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		if rs.Mechanism != nil {
			m, err := mechanism.New(mechanism.Kind(rs.Mechanism.Kind), rs.Mechanism.Params)
			if err != nil {
				return nil, fmt.Errorf("scenario %q, edge %s->%s: %w", s.Name, rs.Source, rs.Target, err)
			}
			if err := eng.SetMechanism(rs.Source, rs.Target, m); err != nil {
				return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
			}
		}
	}

	return eng, nil
}

// Run builds the scenario, propagates the shock, and evaluates the
// declared invariants.
func (s *Scenario) Run(ctx context.Context) (*Result, error) {
	eng, err := s.Build()
	if err != nil {
		return nil, err
	}
	results, err := eng.Propagate(ctx, s.ShockEvent(), s.RunConfig())
	if err != nil {
		return nil, err
	}

	res := &Result{
		ScenarioName: s.Name,
		Results:      results,
		Success:      true,
	}
	for _, inv := range s.Invariants {
		evaluated := evaluateInvariant(inv, results)
		res.Invariants = append(res.Invariants, evaluated)
		if !evaluated.Passed {
			res.Success = false
		}
	}
	return res, nil
}

func evaluateInvariant(inv Invariant, results *engine.Results) InvariantResult {
	out := InvariantResult{
		Metric:   inv.Metric,
		Variable: inv.Variable,
		Expected: fmt.Sprintf("%s %g", inv.Condition, inv.Value),
	}

	actual, err := metricValue(inv, results)
	if err != nil {
		out.Actual = "N/A"
		return out
	}
	out.Actual = fmt.Sprintf("%g", actual)

	switch inv.Condition {
	case ">":
		out.Passed = actual > inv.Value
	case ">=":
		out.Passed = actual >= inv.Value
	case "<":
		out.Passed = actual < inv.Value
	case "<=":
		out.Passed = actual <= inv.Value
	case "==":
		out.Passed = math.Abs(actual-inv.Value) < 1e-9
	}
	return out
}

func metricValue(inv Invariant, results *engine.Results) (float64, error) {
	switch inv.Metric {
	case "converged":
		if results.Converged {
			return 1, nil
		}
		return 0, nil
	case "final":
		finals := results.FinalValues()
		v, ok := finals[inv.Variable]
		if !ok {
			return 0, fmt.Errorf("variable %q not in results", inv.Variable)
		}
		return v, nil
	case "peak":
		peaks := results.PeakEffects()
		p, ok := peaks[inv.Variable]
		if !ok {
			return 0, fmt.Errorf("variable %q not in results", inv.Variable)
		}
		return p.Deviation, nil
	case "cumulative":
		return results.CumulativeImpact(inv.Variable)
	case "total_impact":
		return results.TotalAbsoluteImpact(), nil
	default:
		return 0, fmt.Errorf("unknown invariant metric %q", inv.Metric)
	}
}
