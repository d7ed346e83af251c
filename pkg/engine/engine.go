// Package engine implements multi-period shock propagation over a causal
// economic graph: lag buffers for delayed effects, mechanism-shaped edge
// transfers, increment dampening for stability, and convergence detection.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/econlab/ripple/pkg/graph"
	"github.com/econlab/ripple/pkg/mechanism"
)

// ErrNumericFault marks a run aborted because a mechanism produced NaN
// or an overflow. The partial series is discarded: a faulted economic
// time series is misleading rather than merely incomplete.
var ErrNumericFault = errors.New("numeric fault during propagation")

// RunConfig bounds one propagation run.
type RunConfig struct {
	// Periods is the simulation horizon. Series carry Periods+1 entries,
	// index 0 being the pre-propagation state.
	Periods int `json:"periods"`
	// Dampening in (0, 1] attenuates each period's increment, not the
	// absolute level, so feedback-free amplification cannot run away
	// while the level the system converges toward is preserved.
	Dampening float64 `json:"dampening"`
	// Tolerance is the absolute per-period change below which every
	// variable must stay for the run to count as converged.
	Tolerance float64 `json:"tolerance"`
}

// DefaultRunConfig mirrors the defaults of the original policy-analysis
// workflows: a 12-period horizon with mild dampening.
func DefaultRunConfig() RunConfig {
	return RunConfig{Periods: 12, Dampening: 0.95, Tolerance: 1e-6}
}

func (c RunConfig) validate() error {
	if c.Periods <= 0 {
		return fmt.Errorf("periods must be positive, got %d", c.Periods)
	}
	if c.Dampening <= 0 || c.Dampening > 1 {
		return fmt.Errorf("dampening factor must be in (0, 1], got %g", c.Dampening)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("convergence tolerance must be positive, got %g", c.Tolerance)
	}
	return nil
}

type edgeKey struct {
	source, target string
}

// Engine propagates shocks through a causal graph. The graph and the
// mechanism assignments are read-only during runs, so one Engine may
// serve multiple concurrent Propagate calls; each run owns its own lag
// buffers and results.
type Engine struct {
	graph    *graph.Graph
	enhanced map[edgeKey]*mechanism.EnhancedRelationship
}

// New creates an engine over a validated DAG. Acyclicity is the graph's
// guarantee; the engine never re-checks it.
func New(g *graph.Graph) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("engine requires a causal graph")
	}
	return &Engine{
		graph:    g,
		enhanced: make(map[edgeKey]*mechanism.EnhancedRelationship),
	}, nil
}

// Graph returns the engine's underlying causal graph.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// SetMechanism upgrades the edge source->target to propagate through the
// given mechanism instead of the default linear transfer. The edge must
// already exist in the graph.
func (e *Engine) SetMechanism(source, target string, m mechanism.Mechanism) error {
	rel, ok := e.graph.Relationship(source, target)
	if !ok {
		return fmt.Errorf("no relationship exists from %q to %q", source, target)
	}
	enh, err := mechanism.NewEnhancedRelationship(rel, m)
	if err != nil {
		return err
	}
	e.enhanced[edgeKey{source, target}] = enh
	return nil
}

// NumEnhanced returns how many edges carry a non-default mechanism.
func (e *Engine) NumEnhanced() int { return len(e.enhanced) }

// effect applies the edge's transfer function to an input magnitude:
// the assigned mechanism if one exists, otherwise plain linear strength.
func (e *Engine) effect(rel *graph.Relationship, input float64) float64 {
	if enh, ok := e.enhanced[edgeKey{rel.Source, rel.Target}]; ok {
		return enh.ApplyCausalEffect(input)
	}
	return rel.Strength * input
}

// pending is one lag-buffer entry: a transformed contribution waiting
// for its arrival period.
type pending struct {
	arrival   int
	magnitude float64
}

// Propagate runs the shock through the graph for cfg.Periods periods and
// returns the full time series. Configuration and structural errors fail
// before period 0; numeric faults abort the run and discard the partial
// series. Cancellation is cooperative at period granularity.
func (e *Engine) Propagate(ctx context.Context, shock ShockEvent, cfg RunConfig) (*Results, error) {
	if err := shock.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if _, ok := e.graph.Variable(shock.Target); !ok {
		return nil, fmt.Errorf("shock target %q not found in graph", shock.Target)
	}
	for key := range e.enhanced {
		if _, ok := e.graph.Relationship(key.source, key.target); !ok {
			return nil, fmt.Errorf("enhanced relationship %s->%s no longer exists in graph", key.source, key.target)
		}
	}

	order := e.graph.TopologicalOrder()

	// Period 0: each variable at its current value, the shock target
	// additionally receiving the period-0 injection.
	baseline := make(map[string]float64, len(order))
	series := make(map[string][]float64, len(order))
	uncSeries := make(map[string][]float64, len(order))
	for _, name := range order {
		v, _ := e.graph.Variable(name)
		baseline[name] = v.Value
		s := make([]float64, cfg.Periods+1)
		u := make([]float64, cfg.Periods+1)
		s[0] = v.Value
		u[0] = v.Uncertainty
		if name == shock.Target {
			s[0] = v.Clip(s[0] + shock.InjectionAt(0))
			u[0] = quadrature(u[0], shock.UncertaintyAt(0))
		}
		series[name] = s
		uncSeries[name] = u
	}

	buffers := make(map[edgeKey][]pending)
	converged := false
	periodsRun := 0

	for t := 1; t <= cfg.Periods; t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("propagation cancelled at period %d: %w", t, err)
		}
		periodsRun = t

		for _, name := range order {
			s := series[name]
			u := uncSeries[name]

			exo := 0.0
			shockUnc := 0.0
			if name == shock.Target {
				exo = shock.InjectionAt(t)
				shockUnc = shock.UncertaintyAt(t)
			}

			edgeSum := 0.0
			uncSq := 0.0
			for _, rel := range e.graph.RelationshipsInto(name) {
				src := series[rel.Source]
				// The most recent completed change of the predecessor:
				// at t=1 that is the period-0 change, i.e. the shock
				// injection measured against the pre-shock baseline.
				var delta float64
				if t == 1 {
					delta = src[0] - baseline[rel.Source]
				} else {
					delta = src[t-1] - src[t-2]
				}

				key := edgeKey{rel.Source, rel.Target}
				eff := e.effect(rel, delta)
				edgeEvaluations.Inc()
				if math.IsNaN(eff) || math.IsInf(eff, 0) {
					propagationRuns.WithLabelValues(outcomeFault).Inc()
					return nil, fmt.Errorf("%w: edge %s->%s produced %g at period %d (input %g)",
						ErrNumericFault, rel.Source, rel.Target, eff, t, delta)
				}
				buffers[key] = append(buffers[key], pending{arrival: t - 1 + rel.LagPeriods, magnitude: eff})

				// Everything due by now arrives as this edge's
				// contribution; lag-0 entries arrive immediately.
				contribution := 0.0
				remaining := buffers[key][:0]
				for _, p := range buffers[key] {
					if p.arrival <= t {
						contribution += p.magnitude
					} else {
						remaining = append(remaining, p)
					}
				}
				buffers[key] = remaining

				edgeSum += contribution
				edgeUnc := (1 - rel.Confidence) * math.Abs(contribution)
				uncSq += edgeUnc * edgeUnc
			}

			raw := s[t-1] + exo + edgeSum
			next := s[t-1] + cfg.Dampening*(raw-s[t-1])
			if math.IsNaN(next) || math.IsInf(next, 0) {
				propagationRuns.WithLabelValues(outcomeFault).Inc()
				return nil, fmt.Errorf("%w: variable %q reached %g at period %d",
					ErrNumericFault, name, next, t)
			}
			v, _ := e.graph.Variable(name)
			s[t] = v.Clip(next)
			u[t] = math.Sqrt(u[t-1]*u[t-1] + uncSq + shockUnc*shockUnc)
		}

		if t >= 2 {
			maxChange := 0.0
			for _, name := range order {
				if change := math.Abs(series[name][t] - series[name][t-1]); change > maxChange {
					maxChange = change
				}
			}
			if maxChange < cfg.Tolerance {
				converged = true
				// Hold the last value so every series keeps uniform length.
				for _, name := range order {
					s, u := series[name], uncSeries[name]
					for pad := t + 1; pad <= cfg.Periods; pad++ {
						s[pad] = s[t]
						u[pad] = u[t]
					}
				}
				break
			}
		}
	}

	results := &Results{
		TimeSeries:        series,
		UncertaintySeries: uncSeries,
		Shock:             shock,
		Periods:           cfg.Periods,
		Dampening:         cfg.Dampening,
		Tolerance:         cfg.Tolerance,
		Converged:         converged,
		Meta: RunMeta{
			NumVariables:     e.graph.NumVariables(),
			NumRelationships: e.graph.NumRelationships(),
			NumEnhanced:      len(e.enhanced),
			PeriodsRun:       periodsRun,
		},
	}

	propagationRuns.WithLabelValues(string(results.Outcome())).Inc()
	propagationPeriods.Observe(float64(periodsRun))
	return results, nil
}

func quadrature(a, b float64) float64 {
	return math.Sqrt(a*a + b*b)
}
