package engine

import (
	"fmt"
	"math"
	"sort"
)

// Outcome is the terminal state of a propagation run.
type Outcome string

const (
	// OutcomeConverged means every variable's period-over-period change
	// fell below the tolerance before the horizon was consumed.
	OutcomeConverged Outcome = "converged"
	// OutcomeExhausted means the horizon was consumed without meeting
	// the convergence test. This is a valid result, not an error.
	OutcomeExhausted Outcome = "exhausted"
)

// RunMeta carries aggregate information about a completed run.
type RunMeta struct {
	NumVariables     int `json:"num_variables"`
	NumRelationships int `json:"num_relationships"`
	NumEnhanced      int `json:"num_enhanced"`
	PeriodsRun       int `json:"periods_run"`
}

// Results is the immutable output of one propagation run: a full time
// series and uncertainty series per variable (uniform length Periods+1,
// period 0 being the pre-propagation state), plus derived summaries.
// All query methods are pure reads.
type Results struct {
	TimeSeries        map[string][]float64 `json:"time_series"`
	UncertaintySeries map[string][]float64 `json:"uncertainty_series"`
	Shock             ShockEvent           `json:"shock"`
	Periods           int                  `json:"periods"`
	Dampening         float64              `json:"dampening"`
	Tolerance         float64              `json:"tolerance"`
	Converged         bool                 `json:"converged"`
	Meta              RunMeta              `json:"meta"`
}

// Outcome returns the terminal state the run reached.
func (r *Results) Outcome() Outcome {
	if r.Converged {
		return OutcomeConverged
	}
	return OutcomeExhausted
}

// Trajectory returns the full series for one variable.
func (r *Results) Trajectory(variable string) ([]float64, error) {
	series, ok := r.TimeSeries[variable]
	if !ok {
		return nil, fmt.Errorf("variable %q not in results", variable)
	}
	return series, nil
}

// FinalValues returns the last-period value of every variable.
func (r *Results) FinalValues() map[string]float64 {
	finals := make(map[string]float64, len(r.TimeSeries))
	for name, series := range r.TimeSeries {
		if len(series) > 0 {
			finals[name] = series[len(series)-1]
		}
	}
	return finals
}

// PeakEffect is the largest deviation a variable showed from its
// period-0 value, signed, together with the period it occurred in.
type PeakEffect struct {
	Deviation float64 `json:"deviation"`
	Period    int     `json:"period"`
}

// PeakEffects returns, per variable, the signed value of the maximum
// absolute deviation from the period-0 value and when it occurred.
// Ties resolve to the earliest period.
func (r *Results) PeakEffects() map[string]PeakEffect {
	peaks := make(map[string]PeakEffect, len(r.TimeSeries))
	for name, series := range r.TimeSeries {
		if len(series) == 0 {
			continue
		}
		base := series[0]
		peak := PeakEffect{}
		for t, v := range series {
			if dev := v - base; math.Abs(dev) > math.Abs(peak.Deviation) {
				peak = PeakEffect{Deviation: dev, Period: t}
			}
		}
		peaks[name] = peak
	}
	return peaks
}

// CumulativeImpact sums the signed deviation from the period-0 value
// over all periods for one variable.
func (r *Results) CumulativeImpact(variable string) (float64, error) {
	series, ok := r.TimeSeries[variable]
	if !ok {
		return 0, fmt.Errorf("variable %q not in results", variable)
	}
	if len(series) == 0 {
		return 0, nil
	}
	base := series[0]
	total := 0.0
	for _, v := range series[1:] {
		total += v - base
	}
	return total, nil
}

// TotalAbsoluteImpact aggregates |cumulative impact| across every
// variable, a network-wide measure of how much the shock moved.
func (r *Results) TotalAbsoluteImpact() float64 {
	total := 0.0
	for name := range r.TimeSeries {
		impact, _ := r.CumulativeImpact(name)
		total += math.Abs(impact)
	}
	return total
}

// Variables returns the variable names present in the results, sorted.
func (r *Results) Variables() []string {
	names := make([]string, 0, len(r.TimeSeries))
	for name := range r.TimeSeries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
