package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a run ID has no row.
var ErrNotFound = errors.New("run not found")

// Run is the persisted record of one propagation run.
type Run struct {
	RunID        string    `json:"run_id"`
	ScenarioName string    `json:"scenario_name"`
	Digest       string    `json:"digest,omitempty"`
	ShockTarget  string    `json:"shock_target"`
	Magnitude    float64   `json:"magnitude"`
	Periods      int       `json:"periods"`
	Dampening    float64   `json:"dampening"`
	Converged    bool      `json:"converged"`
	PeriodsRun   int       `json:"periods_run"`
	CreatedAt    time.Time `json:"created_at"`

	// Full trajectories, keyed by variable name. Populated by GetRun;
	// ListRuns returns only the row metadata.
	TimeSeries        map[string][]float64 `json:"time_series,omitempty"`
	UncertaintySeries map[string][]float64 `json:"uncertainty_series,omitempty"`
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	ScenarioName string
	ShockTarget  string
	Since        time.Time
	Limit        int
}
