package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/econlab/ripple/pkg/engine"
)

// TrajectoryReport generates a CSV table of every variable's value and
// uncertainty per period, one row per (period, variable).
type TrajectoryReport struct{}

// NewTrajectoryReport creates a new TrajectoryReport generator.
func NewTrajectoryReport() *TrajectoryReport {
	return &TrajectoryReport{}
}

// Generate creates the trajectory CSV.
func (r *TrajectoryReport) Generate(ctx context.Context, results *engine.Results, params ReportParams) (io.Reader, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{"period", "variable", "value", "uncertainty"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	names, err := selectVariables(results, params)
	if err != nil {
		return nil, err
	}

	periods := results.Meta.PeriodsRun
	for t := 0; t <= periods; t++ {
		for _, name := range names {
			series := results.TimeSeries[name]
			if t >= len(series) {
				continue
			}
			unc := 0.0
			if u := results.UncertaintySeries[name]; t < len(u) {
				unc = u[t]
			}
			row := []string{
				strconv.Itoa(t),
				name,
				formatFloat(series[t]),
				formatFloat(unc),
			}
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}

	return buf, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func selectVariables(results *engine.Results, params ReportParams) ([]string, error) {
	if len(params.Variables) == 0 {
		return results.Variables(), nil
	}
	for _, name := range params.Variables {
		if _, ok := results.TimeSeries[name]; !ok {
			return nil, fmt.Errorf("unknown variable %q", name)
		}
	}
	return params.Variables, nil
}
