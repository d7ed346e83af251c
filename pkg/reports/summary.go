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

// SummaryReport generates a per-variable CSV of final value, peak
// deviation and when it occurred, and cumulative impact.
type SummaryReport struct{}

// NewSummaryReport creates a new SummaryReport generator.
func NewSummaryReport() *SummaryReport {
	return &SummaryReport{}
}

// Generate creates the summary CSV.
func (r *SummaryReport) Generate(ctx context.Context, results *engine.Results, params ReportParams) (io.Reader, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{"variable", "initial", "final", "peak_deviation", "peak_period", "cumulative_impact"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	names, err := selectVariables(results, params)
	if err != nil {
		return nil, err
	}

	finals := results.FinalValues()
	peaks := results.PeakEffects()

	for _, name := range names {
		cumulative, err := results.CumulativeImpact(name)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize %s: %w", name, err)
		}
		peak := peaks[name]
		row := []string{
			name,
			formatFloat(results.TimeSeries[name][0]),
			formatFloat(finals[name]),
			formatFloat(peak.Deviation),
			strconv.Itoa(peak.Period),
			formatFloat(cumulative),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}

	return buf, nil
}
