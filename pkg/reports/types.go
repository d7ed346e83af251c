// Package reports renders propagation results into exportable formats:
// per-period trajectory tables and per-variable impact summaries.
package reports

import (
	"context"
	"io"

	"github.com/econlab/ripple/pkg/engine"
)

type ReportType string

const (
	ReportTypeTrajectory ReportType = "trajectory"
	ReportTypeSummary    ReportType = "summary"
)

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
)

// ReportParams narrows what a generator includes.
type ReportParams struct {
	// Variables restricts output to the named variables; empty means all.
	Variables []string
}

type Generator interface {
	Generate(ctx context.Context, results *engine.Results, params ReportParams) (io.Reader, error)
}
