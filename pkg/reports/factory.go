package reports

import (
	"fmt"
)

// NewReportGenerator creates a report generator based on the report type.
func NewReportGenerator(reportType ReportType) (Generator, error) {
	switch reportType {
	case ReportTypeTrajectory:
		return NewTrajectoryReport(), nil
	case ReportTypeSummary:
		return NewSummaryReport(), nil
	default:
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}
}
