package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

const outcomeFault = "fault"

var (
	// propagationRuns counts completed runs by terminal outcome
	// (converged, exhausted, fault).
	propagationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripple_propagation_runs_total",
			Help: "Total number of shock propagation runs by outcome",
		},
		[]string{"outcome"},
	)

	// propagationPeriods observes how many periods each run computed
	// before converging or exhausting its horizon.
	propagationPeriods = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ripple_propagation_periods",
			Help:    "Periods computed per propagation run",
			Buckets: prometheus.LinearBuckets(2, 4, 10),
		},
	)

	// edgeEvaluations counts mechanism/transfer applications across runs.
	edgeEvaluations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ripple_edge_evaluations_total",
			Help: "Total causal edge transfer evaluations",
		},
	)

	// riskScans counts systemic risk scans, each of which fans out into
	// one run per candidate shock source.
	riskScans = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ripple_systemic_risk_scans_total",
			Help: "Total systemic risk scans",
		},
	)
)

func init() {
	prometheus.MustRegister(propagationRuns)
	prometheus.MustRegister(propagationPeriods)
	prometheus.MustRegister(edgeEvaluations)
	prometheus.MustRegister(riskScans)
}
