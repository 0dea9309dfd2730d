// Package metrics exposes the process's Prometheus collectors, following
// the teacher's metrics initialization pattern (cmd/cryptorun/main.go calls
// httpmetrics.InitializeMetrics() once at startup before serving). Counters
// here track run duration, provider call outcomes, candidates per tier and
// the cold-tape state instead of the
// teacher's HTTP-surface metrics, since this module has no HTTP surface of
// its own (§1 names the HTTP layer as an external collaborator).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RunDuration tracks end-to-end engine.Run wall-clock time.
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "squeezescout_run_duration_seconds",
		Help:    "Wall-clock duration of one discovery run.",
		Buckets: prometheus.DefBuckets,
	})

	// ProviderCallsTotal counts provider port calls by provider and outcome
	// ("hit" when a value is returned, "absent" otherwise).
	ProviderCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "squeezescout_provider_calls_total",
		Help: "Provider port calls by provider name and outcome.",
	}, []string{"provider", "outcome"})

	// CandidatesByTier counts candidates emitted per run by readiness tier.
	CandidatesByTier = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "squeezescout_candidates_total",
		Help: "Candidates emitted per run, labeled by readiness tier.",
	}, []string{"tier"})

	// ColdTapeActive reports 1 when the cold-tape detector is currently active.
	ColdTapeActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "squeezescout_cold_tape_active",
		Help: "1 if cold-tape relaxation is active for the most recent run, else 0.",
	})
)

// Register registers every collector with the default Prometheus registry.
// Call once at process startup, mirroring the teacher's InitializeMetrics.
func Register() {
	prometheus.MustRegister(RunDuration, ProviderCallsTotal, CandidatesByTier, ColdTapeActive)
}
