// Package metrics registers the Prometheus series the simulator
// exposes for the ABR engine, following the same Namespace +
// Register(prometheus.Registerer) pattern used across this
// codebase's other services.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BandwidthEstimateBps = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "abr",
		Name:      "bandwidth_estimate_bps",
		Help:      "Current BWE bits/s estimate.",
	})

	CurrentQualityIndex = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "abr",
		Name:      "current_quality_index",
		Help:      "Currently selected rendition ladder index.",
	})

	CatchupRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "abr",
		Name:      "catchup_playback_rate",
		Help:      "Currently applied live catch-up playback rate.",
	})

	ActiveRule = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "abr",
		Name:      "active_rule",
		Help:      "1 for the currently active rule tag, 0 otherwise.",
	}, []string{"rule"})

	RuleSwitchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "abr",
		Name:      "rule_switches_total",
		Help:      "Total number of active-rule tag changes.",
	})

	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "abr",
		Name:      "decisions_total",
		Help:      "Total nextAutoLevel decisions by active rule tag.",
	}, []string{"rule"})

	EmergencyAbortsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "abr",
		Name:      "emergency_aborts_total",
		Help:      "Total number of emergency fragment-abandonment aborts.",
	})

	DecisionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "abr",
		Name:      "decision_latency_seconds",
		Help:      "Wall-clock time spent computing one nextAutoLevel decision.",
		Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
	})
)

// Register registers every series with reg. Call once at process
// startup before the first decision is recorded.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		BandwidthEstimateBps,
		CurrentQualityIndex,
		CatchupRate,
		ActiveRule,
		RuleSwitchesTotal,
		DecisionsTotal,
		EmergencyAbortsTotal,
		DecisionLatency,
	)
}
