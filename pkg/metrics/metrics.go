package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Rollout metrics
	RolloutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollout_rollouts_total",
			Help: "Total number of rollouts by terminal state",
		},
		[]string{"state"},
	)

	RolloutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rollout_duration_seconds",
			Help:    "End-to-end rollout duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rollout_stage_duration_seconds",
			Help:    "Time spent in each rollout stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// Secret validation metrics
	SecretChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollout_secret_checks_total",
			Help: "Total number of secret reachability checks by outcome",
		},
		[]string{"outcome"},
	)

	// Probe metrics
	ProbeAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollout_probe_attempts_total",
			Help: "Total number of health probe attempts by result",
		},
		[]string{"result"},
	)

	ProbeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rollout_probe_duration_seconds",
			Help:    "Total probing time per candidate in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// Deploy metrics
	DeploysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollout_deploys_total",
			Help: "Total number of revision deploys by kind (create or update)",
		},
		[]string{"kind"},
	)

	// Traffic migration metrics
	TrafficShiftsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollout_traffic_shifts_total",
			Help: "Total number of traffic weight writes by outcome",
		},
		[]string{"outcome"},
	)

	RollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rollout_rollbacks_total",
			Help: "Total number of traffic restorations to the previous revision",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RolloutsTotal)
	prometheus.MustRegister(RolloutDuration)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(SecretChecksTotal)
	prometheus.MustRegister(ProbeAttemptsTotal)
	prometheus.MustRegister(ProbeDuration)
	prometheus.MustRegister(DeploysTotal)
	prometheus.MustRegister(TrafficShiftsTotal)
	prometheus.MustRegister(RollbacksTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
