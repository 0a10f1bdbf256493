/*
Package metrics provides Prometheus metrics collection and exposition for the
rollout orchestrator.

The metrics package defines and registers all rollout metrics using the
Prometheus client library, providing observability into rollout outcomes,
stage latency, gate results, and traffic migration behavior. Metrics are
exposed via an optional HTTP endpoint for scraping during long rollouts.

# Architecture

	┌──────────────────── METRICS SYSTEM ────────────────────┐
	│                                                         │
	│  ┌──────────────────────────────────────────┐           │
	│  │          Prometheus Registry             │           │
	│  │  - Global DefaultRegistry                │           │
	│  │  - MustRegister at package init          │           │
	│  │  - Automatic Go runtime metrics          │           │
	│  └──────────────────┬───────────────────────┘           │
	│                     │                                   │
	│  ┌──────────────────▼───────────────────────┐           │
	│  │           Metric Categories              │           │
	│  │                                          │           │
	│  │  Rollouts: count by terminal state,      │           │
	│  │            end-to-end duration           │           │
	│  │  Stages: per-stage duration histogram    │           │
	│  │  Gates: secret checks, probe attempts    │           │
	│  │  Deploys: create vs update counts        │           │
	│  │  Traffic: weight writes, rollbacks       │           │
	│  └──────────────────┬───────────────────────┘           │
	│                     │                                   │
	│  ┌──────────────────▼───────────────────────┐           │
	│  │          HTTP Metrics Endpoint           │           │
	│  │  - Path: /metrics (--metrics-addr flag)  │           │
	│  │  - Format: Prometheus text exposition    │           │
	│  │  - Handler: promhttp.Handler()           │           │
	│  └──────────────────────────────────────────┘           │
	└─────────────────────────────────────────────────────────┘

# Metric Inventory

Counters:
  - rollout_rollouts_total{state}: terminal states (succeeded, aborted,
    rolled_back)
  - rollout_secret_checks_total{outcome}: reachable vs unreachable
  - rollout_probe_attempts_total{result}: success vs failure per attempt
  - rollout_deploys_total{kind}: create vs update
  - rollout_traffic_shifts_total{outcome}: applied, noop, failed
  - rollout_rollbacks_total: restorations of the previous revision

Histograms:
  - rollout_duration_seconds: end-to-end rollout time
  - rollout_stage_duration_seconds{stage}: per-stage time
  - rollout_probe_duration_seconds: total probing time per candidate

# Usage

Timing a stage:

	timer := metrics.NewTimer()
	// ... run the stage ...
	timer.ObserveDurationVec(metrics.StageDuration, "deploying")

Counting a terminal state:

	metrics.RolloutsTotal.WithLabelValues(string(res.FinalState)).Inc()

Exposing the endpoint (only when --metrics-addr is set; a single-step
rollout normally finishes before any scraper would visit):

	http.Handle("/metrics", metrics.Handler())
	go http.ListenAndServe(addr, nil)

# Integration Points

  - pkg/rollout: stage timers, terminal-state counter, rollback counter
  - pkg/secrets: secret check outcomes
  - pkg/probe: per-attempt results and total probe duration
  - pkg/deployer: create/update counter
  - pkg/migrator: weight-write outcomes
  - cmd/rollout: serves the endpoint when --metrics-addr is given
*/
package metrics
