/*
Package probe decides whether a candidate revision is fit to receive
traffic.

After the deployer creates a zero-traffic candidate, the prober polls its
URL until the service answers with a 2xx status or the attempt budget runs
out. The verdict gates the traffic shift: only a healthy outcome lets the
rollout proceed, and because the candidate holds no traffic yet, a failed
verdict costs users nothing.

# Architecture

	┌──────────────────── pkg/rollout ────────────────────────────┐
	│                                                              │
	│   outcome := prober.Probe(ctx, candidate.URL, req.HealthCheck)
	│   if !outcome.Healthy() { abort, candidate keeps 0% }        │
	│                                                              │
	└──────────────────────────┬───────────────────────────────┘
	                           │
	┌──────────────────────────▼──── pkg/probe ───────────────────┐
	│                                                              │
	│   attempt 1 ──▶ GET url+path ──▶ 2xx?  ──yes──▶ healthy     │
	│       │                           │no                        │
	│       │        sleep RetryInterval▼                          │
	│   attempt 2 ──▶ GET url+path ──▶ 2xx?  ──yes──▶ healthy     │
	│       │                           │no                        │
	│      ...                         ...                         │
	│   attempt N ──▶ GET url+path ──▶ 2xx?  ──no───▶ timeout     │
	│                                                              │
	└──────────────────────────────────────────────────────────┘

# Verdicts

The probe returns a HealthOutcome, never an error:

	healthy    - some attempt answered 2xx; traffic may shift
	timeout    - every attempt failed; the candidate never came up
	unhealthy  - probing could not run or was cut short (malformed
	             URL, context cancelled mid-probe)

Redirects and client errors are failures: a 301 from a misconfigured
candidate is not health. Connection errors count as attempts and are
retried like bad statuses, since a booting service commonly refuses
connections before its listener is up.

A malformed candidate URL fails immediately with zero attempts. Waiting
out the full retry budget against an unparseable target would only delay
the inevitable abort.

# Usage

	prober := probe.NewProber()

	outcome := prober.Probe(ctx, "https://cand.example.com", types.HealthCheck{
		Path:           "/healthz",
		AttemptTimeout: 10 * time.Second,
		MaxAttempts:    10,
		RetryInterval:  3 * time.Second,
	})

	if !outcome.Healthy() {
		// candidate stays at 0% traffic
		fmt.Printf("candidate failed: %s after %d attempts\n",
			outcome.Status, outcome.Attempts)
	}

Probing an endpoint that requires a header:

	prober := probe.NewProber().
		WithHeader("Authorization", "Bearer "+token)

# Integration Points

This package integrates with:

  - pkg/types: HealthCheck config and HealthOutcome verdict
  - pkg/rollout: gates the migration stage on the verdict
  - pkg/metrics: rollout_probe_attempts_total, rollout_probe_duration_seconds
  - pkg/log: per-attempt debug logging
*/
package probe
