/*
Package migrator moves production traffic between revisions of a service.

The migrator is the only component allowed to raise a revision's traffic
weight. Everything before it in the pipeline works on zero-traffic
candidates; everything after it deals with the consequences. It owns three
operations: the idempotent single shift, the staged promotion built on top
of it, and the rollback that restores the previous revision after a
promotion dies halfway.

# Architecture

	┌──────────────────── pkg/rollout ────────────────────────────┐
	│                                                              │
	│   Promote(ctx, service, candidate)                           │
	│        │ *TrafficShiftError{Applied > 0}                     │
	│        ▼                                                     │
	│   Rollback(ctx, service, previous)                           │
	│                                                              │
	└──────────────────────────┬───────────────────────────────┘
	                           │
	┌──────────────────────────▼──── pkg/migrator ────────────────┐
	│                                                              │
	│   ShiftTraffic(service, target, percent):                    │
	│                                                              │
	│     DescribeService ──▶ target at percent? ──yes──▶ no-op   │
	│                           │no                                │
	│                           ▼                                  │
	│     SetTrafficWeights({target: percent,                      │
	│                        serving: 100-percent})                │
	│                                                              │
	└──────────────────────────┬───────────────────────────────┘
	                           │ platform.API
	                           ▼
	                    platform admin API

# Idempotence

Every shift reads the current weights before writing. A target already at
the requested percent produces no write, so retrying a shift with identical
arguments is safe: two calls, one effective write. This matters because the
read-then-write is not transactional; the protection assumes rollouts are
serialized per service by the caller.

# Partial Failure

A failed shift carries how far it got. TrafficShiftError.Applied is the
percent the target revision holds despite the failure:

	Applied == 0   nothing moved; the serving revision kept everything
	               and the rollout can simply abort
	Applied > 0    users are split across revisions; the caller must
	               Rollback to restore the previous revision to 100%

Staged promotions are where partial failure gets real: Promote with steps
{50} writes 50% then 100%, and a rejection of the second write leaves the
candidate holding half of production. Rollback always bypasses stages —
recovery is one immediate write, never a gradual walk back.

# Usage

Single cutover (the default):

	m := migrator.NewMigrator(client)
	if err := m.Promote(ctx, "checkout", candidate.Tag); err != nil {
		var shiftErr *migrator.TrafficShiftError
		if errors.As(err, &shiftErr) && shiftErr.Applied > 0 {
			_ = m.Rollback(ctx, "checkout", previous)
		}
	}

Staged promotion:

	m := migrator.NewMigrator(client).WithSteps([]int{10, 50})
	// Promote writes 10%, 50%, then 100%

# Integration Points

This package integrates with:

  - pkg/platform: DescribeService for reads, SetTrafficWeights for writes
  - pkg/rollout: drives Promote and Rollback from the migrating stage
  - pkg/metrics: rollout_traffic_shifts_total, rollout_rollbacks_total
  - pkg/log: per-shift structured logging
*/
package migrator
