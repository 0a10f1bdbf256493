/*
Package history persists terminal rollout records.

Every rollout ends in exactly one terminal state, and that record is the
only artifact the orchestrator keeps. The history store writes it to an
embedded BoltDB database so operators can answer "what happened to the
last deploy of checkout?" without trawling CI logs.

# Architecture

	┌──────────────────── pkg/rollout ────────────────────────────┐
	│                                                              │
	│   result := controller.Run(ctx, req)                         │
	│   store.Record(result)                                       │
	│                                                              │
	└──────────────────────────┬───────────────────────────────┘
	                           │
	┌──────────────────────────▼──── pkg/history ─────────────────┐
	│                                                              │
	│   BoltDB (<dataDir>/rollouts.db)                             │
	│                                                              │
	│   bucket "rollouts":                                         │
	│     <rollout id> ──▶ JSON(types.RolloutResult)               │
	│                                                              │
	│   reads: Get, List, ListByService, LastByService             │
	│   (newest-first, sorted by StartedAt)                        │
	│                                                              │
	└──────────────────────────────────────────────────────────┘

# Usage

Recording a finished rollout:

	store, err := history.NewStore("/var/lib/rollout")
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Record(result); err != nil {
		// history failure never changes the rollout outcome;
		// log it and move on
	}

Inspecting past rollouts:

	recent, err := store.List(10)

	last, err := store.LastByService("checkout")
	if err == nil && last.FinalState == types.StateRolledBack {
		// the previous deploy of checkout went badly
	}

# Durability Semantics

Records are upserts keyed by rollout ID, so re-recording an amended result
is safe. The store is single-writer by construction (one CLI invocation per
service at a time); BoltDB's file lock turns concurrent invocations on one
data directory into a hard open error rather than silent corruption.

# Integration Points

This package integrates with:

  - pkg/types: RolloutResult is the stored record
  - pkg/rollout: records the result of every finished rollout
  - cmd/rollout: the history command reads back past records
*/
package history
