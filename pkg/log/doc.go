/*
Package log provides structured logging for the rollout orchestrator using
zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level, so a rollout transcript can be replayed after the fact
without re-running in verbose mode.

# Architecture

	┌──────────────────── LOGGING SYSTEM ───────────────────┐
	│                                                        │
	│  ┌──────────────────────────────────────────┐          │
	│  │            Global Logger                 │          │
	│  │  - Zerolog instance                      │          │
	│  │  - Initialized via log.Init()            │          │
	│  │  - Thread-safe for concurrent use        │          │
	│  └──────────────────┬───────────────────────┘          │
	│                     │                                  │
	│  ┌──────────────────▼───────────────────────┐          │
	│  │           Configuration                  │          │
	│  │  - Level: debug/info/warn/error          │          │
	│  │  - Format: JSON or console (human)       │          │
	│  │  - Output: stderr, file, or custom       │          │
	│  └──────────────────┬───────────────────────┘          │
	│                     │                                  │
	│  ┌──────────────────▼───────────────────────┐          │
	│  │         Context Loggers                  │          │
	│  │  - WithComponent("rollout")              │          │
	│  │  - WithService("izerwaren-frontend")     │          │
	│  │  - WithRollout("8f14e45f")               │          │
	│  │  - WithRevision("frontend-8f14e45f")     │          │
	│  └──────────────────────────────────────────┘          │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init() from the CLI entry point
  - Defaults to stderr so rollout results on stdout stay machine-parseable

Log Levels:
  - Debug: per-attempt probe detail, raw platform responses
  - Info: state transitions, gate outcomes (default production level)
  - Warn: recoverable oddities (stale weights re-read, restore retried)
  - Error: gate failures that decide the terminal state
  - Fatal: unusable configuration (process exits)

Context Loggers:
  - WithComponent: names the pipeline component (secrets, probe, deployer,
    migrator, rollout)
  - WithService / WithRollout / WithRevision: correlate one rollout's lines
    across components

# Usage

Initializing (done once, in cmd/rollout):

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: jsonFlag,
	})

Component loggers:

	logger := log.WithComponent("migrator")
	logger.Info().
		Str("service", service).
		Str("revision", tag).
		Int("percent", target).
		Msg("shifting traffic")

Transition logging in the controller:

	logger.Info().
		Str("from", string(prev)).
		Str("to", string(next)).
		Msg("state transition")

# Design Notes

Every state transition and every gate outcome is logged with the fields an
operator needs to act (service, revision tag, offending secret or error),
matching the propagation policy: components return structured outcomes, the
controller logs and converts them into the terminal state.

# Integration Points

  - cmd/rollout: initializes the logger from --log-level / --log-json flags
  - pkg/rollout: transition and terminal-state logging
  - pkg/secrets, pkg/probe, pkg/deployer, pkg/migrator: component loggers
*/
package log
