/*
Package rollout implements the controller that drives a deployment through
its lifecycle: secret validation, service discovery, zero-traffic deploy,
health probing, traffic migration, and rollback.

The Controller owns the rollout state machine. Every other pipeline
component reports facts (a secret is unreachable, a probe never passed, a
weight write failed); only the Controller converts those facts into
terminal states. A Controller instance drives exactly one rollout and is
then spent.

Callers must serialize rollouts per service. Traffic weights are read and
then written without a platform-side transaction, so two controllers
working the same service concurrently race; nothing in this package
detects or prevents that.

# Architecture

	┌──────────────────────── CONTROLLER ────────────────────────┐
	│                                                             │
	│   init                                                      │
	│    │                                                        │
	│    ▼                                                        │
	│   validating_secrets ──── unreachable secret ──► aborted    │
	│    │  (SecretValidator)                                     │
	│    ▼                                                        │
	│   discovering ─────────── platform error ──────► aborted    │
	│    │  (Discoverer)                                          │
	│    ▼                                                        │
	│   deploying ───────────── deploy rejected ─────► aborted    │
	│    │  (Deployer, candidate pinned at 0%)                    │
	│    ▼                                                        │
	│   health_checking ─────── probe never 2xx ─────► aborted    │
	│    │  (Prober)            (candidate kept at 0%)            │
	│    ▼                                                        │
	│   migrating ──┬── failed, 0% applied ──────────► aborted    │
	│    │          └── failed, >0% applied ─┐                    │
	│    ▼                                   ▼                    │
	│   succeeded                        rolled_back              │
	│                          (previous restored to 100%)        │
	└─────────────────────────────────────────────────────────────┘

# Core Components

Controller:
  - Sequences the six stages and enforces their order
  - Maps stage failures to terminal states and failure kinds
  - Publishes progress events and records the terminal result
  - Observes per-stage and end-to-end durations

Collaborator interfaces:
  - SecretValidator: checks secret reachability before any mutation
  - Discoverer: reads current service state (create vs update)
  - Deployer: pushes the zero-traffic candidate revision
  - Prober: decides candidate fitness via HTTP probing
  - TrafficMigrator: promotes the candidate and restores on failure
  - Recorder: persists the terminal RolloutResult

# Terminal States

succeeded:
  - Candidate serves 100% of traffic
  - ServingRevision is the candidate tag

aborted:
  - Nothing moved: the previously serving revision kept all traffic
  - A deployed candidate stays at 0% for inspection, never deleted
  - FailureKind says which gate stopped the rollout

rolled_back:
  - Traffic partially shifted before a write failed
  - The previous revision was restored to 100%
  - A failed restore keeps the state and flags manual intervention
    in the Reason

# Cancellation

Context cancellation is checked at every stage boundary and surfaces as
FailureCancelled. A cancellation that lands after traffic has partially
shifted still triggers the restore: the rollback runs on a context
detached from the caller's, bounded by its own timeout, so an operator
abort cannot strand users on a half-shifted candidate.

# Usage

Wiring the pipeline:

	api := platform.NewClient(baseURL, project, region)
	ctrl := rollout.New(
		api,
		secrets.NewValidator(secrets.NewHTTPStore(secretsURL, project)),
		deployer.NewDeployer(api),
		probe.NewProber(),
		migrator.NewMigrator(api),
	).WithHistory(store).WithBroker(broker)

	res, err := ctrl.Run(ctx, req)
	if err != nil {
		// Controller misuse (reuse, nil request); rollout outcomes
		// never arrive here.
		log.Fatal(err)
	}

	os.Exit(res.ExitCode())

Reading the outcome:

	switch res.FinalState {
	case types.StateSucceeded:
		fmt.Println("serving:", res.ServingRevision)
	case types.StateAborted:
		fmt.Println("aborted:", res.Reason)
	case types.StateRolledBack:
		fmt.Println("rolled back:", res.Reason)
	}

# Integration Points

This package integrates with:

  - pkg/secrets: gates the rollout on secret reachability
  - pkg/platform: discovers current service state
  - pkg/deployer: deploys the candidate revision
  - pkg/probe: health-checks the candidate
  - pkg/migrator: shifts and restores traffic
  - pkg/history: persists terminal results
  - pkg/events: publishes rollout progress events
  - pkg/metrics: stage durations and terminal state counters

# Monitoring

Key metrics:

  - rollout_rollouts_total{state}: terminal states over time
  - rollout_duration_seconds: end-to-end rollout latency
  - rollout_stage_duration_seconds{stage}: where rollouts spend time
  - rollout_rollbacks_total: restores after partial shifts

# See Also

  - pkg/types for RolloutResult and the state and failure enums
  - pkg/manifest for building a DeploymentRequest from YAML
  - cmd/rollout for the CLI front-end
*/
package rollout
