/*
Package types defines the core data structures used throughout the rollout
orchestrator.

This package contains the domain model for promoting a service image into
production traffic: the immutable deployment request, the discovered service
state, revision handles, gate outcomes (secret checks, health probes), and
the terminal rollout result. All other packages consume these types; none of
them are mutated after construction except where explicitly noted.

# Architecture

The types package sits at the bottom of the dependency graph:

	┌──────────────────────────────────────────────────────────┐
	│                     Rollout Pipeline                      │
	│                                                           │
	│  DeploymentRequest ──► SecretCheckResult (gate)           │
	│          │                                                │
	│          ▼                                                │
	│   ServiceState ──► RevisionHandle ──► HealthOutcome (gate)│
	│                          │                                │
	│                          ▼                                │
	│                    RolloutResult (terminal record)        │
	└──────────────────────────────────────────────────────────┘

Ownership passes linearly down the pipeline: the request is read-only, the
service state is read once during discovery, the revision handle is produced
by the deployer and passed by reference to the prober and migrator, and the
result is written exactly once by the controller.

# Core Types

Input:
  - DeploymentRequest: service name, image reference, project/region scope,
    secret references, env, port, and resource limits. Built once per
    invocation; never mutated.
  - Resources: memory, CPU, concurrency, instance min/max, request timeout.
  - HealthCheck: probe path, per-attempt timeout, max attempts, retry
    interval.

Gate outcomes:
  - SecretCheckResult: per-secret reachability with failure detail.
  - HealthOutcome: healthy | unhealthy | timeout with attempts, elapsed
    time, and the last HTTP status or error observed.

Rollout bookkeeping:
  - ServiceState: absent, or present with the serving revision and its
    traffic weights.
  - RevisionHandle: the candidate revision's tag and URL; traffic weight is
    zero from creation until the migrator explicitly raises it.
  - RolloutState / FailureKind: the state machine vocabulary.
  - RolloutResult: final state, the revision left serving traffic, and a
    human-readable reason. The only artifact persisted for the caller.

# State Machine

Rollouts follow a linear machine with failure exits:

	Init → ValidatingSecrets → Discovering → Deploying
	     → HealthChecking → Migrating → Succeeded

	any pre-shift failure → Aborted
	failure after a partial traffic shift → RolledBack

There are no loops: retries live inside the prober, and each transition
happens at most once per invocation. A fresh invocation is required to retry
an aborted rollout.

# Usage

Building a request:

	req := &types.DeploymentRequest{
		Service: "izerwaren-frontend",
		Image:   "gcr.io/noelmc/izerwaren-frontend:20250807-143022",
		Project: "noelmc",
		Region:  "us-central1",
		Secrets: map[string]string{
			"db-password": "projects/noelmc/secrets/db-password/versions/latest",
		},
		Port: 3000,
		Resources: types.Resources{
			Memory:       "1Gi",
			CPU:          "1",
			MaxInstances: 10,
		},
		HealthCheck: types.DefaultHealthCheck(),
	}

Inspecting a result:

	if !res.Succeeded() {
		fmt.Printf("rollout %s: %s (%s)\n", res.FinalState, res.Reason, res.FailureKind)
	}
	os.Exit(res.ExitCode())

# Exit Codes

The CLI front-end maps terminal states to distinct process exit codes so
calling automation can tell retry-worthy outcomes from fatal ones:

	0   Succeeded
	10  Aborted: required secret unreachable
	11  Aborted: platform rejected the revision spec
	12  Aborted: candidate never became healthy
	13  Aborted: traffic shift failed before any weight moved
	14  RolledBack: shift failed after a partial weight was written
	15  Aborted: cancelled by the caller
	1   usage or configuration error

# Invariants

  - Traffic is never shifted to a revision without at least one healthy
    HealthOutcome.
  - A candidate's traffic weight is 0 from creation until the migrator
    raises it; no other component mutates traffic weight.
  - Weights across all revisions of a service sum to 100.

# Integration Points

  - pkg/manifest builds DeploymentRequest values from YAML.
  - pkg/secrets produces SecretCheckResult values.
  - pkg/platform reads and writes ServiceState and RevisionHandle.
  - pkg/probe produces HealthOutcome values.
  - pkg/rollout drives RolloutState transitions and writes RolloutResult.
  - pkg/history persists RolloutResult to BoltDB as JSON.
*/
package types
