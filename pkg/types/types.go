package types

import (
	"time"
)

// DeploymentRequest is the immutable input to a rollout. It is constructed
// once per invocation (from a manifest plus CLI flags) and passed down the
// pipeline; no component mutates it.
type DeploymentRequest struct {
	// Service is the platform service name to create or update
	Service string

	// Image is the content-addressed image reference produced by the
	// external image builder (e.g., "gcr.io/noelmc/izerwaren-frontend:20250807-143022")
	Image string

	// Project scopes platform and secret-store calls
	Project string

	// Region is the target deployment region (e.g., "us-central1")
	Region string

	// Secrets maps secret name -> platform secret reference. References are
	// injected into the revision spec unresolved; the platform resolves them
	// at container start, so a rotation does not require a redeploy.
	Secrets map[string]string

	// Env is injected as plain environment variables
	Env map[string]string

	// Port is the container port the service listens on
	Port int

	// AllowUnauthenticated exposes the service without IAM checks
	AllowUnauthenticated bool

	Resources   Resources
	HealthCheck HealthCheck
}

// Resources defines the revision's resource limits
type Resources struct {
	Memory       string        // e.g., "512Mi", "1Gi"
	CPU          string        // e.g., "1", "2"
	Concurrency  int           // Max concurrent requests per instance
	MinInstances int
	MaxInstances int
	Timeout      time.Duration // Per-request timeout
}

// HealthCheck configures the post-deploy health probe for a candidate
type HealthCheck struct {
	// Path is appended to the candidate URL (default "/")
	Path string

	// AttemptTimeout bounds a single HTTP attempt
	AttemptTimeout time.Duration

	// MaxAttempts is the number of probe attempts before giving up
	MaxAttempts int

	// RetryInterval is the sleep between attempts
	RetryInterval time.Duration
}

// DefaultHealthCheck returns the probe settings used when a manifest does
// not specify any
func DefaultHealthCheck() HealthCheck {
	return HealthCheck{
		Path:           "/",
		AttemptTimeout: 10 * time.Second,
		MaxAttempts:    10,
		RetryInterval:  3 * time.Second,
	}
}

// SecretCheckResult is the per-secret outcome of a validation pass
type SecretCheckResult struct {
	// Name is the secret name as given in DeploymentRequest.Secrets
	Name string

	// Reachable is true when the latest version could be read
	Reachable bool

	// Detail carries the failure cause when Reachable is false
	Detail string

	CheckedAt time.Time
	Duration  time.Duration
}

// ServiceState is the discovered status of the target service before
// deployment. Read once at the start of a rollout.
type ServiceState struct {
	// Exists is false when the service has no prior revision
	Exists bool

	// ServingRevision is the revision currently receiving traffic
	ServingRevision string

	// TrafficPercent is the serving revision's share of traffic
	TrafficPercent int

	// Weights maps every known revision tag to its traffic percent.
	// Weights across all revisions sum to 100 for an existing service.
	Weights map[string]int

	// URL is the service's stable URL, if assigned
	URL string
}

// RevisionHandle identifies a deployed candidate revision. It carries zero
// traffic weight at creation; only the traffic migrator may raise it.
type RevisionHandle struct {
	Service        string
	Tag            string
	URL            string
	TrafficPercent int
	CreatedAt      time.Time
}

// HealthStatus classifies the outcome of probing a candidate
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusTimeout   HealthStatus = "timeout"
)

// HealthOutcome is the result of a probe run, produced fresh per call
type HealthOutcome struct {
	Status HealthStatus

	// Attempts is the number of HTTP attempts performed
	Attempts int

	// Elapsed is the total probing time including retry sleeps
	Elapsed time.Duration

	// LastStatusCode is the HTTP status of the final attempt (0 if none completed)
	LastStatusCode int

	// LastError is the error of the final attempt, if any
	LastError string
}

// Healthy reports whether the outcome permits a traffic shift
func (h HealthOutcome) Healthy() bool {
	return h.Status == HealthStatusHealthy
}

// RolloutState identifies a stage of the rollout state machine
type RolloutState string

const (
	StateInit              RolloutState = "init"
	StateValidatingSecrets RolloutState = "validating_secrets"
	StateDiscovering       RolloutState = "discovering"
	StateDeploying         RolloutState = "deploying"
	StateHealthChecking    RolloutState = "health_checking"
	StateMigrating         RolloutState = "migrating"
	StateSucceeded         RolloutState = "succeeded"
	StateAborted           RolloutState = "aborted"
	StateRolledBack        RolloutState = "rolled_back"
)

// Terminal reports whether the state ends a rollout
func (s RolloutState) Terminal() bool {
	switch s {
	case StateSucceeded, StateAborted, StateRolledBack:
		return true
	}
	return false
}

// FailureKind classifies why a rollout left the happy path
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureSecrets      FailureKind = "secret_unavailable"
	FailureDeploy       FailureKind = "deploy_rejected"
	FailureHealthCheck  FailureKind = "health_check_failed"
	FailureTrafficShift FailureKind = "traffic_shift_failed"
	FailureCancelled    FailureKind = "cancelled_by_caller"
)

// RolloutResult is the terminal record of a rollout, and the only artifact
// persisted and returned to the caller.
type RolloutResult struct {
	ID      string
	Service string
	Region  string
	Image   string

	// FinalState is one of StateSucceeded, StateAborted, StateRolledBack
	FinalState  RolloutState
	FailureKind FailureKind

	// ServingRevision is the revision left holding traffic when the
	// rollout ended
	ServingRevision string

	// CandidateRevision is the revision this rollout deployed, if it got
	// that far. A failed candidate is left deployed at zero traffic for
	// inspection, never auto-deleted.
	CandidateRevision string

	// PreviousRevision is the revision that was serving before the rollout
	PreviousRevision string

	// Reason is the operator-facing explanation of the terminal state
	Reason string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the rollout's wall-clock time
func (r *RolloutResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the candidate took traffic
func (r *RolloutResult) Succeeded() bool {
	return r.FinalState == StateSucceeded
}

// Process exit codes for the CLI front-end. Distinct codes let calling
// automation tell retry-worthy outcomes from fatal ones.
const (
	ExitSucceeded   = 0
	ExitUsage       = 1
	ExitSecretAbort = 10
	ExitDeployAbort = 11
	ExitHealthAbort = 12
	ExitShiftAbort  = 13
	ExitRolledBack  = 14
	ExitCancelled   = 15
)

// ExitCode maps the terminal state to the process exit contract
func (r *RolloutResult) ExitCode() int {
	if r.FinalState == StateSucceeded {
		return ExitSucceeded
	}
	if r.FinalState == StateRolledBack {
		return ExitRolledBack
	}
	switch r.FailureKind {
	case FailureSecrets:
		return ExitSecretAbort
	case FailureDeploy:
		return ExitDeployAbort
	case FailureHealthCheck:
		return ExitHealthAbort
	case FailureTrafficShift:
		return ExitShiftAbort
	case FailureCancelled:
		return ExitCancelled
	}
	return ExitUsage
}
