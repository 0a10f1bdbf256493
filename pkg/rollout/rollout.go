package rollout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/events"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/log"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/metrics"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/migrator"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/secrets"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

// restoreTimeout bounds the traffic restore after a partial shift. The
// restore runs detached from the rollout context: a caller abort must not
// strand users on a half-shifted candidate.
const restoreTimeout = 60 * time.Second

// ErrControllerReused is returned by Run when a Controller is invoked a
// second time. A Controller drives exactly one rollout.
var ErrControllerReused = errors.New("rollout controller is single-use; construct a new one per rollout")

// SecretValidator gates the rollout on secret reachability before any
// platform mutation happens.
type SecretValidator interface {
	ValidateAll(ctx context.Context, names []string) []types.SecretCheckResult
}

// Discoverer reads the current service state from the platform.
type Discoverer interface {
	DescribeService(ctx context.Context, name string) (*types.ServiceState, error)
}

// Deployer pushes a candidate revision with zero traffic.
type Deployer interface {
	Deploy(ctx context.Context, req *types.DeploymentRequest, state *types.ServiceState) (*types.RevisionHandle, error)
}

// Prober decides whether a candidate revision is fit to receive traffic.
type Prober interface {
	Probe(ctx context.Context, baseURL string, hc types.HealthCheck) types.HealthOutcome
}

// TrafficMigrator moves traffic toward a revision, and restores the
// previous revision when a shift fails partway.
type TrafficMigrator interface {
	Promote(ctx context.Context, service, target string) error
	Rollback(ctx context.Context, service, previous string) error
}

// Recorder persists terminal rollout results. A persistence failure is
// logged but never changes a rollout outcome.
type Recorder interface {
	Record(res *types.RolloutResult) error
}

// Controller drives a single deployment through the rollout state machine:
//
//	init -> validating_secrets -> discovering -> deploying
//	     -> health_checking -> migrating -> succeeded
//
// Any stage failure exits to aborted, except a failure after traffic has
// partially shifted, which exits to rolled_back after restoring the
// previous revision. The Controller is the only component that converts
// stage outcomes into terminal states; collaborators report what happened
// and never decide what it means.
type Controller struct {
	discoverer Discoverer
	secrets    SecretValidator
	deployer   Deployer
	prober     Prober
	migrator   TrafficMigrator
	history    Recorder
	broker     *events.Broker

	id      string
	service string
	state   types.RolloutState
	used    atomic.Bool
	logger  zerolog.Logger
}

// New creates a Controller wired to its collaborators. History recording
// and event publishing are optional; attach them with WithHistory and
// WithBroker.
func New(d Discoverer, sv SecretValidator, dep Deployer, p Prober, m TrafficMigrator) *Controller {
	return &Controller{
		discoverer: d,
		secrets:    sv,
		deployer:   dep,
		prober:     p,
		migrator:   m,
		state:      types.StateInit,
		logger:     log.WithComponent("rollout"),
	}
}

// WithHistory attaches a store that records the terminal result
func (c *Controller) WithHistory(r Recorder) *Controller {
	c.history = r
	return c
}

// WithBroker attaches an event broker for rollout progress events
func (c *Controller) WithBroker(b *events.Broker) *Controller {
	c.broker = b
	return c
}

// State returns the stage the controller is currently in
func (c *Controller) State() types.RolloutState {
	return c.state
}

// Run executes the rollout and returns its terminal record. Every rollout
// outcome, including failure, is expressed in the result; the error return
// is reserved for misuse of the Controller itself.
func (c *Controller) Run(ctx context.Context, req *types.DeploymentRequest) (*types.RolloutResult, error) {
	if !c.used.CompareAndSwap(false, true) {
		return nil, ErrControllerReused
	}
	if req == nil || req.Service == "" {
		return nil, errors.New("deployment request must name a service")
	}

	c.id = uuid.New().String()
	c.service = req.Service
	c.logger = log.WithRollout(c.id).With().
		Str("component", "rollout").
		Str("service", req.Service).
		Logger()

	res := &types.RolloutResult{
		ID:        c.id,
		Service:   req.Service,
		Region:    req.Region,
		Image:     req.Image,
		StartedAt: time.Now(),
	}

	timer := metrics.NewTimer()
	defer func() {
		res.FinishedAt = time.Now()
		timer.ObserveDuration(metrics.RolloutDuration)
		metrics.RolloutsTotal.WithLabelValues(string(res.FinalState)).Inc()
		c.record(res)
		c.publish(events.EventRolloutFinished, res.Reason, map[string]string{
			"state":   string(res.FinalState),
			"failure": string(res.FailureKind),
		})
	}()

	c.logger.Info().Str("image", req.Image).Str("region", req.Region).Msg("Rollout started")
	c.publish(events.EventRolloutStarted, fmt.Sprintf("rollout of %s to service %s", req.Image, req.Service), nil)

	if c.cancelled(ctx, res) {
		return res, nil
	}

	c.transition(types.StateValidatingSecrets)
	if !c.validateSecrets(ctx, req, res) {
		return res, nil
	}
	if c.cancelled(ctx, res) {
		return res, nil
	}

	c.transition(types.StateDiscovering)
	state, ok := c.discover(ctx, req, res)
	if !ok {
		return res, nil
	}
	res.PreviousRevision = state.ServingRevision
	res.ServingRevision = state.ServingRevision
	if c.cancelled(ctx, res) {
		return res, nil
	}

	c.transition(types.StateDeploying)
	handle, ok := c.deploy(ctx, req, state, res)
	if !ok {
		return res, nil
	}
	res.CandidateRevision = handle.Tag
	if c.cancelled(ctx, res) {
		return res, nil
	}

	c.transition(types.StateHealthChecking)
	if !c.checkHealth(ctx, req, handle, res) {
		return res, nil
	}
	if c.cancelled(ctx, res) {
		return res, nil
	}

	c.transition(types.StateMigrating)
	if !c.migrate(ctx, req, handle, state, res) {
		return res, nil
	}

	res.ServingRevision = handle.Tag
	c.finish(res, fmt.Sprintf("revision %s of service %s serving 100%% of traffic", handle.Tag, req.Service))
	return res, nil
}

// validateSecrets checks every referenced secret and aborts on the first
// stage with unreachable ones. All broken secrets are reported together so
// the operator fixes them in one pass, not one per attempt.
func (c *Controller) validateSecrets(ctx context.Context, req *types.DeploymentRequest, res *types.RolloutResult) bool {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StageDuration, string(types.StateValidatingSecrets))

	names := secrets.Names(req)
	if len(names) == 0 {
		c.logger.Debug().Msg("No secrets referenced, skipping validation")
		return true
	}

	results := c.secrets.ValidateAll(ctx, names)
	for _, r := range results {
		c.publish(events.EventSecretChecked, fmt.Sprintf("secret %s: %s", r.Name, r.Detail), map[string]string{
			"secret":    r.Name,
			"reachable": fmt.Sprintf("%t", r.Reachable),
		})
	}

	broken := secrets.Unreachable(results)
	if len(broken) == 0 {
		c.logger.Info().Int("secrets", len(results)).Msg("All secrets reachable")
		return true
	}

	if ctx.Err() != nil {
		c.fail(res, types.StateAborted, types.FailureCancelled,
			fmt.Sprintf("rollout of service %s cancelled during secret validation: %v", req.Service, ctx.Err()))
		return false
	}

	details := make([]string, 0, len(broken))
	for _, r := range broken {
		details = append(details, fmt.Sprintf("%s (%s)", r.Name, r.Detail))
	}
	c.fail(res, types.StateAborted, types.FailureSecrets,
		fmt.Sprintf("service %s references %d unreachable secret(s): %s", req.Service, len(broken), strings.Join(details, "; ")))
	return false
}

// discover reads the current service state to decide create versus update
func (c *Controller) discover(ctx context.Context, req *types.DeploymentRequest, res *types.RolloutResult) (*types.ServiceState, bool) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StageDuration, string(types.StateDiscovering))

	state, err := c.discoverer.DescribeService(ctx, req.Service)
	if err != nil {
		kind := types.FailureDeploy
		if ctx.Err() != nil {
			kind = types.FailureCancelled
		}
		c.fail(res, types.StateAborted, kind,
			fmt.Sprintf("discovery of service %s failed: %v", req.Service, err))
		return nil, false
	}

	if state.Exists {
		c.logger.Info().
			Str("serving_revision", state.ServingRevision).
			Int("traffic_percent", state.TrafficPercent).
			Msg("Service exists, rollout will update")
		c.publish(events.EventServiceFound, fmt.Sprintf("service %s serving revision %s", req.Service, state.ServingRevision), map[string]string{
			"revision": state.ServingRevision,
		})
	} else {
		c.logger.Info().Msg("Service absent, rollout will create")
		c.publish(events.EventServiceAbsent, fmt.Sprintf("service %s does not exist yet", req.Service), nil)
	}
	return state, true
}

// deploy pushes the candidate revision with zero traffic
func (c *Controller) deploy(ctx context.Context, req *types.DeploymentRequest, state *types.ServiceState, res *types.RolloutResult) (*types.RevisionHandle, bool) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StageDuration, string(types.StateDeploying))

	handle, err := c.deployer.Deploy(ctx, req, state)
	if err != nil {
		kind := types.FailureDeploy
		if ctx.Err() != nil {
			kind = types.FailureCancelled
		}
		c.fail(res, types.StateAborted, kind, err.Error())
		return nil, false
	}

	c.logger.Info().Str("revision", handle.Tag).Str("url", handle.URL).Msg("Candidate deployed at zero traffic")
	c.publish(events.EventRevisionDeployed, fmt.Sprintf("candidate %s deployed with zero traffic", handle.Tag), map[string]string{
		"revision": handle.Tag,
		"url":      handle.URL,
	})
	return handle, true
}

// checkHealth probes the candidate until it passes or the attempt budget
// runs out. An unfit candidate aborts the rollout but stays deployed at
// zero traffic for inspection.
func (c *Controller) checkHealth(ctx context.Context, req *types.DeploymentRequest, handle *types.RevisionHandle, res *types.RolloutResult) bool {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StageDuration, string(types.StateHealthChecking))

	outcome := c.prober.Probe(ctx, handle.URL, req.HealthCheck)
	c.publish(events.EventProbeAttempt, fmt.Sprintf("health probe of %s finished: %s", handle.Tag, outcome.Status), map[string]string{
		"revision": handle.Tag,
		"status":   string(outcome.Status),
		"attempts": fmt.Sprintf("%d", outcome.Attempts),
	})

	if outcome.Healthy() {
		c.logger.Info().Int("attempts", outcome.Attempts).Dur("elapsed", outcome.Elapsed).Msg("Candidate healthy")
		return true
	}

	if ctx.Err() != nil {
		c.fail(res, types.StateAborted, types.FailureCancelled,
			fmt.Sprintf("health check of candidate %s cancelled after %d attempts: %v", handle.Tag, outcome.Attempts, ctx.Err()))
		return false
	}

	detail := fmt.Sprintf("last status %d", outcome.LastStatusCode)
	if outcome.LastError != "" {
		detail = "last error: " + outcome.LastError
	}
	c.fail(res, types.StateAborted, types.FailureHealthCheck,
		fmt.Sprintf("candidate %s of service %s not healthy after %d attempts (%s); candidate left at zero traffic", handle.Tag, req.Service, outcome.Attempts, detail))
	return false
}

// migrate promotes the candidate to full traffic. A failure before any
// weight moved is a clean abort; a failure after a partial shift restores
// the previous revision and ends in rolled_back.
func (c *Controller) migrate(ctx context.Context, req *types.DeploymentRequest, handle *types.RevisionHandle, state *types.ServiceState, res *types.RolloutResult) bool {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StageDuration, string(types.StateMigrating))

	err := c.migrator.Promote(ctx, req.Service, handle.Tag)
	if err == nil {
		c.publish(events.EventTrafficShifted, fmt.Sprintf("revision %s now serving 100%% of traffic", handle.Tag), map[string]string{
			"revision": handle.Tag,
		})
		return true
	}

	kind := types.FailureTrafficShift
	if ctx.Err() != nil {
		kind = types.FailureCancelled
	}

	var shiftErr *migrator.TrafficShiftError
	applied := 0
	if errors.As(err, &shiftErr) {
		applied = shiftErr.Applied
	}

	if applied == 0 || state.ServingRevision == "" {
		// No weight reached the candidate (or there is nothing to restore):
		// the previous revision still holds what it held.
		c.fail(res, types.StateAborted, kind, err.Error())
		return false
	}

	c.rollback(ctx, req, state.ServingRevision, kind, err, res)
	return false
}

// rollback restores the previous revision to full traffic after a partial
// shift. It runs detached from the rollout context so a caller abort
// cannot leave traffic split.
func (c *Controller) rollback(ctx context.Context, req *types.DeploymentRequest, previous string, kind types.FailureKind, cause error, res *types.RolloutResult) {
	c.logger.Warn().Str("previous", previous).Err(cause).Msg("Partial traffic shift failed, restoring previous revision")

	restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()

	if rbErr := c.migrator.Rollback(restoreCtx, req.Service, previous); rbErr != nil {
		c.fail(res, types.StateRolledBack, kind,
			fmt.Sprintf("%v; traffic restore to revision %s failed: %v (manual intervention required)", cause, previous, rbErr))
		res.ServingRevision = ""
		return
	}

	c.publish(events.EventRollbackApplied, fmt.Sprintf("traffic restored to revision %s", previous), map[string]string{
		"revision": previous,
	})
	res.ServingRevision = previous
	c.fail(res, types.StateRolledBack, kind,
		fmt.Sprintf("%v; traffic restored to revision %s at 100%%", cause, previous))
}

// cancelled aborts the rollout when the caller's context has ended between
// stages. Stages already in flight surface cancellation through their own
// error paths.
func (c *Controller) cancelled(ctx context.Context, res *types.RolloutResult) bool {
	if ctx.Err() == nil {
		return false
	}
	c.fail(res, types.StateAborted, types.FailureCancelled,
		fmt.Sprintf("rollout of service %s cancelled: %v", c.service, ctx.Err()))
	return true
}

// transition moves the state machine to the next stage
func (c *Controller) transition(next types.RolloutState) {
	c.state = next
	c.logger.Info().Str("state", string(next)).Msg("Rollout stage")
	c.publish(events.EventStateChanged, fmt.Sprintf("rollout entered %s", next), map[string]string{
		"state": string(next),
	})
}

// finish marks the rollout succeeded
func (c *Controller) finish(res *types.RolloutResult, reason string) {
	c.state = types.StateSucceeded
	res.FinalState = types.StateSucceeded
	res.FailureKind = types.FailureNone
	res.Reason = reason
	c.logger.Info().Msg("Rollout succeeded")
	c.publish(events.EventStateChanged, reason, map[string]string{
		"state": string(types.StateSucceeded),
	})
}

// fail records a terminal failure state on the result
func (c *Controller) fail(res *types.RolloutResult, state types.RolloutState, kind types.FailureKind, reason string) {
	c.state = state
	res.FinalState = state
	res.FailureKind = kind
	res.Reason = reason
	c.logger.Error().
		Str("state", string(state)).
		Str("failure", string(kind)).
		Msg(reason)
	c.publish(events.EventStateChanged, reason, map[string]string{
		"state":   string(state),
		"failure": string(kind),
	})
}

// record persists the terminal result when a history store is attached
func (c *Controller) record(res *types.RolloutResult) {
	if c.history == nil {
		return
	}
	if err := c.history.Record(res); err != nil {
		c.logger.Error().Err(err).Msg("Failed to record rollout history")
	}
}

// publish sends a progress event when a broker is attached
func (c *Controller) publish(t events.EventType, msg string, meta map[string]string) {
	if meta == nil {
		meta = make(map[string]string, 2)
	}
	meta["rollout_id"] = c.id
	meta["service"] = c.service
	c.broker.Publish(&events.Event{
		Type:     t,
		Message:  msg,
		Metadata: meta,
	})
}
