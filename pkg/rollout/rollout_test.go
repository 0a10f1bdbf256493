package rollout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/events"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/migrator"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

// fakeSecrets returns scripted check results, or all-reachable results
// when none are scripted.
type fakeSecrets struct {
	results  []types.SecretCheckResult
	calls    int
	gotNames []string
}

func (f *fakeSecrets) ValidateAll(ctx context.Context, names []string) []types.SecretCheckResult {
	f.calls++
	f.gotNames = names
	if f.results != nil {
		return f.results
	}
	out := make([]types.SecretCheckResult, len(names))
	for i, n := range names {
		out[i] = types.SecretCheckResult{Name: n, Reachable: true, Detail: "v1"}
	}
	return out
}

type fakeDiscoverer struct {
	state *types.ServiceState
	err   error
	calls int
}

func (f *fakeDiscoverer) DescribeService(ctx context.Context, name string) (*types.ServiceState, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.state != nil {
		return f.state, nil
	}
	return &types.ServiceState{Exists: false}, nil
}

type fakeDeployer struct {
	handle   *types.RevisionHandle
	err      error
	calls    int
	gotState *types.ServiceState
}

func (f *fakeDeployer) Deploy(ctx context.Context, req *types.DeploymentRequest, state *types.ServiceState) (*types.RevisionHandle, error) {
	f.calls++
	f.gotState = state
	if f.err != nil {
		return nil, f.err
	}
	if f.handle != nil {
		return f.handle, nil
	}
	return &types.RevisionHandle{
		Service:   req.Service,
		Tag:       req.Service + "-cand-abcd1234",
		URL:       "https://" + req.Service + "-cand.example.com",
		CreatedAt: time.Now(),
	}, nil
}

type fakeProber struct {
	outcome types.HealthOutcome
	calls   int
	gotURL  string
	gotHC   types.HealthCheck

	// onProbe lets a test cancel the rollout context mid-stage
	onProbe func()
}

func (f *fakeProber) Probe(ctx context.Context, baseURL string, hc types.HealthCheck) types.HealthOutcome {
	f.calls++
	f.gotURL = baseURL
	f.gotHC = hc
	if f.onProbe != nil {
		f.onProbe()
	}
	return f.outcome
}

type fakeMigrator struct {
	promoteErr  error
	rollbackErr error

	promoteCalls  int
	rollbackCalls int
	gotTarget     string
	gotPrevious   string

	// onPromote lets a test cancel the rollout context mid-shift
	onPromote func()
}

func (f *fakeMigrator) Promote(ctx context.Context, service, target string) error {
	f.promoteCalls++
	f.gotTarget = target
	if f.onPromote != nil {
		f.onPromote()
	}
	return f.promoteErr
}

func (f *fakeMigrator) Rollback(ctx context.Context, service, previous string) error {
	f.rollbackCalls++
	f.gotPrevious = previous
	return f.rollbackErr
}

type fakeRecorder struct {
	recorded []*types.RolloutResult
	err      error
}

func (f *fakeRecorder) Record(res *types.RolloutResult) error {
	f.recorded = append(f.recorded, res)
	return f.err
}

// harness bundles the controller with its fakes for assertion access
type harness struct {
	secrets    *fakeSecrets
	discoverer *fakeDiscoverer
	deployer   *fakeDeployer
	prober     *fakeProber
	migrator   *fakeMigrator
	controller *Controller
}

func newHarness() *harness {
	h := &harness{
		secrets:    &fakeSecrets{},
		discoverer: &fakeDiscoverer{},
		deployer:   &fakeDeployer{},
		prober:     &fakeProber{outcome: types.HealthOutcome{Status: types.HealthStatusHealthy, Attempts: 1}},
		migrator:   &fakeMigrator{},
	}
	h.controller = New(h.discoverer, h.secrets, h.deployer, h.prober, h.migrator)
	return h
}

func testRequest() *types.DeploymentRequest {
	return &types.DeploymentRequest{
		Service:     "web",
		Image:       "gcr.io/noelmc/web:20250807-143022",
		Project:     "noelmc",
		Region:      "us-central1",
		Secrets:     map[string]string{"DB_PASSWORD": "db-password"},
		HealthCheck: types.DefaultHealthCheck(),
	}
}

func TestRun_FreshServiceSucceeds(t *testing.T) {
	h := newHarness()
	rec := &fakeRecorder{}
	h.controller.WithHistory(rec)

	res, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateSucceeded, res.FinalState)
	assert.Equal(t, types.FailureNone, res.FailureKind)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "web", res.Service)
	assert.Equal(t, res.CandidateRevision, res.ServingRevision)
	assert.Empty(t, res.PreviousRevision)
	assert.Contains(t, res.Reason, res.CandidateRevision)
	assert.Equal(t, types.ExitSucceeded, res.ExitCode())
	assert.False(t, res.FinishedAt.Before(res.StartedAt))

	assert.Equal(t, 1, h.secrets.calls)
	assert.Equal(t, []string{"db-password"}, h.secrets.gotNames)
	assert.Equal(t, 1, h.deployer.calls)
	assert.False(t, h.deployer.gotState.Exists)
	assert.Equal(t, 1, h.prober.calls)
	assert.Equal(t, 1, h.migrator.promoteCalls)
	assert.Equal(t, res.CandidateRevision, h.migrator.gotTarget)
	assert.Zero(t, h.migrator.rollbackCalls)

	require.Len(t, rec.recorded, 1)
	assert.Equal(t, res.ID, rec.recorded[0].ID)
}

func TestRun_ExistingServiceSucceeds(t *testing.T) {
	h := newHarness()
	h.discoverer.state = &types.ServiceState{
		Exists:          true,
		ServingRevision: "web-rev-1",
		TrafficPercent:  100,
		Weights:         map[string]int{"web-rev-1": 100},
		URL:             "https://web.example.com",
	}

	res, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateSucceeded, res.FinalState)
	assert.Equal(t, "web-rev-1", res.PreviousRevision)
	assert.Equal(t, res.CandidateRevision, res.ServingRevision)
	assert.True(t, h.deployer.gotState.Exists)
}

func TestRun_UnreachableSecretsAbortBeforeAnyPlatformCall(t *testing.T) {
	h := newHarness()
	h.secrets.results = []types.SecretCheckResult{
		{Name: "db-password", Reachable: false, Detail: "secret db-password not found"},
		{Name: "api-key", Reachable: true, Detail: "v3"},
		{Name: "tls-cert", Reachable: false, Detail: "access to secret tls-cert denied (status 403)"},
	}
	req := testRequest()
	req.Secrets = map[string]string{
		"DB_PASSWORD": "db-password",
		"API_KEY":     "api-key",
		"TLS_CERT":    "tls-cert",
	}

	res, err := h.controller.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureSecrets, res.FailureKind)
	assert.Equal(t, types.ExitSecretAbort, res.ExitCode())

	// Every broken secret is reported, not just the first.
	assert.Contains(t, res.Reason, "db-password")
	assert.Contains(t, res.Reason, "not found")
	assert.Contains(t, res.Reason, "tls-cert")
	assert.Contains(t, res.Reason, "denied")
	assert.NotContains(t, res.Reason, "api-key (")

	// The gate failed before the platform was touched.
	assert.Zero(t, h.discoverer.calls)
	assert.Zero(t, h.deployer.calls)
	assert.Zero(t, h.prober.calls)
	assert.Zero(t, h.migrator.promoteCalls)
	assert.Zero(t, h.migrator.rollbackCalls)
}

func TestRun_NoSecretsSkipsValidation(t *testing.T) {
	h := newHarness()
	req := testRequest()
	req.Secrets = nil

	res, err := h.controller.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, types.StateSucceeded, res.FinalState)
	assert.Zero(t, h.secrets.calls)
}

func TestRun_DiscoveryFailureAborts(t *testing.T) {
	h := newHarness()
	h.discoverer.err = errors.New("platform unavailable")

	res, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureDeploy, res.FailureKind)
	assert.Contains(t, res.Reason, "web")
	assert.Contains(t, res.Reason, "platform unavailable")
	assert.Zero(t, h.deployer.calls)
}

func TestRun_DeployRejectionAborts(t *testing.T) {
	h := newHarness()
	h.deployer.err = fmt.Errorf("deploy (create) of service web failed: image not found")

	res, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureDeploy, res.FailureKind)
	assert.Equal(t, types.ExitDeployAbort, res.ExitCode())
	assert.Contains(t, res.Reason, "image not found")
	assert.Empty(t, res.CandidateRevision)
	assert.Zero(t, h.prober.calls)
	assert.Zero(t, h.migrator.promoteCalls)
}

func TestRun_UnhealthyCandidateAborts(t *testing.T) {
	h := newHarness()
	h.discoverer.state = &types.ServiceState{
		Exists:          true,
		ServingRevision: "web-rev-1",
		TrafficPercent:  100,
		Weights:         map[string]int{"web-rev-1": 100},
	}
	h.prober.outcome = types.HealthOutcome{
		Status:         types.HealthStatusTimeout,
		Attempts:       5,
		LastStatusCode: 503,
	}
	req := testRequest()
	req.HealthCheck.MaxAttempts = 5
	req.HealthCheck.RetryInterval = 2 * time.Second

	res, err := h.controller.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureHealthCheck, res.FailureKind)
	assert.Equal(t, types.ExitHealthAbort, res.ExitCode())

	// The candidate is named in the record and left in place at zero
	// traffic: no weight write ever happened.
	assert.NotEmpty(t, res.CandidateRevision)
	assert.Contains(t, res.Reason, res.CandidateRevision)
	assert.Contains(t, res.Reason, "5 attempts")
	assert.Contains(t, res.Reason, "zero traffic")
	assert.Equal(t, "web-rev-1", res.ServingRevision)
	assert.Equal(t, 5, req.HealthCheck.MaxAttempts)
	assert.Equal(t, req.HealthCheck, h.prober.gotHC)
	assert.Zero(t, h.migrator.promoteCalls)
	assert.Zero(t, h.migrator.rollbackCalls)
}

func TestRun_ShiftFailureBeforeAnyWeightAborts(t *testing.T) {
	h := newHarness()
	h.discoverer.state = &types.ServiceState{
		Exists:          true,
		ServingRevision: "web-rev-1",
		Weights:         map[string]int{"web-rev-1": 100},
	}
	h.migrator.promoteErr = &migrator.TrafficShiftError{
		Service: "web",
		Target:  "web-cand-abcd1234",
		Applied: 0,
		Err:     errors.New("write rejected"),
	}

	res, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureTrafficShift, res.FailureKind)
	assert.Equal(t, types.ExitShiftAbort, res.ExitCode())
	assert.Equal(t, "web-rev-1", res.ServingRevision)
	assert.Zero(t, h.migrator.rollbackCalls)
}

func TestRun_PartialShiftRollsBack(t *testing.T) {
	h := newHarness()
	h.discoverer.state = &types.ServiceState{
		Exists:          true,
		ServingRevision: "web-rev-1",
		Weights:         map[string]int{"web-rev-1": 100},
	}
	h.migrator.promoteErr = &migrator.TrafficShiftError{
		Service: "web",
		Target:  "web-cand-abcd1234",
		Applied: 50,
		Err:     errors.New("write rejected"),
	}

	res, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateRolledBack, res.FinalState)
	assert.Equal(t, types.FailureTrafficShift, res.FailureKind)
	assert.Equal(t, types.ExitRolledBack, res.ExitCode())

	assert.Equal(t, 1, h.migrator.rollbackCalls)
	assert.Equal(t, "web-rev-1", h.migrator.gotPrevious)
	assert.Equal(t, "web-rev-1", res.ServingRevision)
	assert.Contains(t, res.Reason, "restored")
	assert.Contains(t, res.Reason, "web-rev-1")
}

func TestRun_RollbackFailureStaysRolledBack(t *testing.T) {
	h := newHarness()
	h.discoverer.state = &types.ServiceState{
		Exists:          true,
		ServingRevision: "web-rev-1",
		Weights:         map[string]int{"web-rev-1": 100},
	}
	h.migrator.promoteErr = &migrator.TrafficShiftError{
		Service: "web",
		Target:  "web-cand-abcd1234",
		Applied: 50,
		Err:     errors.New("write rejected"),
	}
	h.migrator.rollbackErr = errors.New("platform still unavailable")

	res, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateRolledBack, res.FinalState)
	assert.Contains(t, res.Reason, "manual intervention")
	assert.Contains(t, res.Reason, "platform still unavailable")
	assert.Empty(t, res.ServingRevision)
}

func TestRun_PartialShiftWithoutPreviousAborts(t *testing.T) {
	// A fresh service has no previous revision to restore, so even a
	// partial shift cannot end in rolled_back.
	h := newHarness()
	h.migrator.promoteErr = &migrator.TrafficShiftError{
		Service: "web",
		Target:  "web-cand-abcd1234",
		Applied: 50,
		Err:     errors.New("write rejected"),
	}

	res, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureTrafficShift, res.FailureKind)
	assert.Zero(t, h.migrator.rollbackCalls)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.controller.Run(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureCancelled, res.FailureKind)
	assert.Equal(t, types.ExitCancelled, res.ExitCode())
	assert.Zero(t, h.secrets.calls)
	assert.Zero(t, h.discoverer.calls)
	assert.Zero(t, h.deployer.calls)
}

func TestRun_CancelledDuringHealthCheck(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	h.prober.onProbe = cancel
	h.prober.outcome = types.HealthOutcome{
		Status:    types.HealthStatusUnhealthy,
		Attempts:  2,
		LastError: "context canceled",
	}

	res, err := h.controller.Run(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureCancelled, res.FailureKind)
	assert.Zero(t, h.migrator.promoteCalls)
}

func TestRun_CancelledDuringMigrationStillRollsBack(t *testing.T) {
	h := newHarness()
	h.discoverer.state = &types.ServiceState{
		Exists:          true,
		ServingRevision: "web-rev-1",
		Weights:         map[string]int{"web-rev-1": 100},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.migrator.onPromote = cancel
	h.migrator.promoteErr = &migrator.TrafficShiftError{
		Service: "web",
		Target:  "web-cand-abcd1234",
		Applied: 50,
		Err:     context.Canceled,
	}

	res, err := h.controller.Run(ctx, testRequest())
	require.NoError(t, err)

	// The abort happened after weight moved, so the restore still runs
	// and the failure is classified as a cancellation.
	assert.Equal(t, types.StateRolledBack, res.FinalState)
	assert.Equal(t, types.FailureCancelled, res.FailureKind)
	assert.Equal(t, 1, h.migrator.rollbackCalls)
}

func TestRun_SingleUse(t *testing.T) {
	h := newHarness()
	_, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)

	res, err := h.controller.Run(context.Background(), testRequest())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrControllerReused)
}

func TestRun_NilRequest(t *testing.T) {
	h := newHarness()
	res, err := h.controller.Run(context.Background(), nil)
	assert.Nil(t, res)
	assert.Error(t, err)
}

func TestRun_HistoryFailureDoesNotChangeOutcome(t *testing.T) {
	h := newHarness()
	rec := &fakeRecorder{err: errors.New("disk full")}
	h.controller.WithHistory(rec)

	res, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateSucceeded, res.FinalState)
	assert.Len(t, rec.recorded, 1)
}

func TestRun_PublishesLifecycleEvents(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	h := newHarness()
	h.controller.WithBroker(broker)

	res, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, types.StateSucceeded, res.FinalState)

	seen := map[events.EventType]int{}
	deadline := time.After(2 * time.Second)
	for {
		var done bool
		select {
		case ev := <-sub:
			seen[ev.Type]++
			assert.Equal(t, res.ID, ev.Metadata["rollout_id"])
			assert.Equal(t, "web", ev.Metadata["service"])
			if ev.Type == events.EventRolloutFinished {
				done = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for rollout.finished, saw %v", seen)
		}
		if done {
			break
		}
	}

	assert.Equal(t, 1, seen[events.EventRolloutStarted])
	assert.Equal(t, 1, seen[events.EventSecretChecked])
	assert.Equal(t, 1, seen[events.EventServiceAbsent])
	assert.Equal(t, 1, seen[events.EventRevisionDeployed])
	assert.Equal(t, 1, seen[events.EventProbeAttempt])
	assert.Equal(t, 1, seen[events.EventTrafficShifted])
	assert.Equal(t, 1, seen[events.EventRolloutFinished])
	// init is never announced; five stages plus the terminal transition.
	assert.Equal(t, 6, seen[events.EventStateChanged])
}

func TestState_TracksStageProgression(t *testing.T) {
	h := newHarness()
	assert.Equal(t, types.StateInit, h.controller.State())

	_, err := h.controller.Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, types.StateSucceeded, h.controller.State())
}
