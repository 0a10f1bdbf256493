package rollout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/deployer"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/history"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/migrator"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/platform"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/probe"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/secrets"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

// memPlatform is an in-memory platform.API for pipeline tests. It keeps
// the same weight-map shape the HTTP client reports: every known revision
// appears in Weights, zero-weight candidates included, and a traffic write
// replaces the whole assignment.
type memPlatform struct {
	mu      sync.Mutex
	exists  bool
	weights map[string]int
	baseURL string

	specs         []*platform.ServiceSpec
	trafficWrites []map[string]int
	describeCalls int

	deployErr error
	failShift func(weights map[string]int) error
}

func (m *memPlatform) DescribeService(ctx context.Context, name string) (*types.ServiceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.describeCalls++
	if !m.exists {
		return &types.ServiceState{Exists: false}, nil
	}
	st := &types.ServiceState{
		Exists:  true,
		URL:     m.baseURL,
		Weights: make(map[string]int, len(m.weights)),
	}
	for tag, w := range m.weights {
		st.Weights[tag] = w
		if w > st.TrafficPercent {
			st.TrafficPercent = w
			st.ServingRevision = tag
		}
	}
	return st, nil
}

func (m *memPlatform) CreateService(ctx context.Context, spec *platform.ServiceSpec) (*types.RevisionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deployErr != nil {
		return nil, m.deployErr
	}
	if m.exists {
		return nil, &platform.APIError{StatusCode: 409, Status: "409 Conflict", Message: "service already exists"}
	}
	m.exists = true
	m.weights = map[string]int{spec.RevisionTag: 0}
	m.specs = append(m.specs, spec)
	return &types.RevisionHandle{Service: spec.Name, Tag: spec.RevisionTag, URL: m.baseURL, CreatedAt: time.Now()}, nil
}

func (m *memPlatform) UpdateService(ctx context.Context, name string, spec *platform.ServiceSpec) (*types.RevisionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deployErr != nil {
		return nil, m.deployErr
	}
	if !m.exists {
		return nil, &platform.APIError{StatusCode: 404, Status: "404 Not Found", Message: "service not found"}
	}
	m.weights[spec.RevisionTag] = 0
	m.specs = append(m.specs, spec)
	return &types.RevisionHandle{Service: name, Tag: spec.RevisionTag, URL: m.baseURL, CreatedAt: time.Now()}, nil
}

func (m *memPlatform) SetTrafficWeights(ctx context.Context, name string, weights map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return &platform.APIError{StatusCode: 404, Status: "404 Not Found", Message: "service not found"}
	}
	if m.failShift != nil {
		if err := m.failShift(weights); err != nil {
			return err
		}
	}
	for tag := range m.weights {
		m.weights[tag] = 0
	}
	write := make(map[string]int, len(weights))
	for tag, w := range weights {
		m.weights[tag] = w
		write[tag] = w
	}
	m.trafficWrites = append(m.trafficWrites, write)
	return nil
}

func (m *memPlatform) GetServiceURL(ctx context.Context, name, revisionTag string) (string, error) {
	return m.baseURL, nil
}

func (m *memPlatform) snapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.weights))
	for tag, w := range m.weights {
		out[tag] = w
	}
	return out
}

// pipeline wires real components against the in-memory platform, the way
// the CLI front-end does.
func pipeline(t *testing.T, api *memPlatform) (*Controller, *history.Store) {
	t.Helper()
	store, err := history.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	validator := secrets.NewValidator(secrets.NewEnvStore("ROLLOUT_SECRET_"))
	ctrl := New(api, validator, deployer.NewDeployer(api), probe.NewProber(), migrator.NewMigrator(api)).
		WithHistory(store)
	return ctrl, store
}

func fastHealthCheck() types.HealthCheck {
	return types.HealthCheck{
		Path:           "/",
		AttemptTimeout: 2 * time.Second,
		MaxAttempts:    5,
		RetryInterval:  time.Millisecond,
	}
}

func TestPipeline_FreshServiceEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	api := &memPlatform{baseURL: server.URL}
	ctrl, store := pipeline(t, api)

	t.Setenv("ROLLOUT_SECRET_DB_PASSWORD", "set")
	req := testRequest()
	req.HealthCheck = fastHealthCheck()

	res, err := ctrl.Run(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, types.StateSucceeded, res.FinalState, res.Reason)
	assert.Equal(t, types.ExitSucceeded, res.ExitCode())

	// The candidate was created with zero traffic and promoted in one write.
	require.Len(t, api.specs, 1)
	assert.True(t, api.specs[0].NoTraffic)
	assert.True(t, strings.HasPrefix(res.CandidateRevision, "web-cand-"))
	require.Len(t, api.trafficWrites, 1)
	assert.Equal(t, map[string]int{res.CandidateRevision: 100}, api.trafficWrites[0])
	assert.Equal(t, map[string]int{res.CandidateRevision: 100}, api.snapshot())

	// The terminal record is in the history store.
	stored, err := store.Get(res.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StateSucceeded, stored.FinalState)
	assert.Equal(t, res.CandidateRevision, stored.ServingRevision)
}

func TestPipeline_UnhealthyCandidateLeavesTrafficUntouched(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	api := &memPlatform{
		baseURL: server.URL,
		exists:  true,
		weights: map[string]int{"web-rev-1": 100},
	}
	ctrl, store := pipeline(t, api)

	t.Setenv("ROLLOUT_SECRET_DB_PASSWORD", "set")
	req := testRequest()
	req.HealthCheck = fastHealthCheck()

	res, err := ctrl.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureHealthCheck, res.FailureKind)
	assert.Equal(t, types.ExitHealthAbort, res.ExitCode())
	assert.Equal(t, int32(5), hits.Load())

	// The old revision still holds 100%; the candidate stays deployed at
	// zero for inspection.
	weights := api.snapshot()
	assert.Equal(t, 100, weights["web-rev-1"])
	assert.Equal(t, 0, weights[res.CandidateRevision])
	assert.Empty(t, api.trafficWrites)
	assert.Equal(t, "web-rev-1", res.ServingRevision)

	stored, err := store.LastByService("web")
	require.NoError(t, err)
	assert.Equal(t, types.StateAborted, stored.FinalState)
}

func TestPipeline_DeployRejectionEndsAborted(t *testing.T) {
	api := &memPlatform{
		baseURL:   "https://unused.example.com",
		deployErr: &platform.APIError{StatusCode: 400, Status: "400 Bad Request", Message: "invalid image reference"},
	}
	ctrl, _ := pipeline(t, api)

	t.Setenv("ROLLOUT_SECRET_DB_PASSWORD", "set")
	res, err := ctrl.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureDeploy, res.FailureKind)
	assert.Contains(t, res.Reason, "invalid image reference")
	assert.Empty(t, api.trafficWrites)
}

func TestPipeline_PartialShiftRestoresPreviousRevision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	api := &memPlatform{
		baseURL: server.URL,
		exists:  true,
		weights: map[string]int{"web-rev-1": 100},
	}
	// The 50% milestone lands; the full cutover is rejected.
	api.failShift = func(weights map[string]int) error {
		for tag, w := range weights {
			if tag != "web-rev-1" && w == 100 {
				return &platform.APIError{StatusCode: 503, Status: "503 Service Unavailable", Message: "traffic controller timeout"}
			}
		}
		return nil
	}

	store, err := history.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	validator := secrets.NewValidator(secrets.NewEnvStore("ROLLOUT_SECRET_"))
	mig := migrator.NewMigrator(api).WithSteps([]int{50})
	ctrl := New(api, validator, deployer.NewDeployer(api), probe.NewProber(), mig).WithHistory(store)

	t.Setenv("ROLLOUT_SECRET_DB_PASSWORD", "set")
	req := testRequest()
	req.HealthCheck = fastHealthCheck()

	res, err := ctrl.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, types.StateRolledBack, res.FinalState)
	assert.Equal(t, types.FailureTrafficShift, res.FailureKind)
	assert.Equal(t, types.ExitRolledBack, res.ExitCode())
	assert.Equal(t, "web-rev-1", res.ServingRevision)
	assert.Contains(t, res.Reason, "traffic controller timeout")
	assert.Contains(t, res.Reason, "restored")

	// Two writes landed: the 50% stage and the restore.
	require.Len(t, api.trafficWrites, 2)
	assert.Equal(t, 50, api.trafficWrites[0][res.CandidateRevision])
	assert.Equal(t, 50, api.trafficWrites[0]["web-rev-1"])
	assert.Equal(t, map[string]int{"web-rev-1": 100}, api.trafficWrites[1])

	weights := api.snapshot()
	assert.Equal(t, 100, weights["web-rev-1"])
	assert.Equal(t, 0, weights[res.CandidateRevision])

	stored, err := store.Get(res.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StateRolledBack, stored.FinalState)
	assert.Equal(t, "web-rev-1", stored.ServingRevision)
}

func TestPipeline_MissingSecretNeverTouchesPlatform(t *testing.T) {
	api := &memPlatform{baseURL: "https://unused.example.com"}
	ctrl, _ := pipeline(t, api)

	// ROLLOUT_SECRET_DB_PASSWORD deliberately unset.
	res, err := ctrl.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateAborted, res.FinalState)
	assert.Equal(t, types.FailureSecrets, res.FailureKind)
	assert.Contains(t, res.Reason, "db-password")
	assert.Zero(t, api.describeCalls)
	assert.Empty(t, api.specs)
	assert.Empty(t, api.trafficWrites)
}
