package secrets

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/log"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/metrics"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

const (
	// DefaultCheckTimeout bounds a single secret reachability check
	DefaultCheckTimeout = 10 * time.Second

	// DefaultConcurrency is how many secrets are checked in parallel
	DefaultConcurrency = 4
)

// Store resolves named secrets in the platform's secret manager
type Store interface {
	// AccessLatest verifies that the latest version of the named secret
	// exists and is readable, returning its version identifier
	AccessLatest(ctx context.Context, name string) (version string, err error)
}

// Validator checks that every secret a deployment references is reachable
// before the pipeline mutates anything on the platform
type Validator struct {
	store       Store
	timeout     time.Duration
	concurrency int
	logger      zerolog.Logger
}

// NewValidator creates a validator backed by the given store
func NewValidator(store Store) *Validator {
	return &Validator{
		store:       store,
		timeout:     DefaultCheckTimeout,
		concurrency: DefaultConcurrency,
		logger:      log.WithComponent("secrets"),
	}
}

// WithTimeout sets the per-secret check timeout
func (v *Validator) WithTimeout(timeout time.Duration) *Validator {
	v.timeout = timeout
	return v
}

// WithConcurrency sets how many checks run in parallel
func (v *Validator) WithConcurrency(n int) *Validator {
	if n > 0 {
		v.concurrency = n
	}
	return v
}

// ValidateAll checks every referenced secret and reports one result per
// unique name, in first-seen order. Failures are recorded in the results,
// never returned as errors: the caller decides whether an unreachable
// secret aborts the rollout.
func (v *Validator) ValidateAll(ctx context.Context, names []string) []types.SecretCheckResult {
	unique := dedupe(names)
	results := make([]types.SecretCheckResult, len(unique))

	sem := make(chan struct{}, v.concurrency)
	var wg sync.WaitGroup
	for i, name := range unique {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = v.check(ctx, name)
		}(i, name)
	}
	wg.Wait()

	return results
}

// check performs one reachability check against the store
func (v *Validator) check(ctx context.Context, name string) types.SecretCheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	version, err := v.store.AccessLatest(checkCtx, name)

	result := types.SecretCheckResult{
		Name:      name,
		CheckedAt: start,
		Duration:  time.Since(start),
	}

	if err != nil {
		result.Reachable = false
		result.Detail = err.Error()
		metrics.SecretChecksTotal.WithLabelValues("unreachable").Inc()
		v.logger.Warn().
			Str("secret", name).
			Err(err).
			Msg("Secret unreachable")
		return result
	}

	result.Reachable = true
	result.Detail = version
	metrics.SecretChecksTotal.WithLabelValues("reachable").Inc()
	v.logger.Debug().
		Str("secret", name).
		Str("version", version).
		Msg("Secret reachable")
	return result
}

// Unreachable returns the subset of results whose secret could not be accessed
func Unreachable(results []types.SecretCheckResult) []types.SecretCheckResult {
	var out []types.SecretCheckResult
	for _, r := range results {
		if !r.Reachable {
			out = append(out, r)
		}
	}
	return out
}

// Names extracts the secret names a deployment references, sorted for
// deterministic check order. Duplicate references collapse to one check.
func Names(req *types.DeploymentRequest) []string {
	names := make([]string, 0, len(req.Secrets))
	for _, secretName := range req.Secrets {
		names = append(names, secretName)
	}
	sort.Strings(names)
	return names
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
