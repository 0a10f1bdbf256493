package deployer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/log"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/metrics"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/platform"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

// Deployer creates zero-traffic candidate revisions
type Deployer struct {
	api    platform.API
	logger zerolog.Logger
}

// NewDeployer creates a new deployer
func NewDeployer(api platform.API) *Deployer {
	return &Deployer{
		api:    api,
		logger: log.WithComponent("deployer"),
	}
}

// DeployError describes a deploy the platform rejected
type DeployError struct {
	// Service is the target service name
	Service string

	// Kind is "create" or "update"
	Kind string

	// Err is the underlying platform error
	Err error
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("failed to %s service %s: %v", e.Kind, e.Service, e.Err)
}

func (e *DeployError) Unwrap() error {
	return e.Err
}

// Deploy pushes a new revision of the requested service without giving it
// any traffic. Whether the platform call is a create or an update follows
// from the discovered service state: absent services are created with their
// first revision, existing services gain a revision alongside the serving
// one. The returned handle carries the candidate's tag and URL for probing.
func (d *Deployer) Deploy(ctx context.Context, req *types.DeploymentRequest, state *types.ServiceState) (*types.RevisionHandle, error) {
	tag := CandidateTag(req.Service)
	spec := buildSpec(req, tag)

	kind := "update"
	if !state.Exists {
		kind = "create"
	}

	d.logger.Info().
		Str("service", req.Service).
		Str("image", req.Image).
		Str("tag", tag).
		Str("kind", kind).
		Msg("Deploying zero-traffic candidate")

	var handle *types.RevisionHandle
	var err error
	if state.Exists {
		handle, err = d.api.UpdateService(ctx, req.Service, spec)
	} else {
		handle, err = d.api.CreateService(ctx, spec)
	}
	if err != nil {
		return nil, &DeployError{Service: req.Service, Kind: kind, Err: err}
	}

	// Some platforms omit the revision URL from the deploy response
	if handle.URL == "" {
		u, err := d.api.GetServiceURL(ctx, req.Service, handle.Tag)
		if err != nil {
			return nil, &DeployError{Service: req.Service, Kind: kind,
				Err: fmt.Errorf("candidate deployed but URL lookup failed: %w", err)}
		}
		handle.URL = u
	}

	metrics.DeploysTotal.WithLabelValues(kind).Inc()
	d.logger.Info().
		Str("service", req.Service).
		Str("tag", handle.Tag).
		Str("url", handle.URL).
		Msg("Candidate deployed")

	return handle, nil
}

// CandidateTag derives a unique revision tag for one deploy attempt.
// Aborted candidates stay deployed, so a retried rollout must not collide
// with an earlier attempt's revision name.
func CandidateTag(service string) string {
	id := uuid.New().String()
	return fmt.Sprintf("%s-cand-%s", service, id[:8])
}

// buildSpec maps a deployment request onto the platform's service spec.
// Secret references travel as references; the platform resolves them at
// instance start, never this process.
func buildSpec(req *types.DeploymentRequest, tag string) *platform.ServiceSpec {
	return &platform.ServiceSpec{
		Name:                 req.Service,
		Image:                req.Image,
		RevisionTag:          tag,
		NoTraffic:            true,
		Port:                 req.Port,
		Env:                  req.Env,
		SecretRefs:           req.Secrets,
		Memory:               req.Resources.Memory,
		CPU:                  req.Resources.CPU,
		Concurrency:          req.Resources.Concurrency,
		MinInstances:         req.Resources.MinInstances,
		MaxInstances:         req.Resources.MaxInstances,
		RequestTimeout:       req.Resources.Timeout,
		AllowUnauthenticated: req.AllowUnauthenticated,
	}
}
