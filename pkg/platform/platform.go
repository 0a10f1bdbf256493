package platform

import (
	"context"
	"errors"
	"time"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

// ErrServiceNotFound is returned when an operation names a service or
// revision the platform does not know
var ErrServiceNotFound = errors.New("service not found")

// API is the managed-platform abstraction the rollout pipeline talks to.
// Implementations create and describe running services and shift traffic
// between named revisions; they never build images (an external builder
// produced DeploymentRequest.Image).
type API interface {
	// DescribeService returns the service's current state. A service the
	// platform has never seen yields ServiceState{Exists: false} and a nil
	// error; transport and auth failures yield an error.
	DescribeService(ctx context.Context, name string) (*types.ServiceState, error)

	// CreateService creates a service with an initial revision carrying
	// zero traffic. The revision is tagged spec.RevisionTag.
	CreateService(ctx context.Context, spec *ServiceSpec) (*types.RevisionHandle, error)

	// UpdateService adds a new zero-traffic revision under an existing
	// service, leaving the serving revision's weight untouched.
	UpdateService(ctx context.Context, name string, spec *ServiceSpec) (*types.RevisionHandle, error)

	// SetTrafficWeights replaces the service's traffic assignment. Weights
	// must sum to 100 across the named revisions.
	SetTrafficWeights(ctx context.Context, name string, weights map[string]int) error

	// GetServiceURL returns the service URL, or the revision-specific URL
	// when revisionTag is non-empty.
	GetServiceURL(ctx context.Context, name, revisionTag string) (string, error)
}

// ServiceSpec is the full revision specification sent to the platform on
// create and update. The deployer builds it from a DeploymentRequest; the
// zero-traffic flag is always set by this tool.
type ServiceSpec struct {
	Name        string
	Image       string
	RevisionTag string

	// NoTraffic pins the new revision at 0% so it can be probed before
	// promotion
	NoTraffic bool

	Port int
	Env  map[string]string

	// SecretRefs maps secret name -> platform secret reference. The
	// platform resolves references at container start; values are never
	// fetched by this tool.
	SecretRefs map[string]string

	Memory         string
	CPU            string
	Concurrency    int
	MinInstances   int
	MaxInstances   int
	RequestTimeout time.Duration

	AllowUnauthenticated bool
}

// APIError is a structured platform rejection (quota exceeded, invalid
// image reference, permission denied, unknown service).
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return "platform: " + e.Status + ": " + e.Message
	}
	return "platform: " + e.Status
}

// Is lets errors.Is(err, ErrServiceNotFound) match 404 rejections
func (e *APIError) Is(target error) bool {
	return target == ErrServiceNotFound && e.StatusCode == 404
}
