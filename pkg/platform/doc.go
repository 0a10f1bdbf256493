/*
Package platform provides the client for the serverless platform admin API.

The platform package is the single point of contact between the rollout
pipeline and the hosting platform. It abstracts service discovery, revision
deployment, and traffic weight management behind the API interface, with an
HTTP JSON implementation for the real platform and room for fakes in tests.

# Architecture

The client sits between the pipeline stages and the platform:

	┌──────────────────── PIPELINE STAGES ───────────────────────┐
	│                                                              │
	│   pkg/rollout      pkg/deployer       pkg/migrator          │
	│   (discovery)      (create/update)    (traffic shifts)      │
	│                                                              │
	└──────────────────────────┬───────────────────────────────┘
	                           │ platform.API
	┌──────────────────────────▼──── pkg/platform ───────────────┐
	│                                                              │
	│  ┌──────────────────────────────────────────────┐          │
	│  │              Client (HTTP JSON)               │          │
	│  │  - Bearer token authentication                │          │
	│  │  - Request/response encoding                  │          │
	│  │  - APIError mapping for non-2xx               │          │
	│  │  - 404 on describe means "absent", not error  │          │
	│  └──────────────────┬───────────────────────────┘          │
	└─────────────────────┼────────────────────────────────────┘
	                      │ HTTPS
	                      ▼
	     /v1/projects/{project}/regions/{region}/services...

# API Surface

The API interface covers exactly the operations a rollout needs:

	DescribeService    - current revisions, weights, and URL
	CreateService      - first revision of a new service (zero traffic)
	UpdateService      - new revision of an existing service (zero traffic)
	SetTrafficWeights  - replace the traffic assignment wholesale
	GetServiceURL      - service or revision-specific URL for probing

DescribeService treats an unknown service as a normal outcome: it returns
a ServiceState with Exists=false and a nil error. Every other non-2xx
response surfaces as an *APIError carrying the status code and any error
message from the response body.

# Usage

Creating a Client:

	import "github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/platform"

	client := platform.NewClient(
		"https://run.admin.example.com",
		"acme-prod",
		"us-central1",
	).WithToken(os.Getenv("PLATFORM_TOKEN")).
		WithTimeout(60 * time.Second)

Discovering a service:

	state, err := client.DescribeService(ctx, "checkout")
	if err != nil {
		return err
	}
	if !state.Exists {
		// First deploy: create instead of update
	}

Deploying a zero-traffic revision:

	handle, err := client.UpdateService(ctx, "checkout", &platform.ServiceSpec{
		Name:        "checkout",
		Image:       "gcr.io/acme/checkout:v42",
		RevisionTag: "checkout-cand-3f2a9c1d",
		NoTraffic:   true,
		Port:        3000,
	})

Shifting traffic:

	err := client.SetTrafficWeights(ctx, "checkout", map[string]int{
		"checkout-cand-3f2a9c1d": 100,
	})

# Error Handling

Non-2xx responses become *APIError values:

	_, err := client.UpdateService(ctx, "checkout", spec)
	if err != nil {
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 409 {
			// Concurrent modification, surface to the operator
		}
		return err
	}

A 404 APIError matches ErrServiceNotFound through errors.Is, so callers
can branch on absence without inspecting status codes:

	if errors.Is(err, platform.ErrServiceNotFound) {
		// Revision or service is gone
	}

# Integration Points

This package integrates with:

  - pkg/types: ServiceState and RevisionHandle result types
  - pkg/deployer: calls CreateService/UpdateService
  - pkg/migrator: calls SetTrafficWeights
  - pkg/rollout: calls DescribeService during discovery

# Thread Safety

Client methods are safe for concurrent use once configured. The With*
builders mutate the client and belong in setup code, before the client
is shared.
*/
package platform
