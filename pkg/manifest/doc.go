/*
Package manifest parses and validates the YAML deployment description.

The manifest is the operator's contract with the rollout pipeline: one file
names the service, the image, the secrets it needs, and how hard to probe
it before traffic moves. Parsing is strict (unknown fields are errors) and
validation collects every problem at once, because a deploy script that
fails one field at a time wastes operator round-trips.

# Manifest Format

	service: checkout
	image: gcr.io/acme/checkout:v42
	project: acme-prod
	region: us-central1
	port: 3000
	allowUnauthenticated: true
	env:
	  NODE_ENV: production
	secrets:
	  DATABASE_URL: db-url        # env var name -> secret manager name
	  JWT_SECRET: jwt-secret
	resources:
	  memory: 1Gi
	  cpu: "1"
	  concurrency: 80
	  maxInstances: 10
	  timeout: 300s
	healthCheck:
	  path: /health
	  attemptTimeout: 10s
	  maxAttempts: 10
	  retryInterval: 3s
	trafficSteps: [25, 50]        # optional staged promotion

Only service and image are required. Everything else falls back to
defaults: port 8080, 1Gi memory, 1 CPU, concurrency 80, max 10 instances,
300s request timeout, and the standard probe (GET /, 10 attempts, 3s
apart, 10s per attempt).

# Validation Rules

	service        DNS-1123 name (lowercase alphanumeric, hyphens)
	image          repository:tag or repository@sha256:digest
	port           1-65535
	env keys       environment variable names
	secrets keys   environment variable names
	secrets values DNS-1123 secret names
	memory, cpu    resource quantities ("1", "500m", "1Gi")
	durations      Go duration strings ("10s", "5m"), positive
	probe path     absolute, starting with "/"
	trafficSteps   1-99, each

Failures come back as ValidationErrors, one entry per broken field with
the field path and offending value:

	if err := m.Validate(); err != nil {
		var ves manifest.ValidationErrors
		if errors.As(err, &ves) {
			for _, ve := range ves {
				fmt.Println(ve.Error())
			}
		}
	}

# Usage

	m, err := manifest.Load("deploy.yaml")
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	req, err := m.Request() // *types.DeploymentRequest with defaults applied

# Integration Points

This package integrates with:

  - pkg/types: produces the DeploymentRequest the pipeline consumes
  - cmd/rollout: deploy and validate commands load manifests
  - pkg/migrator: trafficSteps feed WithSteps
*/
package manifest
