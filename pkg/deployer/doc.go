/*
Package deployer pushes candidate revisions to the platform without giving
them traffic.

The deployer owns the create-versus-update decision and the invariant that
every new revision starts at zero traffic. Whatever happens after the
deploy (failed probes, aborted rollouts, operator panic), users keep
hitting the serving revision until the migrator explicitly moves them.

# Architecture

	┌──────────────────── pkg/rollout ────────────────────────────┐
	│                                                              │
	│   state ──▶ deployer.Deploy(ctx, req, state) ──▶ handle     │
	│                                                              │
	└──────────────────────────┬───────────────────────────────┘
	                           │
	┌──────────────────────────▼──── pkg/deployer ────────────────┐
	│                                                              │
	│   state.Exists?                                              │
	│       │no                      │yes                          │
	│       ▼                        ▼                             │
	│   CreateService           UpdateService                      │
	│   (first revision)        (new revision alongside            │
	│                            the serving one)                  │
	│                                                              │
	│   both paths: NoTraffic=true, unique candidate tag,          │
	│   secret references passed through unresolved                │
	│                                                              │
	└──────────────────────────┬───────────────────────────────┘
	                           │ platform.API
	                           ▼
	                    platform admin API

# Candidate Tags

Each deploy attempt gets a fresh tag of the form

	<service>-cand-<8 hex chars>

derived from a random UUID. Tags are never reused, so a retried rollout
produces a distinguishable revision and concurrent rollouts cannot collide
on names.

# Error Handling

A rejected deploy surfaces as *DeployError carrying the service, the kind
of call that failed (create or update), and the platform's error:

	handle, err := d.Deploy(ctx, req, state)
	if err != nil {
		var deployErr *deployer.DeployError
		if errors.As(err, &deployErr) {
			fmt.Printf("%s of %s rejected: %v\n",
				deployErr.Kind, deployErr.Service, deployErr.Err)
		}
	}

A deploy rejection is clean by construction: the platform refused the
revision, so nothing changed and there is nothing to roll back.

# Usage

	d := deployer.NewDeployer(client)

	handle, err := d.Deploy(ctx, req, state)
	if err != nil {
		// abort; serving revision untouched
	}
	// handle.URL is the probe target, handle.TrafficPercent is 0

# Integration Points

This package integrates with:

  - pkg/platform: CreateService, UpdateService, GetServiceURL
  - pkg/types: DeploymentRequest in, RevisionHandle out
  - pkg/rollout: called during the deploying stage
  - pkg/metrics: rollout_deploys_total by kind
*/
package deployer
