/*
Package secrets validates secret availability before a rollout mutates
anything on the platform.

A deployment that references a missing or inaccessible secret will start
containers that crash at boot. The secrets package front-loads that failure:
every referenced secret is checked against the secret manager first, and the
rollout aborts cleanly before any revision is created if even one check
fails.

# Architecture

Validation fans out over a bounded worker set:

	┌──────────────────── pkg/rollout ────────────────────────────┐
	│                                                              │
	│   names := secrets.Names(req)                                │
	│   results := validator.ValidateAll(ctx, names)               │
	│                                                              │
	└──────────────────────────┬───────────────────────────────┘
	                           │
	┌──────────────────────────▼──── pkg/secrets ─────────────────┐
	│                                                              │
	│  ┌──────────────────────────────────────────────┐          │
	│  │              Validator                        │          │
	│  │  - dedupes referenced names                   │          │
	│  │  - bounded concurrency (default 4)            │          │
	│  │  - per-check timeout (default 10s)            │          │
	│  │  - failures recorded, never thrown            │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │ Store.AccessLatest                     │
	│      ┌──────────────┴──────────────┐                        │
	│      ▼                             ▼                        │
	│  HTTPStore                     EnvStore                     │
	│  (secret manager API)          (local development)          │
	└──────────────────────────────────────────────────────────┘

# Semantics

A secret is reachable when its latest version exists, is readable with the
caller's credentials, and is enabled. Everything else is unreachable:
missing secrets, permission failures, disabled versions, network errors,
and checks that exceed the timeout. The validator never distinguishes
transient from permanent failure; any unreachable secret means the rollout
must not proceed.

ValidateAll returns one result per unique secret, in first-seen order.
Failures come back inside the results as Reachable=false with a Detail
string, so callers can report every broken secret at once instead of
stopping at the first.

# Usage

Validating before a rollout:

	store := secrets.NewHTTPStore(
		"https://secrets.admin.example.com",
		"acme-prod",
	).WithToken(token)

	validator := secrets.NewValidator(store).
		WithTimeout(10 * time.Second).
		WithConcurrency(4)

	results := validator.ValidateAll(ctx, secrets.Names(req))
	if bad := secrets.Unreachable(results); len(bad) > 0 {
		for _, r := range bad {
			fmt.Printf("secret %s: %s\n", r.Name, r.Detail)
		}
		// Abort before any deploy side effects
	}

Local development without a secret manager:

	store := secrets.NewEnvStore("ROLLOUT_SECRET_")
	// db-password resolves via ROLLOUT_SECRET_DB_PASSWORD

# Integration Points

This package integrates with:

  - pkg/types: SecretCheckResult and DeploymentRequest
  - pkg/rollout: calls ValidateAll during the validation stage
  - pkg/metrics: rollout_secret_checks_total by outcome
  - pkg/log: component-scoped structured logging
*/
package secrets
