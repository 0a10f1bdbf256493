package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestRolloutStateTerminal tests terminal state classification
func TestRolloutStateTerminal(t *testing.T) {
	tests := []struct {
		state    RolloutState
		terminal bool
	}{
		{StateInit, false},
		{StateValidatingSecrets, false},
		{StateDiscovering, false},
		{StateDeploying, false},
		{StateHealthChecking, false},
		{StateMigrating, false},
		{StateSucceeded, true},
		{StateAborted, true},
		{StateRolledBack, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.Terminal())
		})
	}
}

// TestRolloutResultExitCode tests the process exit contract
func TestRolloutResultExitCode(t *testing.T) {
	tests := []struct {
		name    string
		state   RolloutState
		failure FailureKind
		want    int
	}{
		{"succeeded", StateSucceeded, FailureNone, ExitSucceeded},
		{"secret abort", StateAborted, FailureSecrets, ExitSecretAbort},
		{"deploy abort", StateAborted, FailureDeploy, ExitDeployAbort},
		{"health abort", StateAborted, FailureHealthCheck, ExitHealthAbort},
		{"shift abort", StateAborted, FailureTrafficShift, ExitShiftAbort},
		{"cancelled", StateAborted, FailureCancelled, ExitCancelled},
		{"rolled back", StateRolledBack, FailureTrafficShift, ExitRolledBack},
		{"unknown abort", StateAborted, FailureNone, ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &RolloutResult{FinalState: tt.state, FailureKind: tt.failure}
			assert.Equal(t, tt.want, res.ExitCode())
		})
	}
}

// TestExitCodesDistinct verifies automation can distinguish every outcome
func TestExitCodesDistinct(t *testing.T) {
	codes := []int{
		ExitSucceeded,
		ExitUsage,
		ExitSecretAbort,
		ExitDeployAbort,
		ExitHealthAbort,
		ExitShiftAbort,
		ExitRolledBack,
		ExitCancelled,
	}

	seen := make(map[int]bool)
	for _, code := range codes {
		assert.False(t, seen[code], "exit code %d assigned twice", code)
		seen[code] = true
	}
}

// TestHealthOutcomeHealthy tests the traffic-shift gate predicate
func TestHealthOutcomeHealthy(t *testing.T) {
	assert.True(t, HealthOutcome{Status: HealthStatusHealthy}.Healthy())
	assert.False(t, HealthOutcome{Status: HealthStatusUnhealthy}.Healthy())
	assert.False(t, HealthOutcome{Status: HealthStatusTimeout}.Healthy())
}

// TestRolloutResultDuration tests wall-clock accounting
func TestRolloutResultDuration(t *testing.T) {
	start := time.Date(2025, 8, 7, 14, 30, 0, 0, time.UTC)
	res := &RolloutResult{
		StartedAt:  start,
		FinishedAt: start.Add(42 * time.Second),
	}
	assert.Equal(t, 42*time.Second, res.Duration())
}

// TestDefaultHealthCheck verifies probe defaults are sane
func TestDefaultHealthCheck(t *testing.T) {
	hc := DefaultHealthCheck()
	assert.Equal(t, "/", hc.Path)
	assert.Greater(t, hc.MaxAttempts, 0)
	assert.Greater(t, hc.AttemptTimeout, time.Duration(0))
	assert.Greater(t, hc.RetryInterval, time.Duration(0))
}
