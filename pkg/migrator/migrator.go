package migrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/log"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/metrics"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/platform"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

// TrafficShiftError reports a traffic weight change that could not be
// completed
type TrafficShiftError struct {
	// Service is the target service name
	Service string

	// Target is the revision tag that was being promoted
	Target string

	// Applied is the percent the target revision is known to hold despite
	// the failure. Zero means the previously serving revision kept
	// everything; above zero the caller must roll back.
	Applied int

	// Err is the underlying cause
	Err error
}

func (e *TrafficShiftError) Error() string {
	return fmt.Sprintf("failed to shift traffic to %s of service %s (%d%% applied): %v",
		e.Target, e.Service, e.Applied, e.Err)
}

func (e *TrafficShiftError) Unwrap() error {
	return e.Err
}

// Migrator moves traffic between revisions of a service
type Migrator struct {
	api   platform.API
	steps []int

	logger zerolog.Logger
}

// NewMigrator creates a new migrator. By default promotion is a single
// cutover write.
func NewMigrator(api platform.API) *Migrator {
	return &Migrator{
		api:    api,
		logger: log.WithComponent("migrator"),
	}
}

// WithSteps sets intermediate percent milestones for staged promotion.
// Values outside 1-99 are dropped, duplicates collapse, order is made
// ascending. Rollbacks never use stages.
func (m *Migrator) WithSteps(steps []int) *Migrator {
	seen := make(map[int]bool, len(steps))
	cleaned := make([]int, 0, len(steps))
	for _, s := range steps {
		if s <= 0 || s >= 100 || seen[s] {
			continue
		}
		seen[s] = true
		cleaned = append(cleaned, s)
	}
	sort.Ints(cleaned)
	m.steps = cleaned
	return m
}

// ShiftTraffic routes percent of the service's traffic to the target
// revision, leaving the remainder on the revision currently serving. The
// call is idempotent: current weights are read first, and a target already
// at the requested percent produces no write.
func (m *Migrator) ShiftTraffic(ctx context.Context, service, target string, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("invalid target percent %d: must be within 0-100", percent)
	}

	state, err := m.api.DescribeService(ctx, service)
	if err != nil {
		return &TrafficShiftError{Service: service, Target: target,
			Err: fmt.Errorf("failed to read current weights: %w", err)}
	}
	if !state.Exists {
		return &TrafficShiftError{Service: service, Target: target,
			Err: fmt.Errorf("service %s does not exist", service)}
	}

	current, known := state.Weights[target]
	if !known {
		return &TrafficShiftError{Service: service, Target: target,
			Err: fmt.Errorf("revision %s not found on service %s", target, service)}
	}

	if current == percent {
		m.logger.Info().
			Str("service", service).
			Str("revision", target).
			Int("percent", percent).
			Msg("Traffic already at requested weight, skipping write")
		metrics.TrafficShiftsTotal.WithLabelValues("noop").Inc()
		return nil
	}

	weights := map[string]int{target: percent}
	if remainder := 100 - percent; remainder > 0 {
		holder := remainderHolder(state, target)
		if holder == "" {
			return &TrafficShiftError{Service: service, Target: target, Applied: current,
				Err: fmt.Errorf("no serving revision to hold remaining %d%%", remainder)}
		}
		weights[holder] = remainder
	}

	if err := m.api.SetTrafficWeights(ctx, service, weights); err != nil {
		metrics.TrafficShiftsTotal.WithLabelValues("failed").Inc()
		return &TrafficShiftError{Service: service, Target: target, Applied: current, Err: err}
	}

	metrics.TrafficShiftsTotal.WithLabelValues("applied").Inc()
	m.logger.Info().
		Str("service", service).
		Str("revision", target).
		Int("from_percent", current).
		Int("to_percent", percent).
		Msg("Traffic shifted")
	return nil
}

// Promote walks the target revision up to 100% through the configured
// milestones. With no steps configured this is one cutover write. A failed
// milestone surfaces as *TrafficShiftError whose Applied field tells the
// caller how much traffic the candidate already holds.
func (m *Migrator) Promote(ctx context.Context, service, target string) error {
	for _, milestone := range m.milestones() {
		if err := m.ShiftTraffic(ctx, service, target, milestone); err != nil {
			return err
		}
	}
	return nil
}

// Rollback restores the previous revision to full traffic after a failed
// promotion. Stages never apply here: recovery is one immediate write.
func (m *Migrator) Rollback(ctx context.Context, service, previous string) error {
	m.logger.Warn().
		Str("service", service).
		Str("revision", previous).
		Msg("Restoring traffic to previous revision")
	metrics.RollbacksTotal.Inc()
	return m.ShiftTraffic(ctx, service, previous, 100)
}

// milestones returns the ascending percent sequence ending at 100
func (m *Migrator) milestones() []int {
	out := make([]int, 0, len(m.steps)+1)
	out = append(out, m.steps...)
	return append(out, 100)
}

// remainderHolder picks the revision that keeps the non-target share:
// the one currently serving the most traffic. Zero-weight revisions never
// qualify. Ties break lexicographically for determinism.
func remainderHolder(state *types.ServiceState, target string) string {
	holder, best := "", 0
	for tag, w := range state.Weights {
		if tag == target || w == 0 {
			continue
		}
		if w > best || (w == best && tag < holder) {
			holder, best = tag, w
		}
	}
	return holder
}
