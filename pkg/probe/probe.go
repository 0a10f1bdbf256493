package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/log"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/metrics"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

// Prober polls a candidate revision's URL until it answers with a 2xx
// status or the attempt budget runs out
type Prober struct {
	// Method is the HTTP method for probe attempts (default: GET)
	Method string

	// Headers are custom HTTP headers to include in every attempt
	Headers map[string]string

	// Client is the HTTP client to use (allows custom configuration).
	// Attempt timeouts come from the HealthCheck config, not the client.
	Client *http.Client

	// sleep pauses between attempts; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error

	logger zerolog.Logger
}

// NewProber creates a prober with default settings
func NewProber() *Prober {
	return &Prober{
		Method:  http.MethodGet,
		Headers: make(map[string]string),
		Client:  &http.Client{},
		sleep:   sleepContext,
		logger:  log.WithComponent("probe"),
	}
}

// WithMethod sets the HTTP method
func (p *Prober) WithMethod(method string) *Prober {
	p.Method = method
	return p
}

// WithHeader adds a custom HTTP header
func (p *Prober) WithHeader(key, value string) *Prober {
	p.Headers[key] = value
	return p
}

// WithClient sets the HTTP client
func (p *Prober) WithClient(client *http.Client) *Prober {
	p.Client = client
	return p
}

// Probe performs up to hc.MaxAttempts GET requests against the candidate
// URL, sleeping hc.RetryInterval between failures. Only a 2xx answer counts
// as healthy. The outcome is always returned, never an error: a candidate
// that cannot be probed is unhealthy, not a pipeline failure.
func (p *Prober) Probe(ctx context.Context, baseURL string, hc types.HealthCheck) types.HealthOutcome {
	start := time.Now()

	target, err := joinURL(baseURL, hc.Path)
	if err != nil {
		p.logger.Error().Err(err).Msg("Candidate URL rejected before probing")
		return types.HealthOutcome{
			Status:    types.HealthStatusUnhealthy,
			Elapsed:   time.Since(start),
			LastError: err.Error(),
		}
	}

	maxAttempts := hc.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = types.DefaultHealthCheck().MaxAttempts
	}
	attemptTimeout := hc.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = types.DefaultHealthCheck().AttemptTimeout
	}

	outcome := types.HealthOutcome{Status: types.HealthStatusTimeout}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, err := p.attempt(ctx, target, attemptTimeout)
		outcome.Attempts = attempt
		outcome.LastStatusCode = code
		outcome.LastError = ""
		if err != nil {
			outcome.LastError = err.Error()
		}

		if err == nil && code >= 200 && code <= 299 {
			outcome.Status = types.HealthStatusHealthy
			outcome.Elapsed = time.Since(start)
			metrics.ProbeAttemptsTotal.WithLabelValues("success").Inc()
			metrics.ProbeDuration.Observe(outcome.Elapsed.Seconds())
			p.logger.Info().
				Str("url", target).
				Int("attempt", attempt).
				Int("status", code).
				Msg("Candidate healthy")
			return outcome
		}

		metrics.ProbeAttemptsTotal.WithLabelValues("failure").Inc()
		p.logger.Debug().
			Str("url", target).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Int("status", code).
			Str("error", outcome.LastError).
			Msg("Probe attempt failed")

		if ctx.Err() != nil {
			outcome.Status = types.HealthStatusUnhealthy
			outcome.LastError = ctx.Err().Error()
			outcome.Elapsed = time.Since(start)
			return outcome
		}

		if attempt < maxAttempts {
			if err := p.sleep(ctx, hc.RetryInterval); err != nil {
				outcome.Status = types.HealthStatusUnhealthy
				outcome.LastError = err.Error()
				outcome.Elapsed = time.Since(start)
				return outcome
			}
		}
	}

	outcome.Elapsed = time.Since(start)
	metrics.ProbeDuration.Observe(outcome.Elapsed.Seconds())
	p.logger.Warn().
		Str("url", target).
		Int("attempts", outcome.Attempts).
		Int("last_status", outcome.LastStatusCode).
		Str("last_error", outcome.LastError).
		Msg("Probe attempts exhausted")
	return outcome
}

// attempt performs one HTTP request against the target
func (p *Prober) attempt(ctx context.Context, target string, timeout time.Duration) (int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, p.Method, target, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range p.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// joinURL appends the probe path to the candidate base URL
func joinURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid candidate URL %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid candidate URL %q: missing http(s) scheme", base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid candidate URL %q: missing host", base)
	}
	if path != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	return u.String(), nil
}

// sleepContext sleeps for d or until the context is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
