package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// HTTPStore accesses secrets through the platform secret manager REST API
type HTTPStore struct {
	// BaseURL is the secret manager API root
	BaseURL string

	// Project scopes every lookup
	Project string

	// Token is sent as a bearer token when non-empty
	Token string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewHTTPStore creates a secret manager client
func NewHTTPStore(baseURL, project string) *HTTPStore {
	return &HTTPStore{
		BaseURL: baseURL,
		Project: project,
		HTTPClient: &http.Client{
			Timeout: DefaultCheckTimeout,
		},
	}
}

// WithToken sets the bearer token
func (s *HTTPStore) WithToken(token string) *HTTPStore {
	s.Token = token
	return s
}

// WithTimeout sets the per-call HTTP timeout
func (s *HTTPStore) WithTimeout(timeout time.Duration) *HTTPStore {
	s.HTTPClient.Timeout = timeout
	return s
}

// secretVersion is the wire form of a secret version
type secretVersion struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// AccessLatest fetches the latest version of the named secret. Any status
// other than 200, and any version state other than enabled, is an error.
func (s *HTTPStore) AccessLatest(ctx context.Context, name string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/projects/%s/secrets/%s/versions/latest",
		s.BaseURL, url.PathEscape(s.Project), url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach secret manager: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return "", fmt.Errorf("secret %s not found", name)
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("access to secret %s denied (status %d)", name, resp.StatusCode)
	default:
		return "", fmt.Errorf("secret manager returned status %d for %s", resp.StatusCode, name)
	}

	var ver secretVersion
	if err := json.NewDecoder(resp.Body).Decode(&ver); err != nil {
		return "", fmt.Errorf("failed to decode secret version: %w", err)
	}
	if ver.State != "" && !strings.EqualFold(ver.State, "enabled") {
		return "", fmt.Errorf("latest version of secret %s is %s", name, strings.ToLower(ver.State))
	}

	return ver.Name, nil
}

// EnvStore resolves secrets from process environment variables. It exists
// for local development and tests, where no secret manager is available.
type EnvStore struct {
	// Prefix is prepended to every derived environment key
	Prefix string
}

// NewEnvStore creates an environment-backed store
func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{Prefix: prefix}
}

// AccessLatest reports the secret as reachable when its derived
// environment variable is set
func (s *EnvStore) AccessLatest(_ context.Context, name string) (string, error) {
	key := s.Prefix + envKey(name)
	if _, ok := os.LookupEnv(key); !ok {
		return "", fmt.Errorf("secret %s not found in environment (%s unset)", name, key)
	}
	return "env", nil
}

// envKey maps a secret name to environment variable form
// (dashes become underscores, uppercased)
func envKey(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
