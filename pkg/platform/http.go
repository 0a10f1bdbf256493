package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

// Client is an HTTP JSON client for the platform admin API. It implements
// the API interface against endpoints of the form
// /v1/projects/{project}/regions/{region}/services[/{name}[/traffic]].
type Client struct {
	// BaseURL is the admin API root (e.g., "https://run.admin.example.com")
	BaseURL string

	// Project and Region scope every call
	Project string
	Region  string

	// Token is sent as a bearer token when non-empty
	Token string

	// HTTPClient is the underlying HTTP client (allows custom configuration)
	HTTPClient *http.Client
}

// NewClient creates a new platform admin client
func NewClient(baseURL, project, region string) *Client {
	return &Client{
		BaseURL: baseURL,
		Project: project,
		Region:  region,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken sets the bearer token
func (c *Client) WithToken(token string) *Client {
	c.Token = token
	return c
}

// WithTimeout sets the per-call HTTP timeout
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.HTTPClient.Timeout = timeout
	return c
}

// serviceResource is the wire form of a service
type serviceResource struct {
	Name      string             `json:"name"`
	URL       string             `json:"url"`
	Traffic   map[string]int     `json:"traffic"`
	Revisions []revisionResource `json:"revisions"`
}

// revisionResource is the wire form of a revision
type revisionResource struct {
	Tag       string    `json:"tag"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// serviceSpecPayload is the wire form of a create/update request
type serviceSpecPayload struct {
	Name                 string            `json:"name"`
	Image                string            `json:"image"`
	RevisionTag          string            `json:"revisionTag"`
	NoTraffic            bool              `json:"noTraffic"`
	Port                 int               `json:"port,omitempty"`
	Env                  map[string]string `json:"env,omitempty"`
	SecretRefs           map[string]string `json:"secretRefs,omitempty"`
	Memory               string            `json:"memory,omitempty"`
	CPU                  string            `json:"cpu,omitempty"`
	Concurrency          int               `json:"concurrency,omitempty"`
	MinInstances         int               `json:"minInstances,omitempty"`
	MaxInstances         int               `json:"maxInstances,omitempty"`
	TimeoutSeconds       int               `json:"timeoutSeconds,omitempty"`
	AllowUnauthenticated bool              `json:"allowUnauthenticated,omitempty"`
}

type trafficPayload struct {
	Weights map[string]int `json:"weights"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// DescribeService returns the current state of a service. An unknown
// service is reported as absent, not as an error.
func (c *Client) DescribeService(ctx context.Context, name string) (*types.ServiceState, error) {
	var svc serviceResource
	err := c.do(ctx, http.MethodGet, c.servicePath(name), nil, &svc)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return &types.ServiceState{Exists: false}, nil
		}
		return nil, fmt.Errorf("failed to describe service %s: %w", name, err)
	}

	state := &types.ServiceState{
		Exists:  true,
		Weights: svc.Traffic,
		URL:     svc.URL,
	}

	// The serving revision is the one holding the largest weight
	for tag, percent := range svc.Traffic {
		if percent > state.TrafficPercent {
			state.ServingRevision = tag
			state.TrafficPercent = percent
		}
	}

	return state, nil
}

// CreateService creates a service with a zero-traffic initial revision
func (c *Client) CreateService(ctx context.Context, spec *ServiceSpec) (*types.RevisionHandle, error) {
	var rev revisionResource
	if err := c.do(ctx, http.MethodPost, c.servicesPath(), specPayload(spec), &rev); err != nil {
		return nil, fmt.Errorf("failed to create service %s: %w", spec.Name, err)
	}
	return revisionHandle(spec.Name, rev), nil
}

// UpdateService adds a zero-traffic revision to an existing service
func (c *Client) UpdateService(ctx context.Context, name string, spec *ServiceSpec) (*types.RevisionHandle, error) {
	var rev revisionResource
	if err := c.do(ctx, http.MethodPatch, c.servicePath(name), specPayload(spec), &rev); err != nil {
		return nil, fmt.Errorf("failed to update service %s: %w", name, err)
	}
	return revisionHandle(name, rev), nil
}

// SetTrafficWeights replaces the service's traffic assignment
func (c *Client) SetTrafficWeights(ctx context.Context, name string, weights map[string]int) error {
	payload := &trafficPayload{Weights: weights}
	if err := c.do(ctx, http.MethodPut, c.servicePath(name)+"/traffic", payload, nil); err != nil {
		return fmt.Errorf("failed to set traffic weights for %s: %w", name, err)
	}
	return nil
}

// GetServiceURL returns the service URL or a revision-specific URL
func (c *Client) GetServiceURL(ctx context.Context, name, revisionTag string) (string, error) {
	var svc serviceResource
	if err := c.do(ctx, http.MethodGet, c.servicePath(name), nil, &svc); err != nil {
		return "", fmt.Errorf("failed to get URL for %s: %w", name, err)
	}

	if revisionTag == "" {
		return svc.URL, nil
	}

	for _, rev := range svc.Revisions {
		if rev.Tag == revisionTag {
			return rev.URL, nil
		}
	}

	return "", fmt.Errorf("revision %s of service %s: %w", revisionTag, name, ErrServiceNotFound)
}

func (c *Client) servicesPath() string {
	return fmt.Sprintf("/v1/projects/%s/regions/%s/services",
		url.PathEscape(c.Project), url.PathEscape(c.Region))
}

func (c *Client) servicePath(name string) string {
	return c.servicesPath() + "/" + url.PathEscape(name)
}

// do performs one JSON request/response cycle against the admin API
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
		var ep errorPayload
		if decodeErr := json.NewDecoder(resp.Body).Decode(&ep); decodeErr == nil {
			apiErr.Message = ep.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func specPayload(spec *ServiceSpec) *serviceSpecPayload {
	return &serviceSpecPayload{
		Name:                 spec.Name,
		Image:                spec.Image,
		RevisionTag:          spec.RevisionTag,
		NoTraffic:            spec.NoTraffic,
		Port:                 spec.Port,
		Env:                  spec.Env,
		SecretRefs:           spec.SecretRefs,
		Memory:               spec.Memory,
		CPU:                  spec.CPU,
		Concurrency:          spec.Concurrency,
		MinInstances:         spec.MinInstances,
		MaxInstances:         spec.MaxInstances,
		TimeoutSeconds:       int(spec.RequestTimeout.Seconds()),
		AllowUnauthenticated: spec.AllowUnauthenticated,
	}
}

func revisionHandle(service string, rev revisionResource) *types.RevisionHandle {
	created := rev.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &types.RevisionHandle{
		Service:        service,
		Tag:            rev.Tag,
		URL:            rev.URL,
		TrafficPercent: 0,
		CreatedAt:      created,
	}
}
