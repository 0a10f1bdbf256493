package manifest

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

// Defaults applied when the manifest leaves a field unset
const (
	DefaultPort         = 8080
	DefaultMemory       = "1Gi"
	DefaultCPU          = "1"
	DefaultConcurrency  = 80
	DefaultMaxInstances = 10
	DefaultTimeout      = 300 * time.Second
)

// Manifest is the YAML deployment description operators feed to the CLI
type Manifest struct {
	Service string `yaml:"service" validate:"required,dns1123"`
	Image   string `yaml:"image" validate:"required,image_ref"`

	// Project and Region may also come from CLI flags; the manifest wins
	// when both are set
	Project string `yaml:"project"`
	Region  string `yaml:"region"`

	Port                 int  `yaml:"port" validate:"omitempty,min=1,max=65535"`
	AllowUnauthenticated bool `yaml:"allowUnauthenticated"`

	// Env vars are set verbatim on the revision
	Env map[string]string `yaml:"env"`

	// Secrets maps env var names to secret manager names. Values are
	// references; the platform resolves them at instance start.
	Secrets map[string]string `yaml:"secrets"`

	Resources   ResourcesSpec   `yaml:"resources"`
	HealthCheck HealthCheckSpec `yaml:"healthCheck"`

	// TrafficSteps are optional intermediate percent milestones for a
	// staged promotion. Empty means a single 100% cutover.
	TrafficSteps []int `yaml:"trafficSteps" validate:"omitempty,dive,min=1,max=99"`
}

// ResourcesSpec is the manifest's resource block. Durations are strings so
// operators can write "300s" or "5m".
type ResourcesSpec struct {
	Memory       string `yaml:"memory" validate:"omitempty,quantity"`
	CPU          string `yaml:"cpu" validate:"omitempty,quantity"`
	Concurrency  int    `yaml:"concurrency" validate:"omitempty,min=1"`
	MinInstances int    `yaml:"minInstances" validate:"omitempty,min=0"`
	MaxInstances int    `yaml:"maxInstances" validate:"omitempty,min=1"`
	Timeout      string `yaml:"timeout" validate:"omitempty,duration"`
}

// HealthCheckSpec is the manifest's probe block
type HealthCheckSpec struct {
	Path           string `yaml:"path" validate:"omitempty,probe_path"`
	AttemptTimeout string `yaml:"attemptTimeout" validate:"omitempty,duration"`
	MaxAttempts    int    `yaml:"maxAttempts" validate:"omitempty,min=1"`
	RetryInterval  string `yaml:"retryInterval" validate:"omitempty,duration"`
}

// Load reads and parses a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse parses manifest YAML. Unknown fields are errors so typos surface
// at validation time instead of silently deploying defaults.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest against the schema rules
func (m *Manifest) Validate() error {
	var errs ValidationErrors

	if err := newValidator().Struct(m); err != nil {
		converted := convertValidatorErrors(err)
		ves, ok := converted.(ValidationErrors)
		if !ok {
			return converted
		}
		errs = append(errs, ves...)
	}

	errs = append(errs, m.validateMaps()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateMaps checks env and secret entries, naming the offending key.
// Struct tags cannot produce per-entry messages this precise.
func (m *Manifest) validateMaps() ValidationErrors {
	var errs ValidationErrors

	for _, key := range sortedKeys(m.Env) {
		if !envVarNamePattern.MatchString(key) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("env[%s]", key),
				Message: "must be a valid environment variable name (alphanumeric and underscores, starting with letter/underscore)",
				Value:   key,
			})
		}
	}

	for _, key := range sortedKeys(m.Secrets) {
		if !envVarNamePattern.MatchString(key) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("secrets[%s]", key),
				Message: "must be a valid environment variable name (alphanumeric and underscores, starting with letter/underscore)",
				Value:   key,
			})
		}
		if name := m.Secrets[key]; !isValidDNSName(name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("secrets[%s]", key),
				Message: "must reference a valid DNS-1123 secret name (lowercase alphanumeric and hyphens)",
				Value:   name,
			})
		}
	}

	return errs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Request converts a validated manifest into a deployment request,
// applying defaults for everything unset
func (m *Manifest) Request() (*types.DeploymentRequest, error) {
	req := &types.DeploymentRequest{
		Service:              m.Service,
		Image:                m.Image,
		Project:              m.Project,
		Region:               m.Region,
		Port:                 m.Port,
		AllowUnauthenticated: m.AllowUnauthenticated,
		Env:                  m.Env,
		Secrets:              m.Secrets,
	}
	if req.Port == 0 {
		req.Port = DefaultPort
	}

	res, err := m.resources()
	if err != nil {
		return nil, err
	}
	req.Resources = res

	hc, err := m.healthCheck()
	if err != nil {
		return nil, err
	}
	req.HealthCheck = hc

	return req, nil
}

func (m *Manifest) resources() (types.Resources, error) {
	res := types.Resources{
		Memory:       m.Resources.Memory,
		CPU:          m.Resources.CPU,
		Concurrency:  m.Resources.Concurrency,
		MinInstances: m.Resources.MinInstances,
		MaxInstances: m.Resources.MaxInstances,
		Timeout:      DefaultTimeout,
	}
	if res.Memory == "" {
		res.Memory = DefaultMemory
	}
	if res.CPU == "" {
		res.CPU = DefaultCPU
	}
	if res.Concurrency == 0 {
		res.Concurrency = DefaultConcurrency
	}
	if res.MaxInstances == 0 {
		res.MaxInstances = DefaultMaxInstances
	}
	if m.Resources.Timeout != "" {
		d, err := time.ParseDuration(m.Resources.Timeout)
		if err != nil {
			return res, fmt.Errorf("invalid resources.timeout: %w", err)
		}
		res.Timeout = d
	}
	return res, nil
}

func (m *Manifest) healthCheck() (types.HealthCheck, error) {
	hc := types.DefaultHealthCheck()
	if m.HealthCheck.Path != "" {
		hc.Path = m.HealthCheck.Path
	}
	if m.HealthCheck.MaxAttempts > 0 {
		hc.MaxAttempts = m.HealthCheck.MaxAttempts
	}
	if m.HealthCheck.AttemptTimeout != "" {
		d, err := time.ParseDuration(m.HealthCheck.AttemptTimeout)
		if err != nil {
			return hc, fmt.Errorf("invalid healthCheck.attemptTimeout: %w", err)
		}
		hc.AttemptTimeout = d
	}
	if m.HealthCheck.RetryInterval != "" {
		d, err := time.ParseDuration(m.HealthCheck.RetryInterval)
		if err != nil {
			return hc, fmt.Errorf("invalid healthCheck.retryInterval: %w", err)
		}
		hc.RetryInterval = d
	}
	return hc, nil
}
