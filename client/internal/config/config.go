package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultBaseURL      = "http://localhost:8080/api"
	DefaultBaseURLEnv   = "STOREFRONT_BASE_URL"
	DefaultTimeout      = 10 * time.Second
	DefaultAuthHeader   = "Authorization"
	DefaultLoginPath    = "/login"
	DefaultSessionPath  = "~/.storefront/session.yaml"
	DefaultTokenEnv     = "STOREFRONT_TOKEN"
	DefaultConcurrency  = 4
	DefaultListen       = ":8090"
	DefaultInterval     = 15 * time.Second
	DefaultUptimeWindow = 20
	DefaultStatusHeader = "X-API-Key"
)

// DefaultServices are the backend services probed when health.services is
// absent.
var DefaultServices = []string{"carts", "orders", "users", "commodity", "pays", "gateway"}

// Config is the full configuration tree. Fields map 1:1 to
// storefront.example.yaml.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Auth    AuthConfig    `yaml:"auth"`
	Session SessionConfig `yaml:"session"`
	Health  HealthConfig  `yaml:"health"`
	Status  StatusConfig  `yaml:"status"`
}

// BackendConfig describes where API calls go.
type BackendConfig struct {
	// BaseURL is the backend address every request path is appended to.
	BaseURL string `yaml:"base_url"`

	// BaseURLEnv names an environment variable that, when set, overrides
	// every other address source.
	BaseURLEnv string `yaml:"base_url_env"`

	// Timeout bounds one request.
	Timeout time.Duration `yaml:"timeout"`

	// Active selects one of Environments by label. Empty means BaseURL.
	Active       string        `yaml:"active"`
	Environments []Environment `yaml:"environments"`

	TLS TLSConfig `yaml:"tls"`
}

// Environment is a labelled alternative backend address (local, staging...).
type Environment struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// TLSConfig holds backend TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	CAFile             string `yaml:"ca_file"`
}

// URL resolves the effective backend address: the BaseURLEnv override if
// set, then the active environment, then BaseURL.
func (b BackendConfig) URL() string {
	if b.BaseURLEnv != "" {
		if v := os.Getenv(b.BaseURLEnv); v != "" {
			return v
		}
	}
	if b.Active != "" {
		if env, ok := b.Environment(b.Active); ok {
			return env.URL
		}
	}
	return b.BaseURL
}

// Environment looks up an environment by label.
func (b BackendConfig) Environment(label string) (Environment, bool) {
	for _, e := range b.Environments {
		if e.Label == label {
			return e, true
		}
	}
	return Environment{}, false
}

// AuthConfig controls how the session token is attached to requests.
type AuthConfig struct {
	// Header receives the token. Scheme, when set, is prepended ("Bearer").
	Header string `yaml:"header"`
	Scheme string `yaml:"scheme"`

	// PublicSuffixes are path suffixes that never carry credentials.
	// Absent means the built-in list (/login, /register, health).
	PublicSuffixes []string `yaml:"public_suffixes"`

	// LoginPath is where authentication failures redirect.
	LoginPath string `yaml:"login_path"`
}

// SessionConfig locates the persisted session.
type SessionConfig struct {
	// Path is the session file written by `storefront login`. A leading
	// "~/" is expanded to the user's home directory.
	Path string `yaml:"path"`

	// TokenEnv names an environment variable whose value, when set, is used
	// as the token instead of the file's.
	TokenEnv string `yaml:"token_env"`
}

// ResolvedPath returns Path with a leading "~/" expanded.
func (s SessionConfig) ResolvedPath() (string, error) {
	if !strings.HasPrefix(s.Path, "~/") {
		return s.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve session path: %w", err)
	}
	return filepath.Join(home, s.Path[2:]), nil
}

// Token returns the token override resolved from the environment.
func (s SessionConfig) Token() string {
	if s.TokenEnv == "" {
		return ""
	}
	return os.Getenv(s.TokenEnv)
}

// HealthConfig lists the services the aggregator probes.
type HealthConfig struct {
	// Concurrency caps probes in flight. 0 means unbounded.
	Concurrency int `yaml:"concurrency"`

	// Suffix is appended to "/<service>" for HTTP probes. Empty means "/health".
	Suffix string `yaml:"suffix"`

	Services []ServiceConfig `yaml:"services"`
}

// Names returns the configured service names in order.
func (h HealthConfig) Names() []string {
	names := make([]string, len(h.Services))
	for i, s := range h.Services {
		names[i] = s.Name
	}
	return names
}

// Probe kinds accepted in health.services[].probe.
const (
	ProbeHTTP = "http"
	ProbeGRPC = "grpc"
)

// ServiceConfig describes one probed service.
type ServiceConfig struct {
	Name string `yaml:"name"`

	// Probe is http (default) or grpc.
	Probe string `yaml:"probe"`

	// Address is the host:port of the gRPC health endpoint. Used when
	// Probe == "grpc".
	Address string `yaml:"address"`

	// GRPCService is the service name sent in the health check request.
	// Empty asks about the server as a whole.
	GRPCService string `yaml:"grpc_service"`
}

// StatusConfig configures `storefront serve`.
type StatusConfig struct {
	// Listen is the HTTP address of the status board.
	Listen string `yaml:"listen"`

	// Interval is how often every service is probed.
	Interval time.Duration `yaml:"interval"`

	// UptimeWindow is the number of recent outcomes kept per service.
	UptimeWindow int `yaml:"uptime_window"`

	Auth StatusAuthConfig `yaml:"auth"`
}

// StatusAuthConfig configures REST API authentication on the status board.
type StatusAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header carries the key. Defaults to X-API-Key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the status API key resolved from the environment.
func (a StatusAuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	services := make([]ServiceConfig, len(DefaultServices))
	for i, name := range DefaultServices {
		services[i] = ServiceConfig{Name: name}
	}
	return &Config{
		Backend: BackendConfig{
			BaseURL:    DefaultBaseURL,
			BaseURLEnv: DefaultBaseURLEnv,
			Timeout:    DefaultTimeout,
		},
		Auth: AuthConfig{
			Header:    DefaultAuthHeader,
			LoginPath: DefaultLoginPath,
		},
		Session: SessionConfig{
			Path:     DefaultSessionPath,
			TokenEnv: DefaultTokenEnv,
		},
		Health: HealthConfig{
			Concurrency: DefaultConcurrency,
			Services:    services,
		},
		Status: StatusConfig{
			Listen:       DefaultListen,
			Interval:     DefaultInterval,
			UptimeWindow: DefaultUptimeWindow,
			Auth: StatusAuthConfig{
				Mode:   "none",
				Header: DefaultStatusHeader,
			},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	b := cfg.Backend
	if b.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	labels := make(map[string]bool, len(b.Environments))
	for i, env := range b.Environments {
		if env.Label == "" {
			return fmt.Errorf("backend.environments[%d]: label is required", i)
		}
		if labels[env.Label] {
			return fmt.Errorf("backend.environments[%d]: duplicate label %q", i, env.Label)
		}
		labels[env.Label] = true
		if err := checkURL(env.URL); err != nil {
			return fmt.Errorf("backend.environments[%d] %q: %w", i, env.Label, err)
		}
	}
	if b.Active != "" && !labels[b.Active] {
		return fmt.Errorf("backend.active: unknown environment %q", b.Active)
	}
	if err := checkURL(b.URL()); err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	if cfg.Auth.LoginPath != "" && !strings.HasPrefix(cfg.Auth.LoginPath, "/") {
		return fmt.Errorf("auth.login_path must start with /")
	}
	if cfg.Session.Path == "" {
		return fmt.Errorf("session.path is required")
	}

	if cfg.Health.Concurrency < 0 {
		return fmt.Errorf("health.concurrency must not be negative")
	}
	names := make(map[string]bool, len(cfg.Health.Services))
	for i, svc := range cfg.Health.Services {
		if svc.Name == "" {
			return fmt.Errorf("health.services[%d]: name is required", i)
		}
		if names[svc.Name] {
			return fmt.Errorf("health.services[%d]: duplicate name %q", i, svc.Name)
		}
		names[svc.Name] = true
		switch svc.Probe {
		case "", ProbeHTTP:
		case ProbeGRPC:
			if svc.Address == "" {
				return fmt.Errorf("health.services[%d] %q: address is required for grpc probes", i, svc.Name)
			}
		default:
			return fmt.Errorf("health.services[%d] %q: unknown probe %q", i, svc.Name, svc.Probe)
		}
	}

	if cfg.Status.Interval <= 0 {
		return fmt.Errorf("status.interval must be positive")
	}
	if cfg.Status.UptimeWindow <= 0 {
		return fmt.Errorf("status.uptime_window must be positive")
	}
	switch cfg.Status.Auth.Mode {
	case "none", "":
	case "apikey":
		if cfg.Status.Auth.KeyEnv == "" {
			return fmt.Errorf("status.auth.key_env is required for apikey mode")
		}
	default:
		return fmt.Errorf("status.auth: unknown mode %q", cfg.Status.Auth.Mode)
	}
	return nil
}

func checkURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
