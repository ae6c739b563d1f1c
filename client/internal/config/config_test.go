package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
backend:
  base_url: "http://shop.internal:8080/api"
  timeout: 3s
auth:
  header: X-Token
  scheme: Bearer
  public_suffixes: ["/login", "/captcha"]
session:
  path: /tmp/sf/session.yaml
health:
  concurrency: 2
  services:
    - name: carts
    - name: gateway
      probe: grpc
      address: "localhost:50051"
status:
  listen: ":9000"
  interval: 30s
  uptime_window: 10
`
	t.Setenv(DefaultBaseURLEnv, "")
	cfg := loadFromString(t, yaml)

	if got := cfg.Backend.URL(); got != "http://shop.internal:8080/api" {
		t.Errorf("backend url: got %q", got)
	}
	if cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("timeout: got %v", cfg.Backend.Timeout)
	}
	if cfg.Auth.Header != "X-Token" || cfg.Auth.Scheme != "Bearer" {
		t.Errorf("auth: got %+v", cfg.Auth)
	}
	if diff := cmp.Diff([]string{"/login", "/captcha"}, cfg.Auth.PublicSuffixes); diff != "" {
		t.Errorf("public_suffixes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"carts", "gateway"}, cfg.Health.Names()); diff != "" {
		t.Errorf("services mismatch (-want +got):\n%s", diff)
	}
	if cfg.Health.Services[1].Address != "localhost:50051" {
		t.Errorf("grpc address: got %q", cfg.Health.Services[1].Address)
	}
	if cfg.Status.Listen != ":9000" || cfg.Status.UptimeWindow != 10 {
		t.Errorf("status: got %+v", cfg.Status)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(DefaultBaseURLEnv, "")
	cfg := loadFromString(t, "backend: {}\n")

	if cfg.Backend.URL() != DefaultBaseURL {
		t.Errorf("default base_url: got %q", cfg.Backend.URL())
	}
	if cfg.Backend.Timeout != DefaultTimeout {
		t.Errorf("default timeout: got %v, want %v", cfg.Backend.Timeout, DefaultTimeout)
	}
	if cfg.Auth.Header != DefaultAuthHeader || cfg.Auth.LoginPath != DefaultLoginPath {
		t.Errorf("default auth: got %+v", cfg.Auth)
	}
	if cfg.Auth.PublicSuffixes != nil {
		t.Errorf("public_suffixes should stay nil so the built-in list applies, got %v", cfg.Auth.PublicSuffixes)
	}
	if diff := cmp.Diff(DefaultServices, cfg.Health.Names()); diff != "" {
		t.Errorf("default services mismatch (-want +got):\n%s", diff)
	}
	if cfg.Health.Concurrency != DefaultConcurrency {
		t.Errorf("default concurrency: got %d", cfg.Health.Concurrency)
	}
	if cfg.Status.Interval != DefaultInterval || cfg.Status.UptimeWindow != DefaultUptimeWindow {
		t.Errorf("default status: got %+v", cfg.Status)
	}
	if cfg.Status.Auth.Header != DefaultStatusHeader {
		t.Errorf("default status header: got %q", cfg.Status.Auth.Header)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"non-http base url", `backend: {base_url: "ftp://x"}`, "http or https"},
		{"zero timeout", `backend: {timeout: 0s}`, "timeout"},
		{"unknown active", `backend: {active: staging}`, "unknown environment"},
		{"environment without url", `backend: {environments: [{label: dev}]}`, "url is required"},
		{"duplicate environment", `backend: {environments: [{label: a, url: "http://a"}, {label: a, url: "http://b"}]}`, "duplicate label"},
		{"service without name", `health: {services: [{probe: http}]}`, "name is required"},
		{"duplicate service", `health: {services: [{name: carts}, {name: carts}]}`, "duplicate name"},
		{"grpc without address", `health: {services: [{name: gateway, probe: grpc}]}`, "address is required"},
		{"unknown probe", `health: {services: [{name: carts, probe: tcp}]}`, "unknown probe"},
		{"negative concurrency", `health: {concurrency: -1}`, "concurrency"},
		{"zero window", `status: {uptime_window: 0}`, "uptime_window"},
		{"apikey without key_env", `status: {auth: {mode: apikey}}`, "key_env"},
		{"unknown status auth", `status: {auth: {mode: oauth}}`, "unknown mode"},
		{"relative login path", `auth: {login_path: login}`, "login_path"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(DefaultBaseURLEnv, "")
			_, err := loadStringErr(t, tc.yaml)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	if _, err := loadStringErr(t, "backend: [oops"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBackendConfig_URL(t *testing.T) {
	envs := []Environment{
		{Label: "local", URL: "http://localhost:8080/api"},
		{Label: "staging", URL: "https://staging.example.com/api"},
	}
	tests := []struct {
		name     string
		cfg      BackendConfig
		override string
		want     string
	}{
		{"base only", BackendConfig{BaseURL: "http://a/api"}, "", "http://a/api"},
		{"active environment", BackendConfig{BaseURL: "http://a/api", Active: "staging", Environments: envs}, "", "https://staging.example.com/api"},
		{"env override wins", BackendConfig{BaseURL: "http://a/api", BaseURLEnv: "SF_TEST_URL", Active: "staging", Environments: envs}, "http://override/api", "http://override/api"},
		{"empty override ignored", BackendConfig{BaseURL: "http://a/api", BaseURLEnv: "SF_TEST_URL"}, "", "http://a/api"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("SF_TEST_URL", tc.override)
			if got := tc.cfg.URL(); got != tc.want {
				t.Errorf("URL() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLoad_BaseURLOverride(t *testing.T) {
	t.Setenv(DefaultBaseURLEnv, "https://prod.example.com/api")
	cfg := loadFromString(t, `backend: {base_url: "http://localhost:8080/api"}`)
	if got := cfg.Backend.URL(); got != "https://prod.example.com/api" {
		t.Errorf("URL() = %q, want override", got)
	}
}

func TestSessionConfig(t *testing.T) {
	t.Setenv("SF_TEST_TOKEN", "tok")
	s := SessionConfig{Path: "~/.storefront/session.yaml", TokenEnv: "SF_TEST_TOKEN"}
	if s.Token() != "tok" {
		t.Errorf("Token(): got %q", s.Token())
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := s.ResolvedPath()
	if err != nil {
		t.Fatalf("ResolvedPath: %v", err)
	}
	if want := filepath.Join(home, ".storefront", "session.yaml"); got != want {
		t.Errorf("ResolvedPath() = %q, want %q", got, want)
	}

	abs := SessionConfig{Path: "/var/lib/sf/session.yaml"}
	if got, _ := abs.ResolvedPath(); got != "/var/lib/sf/session.yaml" {
		t.Errorf("absolute path changed: %q", got)
	}
	if (SessionConfig{}).Token() != "" {
		t.Error("Token() without TokenEnv should be empty")
	}
}

func TestStatusAuthConfig_Key(t *testing.T) {
	t.Setenv("SF_STATUS_KEY", "supersecret")
	a := StatusAuthConfig{Mode: "apikey", KeyEnv: "SF_STATUS_KEY"}
	if got := a.Key(); got != "supersecret" {
		t.Errorf("Key(): got %q, want %q", got, "supersecret")
	}
	if got := (StatusAuthConfig{Mode: "apikey"}).Key(); got != "" {
		t.Errorf("Key() with no KeyEnv: got %q, want empty", got)
	}
}

func TestWatch_Reloads(t *testing.T) {
	t.Setenv(DefaultBaseURLEnv, "")
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	writeFile(t, path, `health: {services: [{name: carts}]}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, func(c *Config) { changes <- c }) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	replaceFile(t, path, `health: {services: [{name: carts}, {name: orders}]}`)

	select {
	case cfg := <-changes:
		if diff := cmp.Diff([]string{"carts", "orders"}, cfg.Health.Names()); diff != "" {
			t.Errorf("reloaded services mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestWatch_InvalidReloadKeepsPrevious(t *testing.T) {
	t.Setenv(DefaultBaseURLEnv, "")
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	writeFile(t, path, `backend: {}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	go func() { _ = Watch(ctx, path, func(c *Config) { changes <- c }) }()

	time.Sleep(100 * time.Millisecond)
	replaceFile(t, path, `backend: {timeout: -1s}`)

	select {
	case cfg := <-changes:
		t.Fatalf("invalid config delivered: %+v", cfg.Backend)
	case <-time.After(300 * time.Millisecond):
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	writeFile(t, path, content)
	return Load(path)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
}

// replaceFile saves content the way editors do: write a sibling temp file,
// then rename it over path.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	writeFile(t, tmp, content)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename temp config: %v", err)
	}
}
