// Package config loads and watches the storefront configuration file.
//
// Top-level types:
//   - Config{Backend, Auth, Session, Health, Status}: full tree parsed from YAML
//   - BackendConfig: base_url, base_url_env, timeout, active + environments, tls;
//     URL() resolves env override > active environment > base_url
//   - AuthConfig: header, scheme, public_suffixes, login_path
//   - SessionConfig: session file path and the token_env override
//   - HealthConfig: probe concurrency, suffix and the service list
//     (http by default, grpc with an address)
//   - StatusConfig: listen address, probe interval, uptime window and the
//     status board API key (key_env)
//
// Load(path) reads the YAML file, applies defaults (10s timeout, six
// services, 15s interval, :8090), then validates required fields and enums.
// Default() returns the same defaults when no file exists.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config.
package config
