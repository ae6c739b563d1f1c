// Package api implements the status board's HTTP API for `storefront serve`.
//
// New(store, opts...) returns an http.Handler (a chi router) that serves:
//
//	GET /healthz                  liveness of the board itself
//	GET /api/v1/health            overall state and per-status counts
//	GET /api/v1/services          every tracked service ([]ServiceResponse)
//	GET /api/v1/services/{name}   one service; 404 if not tracked
//	GET /api/v1/snapshot          full dump: services + checked_at + generated_at
//	GET /metrics                  Prometheus text exposition
//	GET /ws/stream                live stream, when WithStream is given
//
// JSON endpoints respond with Content-Type: application/json. Middleware
// passed via WithMiddleware guards /api/v1 and /ws; /healthz and /metrics
// stay open. JSON types are defined in types.go.
package api
