package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mallfront/storefront/client/internal/store"
	"github.com/mallfront/storefront/pkg/health"
)

// Handler serves the status board endpoints from a store.
type Handler struct {
	store  *store.Store
	guard  []func(http.Handler) http.Handler
	stream http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithMiddleware guards /api/v1 and /ws with mw, applied in order.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.guard = append(h.guard, mw...) }
}

// WithStream mounts h at GET /ws/stream.
func WithStream(h http.Handler) Option {
	return func(hd *Handler) { hd.stream = h }
}

// New creates the router wired to the given store and registers all routes.
func New(st *store.Store, opts ...Option) http.Handler {
	h := &Handler{store: st}
	for _, o := range opts {
		o(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", h.metrics)

	r.Group(func(r chi.Router) {
		r.Use(h.guard...)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", h.health)
			r.Get("/services", h.listServices)
			r.Get("/services/{name}", h.getService)
			r.Get("/snapshot", h.snapshot)
		})
		if h.stream != nil {
			r.Get("/ws/stream", h.stream.ServeHTTP)
		}
	})
	return r
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: overall state and per-status counts.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.store.Latest()
	resp := HealthResponse{State: string(health.StatusUnknown)}
	if !ok {
		jsonResp(w, http.StatusOK, resp)
		return
	}
	resp.State = string(snap.Overall())
	resp.ServiceCount = len(snap.Services)
	resp.HealthyCount = snap.Count(health.StatusHealthy)
	resp.UnhealthyCount = snap.Count(health.StatusUnhealthy)
	resp.UnknownCount = snap.Count(health.StatusUnknown)
	resp.CheckedAt = formatTime(snap.CheckedAt)
	jsonResp(w, http.StatusOK, resp)
}

// listServices returns GET /api/v1/services.
func (h *Handler) listServices(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, toServiceResponses(h.store.List()))
}

// getService returns GET /api/v1/services/{name}.
func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store.Get(chi.URLParam(r, "name"))
	if !ok {
		jsonErr(w, http.StatusNotFound, "service not found")
		return
	}
	jsonResp(w, http.StatusOK, toServiceResponse(s))
}

// snapshot returns GET /api/v1/snapshot.
func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store))
}

// BuildSnapshot assembles the full board state. The WebSocket hub
// broadcasts the same payload.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	resp := SnapshotResponse{
		State:       string(health.StatusUnknown),
		Services:    toServiceResponses(st.List()),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if snap, ok := st.Latest(); ok {
		resp.State = string(snap.Overall())
		resp.CheckedAt = formatTime(snap.CheckedAt)
	}
	return resp
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func toServiceResponses(states []store.ServiceState) []ServiceResponse {
	out := make([]ServiceResponse, 0, len(states))
	for _, s := range states {
		out = append(out, toServiceResponse(s))
	}
	return out
}

func toServiceResponse(s store.ServiceState) ServiceResponse {
	return ServiceResponse{
		Name:         s.Name,
		Status:       string(s.Health.Status),
		LatencyMs:    float64(s.Health.Latency) / float64(time.Millisecond),
		Kind:         string(s.Health.Kind),
		Error:        s.Health.Error,
		UptimePct:    s.UptimePct,
		Observations: s.Observations,
		LastHealthy:  formatTime(s.LastHealthy),
		UpdatedAt:    formatTime(s.UpdatedAt),
	}
}

// formatTime renders t as RFC3339 UTC, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
