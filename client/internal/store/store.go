package store

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mallfront/storefront/pkg/health"
)

// DefaultWindow is the number of recent probe outcomes kept per service.
const DefaultWindow = 20

// ServiceState is the status board's view of one service: the latest probe
// result plus uptime over the recent window.
type ServiceState struct {
	Name   string               `json:"name"`
	Health health.ServiceHealth `json:"health"`
	// UptimePct is the share of healthy outcomes in the window, 0-100.
	// It is 100 before the first observation.
	UptimePct float64 `json:"uptime_pct"`
	// Observations is how many outcomes the window currently holds.
	Observations int       `json:"observations"`
	LastHealthy  time.Time `json:"last_healthy,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type serviceState struct {
	latest      health.ServiceHealth
	history     []bool
	lastHealthy time.Time
	updatedAt   time.Time
}

// Store is a thread-safe in-memory record of health snapshots, keyed by
// service name. It keeps only the latest snapshot and a bounded outcome
// history per service.
type Store struct {
	mu       sync.RWMutex
	latest   health.Snapshot
	hasSnap  bool
	services map[string]*serviceState
	window   int
	now      func() time.Time // injectable for deterministic tests
}

// New creates a Store that tracks the last window outcomes per service.
// window <= 0 means DefaultWindow.
func New(window int) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		services: make(map[string]*serviceState),
		window:   window,
		now:      time.Now,
	}
}

// Record stores snap as the latest snapshot and appends each service's
// outcome to its history. Unknown outcomes replace the latest result but
// are not counted towards uptime.
func (s *Store) Record(snap health.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.latest = cloneSnapshot(snap)
	s.hasSnap = true
	for name, h := range snap.Services {
		st, ok := s.services[name]
		if !ok {
			st = &serviceState{}
			s.services[name] = st
		}
		st.latest = h
		st.updatedAt = now
		switch h.Status {
		case health.StatusHealthy:
			st.lastHealthy = now
			st.record(true, s.window)
		case health.StatusUnhealthy:
			st.record(false, s.window)
		}
	}
}

// Latest returns a copy of the most recent snapshot and whether one was
// recorded.
func (s *Store) Latest() (health.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.latest), s.hasSnap
}

// Get returns the state of one service.
func (s *Store) Get(name string) (ServiceState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.services[name]
	if !ok {
		return ServiceState{}, false
	}
	return st.view(name), true
}

// List returns every tracked service, sorted by name.
func (s *Store) List() []ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ServiceState, 0, len(s.services))
	for name, st := range s.services {
		out = append(out, st.view(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of tracked services.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.services)
}

// Retain drops every service not in names, e.g. after a config reload
// removed it. It returns the number of services removed.
func (s *Store) Retain(names []string) int {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for name := range s.services {
		if !keep[name] {
			delete(s.services, name)
			delete(s.latest.Services, name)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("store: dropped unconfigured services", "count", removed)
	}
	return removed
}

func (st *serviceState) record(healthy bool, window int) {
	if len(st.history) >= window {
		st.history = st.history[len(st.history)-window+1:]
	}
	st.history = append(st.history, healthy)
}

func (st *serviceState) uptimePct() float64 {
	if len(st.history) == 0 {
		return 100 // assume up before first observation
	}
	var ok int
	for _, h := range st.history {
		if h {
			ok++
		}
	}
	return float64(ok) / float64(len(st.history)) * 100
}

func (st *serviceState) view(name string) ServiceState {
	return ServiceState{
		Name:         name,
		Health:       st.latest,
		UptimePct:    st.uptimePct(),
		Observations: len(st.history),
		LastHealthy:  st.lastHealthy,
		UpdatedAt:    st.updatedAt,
	}
}

func cloneSnapshot(snap health.Snapshot) health.Snapshot {
	out := health.Snapshot{
		CheckedAt: snap.CheckedAt,
		Services:  make(map[string]health.ServiceHealth, len(snap.Services)),
	}
	for name, h := range snap.Services {
		out.Services[name] = h
	}
	return out
}
