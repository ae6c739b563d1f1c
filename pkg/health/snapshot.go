package health

import (
	"sort"
	"time"

	"github.com/mallfront/storefront/pkg/apierr"
)

// Status is the tri-state outcome of one probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// ServiceHealth is the result for a single service.
type ServiceHealth struct {
	Status  Status        `json:"status"`
	Latency time.Duration `json:"latency_ns"`
	// Kind and Error are set when the probe failed.
	Kind  apierr.Kind `json:"kind,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Snapshot is the outcome of one CheckAll.
type Snapshot struct {
	CheckedAt time.Time                `json:"checked_at"`
	Services  map[string]ServiceHealth `json:"services"`
}

// Status returns the status of name, or StatusUnknown if it was not probed.
func (s Snapshot) Status(name string) Status {
	h, ok := s.Services[name]
	if !ok {
		return StatusUnknown
	}
	return h.Status
}

// Statuses returns the plain service -> status view.
func (s Snapshot) Statuses() map[string]Status {
	out := make(map[string]Status, len(s.Services))
	for name, h := range s.Services {
		out[name] = h.Status
	}
	return out
}

// Names returns the probed service names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.Services))
	for name := range s.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Overall collapses the snapshot: unhealthy if any service is unhealthy,
// otherwise unknown if any is unknown (or nothing was probed), else healthy.
func (s Snapshot) Overall() Status {
	if len(s.Services) == 0 {
		return StatusUnknown
	}
	overall := StatusHealthy
	for _, h := range s.Services {
		switch h.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusUnknown:
			overall = StatusUnknown
		}
	}
	return overall
}

// Count returns how many services are in status st.
func (s Snapshot) Count(st Status) int {
	n := 0
	for _, h := range s.Services {
		if h.Status == st {
			n++
		}
	}
	return n
}
