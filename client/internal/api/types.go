package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State          string `json:"state"`
	ServiceCount   int    `json:"service_count"`
	HealthyCount   int    `json:"healthy_count"`
	UnhealthyCount int    `json:"unhealthy_count"`
	UnknownCount   int    `json:"unknown_count"`
	CheckedAt      string `json:"checked_at,omitempty"` // RFC3339; empty before the first check
}

// ServiceResponse is one service entry in GET /api/v1/services or
// GET /api/v1/services/{name}.
type ServiceResponse struct {
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	LatencyMs    float64 `json:"latency_ms"`
	Kind         string  `json:"kind,omitempty"`
	Error        string  `json:"error,omitempty"`
	UptimePct    float64 `json:"uptime_pct"`
	Observations int     `json:"observations"`
	LastHealthy  string  `json:"last_healthy,omitempty"` // RFC3339
	UpdatedAt    string  `json:"updated_at"`             // RFC3339
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket broadcast.
type SnapshotResponse struct {
	State       string            `json:"state"`
	Services    []ServiceResponse `json:"services"`
	CheckedAt   string            `json:"checked_at,omitempty"`
	GeneratedAt string            `json:"generated_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}
