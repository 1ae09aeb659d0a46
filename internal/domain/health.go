package domain

// ============================================================
// Local API operational responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string            `json:"status"` // healthy, degraded
	Session  AuthState         `json:"session"`
	Services []ComponentHealth `json:"services"`
}

// ComponentHealth is the result of probing one dependency.
type ComponentHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latency_ms"`
	Error       string `json:"error,omitempty"`
	LastChecked string `json:"last_checked"`
}
