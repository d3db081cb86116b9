package domain

// ============================================================
// Health API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status     string          `json:"status"` // healthy, degraded, unhealthy
	Services   []ServiceHealth `json:"services"`
	Repository RepositoryStats `json:"repository"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// RepositoryStats summarizes repository traffic since process start.
type RepositoryStats struct {
	Calls            int64   `json:"calls"`
	Failures         int64   `json:"failures"`
	OffloadFailures  int64   `json:"offloadFailures"`
	FailureRate      float64 `json:"failureRate"`
	PoolInFlight     int64   `json:"poolInFlight"`
	PoolCapacity     int64   `json:"poolCapacity"`
	OwnershipDenials int64   `json:"ownershipDenials"`
}
