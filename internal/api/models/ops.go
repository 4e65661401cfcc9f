package models

import "time"

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    time.Time      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus rolls subsystem and provider health into one status. A failed
// subsystem fails the service; an unhealthy provider only degrades it, since
// trips are still accepted and backfilled later.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       time.Time         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Providers  []ProviderStatus  `json:"providers"`
}

type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// ProviderStatus reports an upstream such as DMI behind its circuit breaker.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	CircuitSince  *time.Time   `json:"circuitSince,omitempty"`
	LastSuccessAt *time.Time   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time   `json:"lastFailureAt,omitempty"`
	Message       string       `json:"message,omitempty"`
}
