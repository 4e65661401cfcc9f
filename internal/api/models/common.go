// Package models provides request and response models for the Fangstlog API.
package models

// PagedResponseMeta describes a page of a cursor-paginated list.
type PagedResponseMeta struct {
	Limit      int     `json:"limit"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

// HealthStatus is the health of the service, a subsystem or a provider.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

func (s HealthStatus) rank() int {
	switch s {
	case HealthStatusFail:
		return 2
	case HealthStatusDegraded:
		return 1
	default:
		return 0
	}
}

// Worst returns whichever of s and other is less healthy.
func (s HealthStatus) Worst(other HealthStatus) HealthStatus {
	if other.rank() > s.rank() {
		return other
	}
	return s
}
