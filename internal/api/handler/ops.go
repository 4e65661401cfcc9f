// Package handler provides HTTP handlers for the Fangstlog API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/api/models"
	"github.com/fangstlog/fangstlog/internal/api/response"
	"github.com/fangstlog/fangstlog/internal/provider/resilience"
)

// Pinger reports whether a backing store is reachable. *pgxpool.Pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds dependencies for the ops endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Database is pinged by the readiness and status checks. Nil when the
	// API runs on in-memory repositories.
	Database Pinger

	// Registry supplies upstream provider health. Optional.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health. It only proves the process serves.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   now(),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Not ready while Postgres is down.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingDatabase(r.Context()); err != nil {
		h.cfg.Logger.Warn().Err(err).Msg("readiness check failed")
		response.ServiceUnavailable(w, r, "database unavailable")
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{Status: models.HealthStatusOK, Time: now()})
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       now(),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.cfg.Database != nil {
		db := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
		if err := h.pingDatabase(r.Context()); err != nil {
			db.Status = models.HealthStatusFail
			db.Detail = err.Error()
		}
		status.Status = status.Status.Worst(db.Status)
		status.Subsystems = append(status.Subsystems, db)
	}

	if h.cfg.Registry != nil {
		for _, p := range h.cfg.Registry.Providers() {
			ps := models.ProviderStatus{
				Provider:      p.Name,
				Status:        providerStatus(p),
				CircuitState:  p.CircuitState.String(),
				CircuitSince:  p.StateSince,
				LastSuccessAt: p.LastSuccessAt,
				LastFailureAt: p.LastFailureAt,
				Message:       p.LastError,
			}
			// Upstream outages degrade the service but never fail it.
			if ps.Status != models.HealthStatusOK {
				status.Status = status.Status.Worst(models.HealthStatusDegraded)
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) pingDatabase(ctx context.Context) error {
	if h.cfg.Database == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.cfg.Database.Ping(ctx)
}

func providerStatus(p resilience.ProviderHealth) models.HealthStatus {
	switch {
	case p.IsUnhealthy():
		return models.HealthStatusFail
	case p.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
