package handler

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ecodrive/ecodrive/internal/api/models"
	"github.com/ecodrive/ecodrive/internal/api/response"
	"github.com/ecodrive/ecodrive/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider circuit status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	for _, health := range h.registry.All() {
		provider := models.ProviderStatus{
			Provider:     health.Name,
			Status:       models.HealthStatusOK,
			CircuitState: health.CircuitState.String(),
		}
		if !health.Healthy() {
			provider.Status = models.HealthStatusDegraded
			if health.CircuitState == gobreaker.StateOpen {
				status.Status = models.HealthStatusDegraded
			}
		}
		if health.LastSuccessAt != nil {
			t := models.Timestamp(*health.LastSuccessAt)
			provider.LastSuccessAt = &t
		}
		if health.LastFailureAt != nil {
			t := models.Timestamp(*health.LastFailureAt)
			provider.LastFailureAt = &t
		}
		if health.LastError != "" {
			msg := health.LastError
			provider.Message = &msg
		}
		status.Providers = append(status.Providers, provider)
	}
	response.JSON(w, r, http.StatusOK, status)
}
