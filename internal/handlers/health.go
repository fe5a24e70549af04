package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/monitoring"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// HealthHandler reports liveness and readiness from the monitoring module.
type HealthHandler struct {
	module *monitoring.Module
}

func NewHealthHandler(module *monitoring.Module) *HealthHandler {
	return &HealthHandler{module: module}
}

// GET /health combines liveness and readiness into one summary.
func (h *HealthHandler) Overall(c *gin.Context) {
	ctx := requestContext(c)
	manager := h.module.Health()
	report := monitoring.MergeReports(manager.EvaluateLiveness(ctx), manager.EvaluateReadiness(ctx))
	writeHealthReport(c, report, gin.H{"uptime_seconds": int64(h.module.Uptime().Seconds())})
}

// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	writeHealthReport(c, h.module.Health().EvaluateLiveness(requestContext(c)), nil)
}

// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	writeHealthReport(c, h.module.Health().EvaluateReadiness(requestContext(c)), nil)
}

// GET /api/admin/maintenance lists background job outcomes.
func (h *HealthHandler) Jobs(c *gin.Context) {
	response.Success(c, http.StatusOK, h.module.Jobs().Jobs())
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport, extra gin.H) {
	status := http.StatusOK
	if !report.Success {
		status = http.StatusServiceUnavailable
	}
	payload := gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": time.Now().UTC(),
	}
	for key, value := range extra {
		payload[key] = value
	}
	c.JSON(status, payload)
}
