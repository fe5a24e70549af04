package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Module bundles the health probes and job tracker exposed by the monitoring endpoints.
// Metrics are registered on the default Prometheus registry by pkg/metrics.
type Module struct {
	health    *HealthManager
	jobs      *JobTracker
	startedAt time.Time
}

func NewModule() *Module {
	return &Module{
		health:    NewHealthManager(),
		jobs:      NewJobTracker(),
		startedAt: time.Now(),
	}
}

// Handler serves Prometheus metrics.
func (m *Module) Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

func (m *Module) Jobs() *JobTracker {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Uptime reports how long the module has been running.
func (m *Module) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startedAt)
}
