package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|locked).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halaltech_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts permission evaluations and their outcome (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halaltech_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "halaltech_active_sessions",
			Help: "Number of active sessions",
		},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "halaltech_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// ProjectTransitions counts project status changes by source and target.
	ProjectTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halaltech_project_transitions_total",
			Help: "Project status transitions",
		},
		[]string{"from", "to"},
	)

	// QuoteResponses counts client quote responses (accepted|rejected|refused).
	QuoteResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halaltech_quote_responses_total",
			Help: "Client responses to quotes",
		},
		[]string{"result"},
	)

	InvoicesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halaltech_invoices_issued_total",
			Help: "Invoices created by origin (quote|manual)",
		},
		[]string{"origin"},
	)

	InvoicePayments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "halaltech_invoice_payments_total",
			Help: "Invoices marked paid",
		},
	)

	// MarketplaceSearches counts freelancer searches by cache outcome (hit|miss|bypass).
	MarketplaceSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halaltech_marketplace_searches_total",
			Help: "Freelancer marketplace searches",
		},
		[]string{"cache"},
	)

	// MaintenanceRuns counts scheduled job executions by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halaltech_maintenance_runs_total",
			Help: "Background maintenance job runs",
		},
		[]string{"job", "result"},
	)

	EmailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halaltech_email_deliveries_total",
			Help: "Outbound email attempts by template and result",
		},
		[]string{"template", "result"},
	)

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "halaltech_realtime_connections",
			Help: "Open realtime websocket connections",
		},
	)
)
