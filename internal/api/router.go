package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/app"
	iauth "github.com/mdnaeem95/halaltech/internal/auth"
	"github.com/mdnaeem95/halaltech/internal/auth/providers"
	"github.com/mdnaeem95/halaltech/internal/cache"
	"github.com/mdnaeem95/halaltech/internal/handlers"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/monitoring"
	"github.com/mdnaeem95/halaltech/internal/monitoring/checks"
	"github.com/mdnaeem95/halaltech/internal/permissions"
	"github.com/mdnaeem95/halaltech/internal/realtime"
	"github.com/mdnaeem95/halaltech/internal/security"
	"github.com/mdnaeem95/halaltech/pkg/mail"
)

const (
	defaultRateLimitRequests = 100
	defaultAuthRateLimit     = 10
	defaultRateLimitWindow   = time.Minute
)

// Dependencies carries the long-lived components the router is built from.
// RateStore, Store, Mailer, Hub, Monitoring and Services are optional.
type Dependencies struct {
	DB         *gorm.DB
	Config     *app.Config
	JWT        *iauth.JWTService
	Sessions   *iauth.SessionService
	RateStore  middleware.RateStore
	Store      cache.Store
	Mailer     mail.Mailer
	Hub        *realtime.Hub
	Monitoring *monitoring.Module
	Services   *Services
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	cfg := deps.Config
	origins := allowedOrigins(cfg)

	if deps.Hub == nil {
		deps.Hub = realtime.NewHub(origins...)
	}
	if deps.Monitoring == nil {
		deps.Monitoring = monitoring.NewModule()
		deps.Monitoring.Health().RegisterReadiness(checks.Database(deps.DB))
		deps.Monitoring.Health().RegisterLiveness(checks.Realtime(deps.Hub))
	}
	if deps.RateStore == nil {
		deps.RateStore = middleware.NewMemoryRateStore()
	}

	svc := deps.Services
	if svc == nil {
		var err error
		svc, err = NewServices(ServiceDeps{
			DB:       deps.DB,
			Config:   cfg,
			Sessions: deps.Sessions,
			Store:    deps.Store,
			Mailer:   deps.Mailer,
			Hub:      deps.Hub,
		})
		if err != nil {
			return nil, err
		}
	}

	checker, err := permissions.NewChecker(deps.DB, nil)
	if err != nil {
		return nil, err
	}
	provider, err := providers.NewLocalProvider(deps.DB, cfg.Auth.LocalProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise local provider: %w", err)
	}
	authenticator := middleware.NewAuthenticator(deps.JWT, deps.Sessions, deps.DB)

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(origins...))
	if cfg.Server.CSRF.Enabled {
		r.Use(middleware.CSRF())
	}

	requests, authRequests, window := rateLimits(cfg)
	r.Use(middleware.RateLimit(deps.RateStore, requests, window))
	authLimit := middleware.RateLimit(middleware.ScopedRateStore(deps.RateStore, "auth"), authRequests, window)

	registerHealthRoutes(r, cfg, deps.Monitoring)

	public := r.Group("/api")
	public.Use(middleware.OptionalAuth(authenticator))

	api := r.Group("/api")
	api.Use(middleware.Auth(authenticator))

	authHandler := handlers.NewAuthHandler(provider, deps.Sessions, svc.Profiles, svc.Freelancers, checker, svc.Audit)
	registerAuthRoutes(r.Group("/api/auth", authLimit), api, authHandler)

	registerProfileRoutes(api, handlers.NewProfileHandler(svc.Profiles, provider, svc.Audit), checker)
	registerCatalogRoutes(public, api, handlers.NewCatalogHandler(svc.Catalog), checker)
	registerProjectRoutes(api, projectHandlers{
		projects: handlers.NewProjectHandler(svc.Projects),
		quotes:   handlers.NewQuoteHandler(svc.Quotes),
		messages: handlers.NewMessageHandler(svc.Messages),
	}, checker)
	registerInvoiceRoutes(api, handlers.NewInvoiceHandler(svc.Invoices), checker)
	registerFreelancerRoutes(public, api, handlers.NewFreelancerHandler(svc.Freelancers), handlers.NewProjectHandler(svc.Projects), checker)
	registerNotificationRoutes(api, handlers.NewNotificationHandler(svc.Notifications))
	registerAdminRoutes(api, adminHandlers{
		freelancers: handlers.NewFreelancerHandler(svc.Freelancers),
		seeds:       handlers.NewSeedHandler(svc.Seeds),
		audit:       handlers.NewAuditHandler(svc.Audit),
		health:      handlers.NewHealthHandler(deps.Monitoring),
		dashboard:   handlers.NewDashboardHandler(svc.Dashboard),
		security:    handlers.NewSecurityHandler(security.NewAuditService(deps.DB, cfg)),
	}, checker)
	registerRealtimeRoutes(r, authenticator, handlers.NewRealtimeHandler(deps.Hub))

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(deps.Monitoring.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func allowedOrigins(cfg *app.Config) []string {
	origins := make([]string, 0, len(cfg.Server.CORS.AllowedOrigins))
	for _, origin := range cfg.Server.CORS.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func rateLimits(cfg *app.Config) (int, int, time.Duration) {
	limit := cfg.Server.RateLimit
	requests, authRequests, window := limit.Requests, limit.AuthRequests, limit.Window
	if requests <= 0 {
		requests = defaultRateLimitRequests
	}
	if authRequests <= 0 {
		authRequests = defaultAuthRateLimit
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return requests, authRequests, window
}
