package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/api"
	"github.com/mdnaeem95/halaltech/internal/app"
	"github.com/mdnaeem95/halaltech/internal/app/maintenance"
	iauth "github.com/mdnaeem95/halaltech/internal/auth"
	"github.com/mdnaeem95/halaltech/internal/cache"
	"github.com/mdnaeem95/halaltech/internal/database"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/monitoring"
	"github.com/mdnaeem95/halaltech/internal/monitoring/checks"
	"github.com/mdnaeem95/halaltech/internal/realtime"
	"github.com/mdnaeem95/halaltech/pkg/logger"
	"github.com/mdnaeem95/halaltech/pkg/mail"
)

// maintenanceStaleAfter flags the maintenance probe when no job has run for this long.
const maintenanceStaleAfter = 26 * time.Hour

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisStore
	Store      cache.Store
	SessionSvc *iauth.SessionService
	Services   *api.Services
	Hub        *realtime.Hub
	Monitoring *monitoring.Module
	Cleaner    *maintenance.Cleaner
	RateStore  middleware.RateStore
	Router     *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Store = dbStore

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
			stack.Redis = nil
		} else {
			if pingErr := stack.Redis.Ping(ctx); pingErr != nil {
				log.Warn("redis ping failed", zap.Error(pingErr))
			}
			stack.Store = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionCfg := cfg.Auth.SessionServiceConfig()
	sessionCfg.Cache = iauth.NewSessionCache(stack.Store)

	stack.SessionSvc, err = iauth.NewSessionService(stack.DB, jwtSvc, sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	mailer, err := initialiseMailer(cfg, log)
	if err != nil {
		return nil, err
	}

	stack.Hub = realtime.NewHub(cfg.Server.CORS.AllowedOrigins...)
	stack.Monitoring = monitoring.NewModule()

	stack.Services, err = api.NewServices(api.ServiceDeps{
		DB:       stack.DB,
		Config:   cfg,
		Sessions: stack.SessionSvc,
		Store:    stack.Store,
		Mailer:   mailer,
		Hub:      stack.Hub,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.SessionSvc, stack.Services.Audit,
		maintenance.WithJobTracker(stack.Monitoring.Jobs()),
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		maintenance.WithInvoiceReminders(stack.Services.Invoices, stack.Services.Notifications, mailer, cfg.Maintenance.ReminderInterval),
		maintenance.WithCachePurge(dbStore),
		maintenance.WithSchedules(maintenance.Schedules{
			Sessions:  cfg.Maintenance.SessionSchedule,
			Audit:     cfg.Maintenance.AuditSchedule,
			Reminders: cfg.Maintenance.ReminderSchedule,
			Cache:     cfg.Maintenance.CacheSchedule,
		}),
	)

	registerHealthChecks(stack, cfg)

	if cfg.Maintenance.Enabled {
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	} else {
		log.Info("maintenance jobs disabled")
	}

	stack.RateStore = middleware.NewCacheRateStore(stack.Store)

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:         stack.DB,
		Config:     cfg,
		JWT:        jwtSvc,
		Sessions:   stack.SessionSvc,
		RateStore:  stack.RateStore,
		Store:      stack.Store,
		Mailer:     mailer,
		Hub:        stack.Hub,
		Monitoring: stack.Monitoring,
		Services:   stack.Services,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func registerHealthChecks(stack *runtimeStack, cfg *app.Config) {
	health := stack.Monitoring.Health()
	health.RegisterLiveness(checks.Realtime(stack.Hub))
	health.RegisterReadiness(checks.Database(stack.DB))

	// A nil *RedisStore must not reach the probe as a non-nil interface.
	var pinger checks.RedisPinger
	if stack.Redis != nil {
		pinger = stack.Redis
	}
	health.RegisterReadiness(checks.Redis(pinger, cfg.Cache.Redis.Enabled))

	if cfg.Maintenance.Enabled {
		health.RegisterReadiness(checks.Maintenance(stack.Monitoring.Jobs(), maintenanceStaleAfter))
	}
}

func initialiseMailer(cfg *app.Config, log *zap.Logger) (mail.Mailer, error) {
	if !cfg.Email.SMTP.Enabled {
		log.Info("smtp disabled; notification emails will be skipped")
		return nil, nil
	}
	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	return mailer, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs still running at shutdown")
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db, seedOptions(cfg)...); err != nil {
		closeDatabase(db, logger.WithModule("database"))
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func seedOptions(cfg *app.Config) []database.SeedOption {
	var opts []database.SeedOption
	boot := cfg.Bootstrap
	if strings.TrimSpace(boot.AdminEmail) != "" && boot.AdminPassword != "" {
		opts = append(opts, database.WithBootstrapAdmin(strings.TrimSpace(boot.AdminEmail), boot.AdminPassword, boot.AdminName))
	}
	if boot.SeedCatalog {
		opts = append(opts, database.WithStarterCatalog())
	}
	return opts
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:       strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:         strings.TrimSpace(cfg.Database.Path),
		DSN:          strings.TrimSpace(cfg.Database.DSN),
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		LogLevel:     cfg.Database.LogLevel,
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Unsupported drivers surface during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
