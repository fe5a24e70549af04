package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdnaeem95/halaltech/internal/auth"
	"github.com/mdnaeem95/halaltech/internal/auth/providers"
	"github.com/mdnaeem95/halaltech/internal/billing"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.CORS.AllowedOrigins)
	require.Equal(t, 120, cfg.Server.RateLimit.Requests)
	require.Equal(t, 20, cfg.Server.RateLimit.AuthRequests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)
	require.True(t, cfg.Server.CSRF.Enabled)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5432, cfg.Database.Postgres.Port)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6379", cfg.Cache.Redis.Address)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "halaltech", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 1440*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, 64, cfg.Auth.Session.RefreshLength)
	require.Equal(t, 7, cfg.Auth.Local.LockoutThreshold)
	require.Equal(t, 20*time.Minute, cfg.Auth.Local.LockoutDuration)
	require.True(t, cfg.Auth.Local.DisableSignup)
	require.Equal(t, 8, cfg.Auth.Local.MinPasswordLength)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.InDelta(t, 0.08, cfg.Billing.TaxRate, 1e-9)
	require.Equal(t, 7, cfg.Billing.PaymentDueDays)
	require.Equal(t, "INV", cfg.Billing.InvoicePrefix)
	require.Equal(t, 10, cfg.Quotes.ValidityDays)
	require.Equal(t, 90*time.Second, cfg.Marketplace.CacheTTL)

	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@daily", cfg.Maintenance.ReminderSchedule)
	require.Equal(t, "@hourly", cfg.Maintenance.SessionSchedule)
	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, 48*time.Hour, cfg.Maintenance.ReminderInterval)

	require.Equal(t, "admin@example.com", cfg.Bootstrap.AdminEmail)
	require.Equal(t, "Administrator", cfg.Bootstrap.AdminName)
	require.True(t, cfg.Bootstrap.SeedCatalog)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("HALALTECH_SERVER_PORT", "7070")
	t.Setenv("HALALTECH_BILLING_TAX_RATE", "0.07")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.InDelta(t, 0.07, cfg.Billing.TaxRate, 1e-9)
	require.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{
			JWT: JWTSettings{
				Secret: "secret",
				Issuer: "issuer",
				TTL:    30 * time.Minute,
			},
			Session: SessionSettings{
				RefreshTTL:    10 * time.Hour,
				RefreshLength: 32,
			},
			Local: LocalAuthSettings{
				LockoutThreshold:  4,
				LockoutDuration:   10 * time.Minute,
				MinPasswordLength: 12,
			},
		},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.Auth.JWTServiceConfig())

	require.Equal(t, auth.SessionConfig{
		RefreshTokenTTL: 10 * time.Hour,
		RefreshLength:   32,
	}, cfg.Auth.SessionServiceConfig())

	require.Equal(t, providers.LocalConfig{
		LockoutThreshold:  4,
		LockoutDuration:   10 * time.Minute,
		MinPasswordLength: 12,
	}, cfg.Auth.LocalProviderConfig())
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	require.Equal(t, auth.DefaultAccessTokenTTL, cfg.JWTServiceConfig().AccessTokenTTL)

	sessionCfg := cfg.SessionServiceConfig()
	require.Equal(t, auth.DefaultRefreshTokenTTL, sessionCfg.RefreshTokenTTL)
	require.Equal(t, 48, sessionCfg.RefreshLength)

	localCfg := cfg.LocalProviderConfig()
	require.Equal(t, defaultLockoutThreshold, localCfg.LockoutThreshold)
	require.Equal(t, defaultLockoutDuration, localCfg.LockoutDuration)
}

func TestDomainConfigAdapters(t *testing.T) {
	cfg := &Config{
		Billing:     BillingConfig{TaxRate: 0.09, Currency: " sgd ", PaymentDueDays: 14, InvoicePrefix: "INV"},
		Quotes:      QuotesConfig{ValidityDays: 21},
		Marketplace: MarketplaceConfig{CacheTTL: time.Minute},
		Email:       EmailConfig{PortalURL: " https://portal.example.com/ "},
	}

	require.Equal(t, billing.Config{TaxRate: 0.09, Currency: "sgd", PaymentDueDays: 14, InvoicePrefix: "INV"}, cfg.Billing.CalculatorConfig())
	require.Equal(t, 21, cfg.Quotes.QuoteServiceConfig().ValidityDays)

	freelancerCfg := cfg.FreelancerServiceConfig()
	require.Equal(t, time.Minute, freelancerCfg.CacheTTL)
	require.Equal(t, "https://portal.example.com", freelancerCfg.PortalURL)
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)
}
