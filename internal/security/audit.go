package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/app"
	"github.com/mdnaeem95/halaltech/internal/models"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const (
	minSecretLength       = 32
	recommendedSecretLen  = 48
	maxRecommendedRefresh = 30 * 24 * time.Hour
)

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a simple status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// AuditService evaluates the deployment's security posture: admin access,
// signing secrets, browser protections and session lifetime.
type AuditService struct {
	db  *gorm.DB
	cfg *app.Config
	now func() time.Time
}

// NewAuditService constructs the audit service. Missing dependencies degrade
// the affected checks to warnings.
func NewAuditService(db *gorm.DB, cfg *app.Config) *AuditService {
	return &AuditService{
		db:  db,
		cfg: cfg,
		now: time.Now,
	}
}

// WithClock overrides the clock used in results.
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all audit checks and returns their outcome.
func (s *AuditService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkAdminPresent(ctx),
		s.checkJWTSecret(),
		s.checkCSRF(),
		s.checkCORS(),
		s.checkSessionTTL(),
		s.checkMailDelivery(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}

	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (s *AuditService) configMissing(id string) Check {
	return Check{
		ID:          id,
		Status:      StatusWarn,
		Message:     "Configuration not loaded; unable to evaluate.",
		Remediation: "Load configuration before running the security audit.",
	}
}

func (s *AuditService) checkAdminPresent(ctx context.Context) Check {
	const id = "admin_present"
	if s.db == nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Database unavailable; unable to confirm an admin account exists.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("role = ? AND is_active = ?", models.RoleAdmin, true).
		Count(&count).Error; err != nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not count admin profiles: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if count == 0 {
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "No active admin profile found.",
			Remediation: "Set HALALTECH_BOOTSTRAP_ADMIN_EMAIL and HALALTECH_BOOTSTRAP_ADMIN_PASSWORD and restart.",
		}
	}

	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: "Admin profile present.",
		Details: map[string]any{"count": count},
	}
}

func (s *AuditService) checkJWTSecret() Check {
	const id = "jwt_secret_strength"
	if s.cfg == nil {
		return s.configMissing(id)
	}

	length := len(strings.TrimSpace(s.cfg.Auth.JWT.Secret))
	switch {
	case length == 0:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: "Provide a cryptographically secure signing secret (>= 32 bytes).",
		}
	case length < minSecretLength:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
		}
	case length < recommendedSecretLen:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to 48+ bytes.", length),
			Remediation: "Increase the length of HALALTECH_AUTH_JWT_SECRET to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      id,
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (s *AuditService) checkCSRF() Check {
	const id = "csrf_protection"
	if s.cfg == nil {
		return s.configMissing(id)
	}
	if !s.cfg.Server.CSRF.Enabled {
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "CSRF protection is disabled; cookie-authenticated refresh requests are unguarded.",
			Remediation: "Set HALALTECH_SERVER_CSRF_ENABLED=true.",
		}
	}
	return Check{ID: id, Status: StatusPass, Message: "CSRF protection enabled."}
}

func (s *AuditService) checkCORS() Check {
	const id = "cors_origins"
	if s.cfg == nil {
		return s.configMissing(id)
	}
	origins := s.cfg.Server.CORS.AllowedOrigins
	for _, origin := range origins {
		if strings.TrimSpace(origin) == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Any browser origin may call the API.",
			Remediation: "List the web portal origins in server.cors.allowed_origins.",
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("%d allowed origin(s) configured.", len(origins)),
		Details: map[string]any{"origins": origins},
	}
}

func (s *AuditService) checkSessionTTL() Check {
	const id = "session_refresh_ttl"
	if s.cfg == nil {
		return s.configMissing(id)
	}

	ttl := s.cfg.Auth.Session.RefreshTTL
	if ttl <= 0 {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Refresh token TTL is not configured; using default duration.",
			Remediation: "Set HALALTECH_AUTH_SESSION_REFRESH_TOKEN_TTL to control session lifetime.",
		}
	}

	if ttl > maxRecommendedRefresh {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Refresh token TTL (%s) exceeds recommended maximum (%s).", ttl, maxRecommendedRefresh),
			Remediation: "Reduce refresh token TTL to 30 days or lower.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}

	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("Refresh token TTL is %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}

func (s *AuditService) checkMailDelivery() Check {
	const id = "mail_delivery"
	if s.cfg == nil {
		return s.configMissing(id)
	}
	if !s.cfg.Email.SMTP.Enabled {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "SMTP is disabled; application decisions and invoice reminders are not emailed.",
			Remediation: "Configure email.smtp to notify freelancers and clients.",
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: "SMTP delivery configured.",
		Details: map[string]any{"host": s.cfg.Email.SMTP.Host},
	}
}
