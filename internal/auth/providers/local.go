package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/pkg/crypto"
)

var (
	// ErrInvalidCredentials is returned when the supplied email/password pair is invalid.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked signals that the profile has exceeded the permitted failed attempts.
	ErrAccountLocked = errors.New("auth: account locked")
	// ErrAccountDisabled signals that the profile has been deactivated.
	ErrAccountDisabled = errors.New("auth: account disabled")
	// ErrRegistrationDisabled is returned when self-service sign-up is turned off.
	ErrRegistrationDisabled = errors.New("auth: registration disabled")
	// ErrEmailTaken is returned when registering an email that already has a profile.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrRoleNotAllowed is returned when sign-up requests a role that must be granted by an admin.
	ErrRoleNotAllowed = errors.New("auth: role cannot be self-assigned")
	// ErrWeakPassword is returned when a new password is shorter than the configured minimum.
	ErrWeakPassword = errors.New("auth: password too short")
)

// LocalConfig defines tunable behaviour for the local provider.
type LocalConfig struct {
	LockoutThreshold  int
	LockoutDuration   time.Duration
	DisableSignup     bool
	MinPasswordLength int
	Clock             func() time.Time
}

// AuthenticateInput contains metadata required to authenticate a local profile.
type AuthenticateInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// RegisterInput captures the details required to register a new profile.
type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	Role        string
	CompanyName string
	Phone       string
}

// LocalProvider implements email/password authentication with account lockout controls.
type LocalProvider struct {
	db             *gorm.DB
	clock          func() time.Time
	threshold      int
	duration       time.Duration
	signupDisabled bool
	minPassword    int
}

// NewLocalProvider builds a provider with sane defaults.
func NewLocalProvider(db *gorm.DB, cfg LocalConfig) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("local provider: db is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 5
	}

	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = 15 * time.Minute
	}

	minPassword := cfg.MinPasswordLength
	if minPassword <= 0 {
		minPassword = 8
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LocalProvider{
		db:             db,
		clock:          clock,
		threshold:      threshold,
		duration:       duration,
		signupDisabled: cfg.DisableSignup,
		minPassword:    minPassword,
	}, nil
}

// Authenticate verifies the supplied credentials and returns the associated profile when successful.
func (p *LocalProvider) Authenticate(ctx context.Context, input AuthenticateInput) (*models.Profile, error) {
	email := normaliseEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	db := p.db.WithContext(ensureContext(ctx))

	var profile models.Profile
	err := db.Where("email = ?", email).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("local provider: query profile: %w", err)
	}

	now := p.clock()

	if !profile.IsActive {
		return nil, ErrAccountDisabled
	}

	if profile.LockedUntil != nil && profile.LockedUntil.After(now) {
		return nil, ErrAccountLocked
	}

	if profile.LockedUntil != nil {
		profile.LockedUntil = nil
		profile.FailedAttempts = 0
		if err := db.Model(&profile).Updates(map[string]any{
			"locked_until":    nil,
			"failed_attempts": 0,
		}).Error; err != nil {
			return nil, fmt.Errorf("local provider: reset lock state: %w", err)
		}
	}

	if !crypto.VerifyPassword(profile.PasswordHash, input.Password) {
		return nil, p.handleFailedAttempt(db, &profile, now)
	}

	profile.FailedAttempts = 0
	profile.LockedUntil = nil
	profile.LastLoginAt = &now
	profile.LastLoginIP = strings.TrimSpace(input.IPAddress)

	if err := db.Model(&profile).Updates(map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   profile.LastLoginIP,
	}).Error; err != nil {
		return nil, fmt.Errorf("local provider: update profile: %w", err)
	}

	return &profile, nil
}

func (p *LocalProvider) handleFailedAttempt(db *gorm.DB, profile *models.Profile, now time.Time) error {
	profile.FailedAttempts++

	updates := map[string]any{
		"failed_attempts": profile.FailedAttempts,
	}

	if profile.FailedAttempts >= p.threshold {
		lockUntil := now.Add(p.duration)
		profile.LockedUntil = &lockUntil
		updates["locked_until"] = lockUntil
	}

	if err := db.Model(profile).Updates(updates).Error; err != nil {
		return fmt.Errorf("local provider: update failed attempts: %w", err)
	}

	if profile.LockedUntil != nil && profile.LockedUntil.After(now) {
		return ErrAccountLocked
	}

	return ErrInvalidCredentials
}

// Register creates a new profile with a hashed password. Only the client and
// service_provider roles may be requested; an empty role means client.
func (p *LocalProvider) Register(ctx context.Context, input RegisterInput) (*models.Profile, error) {
	if p.signupDisabled {
		return nil, ErrRegistrationDisabled
	}

	email := normaliseEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, errors.New("local provider: email and password are required")
	}
	if len(input.Password) < p.minPassword {
		return nil, fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, p.minPassword)
	}

	role := strings.TrimSpace(input.Role)
	switch role {
	case "":
		role = models.RoleClient
	case models.RoleClient, models.RoleServiceProvider:
	default:
		return nil, ErrRoleNotAllowed
	}

	db := p.db.WithContext(ensureContext(ctx))

	var existing int64
	if err := db.Model(&models.Profile{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("local provider: check email: %w", err)
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("local provider: hash password: %w", err)
	}

	profile := &models.Profile{
		Email:        email,
		PasswordHash: hashed,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         role,
		CompanyName:  strings.TrimSpace(input.CompanyName),
		Phone:        strings.TrimSpace(input.Phone),
		IsActive:     true,
	}

	if err := db.Create(profile).Error; err != nil {
		return nil, fmt.Errorf("local provider: create profile: %w", err)
	}

	return profile, nil
}

// ChangePassword updates a profile's password after verifying the existing credential.
func (p *LocalProvider) ChangePassword(ctx context.Context, profileID, currentPassword, newPassword string) error {
	if strings.TrimSpace(profileID) == "" || newPassword == "" {
		return errors.New("local provider: profile id and new password are required")
	}
	if len(newPassword) < p.minPassword {
		return fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, p.minPassword)
	}

	db := p.db.WithContext(ensureContext(ctx))

	var profile models.Profile
	if err := db.Take(&profile, "id = ?", profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("local provider: find profile: %w", err)
	}

	if !crypto.VerifyPassword(profile.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("local provider: hash password: %w", err)
	}

	if err := db.Model(&profile).Update("password_hash", hashed).Error; err != nil {
		return fmt.Errorf("local provider: update password: %w", err)
	}

	return nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
