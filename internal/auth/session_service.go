package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/pkg/crypto"
	"github.com/mdnaeem95/halaltech/pkg/metrics"
)

// DefaultRefreshTokenTTL is the fallback refresh token lifetime.
const DefaultRefreshTokenTTL = 30 * 24 * time.Hour

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	RefreshTokenTTL time.Duration
	RefreshLength   int
	Clock           func() time.Time
	Cache           SessionCache
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// TokenPair represents an access token and refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

var (
	ErrSessionNotFound     = errors.New("session: not found")
	ErrSessionRevoked      = errors.New("session: revoked")
	ErrSessionExpired      = errors.New("session: expired")
	ErrSessionInvalidToken = errors.New("session: invalid token")
	// ErrProfileInactive is returned when the session owner has been deactivated.
	ErrProfileInactive = errors.New("session: profile inactive")
)

var errSessionCacheMiss = errors.New("session cache miss")

// SessionCache caches sessions keyed by the refresh token digest.
type SessionCache interface {
	Get(ctx context.Context, tokenHash string) (*models.Session, error)
	Set(ctx context.Context, session *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, tokenHash string) error
}

// SessionService manages creation, rotation, and revocation of refresh sessions.
type SessionService struct {
	db         *gorm.DB
	jwt        *JWTService
	refreshTTL time.Duration
	tokenLen   int
	now        func() time.Time
	cache      SessionCache
}

// NewSessionService constructs a session manager backed by the provided database and JWT service.
func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	ttl := cfg.RefreshTokenTTL
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}

	length := cfg.RefreshLength
	if length <= 0 {
		length = 48
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:         db,
		jwt:        jwtService,
		refreshTTL: ttl,
		tokenLen:   length,
		now:        clock,
		cache:      cfg.Cache,
	}, nil
}

// CreateSession generates a new session for profile and issues a fresh token pair.
func (s *SessionService) CreateSession(ctx context.Context, profile *models.Profile, meta SessionMetadata) (TokenPair, *models.Session, error) {
	ctx = ensureContext(ctx)
	if profile == nil || strings.TrimSpace(profile.ID) == "" {
		return TokenPair{}, nil, errors.New("session service: profile is required")
	}

	refreshToken, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		ProfileID:        profile.ID,
		RefreshTokenHash: crypto.HashToken(refreshToken),
		IPAddress:        strings.TrimSpace(meta.IPAddress),
		UserAgent:        strings.TrimSpace(meta.UserAgent),
		ExpiresAt:        now.Add(s.refreshTTL),
		LastUsedAt:       now,
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: create session: %w", err)
	}

	metrics.ActiveSessions.Inc()

	pair, err := s.issue(profile, session.ID, refreshToken)
	if err != nil {
		return TokenPair{}, nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, session, s.refreshTTL)
	}

	return pair, session, nil
}

// RefreshSession rotates the refresh token and issues a new access token.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (TokenPair, *models.Session, error) {
	ctx = ensureContext(ctx)
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, nil, ErrSessionInvalidToken
	}
	tokenHash := crypto.HashToken(refreshToken)

	session, err := s.lookup(ctx, tokenHash)
	if err != nil {
		return TokenPair{}, nil, err
	}

	now := s.now()
	if session.RevokedAt != nil {
		return TokenPair{}, nil, ErrSessionRevoked
	}
	if session.ExpiresAt.Before(now) {
		return TokenPair{}, nil, ErrSessionExpired
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).Take(&profile, "id = ?", session.ProfileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, nil, ErrSessionNotFound
		}
		return TokenPair{}, nil, fmt.Errorf("session service: load profile: %w", err)
	}
	if !profile.IsActive {
		return TokenPair{}, nil, ErrProfileInactive
	}

	newRefresh, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}
	newHash := crypto.HashToken(newRefresh)
	expiresAt := now.Add(s.refreshTTL)

	// The hash predicate makes rotation single-use under concurrent refreshes.
	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND refresh_token_hash = ? AND revoked_at IS NULL", session.ID, tokenHash).
		Updates(map[string]any{
			"refresh_token_hash": newHash,
			"expires_at":         expiresAt,
			"last_used_at":       now,
		})
	if result.Error != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return TokenPair{}, nil, ErrSessionNotFound
	}

	session.RefreshTokenHash = newHash
	session.ExpiresAt = expiresAt
	session.LastUsedAt = now

	pair, err := s.issue(&profile, session.ID, newRefresh)
	if err != nil {
		return TokenPair{}, nil, err
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, tokenHash)
		_ = s.cache.Set(ctx, session, s.refreshTTL)
	}

	return pair, session, nil
}

// ValidateSession reports whether sessionID is still usable. Access tokens
// outlive revocation otherwise, so the auth middleware checks this per request.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalidToken
	}

	var session models.Session
	err := s.db.WithContext(ctx).Select("id", "revoked_at", "expires_at").Take(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("session service: find session: %w", err)
	}
	if session.RevokedAt != nil {
		return ErrSessionRevoked
	}
	if session.ExpiresAt.Before(s.now()) {
		return ErrSessionExpired
	}
	return nil
}

// RevokeSession marks a session as revoked, preventing further refresh operations.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalidToken
	}

	var existing models.Session
	if err := s.db.WithContext(ctx).Select("id", "refresh_token_hash").Take(&existing, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("session service: find session: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", s.now())
	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, existing.RefreshTokenHash)
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	return nil
}

// RevokeProfileSessions revokes every active session belonging to a profile.
func (s *SessionService) RevokeProfileSessions(ctx context.Context, profileID string) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(profileID) == "" {
		return ErrSessionInvalidToken
	}

	var hashes []string
	if s.cache != nil {
		if err := s.db.WithContext(ctx).
			Model(&models.Session{}).
			Where("profile_id = ? AND revoked_at IS NULL", profileID).
			Pluck("refresh_token_hash", &hashes).Error; err != nil {
			hashes = nil
		}
	}

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("profile_id = ? AND revoked_at IS NULL", profileID).
		Update("revoked_at", s.now())
	if result.Error != nil {
		return fmt.Errorf("session service: revoke profile sessions: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}

	for _, hash := range hashes {
		_ = s.cache.Delete(ctx, hash)
	}
	return nil
}

// CleanupExpired removes expired or revoked sessions and updates active session metrics accordingly.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	var activeExpired int64
	if err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("expires_at < ? AND revoked_at IS NULL", now).
		Count(&activeExpired).Error; err != nil {
		return 0, fmt.Errorf("session service: count expired sessions: %w", err)
	}

	var hashes []string
	if s.cache != nil {
		_ = s.db.WithContext(ctx).
			Model(&models.Session{}).
			Where("expires_at < ? OR revoked_at IS NOT NULL", now).
			Pluck("refresh_token_hash", &hashes).Error
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at IS NOT NULL", now).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup expired sessions: %w", result.Error)
	}

	for _, hash := range hashes {
		_ = s.cache.Delete(ctx, hash)
	}

	if activeExpired > 0 {
		metrics.ActiveSessions.Sub(float64(activeExpired))
	}

	return result.RowsAffected, nil
}

func (s *SessionService) lookup(ctx context.Context, tokenHash string) (*models.Session, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, tokenHash); err == nil && cached != nil {
			return cached, nil
		}
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("refresh_token_hash = ?", tokenHash).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}

	if s.cache != nil {
		if ttl := session.ExpiresAt.Sub(s.now()); ttl > 0 {
			_ = s.cache.Set(ctx, &session, ttl)
		}
	}
	return &session, nil
}

func (s *SessionService) issue(profile *models.Profile, sessionID, refreshToken string) (TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		ProfileID: profile.ID,
		SessionID: sessionID,
		Role:      profile.Role,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: generate access token: %w", err)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    s.now().Add(s.jwt.TTL()),
	}, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
