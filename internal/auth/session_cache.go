package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mdnaeem95/halaltech/internal/cache"
	"github.com/mdnaeem95/halaltech/internal/models"
)

const sessionCacheKeyPrefix = "auth:sessions:refresh:"

// cachedSession mirrors models.Session including fields hidden from API JSON.
type cachedSession struct {
	ID               string     `json:"id"`
	ProfileID        string     `json:"profile_id"`
	RefreshTokenHash string     `json:"refresh_token_hash"`
	IPAddress        string     `json:"ip_address"`
	UserAgent        string     `json:"user_agent"`
	ExpiresAt        time.Time  `json:"expires_at"`
	LastUsedAt       time.Time  `json:"last_used_at"`
	CreatedAt        time.Time  `json:"created_at"`
	RevokedAt        *time.Time `json:"revoked_at"`
}

// NewSessionCache stores sessions in the shared cache store, which is Redis
// when configured and the SQL cache table otherwise.
func NewSessionCache(store cache.Store) SessionCache {
	if store == nil {
		return nil
	}
	return &sessionStoreCache{store: store}
}

type sessionStoreCache struct {
	store cache.Store
}

func (c *sessionStoreCache) Get(ctx context.Context, tokenHash string) (*models.Session, error) {
	key := cacheKey(tokenHash)
	if key == "" {
		return nil, errSessionCacheMiss
	}

	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errSessionCacheMiss
	}

	var entry cachedSession
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("session cache: decode: %w", err)
	}
	return &models.Session{
		ID:               entry.ID,
		ProfileID:        entry.ProfileID,
		RefreshTokenHash: entry.RefreshTokenHash,
		IPAddress:        entry.IPAddress,
		UserAgent:        entry.UserAgent,
		ExpiresAt:        entry.ExpiresAt,
		LastUsedAt:       entry.LastUsedAt,
		CreatedAt:        entry.CreatedAt,
		RevokedAt:        entry.RevokedAt,
	}, nil
}

func (c *sessionStoreCache) Set(ctx context.Context, session *models.Session, ttl time.Duration) error {
	if session == nil {
		return errors.New("session cache: session is nil")
	}
	key := cacheKey(session.RefreshTokenHash)
	if key == "" {
		return errors.New("session cache: refresh token hash missing")
	}

	payload, err := json.Marshal(cachedSession{
		ID:               session.ID,
		ProfileID:        session.ProfileID,
		RefreshTokenHash: session.RefreshTokenHash,
		IPAddress:        session.IPAddress,
		UserAgent:        session.UserAgent,
		ExpiresAt:        session.ExpiresAt,
		LastUsedAt:       session.LastUsedAt,
		CreatedAt:        session.CreatedAt,
		RevokedAt:        session.RevokedAt,
	})
	if err != nil {
		return fmt.Errorf("session cache: marshal: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	return c.store.Set(ctx, key, payload, ttl)
}

func (c *sessionStoreCache) Delete(ctx context.Context, tokenHash string) error {
	key := cacheKey(tokenHash)
	if key == "" {
		return nil
	}
	return c.store.Delete(ctx, key)
}

func cacheKey(tokenHash string) string {
	hash := strings.TrimSpace(tokenHash)
	if hash == "" {
		return ""
	}
	return sessionCacheKeyPrefix + hash
}
