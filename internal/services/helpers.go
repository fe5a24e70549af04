package services

import (
	"context"
	"strings"
	"time"

	"github.com/mdnaeem95/halaltech/internal/authctx"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// requireSession returns the caller stored by the auth middleware.
func requireSession(ctx context.Context) (authctx.Session, error) {
	session, ok := authctx.FromContext(ctx)
	if !ok {
		return authctx.Session{}, apperrors.ErrUnauthorized
	}
	return session, nil
}

// requireRole returns the caller when they hold one of roles.
func requireRole(ctx context.Context, roles ...string) (authctx.Session, error) {
	session, err := requireSession(ctx)
	if err != nil {
		return session, err
	}
	if !session.HasRole(roles...) {
		return session, apperrors.ErrForbidden
	}
	return session, nil
}

func normalisePage(page, perPage, fallback, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > limit {
		perPage = fallback
	}
	return page, perPage
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func nonEmptyPtr(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func normaliseStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	return out
}

type clockFunc func() time.Time

func (c clockFunc) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
