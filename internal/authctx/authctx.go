// Package authctx carries the authenticated caller through request contexts.
// Services read the caller from ctx instead of consulting shared state.
package authctx

import (
	"context"

	"github.com/mdnaeem95/halaltech/internal/models"
)

// Session describes the authenticated caller of a request. Role and email
// come from the profile row loaded for the request, never from token claims.
type Session struct {
	ProfileID string
	SessionID string
	Email     string
	FullName  string
	Role      string
	IPAddress string
	UserAgent string
}

// IsAdmin reports whether the caller holds the admin role.
func (s Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

// HasRole reports whether the caller holds any of the supplied roles.
func (s Session) HasRole(roles ...string) bool {
	for _, role := range roles {
		if s.Role == role {
			return true
		}
	}
	return false
}

type sessionContextKey struct{}

// WithSession returns a derived context carrying the session.
func WithSession(ctx context.Context, session Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// FromContext extracts the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(sessionContextKey{}).(Session)
	if !ok || session.ProfileID == "" {
		return Session{}, false
	}
	return session, true
}

// FromProfile builds a session for the given profile.
func FromProfile(profile *models.Profile, sessionID, ip, userAgent string) Session {
	if profile == nil {
		return Session{}
	}
	return Session{
		ProfileID: profile.ID,
		SessionID: sessionID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		Role:      profile.Role,
		IPAddress: ip,
		UserAgent: userAgent,
	}
}
