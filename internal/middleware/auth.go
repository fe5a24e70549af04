package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/mdnaeem95/halaltech/internal/auth"
	"github.com/mdnaeem95/halaltech/internal/authctx"
	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/logger"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxProfileIDKey = "profileID"
	CtxSessionIDKey = "sessionID"
	CtxRoleKey      = "role"
)

// SessionValidator reports whether an access token's session is still live.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) error
}

// Authenticator resolves bearer tokens into the caller's session.
type Authenticator struct {
	jwt      *iauth.JWTService
	sessions SessionValidator
	db       *gorm.DB
}

// NewAuthenticator wires token validation, session revocation checks and the
// profile lookup. sessions may be nil to skip revocation checks.
func NewAuthenticator(jwt *iauth.JWTService, sessions SessionValidator, db *gorm.DB) *Authenticator {
	return &Authenticator{jwt: jwt, sessions: sessions, db: db}
}

// Authenticate validates token and returns the caller. The role always comes
// from the stored profile so demotions apply to tokens already issued.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*iauth.Claims, *models.Profile, error) {
	claims, err := a.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, nil, apperrors.ErrUnauthorized
	}
	if a.sessions != nil && claims.SessionID != "" {
		if err := a.sessions.ValidateSession(ctx, claims.SessionID); err != nil {
			return nil, nil, apperrors.ErrUnauthorized
		}
	}

	var profile models.Profile
	err = a.db.WithContext(ctx).Take(&profile, "id = ?", claims.ProfileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		logger.WithModule("auth").Error("failed to load profile", zap.String("profile_id", claims.ProfileID), zap.Error(err))
		return nil, nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	if !profile.IsActive {
		return nil, nil, apperrors.ErrUnauthorized.WithMessage("Account is disabled")
	}
	return claims, &profile, nil
}

// Auth enforces bearer authentication. WebSocket upgrades may pass the token
// as the "token" query parameter because browsers cannot set headers on them.
func Auth(authenticator *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request)
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, profile, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, err)
			c.Abort()
			return
		}

		attachSession(c, claims, profile)
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid bearer token is present and
// lets anonymous or invalid requests continue as public traffic.
func OptionalAuth(authenticator *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c.Request); token != "" {
			if claims, profile, err := authenticator.Authenticate(c.Request.Context(), token); err == nil {
				attachSession(c, claims, profile)
			}
		}
		c.Next()
	}
}

func attachSession(c *gin.Context, claims *iauth.Claims, profile *models.Profile) {
	session := authctx.FromProfile(profile, claims.SessionID, c.ClientIP(), c.Request.UserAgent())
	c.Request = c.Request.WithContext(authctx.WithSession(c.Request.Context(), session))
	c.Set(CtxClaimsKey, claims)
	c.Set(CtxProfileIDKey, profile.ID)
	c.Set(CtxRoleKey, profile.Role)
	if claims.SessionID != "" {
		c.Set(CtxSessionIDKey, claims.SessionID)
	}
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	return ""
}
