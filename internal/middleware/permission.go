package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mdnaeem95/halaltech/internal/authctx"
	"github.com/mdnaeem95/halaltech/internal/permissions"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/logger"
	"github.com/mdnaeem95/halaltech/pkg/metrics"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// RequirePermission checks that the authenticated profile holds permissionID.
func RequirePermission(checker *permissions.Checker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := authctx.FromContext(c.Request.Context())
		if !ok {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := checker.Check(c.Request.Context(), session.ProfileID, permissionID)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
			logger.WithModule("permissions").Error("permission check failed",
				zap.String("permission", permissionID),
				zap.String("profile_id", session.ProfileID),
				zap.Error(err),
			)
			response.Error(c, apperrors.ErrInternalServer)
			c.Abort()
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissionID, "deny").Inc()
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(permissionID, "allow").Inc()
		c.Next()
	}
}

// RequireRole admits callers holding one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := authctx.FromContext(c.Request.Context())
		if !ok {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !session.HasRole(roles...) {
			metrics.PermissionChecks.WithLabelValues("role:"+session.Role, "deny").Inc()
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
