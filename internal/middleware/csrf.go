package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mdnaeem95/halaltech/pkg/crypto"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/logger"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

const (
	// CSRFCookieName is the cookie used to transport the CSRF token to clients.
	CSRFCookieName = "halaltech_csrf"
	// CSRFHeaderName is the header clients must echo on unsafe cookie-authenticated requests.
	CSRFHeaderName = "X-CSRF-Token"
	// RefreshCookieName carries the refresh token for browser clients.
	RefreshCookieName = "halaltech_refresh"

	csrfTokenLength  = 48
	csrfCookieMaxAge = 12 * 60 * 60
)

// CSRF implements the double-submit cookie pattern for requests authenticated
// by the refresh cookie. Requests carrying a bearer token, or no refresh
// cookie at all, cannot be forged by a third-party page and pass through.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodOptions {
			c.Next()
			return
		}

		token, issued, err := ensureCSRFCookie(c)
		if err != nil {
			response.Error(c, apperrors.ErrInternalServer)
			c.Abort()
			return
		}

		if !isUnsafeMethod(method) {
			c.Header(CSRFHeaderName, token)
			c.Next()
			return
		}
		if !cookieAuthenticated(c.Request) {
			c.Next()
			return
		}

		headerToken := strings.TrimSpace(c.GetHeader(CSRFHeaderName))
		if !constantTimeEqual(token, headerToken) {
			logger.WithModule("csrf").Warn("csrf validation failed",
				zap.String("method", method),
				zap.String("path", c.FullPath()),
				zap.Bool("cookie_issued", issued),
			)
			response.Error(c, apperrors.ErrCSRFInvalid)
			c.Abort()
			return
		}
		c.Next()
	}
}

func cookieAuthenticated(r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("Authorization")) != "" {
		return false
	}
	cookie, err := r.Cookie(RefreshCookieName)
	return err == nil && cookie.Value != ""
}

func ensureCSRFCookie(c *gin.Context) (string, bool, error) {
	if existing, err := c.Cookie(CSRFCookieName); err == nil && existing != "" {
		return existing, false, nil
	}
	token, err := crypto.GenerateToken(csrfTokenLength)
	if err != nil {
		return "", false, err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		Secure:   IsSecureRequest(c.Request),
		MaxAge:   csrfCookieMaxAge,
		SameSite: http.SameSiteStrictMode,
	})
	return token, true, nil
}

// IsSecureRequest reports whether the request arrived over TLS, directly or via a proxy.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func constantTimeEqual(a, b string) bool {
	if a == "" || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
