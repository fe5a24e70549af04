package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/mdnaeem95/halaltech/internal/auth"
	"github.com/mdnaeem95/halaltech/internal/auth/providers"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/internal/permissions"
	"github.com/mdnaeem95/halaltech/internal/services"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/metrics"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

var (
	errAccountDisabled      = apperrors.New("ACCOUNT_DISABLED", "Account is disabled", http.StatusForbidden)
	errRegistrationDisabled = apperrors.New("REGISTRATION_DISABLED", "Self-service registration is disabled", http.StatusForbidden)
	errEmailTaken           = apperrors.New("EMAIL_TAKEN", "An account with this email already exists", http.StatusConflict)
	errRoleNotAllowed       = apperrors.New("ROLE_NOT_ALLOWED", "Role cannot be self-assigned", http.StatusForbidden)
)

const refreshCookiePath = "/api/auth"

// AuthHandler manages authentication flows (register/login/refresh/logout/me).
type AuthHandler struct {
	provider    *providers.LocalProvider
	sessions    *iauth.SessionService
	profiles    *services.ProfileService
	freelancers *services.FreelancerService
	checker     *permissions.Checker
	audit       *services.AuditService
}

func NewAuthHandler(provider *providers.LocalProvider, sessions *iauth.SessionService, profiles *services.ProfileService, freelancers *services.FreelancerService, checker *permissions.Checker, audit *services.AuditService) *AuthHandler {
	return &AuthHandler{
		provider:    provider,
		sessions:    sessions,
		profiles:    profiles,
		freelancers: freelancers,
		checker:     checker,
		audit:       audit,
	}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	FullName    string `json:"full_name" validate:"required,max=255"`
	Role        string `json:"role" validate:"omitempty,oneof=client service_provider admin"`
	CompanyName string `json:"company_name" validate:"max=255"`
	Phone       string `json:"phone" validate:"max=32"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authPayload struct {
	Tokens  iauth.TokenPair `json:"tokens"`
	Profile *models.Profile `json:"profile"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	profile, err := h.provider.Register(requestContext(c), providers.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		Role:        req.Role,
		CompanyName: req.CompanyName,
		Phone:       req.Phone,
	})
	if err != nil {
		h.logAuth(c, "auth.register", req.Email, nil, "failure", err)
		response.Error(c, translateAuthError(err))
		return
	}
	h.logAuth(c, "auth.register", profile.Email, &profile.ID, "success", nil)

	h.issueSession(c, profile, http.StatusCreated)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	profile, err := h.provider.Authenticate(requestContext(c), providers.AuthenticateInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		result := "failure"
		if errors.Is(err, providers.ErrAccountLocked) {
			result = "locked"
		}
		metrics.AuthAttempts.WithLabelValues(result).Inc()
		h.logAuth(c, "auth.login", req.Email, nil, result, err)
		response.Error(c, translateAuthError(err))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	h.logAuth(c, "auth.login", profile.Email, &profile.ID, "success", nil)
	h.issueSession(c, profile, http.StatusOK)
}

// POST /api/auth/refresh accepts the refresh token in the body or the refresh cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindOptional(c, &req) {
		return
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		if cookie, err := c.Cookie(middleware.RefreshCookieName); err == nil {
			token = strings.TrimSpace(cookie)
		}
	}
	if token == "" {
		response.Error(c, apperrors.NewBadRequest("refresh token is required"))
		return
	}

	pair, session, err := h.sessions.RefreshSession(requestContext(c), token)
	if err != nil {
		clearRefreshCookie(c)
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}
	setRefreshCookie(c, pair.RefreshToken, session.ExpiresAt)
	response.Success(c, http.StatusOK, pair)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := c.GetString(middleware.CtxSessionIDKey)
	if sessionID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}
	if err := h.sessions.RevokeSession(requestContext(c), sessionID); err != nil {
		response.Error(c, err)
		return
	}
	clearRefreshCookie(c)
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := requestContext(c)
	profile, err := h.profiles.Me(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	perms, err := h.checker.ProfilePermissions(ctx, profile.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := gin.H{
		"profile":     profile,
		"permissions": perms,
	}
	if profile.Role == models.RoleServiceProvider && h.freelancers != nil {
		if freelancer, err := h.freelancers.Me(ctx); err == nil {
			payload["freelancer"] = freelancer
		}
	}
	response.Success(c, http.StatusOK, payload)
}

func (h *AuthHandler) issueSession(c *gin.Context, profile *models.Profile, status int) {
	pair, session, err := h.sessions.CreateSession(requestContext(c), profile, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	setRefreshCookie(c, pair.RefreshToken, session.ExpiresAt)
	response.Success(c, status, authPayload{Tokens: pair, Profile: profile})
}

func (h *AuthHandler) logAuth(c *gin.Context, action, email string, profileID *string, result string, cause error) {
	if h.audit == nil {
		return
	}
	var metadata map[string]any
	if cause != nil {
		metadata = map[string]any{"reason": cause.Error()}
	}
	_ = h.audit.Log(requestContext(c), services.AuditEntry{
		ProfileID: profileID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Action:    action,
		Resource:  "profile",
		Result:    result,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Metadata:  metadata,
	})
}

func translateAuthError(err error) error {
	switch {
	case errors.Is(err, providers.ErrInvalidCredentials):
		return apperrors.ErrInvalidCredentials
	case errors.Is(err, providers.ErrAccountLocked):
		return apperrors.ErrAccountLocked
	case errors.Is(err, providers.ErrAccountDisabled):
		return errAccountDisabled
	case errors.Is(err, providers.ErrRegistrationDisabled):
		return errRegistrationDisabled
	case errors.Is(err, providers.ErrEmailTaken):
		return errEmailTaken
	case errors.Is(err, providers.ErrRoleNotAllowed):
		return errRoleNotAllowed
	case errors.Is(err, providers.ErrWeakPassword):
		return apperrors.ErrValidation.WithDetails(map[string]string{"password": "is too short"})
	}
	return err
}

func setRefreshCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   middleware.IsSecureRequest(c.Request),
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   middleware.IsSecureRequest(c.Request),
		SameSite: http.SameSiteStrictMode,
	})
}
