package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/auth/providers"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/services"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// ProfileHandler exposes the caller's profile and admin profile management.
type ProfileHandler struct {
	svc      *services.ProfileService
	provider *providers.LocalProvider
	audit    *services.AuditService
}

func NewProfileHandler(svc *services.ProfileService, provider *providers.LocalProvider, audit *services.AuditService) *ProfileHandler {
	return &ProfileHandler{svc: svc, provider: provider, audit: audit}
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type updateProfileRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=1,max=255"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	CompanyName *string `json:"company_name" validate:"omitempty,max=255"`
}

type adminUpdateProfileRequest struct {
	Role       *string `json:"role" validate:"omitempty,oneof=client admin service_provider"`
	IsVerified *bool   `json:"is_verified"`
	IsActive   *bool   `json:"is_active"`
}

// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.svc.Me(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// PATCH /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}
	profile, err := h.svc.UpdateMe(requestContext(c), services.UpdateProfileInput{
		FullName:    req.FullName,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// GET /api/admin/profiles
func (h *ProfileHandler) List(c *gin.Context) {
	page, perPage := pageParams(c, 25, 100)

	profiles, total, err := h.svc.List(requestContext(c), services.ListProfilesOptions{
		Role:     strings.TrimSpace(c.Query("role")),
		Query:    strings.TrimSpace(c.Query("q")),
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, profiles, response.NewMeta(page, perPage, total))
}

// GET /api/admin/profiles/:id
func (h *ProfileHandler) GetByID(c *gin.Context) {
	profile, err := h.svc.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// PATCH /api/admin/profiles/:id
func (h *ProfileHandler) AdminUpdate(c *gin.Context) {
	var req adminUpdateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}
	profile, err := h.svc.AdminUpdate(requestContext(c), c.Param("id"), services.AdminUpdateProfileInput{
		Role:       req.Role,
		IsVerified: req.IsVerified,
		IsActive:   req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// POST /api/profile/password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var body passwordChangeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	profileID := c.GetString(middleware.CtxProfileIDKey)
	if profileID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if body.CurrentPassword == body.NewPassword {
		response.Error(c, apperrors.NewBadRequest("new password must differ from the current password"))
		return
	}

	err := h.provider.ChangePassword(requestContext(c), profileID, body.CurrentPassword, body.NewPassword)
	switch {
	case errors.Is(err, providers.ErrInvalidCredentials):
		h.logPasswordChange(c, profileID, "failure")
		response.Error(c, apperrors.NewBadRequest("current password is incorrect"))
		return
	case err != nil:
		response.Error(c, translateAuthError(err))
		return
	}

	h.logPasswordChange(c, profileID, "success")
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

func (h *ProfileHandler) logPasswordChange(c *gin.Context, profileID, result string) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Log(requestContext(c), services.AuditEntry{
		ProfileID: &profileID,
		Action:    "profile.password_change",
		Resource:  "profile",
		Result:    result,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
}
