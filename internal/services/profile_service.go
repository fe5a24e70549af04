package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
)

var (
	// ErrProfileNotFound indicates the requested profile does not exist.
	ErrProfileNotFound = apperrors.New("PROFILE_NOT_FOUND", "Profile not found", http.StatusNotFound)
	// ErrSelfModification stops an admin from demoting or deactivating their own account.
	ErrSelfModification = apperrors.New("PROFILE_SELF_MODIFICATION", "Admins cannot demote or deactivate themselves", http.StatusConflict)
	// ErrInvalidRole is returned for roles outside client, admin and service_provider.
	ErrInvalidRole = apperrors.New("INVALID_ROLE", "Unknown profile role", http.StatusBadRequest)
)

// SessionRevoker ends every session of a profile.
type SessionRevoker interface {
	RevokeProfileSessions(ctx context.Context, profileID string) error
}

// MarketplaceInvalidator drops cached marketplace searches.
type MarketplaceInvalidator interface {
	InvalidateMarketplace(ctx context.Context)
}

// UpdateProfileInput enumerates attributes a profile owner may change.
type UpdateProfileInput struct {
	FullName    *string
	Phone       *string
	CompanyName *string
}

// AdminUpdateProfileInput enumerates attributes only admins may change.
type AdminUpdateProfileInput struct {
	Role       *string
	IsVerified *bool
	IsActive   *bool
}

// ListProfilesOptions controls pagination and filtering for profile listing.
type ListProfilesOptions struct {
	Role     string
	Query    string
	Page     int
	PageSize int
}

// ProfileService reads and updates account profiles.
type ProfileService struct {
	db          *gorm.DB
	audit       *AuditService
	sessions    SessionRevoker
	marketplace MarketplaceInvalidator
}

// NewProfileService constructs a ProfileService. sessions may be nil.
func NewProfileService(db *gorm.DB, audit *AuditService, sessions SessionRevoker) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	return &ProfileService{db: db, audit: audit, sessions: sessions}, nil
}

// WithMarketplace registers the cache invalidated when an admin changes a
// profile's role or activation.
func (s *ProfileService) WithMarketplace(marketplace MarketplaceInvalidator) {
	s.marketplace = marketplace
}

// Me returns the caller's profile including the freelancer extension when present.
func (s *ProfileService) Me(ctx context.Context) (*models.Profile, error) {
	ctx = ensureContext(ctx)
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, session.ProfileID)
}

// GetByID loads a profile by id.
func (s *ProfileService) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	var profile models.Profile
	err := s.db.WithContext(ctx).
		Preload("Freelancer").
		Preload("Freelancer.Skills").
		Preload("Freelancer.Availability").
		Take(&profile, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: get profile: %w", err)
	}
	return &profile, nil
}

// UpdateMe applies owner-editable changes to the caller's profile.
func (s *ProfileService) UpdateMe(ctx context.Context, input UpdateProfileInput) (*models.Profile, error) {
	ctx = ensureContext(ctx)
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, apperrors.NewBadRequest("full_name cannot be empty")
		}
		updates["full_name"] = name
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.CompanyName != nil {
		updates["company_name"] = strings.TrimSpace(*input.CompanyName)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Profile{}).
			Where("id = ?", session.ProfileID).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("profile service: update profile: %w", err)
		}
		recordAudit(s.audit, ctx, auditFromContext(ctx, "profile.update", "profiles", AuditSuccess, updates))
	}

	return s.GetByID(ctx, session.ProfileID)
}

// List returns profiles for the admin console.
func (s *ProfileService) List(ctx context.Context, opts ListProfilesOptions) ([]models.Profile, int64, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, 0, err
	}

	page, perPage := normalisePage(opts.Page, opts.PageSize, 25, 100)

	query := s.db.WithContext(ctx).Model(&models.Profile{})
	if role := strings.TrimSpace(opts.Role); role != "" {
		if !models.ValidRole(role) {
			return nil, 0, ErrInvalidRole
		}
		query = query.Where("role = ?", role)
	}
	if q := strings.ToLower(strings.TrimSpace(opts.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("profile service: count profiles: %w", err)
	}

	var profiles []models.Profile
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&profiles).Error; err != nil {
		return nil, 0, fmt.Errorf("profile service: list profiles: %w", err)
	}
	return profiles, total, nil
}

// AdminUpdate changes role, verification or activation of a profile.
// Deactivating a profile revokes its sessions; role and activation changes
// also invalidate cached marketplace searches.
func (s *ProfileService) AdminUpdate(ctx context.Context, id string, input AdminUpdateProfileInput) (*models.Profile, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	target, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Role != nil {
		role := strings.TrimSpace(*input.Role)
		if !models.ValidRole(role) {
			return nil, ErrInvalidRole
		}
		if target.ID == session.ProfileID && role != models.RoleAdmin {
			return nil, ErrSelfModification
		}
		updates["role"] = role
	}
	if input.IsVerified != nil {
		updates["is_verified"] = *input.IsVerified
	}
	if input.IsActive != nil {
		if target.ID == session.ProfileID && !*input.IsActive {
			return nil, ErrSelfModification
		}
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return target, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", target.ID).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("profile service: admin update: %w", err)
	}

	if input.IsActive != nil && !*input.IsActive && s.sessions != nil {
		if err := s.sessions.RevokeProfileSessions(ctx, target.ID); err != nil {
			return nil, fmt.Errorf("profile service: revoke sessions: %w", err)
		}
	}

	_, roleChanged := updates["role"]
	_, activeChanged := updates["is_active"]
	if (roleChanged || activeChanged) && s.marketplace != nil {
		s.marketplace.InvalidateMarketplace(ctx)
	}

	metadata := map[string]any{"profile_id": target.ID}
	for key, value := range updates {
		metadata[key] = value
	}
	recordAudit(s.audit, ctx, auditFromContext(ctx, "profile.admin_update", "profiles", AuditSuccess, metadata))

	return s.GetByID(ctx, target.ID)
}
