package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/authctx"
	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
)

var (
	// ErrServiceNotFound indicates the requested catalog service does not exist or is hidden.
	ErrServiceNotFound = apperrors.New("SERVICE_NOT_FOUND", "Service not found", http.StatusNotFound)
	// ErrPackageNotFound indicates the requested package does not exist.
	ErrPackageNotFound = apperrors.New("PACKAGE_NOT_FOUND", "Package not found", http.StatusNotFound)
	// ErrServiceSlugTaken signals a slug collision.
	ErrServiceSlugTaken = apperrors.New("SERVICE_SLUG_TAKEN", "A service with this slug already exists", http.StatusConflict)
)

// ListServicesOptions filters the public catalog.
type ListServicesOptions struct {
	Category        string
	IncludeInactive bool
}

// CreateServiceInput describes a new catalog service. A nil BasePrice means
// the service is quoted individually.
type CreateServiceInput struct {
	Name        string
	Slug        string
	Category    string
	Description string
	BasePrice   *float64
	Features    []string
	SortOrder   int
	IsActive    *bool
}

// UpdateServiceInput enumerates mutable service attributes. ClearBasePrice
// switches the service to custom pricing.
type UpdateServiceInput struct {
	Name           *string
	Slug           *string
	Category       *string
	Description    *string
	BasePrice      *float64
	ClearBasePrice bool
	Features       []string
	SortOrder      *int
	IsActive       *bool
}

// PackageInput describes a package tier. Pointer fields are optional on update.
type PackageInput struct {
	Name         *string
	Description  *string
	Price        *float64
	DeliveryDays *int
	Revisions    *int
	Features     []string
	IsPopular    *bool
	IsActive     *bool
}

// CatalogService exposes the service catalog and its admin maintenance.
type CatalogService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB, audit *AuditService) (*CatalogService, error) {
	if db == nil {
		return nil, errors.New("catalog service: db is required")
	}
	return &CatalogService{db: db, audit: audit}, nil
}

// ListServices returns catalog services ordered by sort order then name.
// Inactive services are only included for admins that ask for them.
func (s *CatalogService) ListServices(ctx context.Context, opts ListServicesOptions) ([]models.Service, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Service{})
	if !opts.IncludeInactive || !callerIsAdmin(ctx) {
		query = query.Where("is_active = ?", true)
	}
	if category := strings.TrimSpace(opts.Category); category != "" {
		query = query.Where("category = ?", strings.ToLower(category))
	}

	var services []models.Service
	if err := query.Order("sort_order ASC").Order("name ASC").Find(&services).Error; err != nil {
		return nil, fmt.Errorf("catalog service: list services: %w", err)
	}
	for i := range services {
		services[i].PriceDisplay = services[i].FormatPrice()
	}
	return services, nil
}

// GetService loads a service by id or slug with its active packages.
func (s *CatalogService) GetService(ctx context.Context, idOrSlug string) (*models.Service, error) {
	ctx = ensureContext(ctx)

	service, err := s.findService(s.db.WithContext(ctx), idOrSlug)
	if err != nil {
		return nil, err
	}
	if !service.IsActive && !callerIsAdmin(ctx) {
		return nil, ErrServiceNotFound
	}

	packages, err := s.activePackages(ctx, service.ID)
	if err != nil {
		return nil, err
	}
	service.Packages = packages
	service.PriceDisplay = service.FormatPrice()
	return service, nil
}

// ListPackages returns the active packages of a service, cheapest first.
func (s *CatalogService) ListPackages(ctx context.Context, idOrSlug string) ([]models.ServicePackage, error) {
	service, err := s.GetService(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	return service.Packages, nil
}

func (s *CatalogService) activePackages(ctx context.Context, serviceID string) ([]models.ServicePackage, error) {
	var packages []models.ServicePackage
	if err := s.db.WithContext(ctx).
		Where("service_id = ? AND is_active = ?", serviceID, true).
		Order("price ASC").
		Order("name ASC").
		Find(&packages).Error; err != nil {
		return nil, fmt.Errorf("catalog service: list packages: %w", err)
	}
	return packages, nil
}

// CreateService adds a catalog service.
func (s *CatalogService) CreateService(ctx context.Context, input CreateServiceInput) (*models.Service, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if input.BasePrice != nil && *input.BasePrice < 0 {
		return nil, apperrors.NewBadRequest("base_price cannot be negative")
	}

	slug := slugify(defaultIfEmpty(input.Slug, name))
	if slug == "" {
		return nil, apperrors.NewBadRequest("slug cannot be derived from name")
	}

	service := &models.Service{
		Name:        name,
		Slug:        slug,
		Category:    strings.ToLower(strings.TrimSpace(input.Category)),
		Description: strings.TrimSpace(input.Description),
		BasePrice:   input.BasePrice,
		Features:    models.StringList(normaliseStrings(input.Features)),
		SortOrder:   input.SortOrder,
		IsActive:    true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(service).Error; err != nil {
			return err
		}
		// Create skips zero-value bools in favour of the column default.
		if input.IsActive != nil && !*input.IsActive {
			service.IsActive = false
			return tx.Model(service).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrServiceSlugTaken
		}
		return nil, fmt.Errorf("catalog service: create service: %w", err)
	}

	service.PriceDisplay = service.FormatPrice()
	recordAudit(s.audit, ctx, auditFromContext(ctx, "service.create", "services", AuditSuccess, map[string]any{
		"service_id": service.ID,
		"slug":       service.Slug,
	}))
	return service, nil
}

// UpdateService applies admin changes to a catalog service.
func (s *CatalogService) UpdateService(ctx context.Context, id string, input UpdateServiceInput) (*models.Service, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}

	service, err := s.findService(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Slug != nil {
		slug := slugify(*input.Slug)
		if slug == "" {
			return nil, apperrors.NewBadRequest("slug cannot be empty")
		}
		updates["slug"] = slug
	}
	if input.Category != nil {
		updates["category"] = strings.ToLower(strings.TrimSpace(*input.Category))
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	switch {
	case input.ClearBasePrice:
		updates["base_price"] = nil
	case input.BasePrice != nil:
		if *input.BasePrice < 0 {
			return nil, apperrors.NewBadRequest("base_price cannot be negative")
		}
		updates["base_price"] = *input.BasePrice
	}
	if input.Features != nil {
		updates["features"] = models.StringList(normaliseStrings(input.Features))
	}
	if input.SortOrder != nil {
		updates["sort_order"] = *input.SortOrder
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(service).Updates(updates).Error; err != nil {
			if isUniqueConstraintError(err) {
				return nil, ErrServiceSlugTaken
			}
			return nil, fmt.Errorf("catalog service: update service: %w", err)
		}
		recordAudit(s.audit, ctx, auditFromContext(ctx, "service.update", "services", AuditSuccess, map[string]any{
			"service_id": service.ID,
		}))
	}

	return s.GetService(ctx, service.ID)
}

// DeactivateService hides a service from the public catalog.
func (s *CatalogService) DeactivateService(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateService(ctx, id, UpdateServiceInput{IsActive: &inactive})
	return err
}

// CreatePackage adds a package tier to a service.
func (s *CatalogService) CreatePackage(ctx context.Context, serviceID string, input PackageInput) (*models.ServicePackage, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}

	service, err := s.findService(s.db.WithContext(ctx), serviceID)
	if err != nil {
		return nil, err
	}

	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if input.Price == nil || *input.Price < 0 {
		return nil, apperrors.NewBadRequest("price must be zero or greater")
	}

	pkg := &models.ServicePackage{
		ServiceID: service.ID,
		Name:      strings.TrimSpace(*input.Name),
		Price:     *input.Price,
		Features:  models.StringList(normaliseStrings(input.Features)),
		IsActive:  true,
	}
	if input.Description != nil {
		pkg.Description = strings.TrimSpace(*input.Description)
	}
	if input.DeliveryDays != nil {
		pkg.DeliveryDays = *input.DeliveryDays
	}
	if input.Revisions != nil {
		pkg.Revisions = *input.Revisions
	}
	if input.IsPopular != nil {
		pkg.IsPopular = *input.IsPopular
	}

	if err := s.db.WithContext(ctx).Create(pkg).Error; err != nil {
		return nil, fmt.Errorf("catalog service: create package: %w", err)
	}

	recordAudit(s.audit, ctx, auditFromContext(ctx, "package.create", "service_packages", AuditSuccess, map[string]any{
		"service_id": service.ID,
		"package_id": pkg.ID,
	}))
	return pkg, nil
}

// UpdatePackage applies admin changes to a package tier.
func (s *CatalogService) UpdatePackage(ctx context.Context, id string, input PackageInput) (*models.ServicePackage, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}

	var pkg models.ServicePackage
	if err := s.db.WithContext(ctx).Take(&pkg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("catalog service: load package: %w", err)
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.NewBadRequest("price must be zero or greater")
		}
		updates["price"] = *input.Price
	}
	if input.DeliveryDays != nil {
		updates["delivery_days"] = *input.DeliveryDays
	}
	if input.Revisions != nil {
		updates["revisions"] = *input.Revisions
	}
	if input.Features != nil {
		updates["features"] = models.StringList(normaliseStrings(input.Features))
	}
	if input.IsPopular != nil {
		updates["is_popular"] = *input.IsPopular
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&pkg).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("catalog service: update package: %w", err)
		}
		recordAudit(s.audit, ctx, auditFromContext(ctx, "package.update", "service_packages", AuditSuccess, map[string]any{
			"package_id": pkg.ID,
		}))
	}

	if err := s.db.WithContext(ctx).Take(&pkg, "id = ?", pkg.ID).Error; err != nil {
		return nil, fmt.Errorf("catalog service: reload package: %w", err)
	}
	return &pkg, nil
}

// DeactivatePackage hides a package tier.
func (s *CatalogService) DeactivatePackage(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdatePackage(ctx, id, PackageInput{IsActive: &inactive})
	return err
}

func (s *CatalogService) findService(db *gorm.DB, idOrSlug string) (*models.Service, error) {
	key := strings.TrimSpace(idOrSlug)
	if key == "" {
		return nil, ErrServiceNotFound
	}

	var service models.Service
	err := db.Where("id = ? OR slug = ?", key, strings.ToLower(key)).Take(&service).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog service: load service: %w", err)
	}
	return &service, nil
}

func callerIsAdmin(ctx context.Context) bool {
	session, ok := authctx.FromContext(ctx)
	return ok && session.IsAdmin()
}

// slugify lower-cases value and joins alphanumeric runs with single hyphens.
func slugify(value string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
