package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/cache"
	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/logger"
	"github.com/mdnaeem95/halaltech/pkg/metrics"
)

var (
	// ErrInvalidSortField rejects sort_by values outside the supported set.
	ErrInvalidSortField = apperrors.New("INVALID_SORT_FIELD", "sort_by must be one of rating, hourly_rate, years_experience, created_at, name", http.StatusBadRequest)
	// ErrInvalidSortOrder rejects sort_order values other than asc and desc.
	ErrInvalidSortOrder = apperrors.New("INVALID_SORT_ORDER", "sort_order must be asc or desc", http.StatusBadRequest)
)

const (
	marketplaceGenerationKey = "marketplace:generation"
	marketplaceGenerationTTL = 30 * 24 * time.Hour
)

var marketplaceSortColumns = map[string]string{
	"rating":           "freelancer_profiles.rating",
	"hourly_rate":      "freelancer_profiles.hourly_rate",
	"years_experience": "freelancer_profiles.years_experience",
	"created_at":       "freelancer_profiles.created_at",
	"name":             "profiles.full_name",
}

// MarketplaceFilters narrows the public freelancer listing. All filters combine with AND.
type MarketplaceFilters struct {
	Skills             []string
	MinRating          *float64
	MaxHourlyRate      *float64
	AvailabilityStatus string
	SortBy             string
	SortOrder          string
}

// FreelancerListing is the public view of an approved freelancer.
type FreelancerListing struct {
	ID                 string                          `json:"id"`
	FullName           string                          `json:"full_name"`
	IsVerified         bool                            `json:"is_verified"`
	Title              string                          `json:"title"`
	Bio                string                          `json:"bio"`
	HourlyRate         *float64                        `json:"hourly_rate"`
	YearsExperience    int                             `json:"years_experience"`
	Rating             float64                         `json:"rating"`
	ReviewCount        int                             `json:"review_count"`
	AvailabilityStatus string                          `json:"availability_status"`
	PortfolioURL       string                          `json:"portfolio_url,omitempty"`
	LinkedInURL        string                          `json:"linkedin_url,omitempty"`
	GitHubURL          string                          `json:"github_url,omitempty"`
	WebsiteURL         string                          `json:"website_url,omitempty"`
	Skills             []models.FreelancerSkill        `json:"skills"`
	Availability       []models.FreelancerAvailability `json:"availability"`
	JoinedAt           time.Time                       `json:"joined_at"`
}

// Search lists approved, active freelancers. Results are served from the
// cache store when one is configured.
func (s *FreelancerService) Search(ctx context.Context, filters MarketplaceFilters) ([]FreelancerListing, error) {
	ctx = ensureContext(ctx)
	filters, err := normaliseMarketplaceFilters(filters)
	if err != nil {
		return nil, err
	}

	if s.cache == nil {
		metrics.MarketplaceSearches.WithLabelValues("bypass").Inc()
		return s.search(ctx, filters)
	}

	key := s.searchCacheKey(ctx, filters)
	if cached, hit, err := cache.GetJSON[[]FreelancerListing](ctx, s.cache, key); err != nil {
		logger.WithModule("marketplace").Warn("cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		metrics.MarketplaceSearches.WithLabelValues("hit").Inc()
		return cached, nil
	}

	metrics.MarketplaceSearches.WithLabelValues("miss").Inc()
	listings, err := s.search(ctx, filters)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, listings, s.cacheTTL); err != nil {
		logger.WithModule("marketplace").Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return listings, nil
}

// GetListing returns the public profile of one approved freelancer by profile id.
func (s *FreelancerService) GetListing(ctx context.Context, profileID string) (*FreelancerListing, error) {
	ctx = ensureContext(ctx)
	var freelancer models.FreelancerProfile
	err := s.marketplaceQuery(ctx).
		Where("freelancer_profiles.profile_id = ?", profileID).
		Take(&freelancer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFreelancerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("freelancer service: load listing: %w", err)
	}
	listing := toListing(freelancer)
	return &listing, nil
}

func (s *FreelancerService) search(ctx context.Context, filters MarketplaceFilters) ([]FreelancerListing, error) {
	query := s.marketplaceQuery(ctx)
	for _, skill := range filters.Skills {
		query = query.Where(
			"EXISTS (SELECT 1 FROM freelancer_skills fs WHERE fs.freelancer_id = freelancer_profiles.profile_id AND fs.skill_key = ?)",
			skill,
		)
	}
	if filters.MinRating != nil {
		query = query.Where("freelancer_profiles.rating >= ?", *filters.MinRating)
	}
	if filters.MaxHourlyRate != nil {
		query = query.Where("freelancer_profiles.hourly_rate <= ?", *filters.MaxHourlyRate)
	}
	if filters.AvailabilityStatus != "" {
		query = query.Where("freelancer_profiles.availability_status = ?", filters.AvailabilityStatus)
	}

	query = query.
		Order(marketplaceSortColumns[filters.SortBy] + " " + strings.ToUpper(filters.SortOrder)).
		Order("profiles.full_name ASC").
		Order("freelancer_profiles.id ASC")

	var freelancers []models.FreelancerProfile
	if err := query.Find(&freelancers).Error; err != nil {
		return nil, fmt.Errorf("freelancer service: search: %w", err)
	}

	listings := make([]FreelancerListing, 0, len(freelancers))
	for _, freelancer := range freelancers {
		listings = append(listings, toListing(freelancer))
	}
	return listings, nil
}

func (s *FreelancerService) marketplaceQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.FreelancerProfile{}).
		Select("freelancer_profiles.*").
		Joins("JOIN profiles ON profiles.id = freelancer_profiles.profile_id").
		Where("freelancer_profiles.application_status = ?", models.ApplicationApproved).
		Where("profiles.is_active = ?", true).
		Where("profiles.role = ?", models.RoleServiceProvider).
		Preload("Profile").
		Preload("Skills", func(db *gorm.DB) *gorm.DB { return db.Order("skill_name ASC") }).
		Preload("Availability", func(db *gorm.DB) *gorm.DB { return db.Order("day_of_week ASC, start_time ASC") })
}

// searchCacheKey scopes the key to the current generation so bumpMarketplace
// invalidates every cached search at once.
func (s *FreelancerService) searchCacheKey(ctx context.Context, filters MarketplaceFilters) string {
	generation := int64(0)
	if raw, found, err := s.cache.Get(ctx, marketplaceGenerationKey); err == nil && found {
		generation, _ = strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	}

	var b strings.Builder
	b.WriteString("skills=" + strings.Join(filters.Skills, ","))
	if filters.MinRating != nil {
		b.WriteString("|min_rating=" + strconv.FormatFloat(*filters.MinRating, 'f', -1, 64))
	}
	if filters.MaxHourlyRate != nil {
		b.WriteString("|max_hourly_rate=" + strconv.FormatFloat(*filters.MaxHourlyRate, 'f', -1, 64))
	}
	b.WriteString("|availability=" + filters.AvailabilityStatus)
	b.WriteString("|sort=" + filters.SortBy + ":" + filters.SortOrder)

	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("marketplace:v%d:%s", generation, hex.EncodeToString(sum[:16]))
}

// InvalidateMarketplace drops every cached search page. Callers outside the
// freelancer service use it when a profile's role or activation changes.
func (s *FreelancerService) InvalidateMarketplace(ctx context.Context) {
	s.bumpMarketplace(ensureContext(ctx))
}

// bumpMarketplace advances the cache generation after any change that can
// alter search results.
func (s *FreelancerService) bumpMarketplace(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if _, _, err := s.cache.IncrementWithTTL(ctx, marketplaceGenerationKey, marketplaceGenerationTTL); err != nil {
		logger.WithModule("marketplace").Warn("failed to invalidate marketplace cache", zap.Error(err))
	}
}

func normaliseMarketplaceFilters(filters MarketplaceFilters) (MarketplaceFilters, error) {
	skills := make([]string, 0, len(filters.Skills))
	for _, skill := range normaliseStrings(filters.Skills) {
		skills = append(skills, strings.ToLower(skill))
	}
	sort.Strings(skills)
	filters.Skills = skills

	filters.AvailabilityStatus = strings.ToLower(strings.TrimSpace(filters.AvailabilityStatus))
	if filters.AvailabilityStatus != "" && !validAvailability(filters.AvailabilityStatus) {
		return filters, ErrInvalidAvailability
	}

	filters.SortBy = strings.ToLower(strings.TrimSpace(filters.SortBy))
	if filters.SortBy == "" {
		filters.SortBy = "rating"
	}
	if _, ok := marketplaceSortColumns[filters.SortBy]; !ok {
		return filters, ErrInvalidSortField
	}

	filters.SortOrder = strings.ToLower(strings.TrimSpace(filters.SortOrder))
	switch filters.SortOrder {
	case "":
		filters.SortOrder = "desc"
	case "asc", "desc":
	default:
		return filters, ErrInvalidSortOrder
	}
	return filters, nil
}

func toListing(freelancer models.FreelancerProfile) FreelancerListing {
	listing := FreelancerListing{
		ID:                 freelancer.ProfileID,
		Title:              freelancer.Title,
		Bio:                freelancer.Bio,
		HourlyRate:         freelancer.HourlyRate,
		YearsExperience:    freelancer.YearsExperience,
		Rating:             freelancer.Rating,
		ReviewCount:        freelancer.ReviewCount,
		AvailabilityStatus: freelancer.AvailabilityStatus,
		PortfolioURL:       freelancer.PortfolioURL,
		LinkedInURL:        freelancer.LinkedInURL,
		GitHubURL:          freelancer.GitHubURL,
		WebsiteURL:         freelancer.WebsiteURL,
		Skills:             freelancer.Skills,
		Availability:       freelancer.Availability,
		JoinedAt:           freelancer.CreatedAt,
	}
	if listing.Skills == nil {
		listing.Skills = []models.FreelancerSkill{}
	}
	if listing.Availability == nil {
		listing.Availability = []models.FreelancerAvailability{}
	}
	if freelancer.Profile != nil {
		listing.FullName = freelancer.Profile.FullName
		listing.IsVerified = freelancer.Profile.IsVerified
	}
	return listing
}
