package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mdnaeem95/halaltech/internal/cache"
	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/mail"
)

var (
	// ErrFreelancerNotFound is returned for unknown, unapproved or inactive freelancers.
	ErrFreelancerNotFound = apperrors.New("FREELANCER_NOT_FOUND", "Freelancer not found", http.StatusNotFound)
	// ErrApplicationNotSubmitted blocks reviewing a profile that never completed onboarding.
	ErrApplicationNotSubmitted = apperrors.New("APPLICATION_NOT_SUBMITTED", "Application has not been submitted", http.StatusConflict)
	// ErrInvalidAvailability rejects unknown availability statuses.
	ErrInvalidAvailability = apperrors.New("INVALID_AVAILABILITY", "availability_status must be available, busy or unavailable", http.StatusBadRequest)
	// ErrInvalidApplicationStatus rejects unknown application status filters.
	ErrInvalidApplicationStatus = apperrors.New("INVALID_APPLICATION_STATUS", "Unknown application status", http.StatusBadRequest)
)

const (
	defaultMarketplaceCacheTTL = 5 * time.Minute
	maxSkillsPerFreelancer     = 50
)

// FreelancerConfig tunes marketplace caching and review emails.
type FreelancerConfig struct {
	CacheTTL  time.Duration
	PortalURL string
	Clock     func() time.Time
}

// SkillInput is one claimed skill in an onboarding submission.
type SkillInput struct {
	SkillName        string
	ProficiencyLevel string
	YearsExperience  int
}

// AvailabilityInput is one weekly availability slot.
type AvailabilityInput struct {
	DayOfWeek   int
	StartTime   string
	EndTime     string
	IsAvailable *bool
}

// OnboardingInput is the full freelancer profile submitted for review.
type OnboardingInput struct {
	Title              string
	Bio                string
	HourlyRate         *float64
	YearsExperience    int
	Skills             []SkillInput
	Availability       []AvailabilityInput
	PortfolioURL       string
	LinkedInURL        string
	GitHubURL          string
	WebsiteURL         string
	AvailabilityStatus string
}

// FreelancerService manages freelancer onboarding, the public marketplace and
// the admin review of applications.
type FreelancerService struct {
	db            *gorm.DB
	audit         *AuditService
	notifications *NotificationService
	cache         cache.Store
	mailer        mail.Mailer
	cacheTTL      time.Duration
	portalURL     string
	clock         clockFunc
}

// NewFreelancerService constructs a FreelancerService. store and mailer are optional.
func NewFreelancerService(db *gorm.DB, audit *AuditService, notifications *NotificationService, store cache.Store, mailer mail.Mailer, cfg FreelancerConfig) (*FreelancerService, error) {
	if db == nil {
		return nil, errors.New("freelancer service: db is required")
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultMarketplaceCacheTTL
	}
	return &FreelancerService{
		db:            db,
		audit:         audit,
		notifications: notifications,
		cache:         store,
		mailer:        mailer,
		cacheTTL:      ttl,
		portalURL:     strings.TrimSpace(cfg.PortalURL),
		clock:         cfg.Clock,
	}, nil
}

// SubmitOnboarding stores the caller's freelancer profile and queues it for
// review. Skills and availability slots are replaced wholesale.
func (s *FreelancerService) SubmitOnboarding(ctx context.Context, input OnboardingInput) (*models.FreelancerProfile, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleServiceProvider)
	if err != nil {
		return nil, err
	}

	skills, err := normaliseSkills(session.ProfileID, input.Skills)
	if err != nil {
		return nil, err
	}
	slots, err := normaliseAvailability(session.ProfileID, input.Availability)
	if err != nil {
		return nil, err
	}
	availability := strings.ToLower(strings.TrimSpace(input.AvailabilityStatus))
	if availability == "" {
		availability = models.AvailabilityAvailable
	}
	if !validAvailability(availability) {
		return nil, ErrInvalidAvailability
	}
	if input.HourlyRate != nil && *input.HourlyRate < 0 {
		return nil, apperrors.NewBadRequest("hourly_rate must not be negative")
	}
	if input.YearsExperience < 0 {
		return nil, apperrors.NewBadRequest("years_experience must not be negative")
	}

	now := s.clock.now()
	var status string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.FreelancerProfile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&existing, "profile_id = ?", session.ProfileID).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("freelancer service: load profile: %w", err)
		}

		status = models.ApplicationPendingReview
		if found && existing.ApplicationStatus == models.ApplicationApproved {
			status = models.ApplicationApproved
		}

		record := existing
		if !found {
			record = models.FreelancerProfile{ProfileID: session.ProfileID}
		}
		record.Title = strings.TrimSpace(input.Title)
		record.Bio = strings.TrimSpace(input.Bio)
		record.HourlyRate = input.HourlyRate
		record.YearsExperience = input.YearsExperience
		record.AvailabilityStatus = availability
		record.PortfolioURL = strings.TrimSpace(input.PortfolioURL)
		record.LinkedInURL = strings.TrimSpace(input.LinkedInURL)
		record.GitHubURL = strings.TrimSpace(input.GitHubURL)
		record.WebsiteURL = strings.TrimSpace(input.WebsiteURL)
		record.OnboardingCompleted = true
		record.ApplicationStatus = status
		record.SubmittedAt = &now
		record.RejectionReason = ""

		if found {
			err = tx.Omit(clause.Associations).Save(&record).Error
		} else {
			err = tx.Omit(clause.Associations).Create(&record).Error
		}
		if err != nil {
			return fmt.Errorf("freelancer service: store profile: %w", err)
		}

		return replaceSkillsAndAvailability(tx, session.ProfileID, skills, slots)
	})
	if err != nil {
		return nil, err
	}

	s.bumpMarketplace(ctx)
	recordAudit(s.audit, ctx, auditFromContext(ctx, "freelancer.onboarding", "freelancers", AuditSuccess, map[string]any{
		"application_status": status,
		"skills":             len(skills),
	}))
	if status == models.ApplicationPendingReview {
		if admins, err := adminProfileIDs(ctx, s.db); err == nil {
			s.notifications.Notify(ctx, CreateNotificationInput{
				Type:      models.NotificationApplicationReceived,
				Title:     "New freelancer application",
				Message:   fmt.Sprintf("%s submitted a freelancer application", defaultIfEmpty(session.Email, "A service provider")),
				ActionURL: "/admin/applications",
				Metadata:  map[string]any{"profile_id": session.ProfileID},
			}, admins...)
		}
	}

	return s.loadFreelancer(ctx, session.ProfileID)
}

// Me returns the caller's freelancer profile including draft and rejected states.
func (s *FreelancerService) Me(ctx context.Context) (*models.FreelancerProfile, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleServiceProvider)
	if err != nil {
		return nil, err
	}
	return s.loadFreelancer(ctx, session.ProfileID)
}

// UpdateAvailability changes the caller's advertised availability.
func (s *FreelancerService) UpdateAvailability(ctx context.Context, status string) (*models.FreelancerProfile, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleServiceProvider)
	if err != nil {
		return nil, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !validAvailability(status) {
		return nil, ErrInvalidAvailability
	}

	result := s.db.WithContext(ctx).Model(&models.FreelancerProfile{}).
		Where("profile_id = ?", session.ProfileID).
		Update("availability_status", status)
	if result.Error != nil {
		return nil, fmt.Errorf("freelancer service: update availability: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrFreelancerNotFound
	}

	s.bumpMarketplace(ctx)
	return s.loadFreelancer(ctx, session.ProfileID)
}

// ListApplications returns submitted applications, optionally filtered by status.
func (s *FreelancerService) ListApplications(ctx context.Context, status string) ([]models.FreelancerProfile, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.FreelancerProfile{}).
		Preload("Profile").
		Preload("Skills", func(db *gorm.DB) *gorm.DB { return db.Order("skill_name ASC") }).
		Preload("Availability", func(db *gorm.DB) *gorm.DB { return db.Order("day_of_week ASC, start_time ASC") })

	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "":
		query = query.Where("application_status <> ?", models.ApplicationDraft)
	case models.ApplicationDraft, models.ApplicationPendingReview, models.ApplicationApproved, models.ApplicationRejected:
		query = query.Where("application_status = ?", status)
	default:
		return nil, ErrInvalidApplicationStatus
	}

	var applications []models.FreelancerProfile
	if err := query.Order("submitted_at ASC").Order("created_at ASC").Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("freelancer service: list applications: %w", err)
	}
	return applications, nil
}

// ApproveApplication lists the freelancer in the marketplace and verifies the
// profile. Approving an approved application changes nothing.
func (s *FreelancerService) ApproveApplication(ctx context.Context, id string) (*models.FreelancerProfile, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	var (
		application models.FreelancerProfile
		changed     bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockApplication(tx, id, &application); err != nil {
			return err
		}
		switch application.ApplicationStatus {
		case models.ApplicationApproved:
			return nil
		case models.ApplicationDraft:
			return ErrApplicationNotSubmitted
		}

		if err := tx.Model(&application).Updates(map[string]any{
			"application_status":   models.ApplicationApproved,
			"onboarding_completed": true,
			"reviewed_at":          now,
			"reviewed_by":          session.ProfileID,
			"rejection_reason":     "",
		}).Error; err != nil {
			return fmt.Errorf("freelancer service: approve application: %w", err)
		}
		if err := tx.Model(&models.Profile{}).Where("id = ?", application.ProfileID).
			Update("is_verified", true).Error; err != nil {
			return fmt.Errorf("freelancer service: verify profile: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.afterReview(ctx, &application, "application.approve", "")
	}
	return s.loadFreelancer(ctx, application.ProfileID)
}

// RejectApplication declines an application and reopens onboarding for the freelancer.
func (s *FreelancerService) RejectApplication(ctx context.Context, id, reason string) (*models.FreelancerProfile, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	now := s.clock.now()
	var application models.FreelancerProfile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockApplication(tx, id, &application); err != nil {
			return err
		}
		if application.ApplicationStatus == models.ApplicationDraft {
			return ErrApplicationNotSubmitted
		}
		if err := tx.Model(&application).Updates(map[string]any{
			"application_status":   models.ApplicationRejected,
			"onboarding_completed": false,
			"reviewed_at":          now,
			"reviewed_by":          session.ProfileID,
			"rejection_reason":     reason,
		}).Error; err != nil {
			return fmt.Errorf("freelancer service: reject application: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterReview(ctx, &application, "application.reject", reason)
	return s.loadFreelancer(ctx, application.ProfileID)
}

func (s *FreelancerService) afterReview(ctx context.Context, application *models.FreelancerProfile, action, reason string) {
	s.bumpMarketplace(ctx)

	recordAudit(s.audit, ctx, auditFromContext(ctx, action, "applications", AuditSuccess, map[string]any{
		"profile_id": application.ProfileID,
		"reason":     reason,
	}))

	input := CreateNotificationInput{
		Type:      models.NotificationApplicationApproved,
		Title:     "Application approved",
		Message:   "Your freelancer profile is now live in the marketplace",
		Severity:  "success",
		ActionURL: "/freelancer/profile",
	}
	tmpl := applicationApprovedEmail
	if action == "application.reject" {
		input = CreateNotificationInput{
			Type:      models.NotificationApplicationRejected,
			Title:     "Application not approved",
			Message:   defaultIfEmpty(reason, "Your freelancer application was not approved"),
			Severity:  "warning",
			ActionURL: "/freelancer/onboarding",
		}
		tmpl = applicationRejectedEmail
	}
	s.notifications.Notify(ctx, input, application.ProfileID)

	var profile models.Profile
	if err := s.db.WithContext(ctx).Take(&profile, "id = ?", application.ProfileID).Error; err != nil {
		return
	}
	sendBestEffort(ctx, s.mailer, tmpl, map[string]any{
		"Name":      defaultIfEmpty(profile.FullName, profile.Email),
		"Reason":    reason,
		"PortalURL": s.portalURL,
	}, profile.Email)
}

func (s *FreelancerService) loadFreelancer(ctx context.Context, profileID string) (*models.FreelancerProfile, error) {
	var freelancer models.FreelancerProfile
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Preload("Skills", func(db *gorm.DB) *gorm.DB { return db.Order("skill_name ASC") }).
		Preload("Availability", func(db *gorm.DB) *gorm.DB { return db.Order("day_of_week ASC, start_time ASC") }).
		Take(&freelancer, "profile_id = ?", profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFreelancerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("freelancer service: load freelancer: %w", err)
	}
	return &freelancer, nil
}

// lockApplication accepts either the freelancer profile id or the owning profile id.
func lockApplication(tx *gorm.DB, id string, out *models.FreelancerProfile) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("profile_id = ? OR id = ?", id, id).
		Take(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrFreelancerNotFound
	}
	if err != nil {
		return fmt.Errorf("freelancer service: load application: %w", err)
	}
	return nil
}

func replaceSkillsAndAvailability(tx *gorm.DB, profileID string, skills []models.FreelancerSkill, slots []models.FreelancerAvailability) error {
	if err := tx.Where("freelancer_id = ?", profileID).Delete(&models.FreelancerSkill{}).Error; err != nil {
		return fmt.Errorf("freelancer service: clear skills: %w", err)
	}
	if err := tx.Where("freelancer_id = ?", profileID).Delete(&models.FreelancerAvailability{}).Error; err != nil {
		return fmt.Errorf("freelancer service: clear availability: %w", err)
	}
	if len(skills) > 0 {
		if err := tx.Create(&skills).Error; err != nil {
			return fmt.Errorf("freelancer service: store skills: %w", err)
		}
	}
	if len(slots) > 0 {
		if err := tx.Create(&slots).Error; err != nil {
			return fmt.Errorf("freelancer service: store availability: %w", err)
		}
	}
	return nil
}

// normaliseSkills trims names, lower-cases match keys and keeps the first
// entry for each case-insensitive duplicate.
func normaliseSkills(profileID string, input []SkillInput) ([]models.FreelancerSkill, error) {
	if len(input) > maxSkillsPerFreelancer {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("at most %d skills are allowed", maxSkillsPerFreelancer))
	}
	seen := make(map[string]struct{}, len(input))
	skills := make([]models.FreelancerSkill, 0, len(input))
	for _, skill := range input {
		name := strings.TrimSpace(skill.SkillName)
		if name == "" {
			return nil, apperrors.NewBadRequest("skill_name is required")
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		level := strings.ToLower(strings.TrimSpace(skill.ProficiencyLevel))
		switch level {
		case "":
			level = models.ProficiencyIntermediate
		case models.ProficiencyBeginner, models.ProficiencyIntermediate, models.ProficiencyAdvanced, models.ProficiencyExpert:
		default:
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown proficiency level %q", skill.ProficiencyLevel))
		}
		if skill.YearsExperience < 0 {
			return nil, apperrors.NewBadRequest("skill years_experience must not be negative")
		}

		skills = append(skills, models.FreelancerSkill{
			FreelancerID:     profileID,
			SkillName:        name,
			SkillKey:         key,
			ProficiencyLevel: level,
			YearsExperience:  skill.YearsExperience,
		})
	}
	return skills, nil
}

func normaliseAvailability(profileID string, input []AvailabilityInput) ([]models.FreelancerAvailability, error) {
	slots := make([]models.FreelancerAvailability, 0, len(input))
	for _, slot := range input {
		if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 {
			return nil, apperrors.NewBadRequest("day_of_week must be between 0 and 6")
		}
		start, end := strings.TrimSpace(slot.StartTime), strings.TrimSpace(slot.EndTime)
		if !validClock(start) || !validClock(end) {
			return nil, apperrors.NewBadRequest("availability times must be formatted HH:MM")
		}
		// HH:MM strings order lexically.
		if start >= end {
			return nil, apperrors.NewBadRequest("availability start_time must be before end_time")
		}
		available := true
		if slot.IsAvailable != nil {
			available = *slot.IsAvailable
		}
		slots = append(slots, models.FreelancerAvailability{
			FreelancerID: profileID,
			DayOfWeek:    slot.DayOfWeek,
			StartTime:    start,
			EndTime:      end,
			IsAvailable:  available,
		})
	}
	return slots, nil
}

func validClock(value string) bool {
	_, err := time.Parse("15:04", value)
	return err == nil && len(value) == 5
}

func validAvailability(status string) bool {
	switch status {
	case models.AvailabilityAvailable, models.AvailabilityBusy, models.AvailabilityUnavailable:
		return true
	}
	return false
}
