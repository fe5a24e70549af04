package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/pkg/crypto"
)

// SampleFreelancerDomain marks profiles created by the marketplace seeder.
const SampleFreelancerDomain = "sample.halaltech.sg"

// SeedResult reports what a seeding run changed.
type SeedResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Cleared int `json:"cleared"`
}

type sampleFreelancer struct {
	handle       string
	name         string
	title        string
	bio          string
	rate         float64
	years        int
	rating       float64
	reviews      int
	availability string
	skills       []SkillInput
	days         []int
}

var sampleFreelancers = []sampleFreelancer{
	{
		handle:       "aisyah.rahman",
		name:         "Aisyah Rahman",
		title:        "Senior Full-Stack Developer",
		bio:          "Builds e-commerce platforms for halal F&B brands with Go and React.",
		rate:         95,
		years:        8,
		rating:       4.9,
		reviews:      42,
		availability: models.AvailabilityAvailable,
		skills: []SkillInput{
			{SkillName: "Go", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 6},
			{SkillName: "React", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 7},
			{SkillName: "PostgreSQL", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 6},
		},
		days: []int{1, 2, 3, 4, 5},
	},
	{
		handle:       "farid.ismail",
		name:         "Farid Ismail",
		title:        "Mobile App Developer",
		bio:          "Ships Flutter and React Native apps for booking and delivery businesses.",
		rate:         80,
		years:        6,
		rating:       4.7,
		reviews:      31,
		availability: models.AvailabilityAvailable,
		skills: []SkillInput{
			{SkillName: "Flutter", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 5},
			{SkillName: "React Native", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 4},
			{SkillName: "Firebase", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 5},
		},
		days: []int{1, 3, 5},
	},
	{
		handle:       "nurul.huda",
		name:         "Nurul Huda",
		title:        "UI/UX Designer",
		bio:          "Designs accessible interfaces and brand systems for community organisations.",
		rate:         70,
		years:        5,
		rating:       4.8,
		reviews:      27,
		availability: models.AvailabilityBusy,
		skills: []SkillInput{
			{SkillName: "Figma", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 5},
			{SkillName: "UI Design", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 5},
			{SkillName: "User Research", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 3},
		},
		days: []int{2, 4},
	},
	{
		handle:       "hakim.osman",
		name:         "Hakim Osman",
		title:        "Cloud & DevOps Engineer",
		bio:          "Automates deployments and keeps production clusters healthy.",
		rate:         110,
		years:        9,
		rating:       4.6,
		reviews:      19,
		availability: models.AvailabilityAvailable,
		skills: []SkillInput{
			{SkillName: "Kubernetes", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 6},
			{SkillName: "AWS", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 8},
			{SkillName: "Go", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 4},
		},
		days: []int{1, 2, 3, 4, 5},
	},
	{
		handle:       "siti.aminah",
		name:         "Siti Aminah",
		title:        "Digital Marketing Specialist",
		bio:          "Runs SEO and social campaigns for Muslim-owned retail brands.",
		rate:         55,
		years:        4,
		rating:       4.5,
		reviews:      36,
		availability: models.AvailabilityAvailable,
		skills: []SkillInput{
			{SkillName: "SEO", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 4},
			{SkillName: "Content Strategy", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 4},
			{SkillName: "Google Ads", ProficiencyLevel: models.ProficiencyIntermediate, YearsExperience: 2},
		},
		days: []int{1, 2, 3, 4},
	},
	{
		handle:       "imran.yusof",
		name:         "Imran Yusof",
		title:        "Backend Engineer",
		bio:          "Designs payment and ledger services with strong audit trails.",
		rate:         90,
		years:        7,
		rating:       4.4,
		reviews:      14,
		availability: models.AvailabilityUnavailable,
		skills: []SkillInput{
			{SkillName: "Go", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 5},
			{SkillName: "PostgreSQL", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 7},
			{SkillName: "Redis", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 4},
		},
		days: []int{},
	},
	{
		handle:       "zainab.ali",
		name:         "Zainab Ali",
		title:        "Front-End Developer",
		bio:          "Builds fast marketing sites and dashboards with Next.js.",
		rate:         65,
		years:        3,
		rating:       4.3,
		reviews:      11,
		availability: models.AvailabilityAvailable,
		skills: []SkillInput{
			{SkillName: "React", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 3},
			{SkillName: "Next.js", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 2},
			{SkillName: "Tailwind CSS", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 3},
		},
		days: []int{0, 1, 2, 3, 4},
	},
	{
		handle:       "rashid.karim",
		name:         "Rashid Karim",
		title:        "Data Analyst",
		bio:          "Turns sales and operations data into reporting that owners actually use.",
		rate:         75,
		years:        5,
		rating:       4.6,
		reviews:      22,
		availability: models.AvailabilityBusy,
		skills: []SkillInput{
			{SkillName: "Python", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 5},
			{SkillName: "SQL", ProficiencyLevel: models.ProficiencyExpert, YearsExperience: 5},
			{SkillName: "Power BI", ProficiencyLevel: models.ProficiencyAdvanced, YearsExperience: 3},
		},
		days: []int{1, 3},
	},
}

// SeedService loads sample marketplace data.
type SeedService struct {
	db          *gorm.DB
	audit       *AuditService
	freelancers *FreelancerService
	clock       clockFunc
}

// NewSeedService constructs a SeedService. freelancers is used to invalidate
// the marketplace cache and may be nil.
func NewSeedService(db *gorm.DB, audit *AuditService, freelancers *FreelancerService) (*SeedService, error) {
	if db == nil {
		return nil, errors.New("seed service: db is required")
	}
	return &SeedService{db: db, audit: audit, freelancers: freelancers}, nil
}

// SampleEmail returns the address used for a seeded freelancer handle.
func SampleEmail(handle string) string {
	return handle + "@" + SampleFreelancerDomain
}

// SeedFreelancers creates the sample approved freelancers. Samples whose email
// already exists are skipped; clearExisting removes earlier samples first.
func (s *SeedService) SeedFreelancers(ctx context.Context, clearExisting bool) (*SeedResult, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	// Sample accounts get an unguessable password nobody is told.
	secret, err := crypto.GenerateToken(24)
	if err != nil {
		return nil, fmt.Errorf("seed service: generate password: %w", err)
	}
	hash, err := crypto.HashPassword(secret)
	if err != nil {
		return nil, fmt.Errorf("seed service: hash password: %w", err)
	}

	now := s.clock.now()
	result := &SeedResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clearExisting {
			cleared, err := clearSampleFreelancers(tx)
			if err != nil {
				return err
			}
			result.Cleared = cleared
		}

		for _, sample := range sampleFreelancers {
			created, err := createSampleFreelancer(tx, sample, hash, session.ProfileID, now)
			if err != nil {
				return err
			}
			if created {
				result.Created++
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.freelancers.bumpMarketplace(ctx)
	recordAudit(s.audit, ctx, auditFromContext(ctx, "freelancer.seed", "freelancers", AuditSuccess, map[string]any{
		"created":        result.Created,
		"skipped":        result.Skipped,
		"cleared":        result.Cleared,
		"clear_existing": clearExisting,
	}))
	return result, nil
}

func createSampleFreelancer(tx *gorm.DB, sample sampleFreelancer, passwordHash, reviewer string, now time.Time) (bool, error) {
	email := SampleEmail(sample.handle)
	var existing int64
	if err := tx.Model(&models.Profile{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return false, fmt.Errorf("seed service: check %s: %w", email, err)
	}
	if existing > 0 {
		return false, nil
	}

	profile := models.Profile{
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     sample.name,
		Role:         models.RoleServiceProvider,
		IsVerified:   true,
		IsActive:     true,
	}
	if err := tx.Create(&profile).Error; err != nil {
		return false, fmt.Errorf("seed service: create profile %s: %w", email, err)
	}

	rate := sample.rate
	freelancer := models.FreelancerProfile{
		ProfileID:           profile.ID,
		Title:               sample.title,
		Bio:                 sample.bio,
		HourlyRate:          &rate,
		YearsExperience:     sample.years,
		Rating:              sample.rating,
		ReviewCount:         sample.reviews,
		AvailabilityStatus:  sample.availability,
		PortfolioURL:        "https://portfolio." + SampleFreelancerDomain + "/" + sample.handle,
		OnboardingCompleted: true,
		ApplicationStatus:   models.ApplicationApproved,
		SubmittedAt:         &now,
		ReviewedAt:          &now,
		ReviewedBy:          &reviewer,
	}
	if err := tx.Create(&freelancer).Error; err != nil {
		return false, fmt.Errorf("seed service: create freelancer %s: %w", email, err)
	}

	skills, err := normaliseSkills(profile.ID, sample.skills)
	if err != nil {
		return false, err
	}
	slots := make([]AvailabilityInput, 0, len(sample.days))
	for _, day := range sample.days {
		slots = append(slots, AvailabilityInput{DayOfWeek: day, StartTime: "09:00", EndTime: "18:00"})
	}
	availability, err := normaliseAvailability(profile.ID, slots)
	if err != nil {
		return false, err
	}
	if err := replaceSkillsAndAvailability(tx, profile.ID, skills, availability); err != nil {
		return false, err
	}
	return true, nil
}

// clearSampleFreelancers deletes every profile on the sample domain together
// with the rows that reference it.
func clearSampleFreelancers(tx *gorm.DB) (int, error) {
	var ids []string
	if err := tx.Model(&models.Profile{}).
		Where("email LIKE ?", "%@"+SampleFreelancerDomain).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("seed service: find samples: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	dependents := []struct {
		model  any
		column string
	}{
		{&models.FreelancerSkill{}, "freelancer_id"},
		{&models.FreelancerAvailability{}, "freelancer_id"},
		{&models.FreelancerProfile{}, "profile_id"},
		{&models.ProjectAssignment{}, "freelancer_id"},
		{&models.ProjectMessage{}, "sender_id"},
		{&models.Notification{}, "profile_id"},
		{&models.Session{}, "profile_id"},
	}
	for _, dep := range dependents {
		if err := tx.Where(dep.column+" IN ?", ids).Delete(dep.model).Error; err != nil {
			return 0, fmt.Errorf("seed service: clear by %s: %w", dep.column, err)
		}
	}

	result := tx.Where("id IN ?", ids).Delete(&models.Profile{})
	if result.Error != nil {
		return 0, fmt.Errorf("seed service: clear profiles: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
