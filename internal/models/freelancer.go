package models

import (
	"time"
)

// Availability statuses advertised in the marketplace.
const (
	AvailabilityAvailable   = "available"
	AvailabilityBusy        = "busy"
	AvailabilityUnavailable = "unavailable"
)

// Application statuses of the freelancer approval workflow.
const (
	ApplicationDraft         = "draft"
	ApplicationPendingReview = "pending_review"
	ApplicationApproved      = "approved"
	ApplicationRejected      = "rejected"
)

// FreelancerProfile extends a service_provider profile with marketplace data.
type FreelancerProfile struct {
	BaseModel

	ProfileID          string   `gorm:"type:uuid;not null;uniqueIndex" json:"profile_id"`
	Profile            *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	Title              string   `gorm:"type:varchar(255)" json:"title"`
	Bio                string   `gorm:"type:text" json:"bio"`
	HourlyRate         *float64 `gorm:"index" json:"hourly_rate"`
	YearsExperience    int      `gorm:"default:0" json:"years_experience"`
	Rating             float64  `gorm:"default:0;index" json:"rating"`
	ReviewCount        int      `gorm:"default:0" json:"review_count"`
	AvailabilityStatus string   `gorm:"type:varchar(32);default:'available';index" json:"availability_status"`
	PortfolioURL       string   `gorm:"type:text" json:"portfolio_url,omitempty"`
	LinkedInURL        string   `gorm:"type:text" json:"linkedin_url,omitempty"`
	GitHubURL          string   `gorm:"type:text" json:"github_url,omitempty"`
	WebsiteURL         string   `gorm:"type:text" json:"website_url,omitempty"`

	OnboardingCompleted bool       `gorm:"default:false" json:"onboarding_completed"`
	ApplicationStatus   string     `gorm:"type:varchar(32);default:'draft';index" json:"application_status"`
	SubmittedAt         *time.Time `json:"submitted_at"`
	ReviewedAt          *time.Time `json:"reviewed_at"`
	ReviewedBy          *string    `gorm:"type:uuid" json:"reviewed_by"`
	RejectionReason     string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	Skills       []FreelancerSkill        `gorm:"foreignKey:FreelancerID;references:ProfileID" json:"skills,omitempty"`
	Availability []FreelancerAvailability `gorm:"foreignKey:FreelancerID;references:ProfileID" json:"availability,omitempty"`
}

// Skill proficiency levels.
const (
	ProficiencyBeginner     = "beginner"
	ProficiencyIntermediate = "intermediate"
	ProficiencyAdvanced     = "advanced"
	ProficiencyExpert       = "expert"
)

// FreelancerSkill is a single skill claimed by a freelancer. FreelancerID is
// the owning profile id. SkillKey is the lower-cased name used for matching.
type FreelancerSkill struct {
	BaseModel

	FreelancerID     string `gorm:"type:uuid;not null;uniqueIndex:idx_freelancer_skill" json:"freelancer_id"`
	SkillName        string `gorm:"type:varchar(128);not null" json:"skill_name"`
	SkillKey         string `gorm:"type:varchar(128);not null;uniqueIndex:idx_freelancer_skill;index" json:"-"`
	ProficiencyLevel string `gorm:"type:varchar(32);default:'intermediate'" json:"proficiency_level"`
	YearsExperience  int    `gorm:"default:0" json:"years_experience"`
}

// FreelancerAvailability is a weekly availability slot. DayOfWeek follows
// time.Weekday (0 = Sunday); times are "HH:MM" in the freelancer's locale.
type FreelancerAvailability struct {
	BaseModel

	FreelancerID string `gorm:"type:uuid;not null;index" json:"freelancer_id"`
	DayOfWeek    int    `gorm:"not null" json:"day_of_week"`
	StartTime    string `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime      string `gorm:"type:varchar(5);not null" json:"end_time"`
	IsAvailable  bool   `gorm:"not null" json:"is_available"`
}

// TableName keeps the singular table name used by the platform schema.
func (FreelancerAvailability) TableName() string {
	return "freelancer_availability"
}
