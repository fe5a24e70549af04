package models

import (
	"strings"
	"time"
)

// Profile roles.
const (
	RoleClient          = "client"
	RoleAdmin           = "admin"
	RoleServiceProvider = "service_provider"
)

// Profile is the account record for every person using the platform.
// Profiles are deactivated through IsActive rather than deleted.
type Profile struct {
	BaseModel

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FullName     string `gorm:"type:varchar(255)" json:"full_name"`
	Phone        string `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Role         string `gorm:"type:varchar(32);not null;default:'client';index" json:"role"`
	CompanyName  string `gorm:"type:varchar(255)" json:"company_name,omitempty"`

	IsVerified bool `gorm:"default:false" json:"is_verified"`
	IsActive   bool `gorm:"default:true;index" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP string     `gorm:"type:varchar(64)" json:"-"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`

	Freelancer *FreelancerProfile `gorm:"foreignKey:ProfileID" json:"freelancer,omitempty"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// ValidRole reports whether role is one of the known profile roles.
func ValidRole(role string) bool {
	switch strings.TrimSpace(role) {
	case RoleClient, RoleAdmin, RoleServiceProvider:
		return true
	}
	return false
}
