package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is a refresh-token session. Only the SHA-256 digest of the refresh
// token is persisted.
type Session struct {
	ID               string     `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID        string     `gorm:"type:uuid;not null;index" json:"profile_id"`
	Profile          *Profile   `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	RefreshTokenHash string     `gorm:"uniqueIndex;not null;size:64" json:"-"`
	IPAddress        string     `json:"ip_address"`
	UserAgent        string     `json:"user_agent"`
	ExpiresAt        time.Time  `gorm:"index" json:"expires_at"`
	LastUsedAt       time.Time  `json:"last_used_at"`
	CreatedAt        time.Time  `json:"created_at"`
	RevokedAt        *time.Time `json:"revoked_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
