package models

import (
	"time"

	"gorm.io/datatypes"
)

// Quote is the single priced proposal attached to a project.
type Quote struct {
	BaseModel

	ProjectID       string         `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	Amount          float64        `gorm:"not null" json:"amount"`
	Deliverables    datatypes.JSON `json:"deliverables"`
	PaymentTerms    string         `gorm:"type:text" json:"payment_terms"`
	Timeline        string         `gorm:"type:varchar(64)" json:"timeline,omitempty"`
	Notes           string         `gorm:"type:text" json:"notes,omitempty"`
	ValidUntil      time.Time      `gorm:"not null" json:"valid_until"`
	IsAccepted      bool           `gorm:"default:false" json:"is_accepted"`
	AcceptedAt      *time.Time     `json:"accepted_at"`
	RejectedAt      *time.Time     `json:"rejected_at"`
	RejectionReason string         `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedBy       string         `gorm:"type:uuid" json:"created_by"`
}

// Responded reports whether the client has already accepted or rejected the quote.
func (q *Quote) Responded() bool {
	return q.IsAccepted || q.RejectedAt != nil
}

// Expired reports whether the quote validity window has passed at now.
func (q *Quote) Expired(now time.Time) bool {
	return now.After(q.ValidUntil)
}
