package models

import (
	"time"

	"gorm.io/gorm"
)

// Invoice statuses. Overdue is derived, never stored.
const (
	InvoicePending   = "pending"
	InvoicePaid      = "paid"
	InvoiceCancelled = "cancelled"
)

// Invoice bills a client for a project.
type Invoice struct {
	BaseModel

	ProjectID      string     `gorm:"type:uuid;not null;index" json:"project_id"`
	Project        *Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	InvoiceNumber  string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"invoice_number"`
	Amount         float64    `gorm:"not null" json:"amount"`
	TaxRate        float64    `gorm:"not null" json:"tax_rate"`
	TaxAmount      float64    `gorm:"not null" json:"tax_amount"`
	TotalAmount    float64    `gorm:"not null" json:"total_amount"`
	Currency       string     `gorm:"type:varchar(8);default:'SGD'" json:"currency"`
	Status         string     `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	DueDate        time.Time  `gorm:"index" json:"due_date"`
	PaidAt         *time.Time `json:"paid_at"`
	PaymentMethod  string     `gorm:"type:varchar(64)" json:"payment_method,omitempty"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`
	LastReminderAt *time.Time `json:"-"`

	IsOverdue bool `gorm:"-" json:"is_overdue"`
}

// Overdue reports whether the invoice is unpaid past its due date at now.
func (i *Invoice) Overdue(now time.Time) bool {
	return i.Status == InvoicePending && i.DueDate.Before(now)
}

// AfterFind derives IsOverdue on every read.
func (i *Invoice) AfterFind(tx *gorm.DB) error {
	i.IsOverdue = i.Overdue(time.Now())
	return nil
}

// ValidInvoiceStatus reports whether status is a storable invoice status.
func ValidInvoiceStatus(status string) bool {
	switch status {
	case InvoicePending, InvoicePaid, InvoiceCancelled:
		return true
	}
	return false
}
