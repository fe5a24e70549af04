package models

import (
	"fmt"

	"gorm.io/datatypes"
)

// CustomPricingLabel is shown for services without a published base price.
const CustomPricingLabel = "Custom Pricing"

// Service is a catalog entry offered by the agency.
type Service struct {
	BaseModel

	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Category    string         `gorm:"type:varchar(64);index" json:"category"`
	Description string         `gorm:"type:text" json:"description"`
	BasePrice   *float64       `json:"base_price"`
	Features    datatypes.JSON `json:"features"`
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`
	SortOrder   int            `gorm:"default:0" json:"sort_order"`

	Packages     []ServicePackage `gorm:"foreignKey:ServiceID" json:"packages,omitempty"`
	PriceDisplay string           `gorm:"-" json:"price_display"`
}

// FormatPrice renders the listing label for the service price.
func (s *Service) FormatPrice() string {
	if s.BasePrice == nil {
		return CustomPricingLabel
	}
	return fmt.Sprintf("From $%.2f", *s.BasePrice)
}

// ServicePackage is a fixed-price tier of a service.
type ServicePackage struct {
	BaseModel

	ServiceID    string         `gorm:"type:uuid;not null;index" json:"service_id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	Price        float64        `gorm:"not null;index" json:"price"`
	DeliveryDays int            `json:"delivery_days"`
	Revisions    int            `json:"revisions"`
	Features     datatypes.JSON `json:"features"`
	IsPopular    bool           `gorm:"default:false" json:"is_popular"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
}
