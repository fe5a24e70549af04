package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProjectStatus enumerates the engagement lifecycle.
type ProjectStatus string

const (
	ProjectInquiry    ProjectStatus = "inquiry"
	ProjectQuoted     ProjectStatus = "quoted"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectReview     ProjectStatus = "review"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectInquiry:    {ProjectQuoted, ProjectCancelled},
	ProjectQuoted:     {ProjectInquiry, ProjectInProgress, ProjectCancelled},
	ProjectInProgress: {ProjectReview, ProjectCancelled},
	ProjectReview:     {ProjectInProgress, ProjectCompleted, ProjectCancelled},
}

// ProjectStatuses lists every lifecycle state in pipeline order.
func ProjectStatuses() []ProjectStatus {
	return []ProjectStatus{
		ProjectInquiry, ProjectQuoted, ProjectInProgress,
		ProjectReview, ProjectCompleted, ProjectCancelled,
	}
}

// Valid reports whether s is a known lifecycle state.
func (s ProjectStatus) Valid() bool {
	for _, candidate := range ProjectStatuses() {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectCompleted || s == ProjectCancelled
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	for _, allowed := range projectTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Project is a client engagement moving through the quote/invoice pipeline.
type Project struct {
	BaseModel

	ClientID     string          `gorm:"type:uuid;not null;index" json:"client_id"`
	Client       *Profile        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ServiceID    *string         `gorm:"type:uuid;index" json:"service_id"`
	Service      *Service        `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	PackageID    *string         `gorm:"type:uuid" json:"package_id"`
	Package      *ServicePackage `gorm:"foreignKey:PackageID" json:"package,omitempty"`
	Title        string          `gorm:"type:varchar(255);not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	Requirements datatypes.JSON  `json:"requirements"`
	BudgetRange  string          `gorm:"type:varchar(64)" json:"budget_range,omitempty"`
	Timeline     string          `gorm:"type:varchar(64)" json:"timeline,omitempty"`

	Status      ProjectStatus `gorm:"type:varchar(32);not null;default:'inquiry';index" json:"status"`
	QuotedPrice *float64      `json:"quoted_price"`
	FinalPrice  *float64      `json:"final_price"`
	StartDate   *time.Time    `json:"start_date"`
	Deadline    *time.Time    `json:"deadline"`
	CompletedAt *time.Time    `json:"completed_at"`

	Quote       *Quote              `gorm:"foreignKey:ProjectID" json:"quote,omitempty"`
	Invoices    []Invoice           `gorm:"foreignKey:ProjectID" json:"invoices,omitempty"`
	Assignments []ProjectAssignment `gorm:"foreignKey:ProjectID" json:"assignments,omitempty"`
}

// Assignment statuses.
const (
	AssignmentAssigned  = "assigned"
	AssignmentActive    = "active"
	AssignmentCompleted = "completed"
	AssignmentRemoved   = "removed"
)

// ProjectAssignment links an approved freelancer to a project.
type ProjectAssignment struct {
	BaseModel

	ProjectID    string   `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_project_freelancer" json:"project_id"`
	FreelancerID string   `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_project_freelancer;index" json:"freelancer_id"`
	Freelancer   *Profile `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Role         string   `gorm:"type:varchar(64)" json:"role"`
	Status       string   `gorm:"type:varchar(32);default:'assigned'" json:"status"`
	AssignedBy   string   `gorm:"type:uuid" json:"assigned_by"`
}

// ProjectMessage is a chat message on a project thread.
type ProjectMessage struct {
	BaseModel

	ProjectID   string         `gorm:"type:uuid;not null;index" json:"project_id"`
	SenderID    string         `gorm:"type:uuid;not null" json:"sender_id"`
	Sender      *Profile       `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Message     string         `gorm:"type:text;not null" json:"message"`
	Attachments datatypes.JSON `json:"attachments"`
	IsRead      bool           `gorm:"default:false" json:"is_read"`
	ReadAt      *time.Time     `json:"read_at"`
}
