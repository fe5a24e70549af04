package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/billing"
	"github.com/mdnaeem95/halaltech/internal/models"
)

// AdminDashboard summarises the whole pipeline.
type AdminDashboard struct {
	Projects            map[string]int64 `json:"projects"`
	TotalProjects       int64            `json:"total_projects"`
	Revenue             float64          `json:"revenue"`
	Outstanding         float64          `json:"outstanding"`
	OverdueInvoices     int64            `json:"overdue_invoices"`
	PendingApplications int64            `json:"pending_applications"`
	ActiveFreelancers   int64            `json:"active_freelancers"`
	Clients             int64            `json:"clients"`
}

// ClientDashboard summarises the caller's own engagements.
type ClientDashboard struct {
	Projects            map[string]int64 `json:"projects"`
	TotalProjects       int64            `json:"total_projects"`
	OpenInvoices        int64            `json:"open_invoices"`
	OutstandingAmount   float64          `json:"outstanding_amount"`
	OverdueInvoices     int64            `json:"overdue_invoices"`
	UnreadNotifications int64            `json:"unread_notifications"`
}

// DashboardService computes dashboard aggregates.
type DashboardService struct {
	db    *gorm.DB
	clock clockFunc
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(db *gorm.DB) (*DashboardService, error) {
	if db == nil {
		return nil, errors.New("dashboard service: db is required")
	}
	return &DashboardService{db: db}, nil
}

// Admin returns platform-wide totals.
func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	now := s.clock.now()

	projects, total, err := projectCounts(db.Model(&models.Project{}))
	if err != nil {
		return nil, err
	}
	out := &AdminDashboard{Projects: projects, TotalProjects: total}

	if out.Revenue, err = sumInvoices(db.Where("status = ?", models.InvoicePaid)); err != nil {
		return nil, err
	}
	if out.Outstanding, err = sumInvoices(db.Where("status = ?", models.InvoicePending)); err != nil {
		return nil, err
	}
	if err := db.Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", models.InvoicePending, now).
		Count(&out.OverdueInvoices).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count overdue: %w", err)
	}
	if err := db.Model(&models.FreelancerProfile{}).
		Where("application_status = ?", models.ApplicationPendingReview).
		Count(&out.PendingApplications).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count applications: %w", err)
	}
	if err := db.Model(&models.FreelancerProfile{}).
		Joins("JOIN profiles ON profiles.id = freelancer_profiles.profile_id").
		Where("freelancer_profiles.application_status = ? AND profiles.is_active = ?", models.ApplicationApproved, true).
		Count(&out.ActiveFreelancers).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count freelancers: %w", err)
	}
	if err := db.Model(&models.Profile{}).
		Where("role = ? AND is_active = ?", models.RoleClient, true).
		Count(&out.Clients).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count clients: %w", err)
	}
	return out, nil
}

// Client returns the caller's own project and invoice totals.
func (s *DashboardService) Client(ctx context.Context) (*ClientDashboard, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleClient)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	now := s.clock.now()

	projects, total, err := projectCounts(db.Model(&models.Project{}).Where("client_id = ?", session.ProfileID))
	if err != nil {
		return nil, err
	}
	out := &ClientDashboard{Projects: projects, TotalProjects: total}

	owned := db.Model(&models.Project{}).Select("id").Where("client_id = ?", session.ProfileID)
	if err := db.Model(&models.Invoice{}).
		Where("project_id IN (?) AND status = ?", owned, models.InvoicePending).
		Count(&out.OpenInvoices).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count open invoices: %w", err)
	}
	if out.OutstandingAmount, err = sumInvoices(db.Where("project_id IN (?) AND status = ?", owned, models.InvoicePending)); err != nil {
		return nil, err
	}
	if err := db.Model(&models.Invoice{}).
		Where("project_id IN (?) AND status = ? AND due_date < ?", owned, models.InvoicePending, now).
		Count(&out.OverdueInvoices).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count overdue: %w", err)
	}
	if err := db.Model(&models.Notification{}).
		Where("profile_id = ? AND is_read = ?", session.ProfileID, false).
		Count(&out.UnreadNotifications).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count notifications: %w", err)
	}
	return out, nil
}

// projectCounts groups query by status. Every status is present in the map.
func projectCounts(query *gorm.DB) (map[string]int64, int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	if err := query.Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("dashboard service: count projects: %w", err)
	}

	counts := make(map[string]int64, len(models.ProjectStatuses()))
	for _, status := range models.ProjectStatuses() {
		counts[string(status)] = 0
	}
	var total int64
	for _, row := range rows {
		counts[row.Status] = row.Total
		total += row.Total
	}
	return counts, total, nil
}

func sumInvoices(query *gorm.DB) (float64, error) {
	var sum float64
	if err := query.Model(&models.Invoice{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("dashboard service: sum invoices: %w", err)
	}
	return billing.RoundMoney(sum), nil
}
