package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/billing"
	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/metrics"
)

var (
	// ErrInvoiceNotFound is returned for unknown invoices and invoices the caller cannot see.
	ErrInvoiceNotFound = apperrors.New("INVOICE_NOT_FOUND", "Invoice not found", http.StatusNotFound)
	// ErrInvalidInvoiceStatus rejects unknown invoice statuses.
	ErrInvalidInvoiceStatus = apperrors.New("INVALID_INVOICE_STATUS", "Unknown invoice status", http.StatusBadRequest)
	// ErrInvalidInvoiceTransition rejects status changes such as paid to cancelled.
	ErrInvalidInvoiceTransition = apperrors.New("INVALID_INVOICE_TRANSITION", "Invoice cannot move to the requested status", http.StatusConflict)
)

// CreateInvoiceInput describes an ad hoc admin invoice.
type CreateInvoiceInput struct {
	ProjectID string
	Amount    float64
	DueDate   *time.Time
	Notes     string
}

// UpdateInvoiceInput changes an invoice's payment state.
type UpdateInvoiceInput struct {
	Status        string
	PaidAt        *time.Time
	PaymentMethod *string
	Notes         *string
}

// ListInvoicesOptions filters invoice listings. Overdue is derived, so the
// filter translates to pending invoices past their due date.
type ListInvoicesOptions struct {
	Status    string
	Overdue   *bool
	ProjectID string
}

// InvoiceService issues invoices and records payments.
type InvoiceService struct {
	db            *gorm.DB
	audit         *AuditService
	notifications *NotificationService
	calculator    *billing.Calculator
	clock         clockFunc
}

// NewInvoiceService constructs an InvoiceService. calculator defaults to Singapore GST.
func NewInvoiceService(db *gorm.DB, audit *AuditService, notifications *NotificationService, calculator *billing.Calculator) (*InvoiceService, error) {
	if db == nil {
		return nil, errors.New("invoice service: db is required")
	}
	if calculator == nil {
		calculator = billing.Default()
	}
	return &InvoiceService{db: db, audit: audit, notifications: notifications, calculator: calculator}, nil
}

// Create issues an ad hoc invoice for a project.
func (s *InvoiceService) Create(ctx context.Context, input CreateInvoiceInput) (*models.Invoice, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, apperrors.NewBadRequest("amount must be greater than zero")
	}

	now := s.clock.now()
	var (
		invoice *models.Invoice
		project *models.Project
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = lockProject(tx, input.ProjectID)
		if err != nil {
			return err
		}
		if project.Status == models.ProjectCancelled {
			return ErrInvalidProjectStatus
		}
		invoice, err = issueInvoice(tx, s.calculator, project.ID, input.Amount, now, input.DueDate, input.Notes)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.InvoicesIssued.WithLabelValues("manual").Inc()
	recordAudit(s.audit, ctx, auditFromContext(ctx, "invoice.create", "invoices", AuditSuccess, map[string]any{
		"invoice_id":     invoice.ID,
		"invoice_number": invoice.InvoiceNumber,
		"project_id":     project.ID,
		"total_amount":   invoice.TotalAmount,
	}))
	s.notifications.Notify(ctx, CreateNotificationInput{
		Type:      models.NotificationInvoiceIssued,
		Title:     "Invoice " + invoice.InvoiceNumber + " issued",
		ActionURL: "/invoices/" + invoice.ID,
		Metadata:  map[string]any{"invoice_id": invoice.ID, "project_id": project.ID},
	}, project.ClientID)

	return invoice, nil
}

// List returns invoices visible to the caller, newest first.
func (s *InvoiceService) List(ctx context.Context, opts ListInvoicesOptions) ([]models.Invoice, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleClient, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Invoice{})
	if !session.IsAdmin() {
		query = query.Where("invoices.project_id IN (?)",
			s.db.Model(&models.Project{}).Select("id").Where("client_id = ?", session.ProfileID))
	}
	if status := strings.TrimSpace(opts.Status); status != "" {
		if !models.ValidInvoiceStatus(status) {
			return nil, ErrInvalidInvoiceStatus
		}
		query = query.Where("invoices.status = ?", status)
	}
	if projectID := strings.TrimSpace(opts.ProjectID); projectID != "" {
		query = query.Where("invoices.project_id = ?", projectID)
	}
	if opts.Overdue != nil {
		now := s.clock.now()
		if *opts.Overdue {
			query = query.Where("invoices.status = ? AND invoices.due_date < ?", models.InvoicePending, now)
		} else {
			query = query.Where("NOT (invoices.status = ? AND invoices.due_date < ?)", models.InvoicePending, now)
		}
	}

	var invoices []models.Invoice
	if err := query.Preload("Project").Order("invoices.created_at DESC").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("invoice service: list invoices: %w", err)
	}
	return invoices, nil
}

// Get returns an invoice to its project's client or an admin.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleClient, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	var invoice models.Invoice
	err = s.db.WithContext(ctx).Preload("Project").Take(&invoice, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invoice service: get invoice: %w", err)
	}
	if !session.IsAdmin() && (invoice.Project == nil || invoice.Project.ClientID != session.ProfileID) {
		return nil, ErrInvoiceNotFound
	}
	return &invoice, nil
}

// Update records payment state changes. Paid stamps paid_at, pending clears
// it, and only pending invoices may be cancelled.
func (s *InvoiceService) Update(ctx context.Context, id string, input UpdateInvoiceInput) (*models.Invoice, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}

	status := strings.TrimSpace(input.Status)
	if status != "" && !models.ValidInvoiceStatus(status) {
		return nil, ErrInvalidInvoiceStatus
	}

	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := invoice.Status

	updates := map[string]any{}
	if status != "" && status != invoice.Status {
		switch {
		case invoice.Status == models.InvoiceCancelled:
			return nil, ErrInvalidInvoiceTransition.WithMessage("Cancelled invoices cannot be reopened")
		case status == models.InvoiceCancelled && invoice.Status != models.InvoicePending:
			return nil, ErrInvalidInvoiceTransition.WithMessage("Only pending invoices can be cancelled")
		}
		updates["status"] = status
	}

	effective := defaultIfEmpty(status, invoice.Status)
	switch effective {
	case models.InvoicePaid:
		if status == models.InvoicePaid || input.PaidAt != nil {
			paidAt := s.clock.now()
			if input.PaidAt != nil {
				paidAt = input.PaidAt.UTC()
			}
			updates["paid_at"] = paidAt
		}
	case models.InvoicePending:
		if invoice.PaidAt != nil {
			updates["paid_at"] = nil
		}
	}
	if input.PaymentMethod != nil {
		updates["payment_method"] = strings.TrimSpace(*input.PaymentMethod)
	}
	if input.Notes != nil {
		updates["notes"] = strings.TrimSpace(*input.Notes)
	}

	if len(updates) == 0 {
		return invoice, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", invoice.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("invoice service: update invoice: %w", err)
	}

	updated, err := s.Get(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, auditFromContext(ctx, "invoice.update", "invoices", AuditSuccess, map[string]any{
		"invoice_id": updated.ID,
		"from":       previous,
		"to":         updated.Status,
	}))

	if previous != models.InvoicePaid && updated.Status == models.InvoicePaid {
		metrics.InvoicePayments.Inc()
		if updated.Project != nil {
			s.notifications.Notify(ctx, CreateNotificationInput{
				Type:      models.NotificationInvoicePaid,
				Title:     "Payment received for " + updated.InvoiceNumber,
				ActionURL: "/invoices/" + updated.ID,
				Metadata:  map[string]any{"invoice_id": updated.ID},
				Severity:  "success",
			}, updated.Project.ClientID)
		}
	}
	return updated, nil
}

// OverdueForReminder returns pending invoices past due that have not been
// reminded within interval, with project and client loaded.
func (s *InvoiceService) OverdueForReminder(ctx context.Context, now time.Time, interval time.Duration) ([]models.Invoice, error) {
	ctx = ensureContext(ctx)
	cutoff := now.Add(-interval)

	var invoices []models.Invoice
	if err := s.db.WithContext(ctx).
		Preload("Project").
		Preload("Project.Client").
		Where("status = ? AND due_date < ?", models.InvoicePending, now).
		Where("last_reminder_at IS NULL OR last_reminder_at < ?", cutoff).
		Order("due_date ASC").
		Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("invoice service: list overdue: %w", err)
	}
	return invoices, nil
}

// MarkReminded stamps last_reminder_at so the invoice is skipped until the next window.
func (s *InvoiceService) MarkReminded(ctx context.Context, id string, at time.Time) error {
	if err := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Update("last_reminder_at", at).Error; err != nil {
		return fmt.Errorf("invoice service: mark reminded: %w", err)
	}
	return nil
}

// issueInvoice prices and inserts an invoice inside tx. dueDate defaults to
// the calculator's payment terms.
func issueInvoice(tx *gorm.DB, calc *billing.Calculator, projectID string, amount float64, now time.Time, dueDate *time.Time, notes string) (*models.Invoice, error) {
	priced, err := calc.Price(amount)
	if err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	number, err := calc.InvoiceNumber(now)
	if err != nil {
		return nil, err
	}

	due := calc.DueDate(now)
	if dueDate != nil {
		due = dueDate.UTC()
	}

	invoice := &models.Invoice{
		ProjectID:     projectID,
		InvoiceNumber: number,
		Amount:        priced.Amount,
		TaxRate:       priced.TaxRate,
		TaxAmount:     priced.TaxAmount,
		TotalAmount:   priced.TotalAmount,
		Currency:      priced.Currency,
		Status:        models.InvoicePending,
		DueDate:       due,
		Notes:         strings.TrimSpace(notes),
	}
	if err := tx.Create(invoice).Error; err != nil {
		return nil, fmt.Errorf("invoice service: create invoice: %w", err)
	}
	invoice.IsOverdue = invoice.Overdue(now)
	return invoice, nil
}
