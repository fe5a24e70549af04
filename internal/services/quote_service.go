package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mdnaeem95/halaltech/internal/billing"
	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/metrics"
)

var (
	// ErrQuoteNotFound is returned when a project has no quote or the caller cannot see it.
	ErrQuoteNotFound = apperrors.New("QUOTE_NOT_FOUND", "Quote not found", http.StatusNotFound)
	// ErrQuoteExists blocks a second live quote on a project.
	ErrQuoteExists = apperrors.New("QUOTE_EXISTS", "A quote already exists for this project", http.StatusConflict)
	// ErrQuoteAlreadyResponded is returned when the quote was already accepted or rejected.
	ErrQuoteAlreadyResponded = apperrors.New("QUOTE_ALREADY_RESPONDED", "Quote has already been responded to", http.StatusConflict)
	// ErrQuoteExpired is returned when accepting after valid_until.
	ErrQuoteExpired = apperrors.New("QUOTE_EXPIRED", "Quote has expired", http.StatusGone)
	// ErrUnknownQuoteAction rejects actions other than accept and reject.
	ErrUnknownQuoteAction = apperrors.New("INVALID_QUOTE_ACTION", "Action must be accept or reject", http.StatusBadRequest)
)

// Quote response actions.
const (
	QuoteActionAccept = "accept"
	QuoteActionReject = "reject"
)

const defaultQuoteValidityDays = 14

// QuoteConfig tunes quote issuing and acceptance.
type QuoteConfig struct {
	ValidityDays int
	Clock        func() time.Time
}

// CreateQuoteInput describes an admin quote. Amount and deliverables fall
// back to the project's package when omitted.
type CreateQuoteInput struct {
	Amount       *float64
	Deliverables []string
	PaymentTerms string
	Timeline     string
	Notes        string
	ValidUntil   *time.Time
}

// RespondQuoteInput is a client's answer to a quote.
type RespondQuoteInput struct {
	Action string
	Reason string
}

// QuoteResponse reports the outcome of a client response.
type QuoteResponse struct {
	Quote   *models.Quote   `json:"quote"`
	Project *models.Project `json:"project"`
	Invoice *models.Invoice `json:"invoice,omitempty"`
}

// QuoteService issues quotes and records client responses.
type QuoteService struct {
	db            *gorm.DB
	audit         *AuditService
	notifications *NotificationService
	calculator    *billing.Calculator
	validity      time.Duration
	clock         clockFunc
}

// NewQuoteService constructs a QuoteService. calculator defaults to Singapore GST.
func NewQuoteService(db *gorm.DB, audit *AuditService, notifications *NotificationService, calculator *billing.Calculator, cfg QuoteConfig) (*QuoteService, error) {
	if db == nil {
		return nil, errors.New("quote service: db is required")
	}
	if calculator == nil {
		calculator = billing.Default()
	}
	days := cfg.ValidityDays
	if days <= 0 {
		days = defaultQuoteValidityDays
	}
	return &QuoteService{
		db:            db,
		audit:         audit,
		notifications: notifications,
		calculator:    calculator,
		validity:      time.Duration(days) * 24 * time.Hour,
		clock:         cfg.Clock,
	}, nil
}

// Create issues the quote for a project in inquiry and moves it to quoted.
// A previously rejected quote is replaced in place.
func (s *QuoteService) Create(ctx context.Context, projectID string, input CreateQuoteInput) (*models.Quote, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	validUntil := now.Add(s.validity)
	if input.ValidUntil != nil {
		validUntil = input.ValidUntil.UTC()
	}
	if !validUntil.After(now) {
		return nil, apperrors.NewBadRequest("valid_until must be in the future")
	}

	var (
		quote   models.Quote
		project *models.Project
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err = lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.Status != models.ProjectInquiry {
			return ErrInvalidProjectStatus
		}

		amount, deliverables, err := s.quoteTerms(tx, project, input)
		if err != nil {
			return err
		}

		fields := models.Quote{
			ProjectID:    project.ID,
			Amount:       amount,
			Deliverables: models.StringList(deliverables),
			PaymentTerms: strings.TrimSpace(input.PaymentTerms),
			Timeline:     strings.TrimSpace(defaultIfEmpty(input.Timeline, project.Timeline)),
			Notes:        strings.TrimSpace(input.Notes),
			ValidUntil:   validUntil,
			CreatedBy:    session.ProfileID,
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&quote, "project_id = ?", project.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			quote = fields
			if err := tx.Create(&quote).Error; err != nil {
				if isUniqueConstraintError(err) {
					return ErrQuoteExists
				}
				return fmt.Errorf("quote service: create quote: %w", err)
			}
		case err != nil:
			return fmt.Errorf("quote service: load quote: %w", err)
		case quote.RejectedAt == nil:
			return ErrQuoteExists
		default:
			if err := tx.Model(&quote).Updates(map[string]any{
				"amount":           fields.Amount,
				"deliverables":     fields.Deliverables,
				"payment_terms":    fields.PaymentTerms,
				"timeline":         fields.Timeline,
				"notes":            fields.Notes,
				"valid_until":      fields.ValidUntil,
				"created_by":       fields.CreatedBy,
				"is_accepted":      false,
				"accepted_at":      nil,
				"rejected_at":      nil,
				"rejection_reason": "",
			}).Error; err != nil {
				return fmt.Errorf("quote service: replace quote: %w", err)
			}
		}

		return transitionProject(tx, project, models.ProjectQuoted, now, map[string]any{"quoted_price": amount})
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Take(&quote, "project_id = ?", project.ID).Error; err != nil {
		return nil, fmt.Errorf("quote service: reload quote: %w", err)
	}

	recordAudit(s.audit, ctx, auditFromContext(ctx, "quote.create", "quotes", AuditSuccess, map[string]any{
		"project_id": project.ID,
		"quote_id":   quote.ID,
		"amount":     quote.Amount,
	}))
	s.notifications.Notify(ctx, CreateNotificationInput{
		Type:      models.NotificationQuoteIssued,
		Title:     "Your quote is ready",
		Message:   fmt.Sprintf("A quote for %q is waiting for your response.", project.Title),
		ActionURL: "/projects/" + project.ID,
		Metadata:  map[string]any{"project_id": project.ID, "quote_id": quote.ID},
	}, project.ClientID)

	return &quote, nil
}

func (s *QuoteService) quoteTerms(tx *gorm.DB, project *models.Project, input CreateQuoteInput) (float64, []string, error) {
	deliverables := normaliseStrings(input.Deliverables)
	if input.Amount != nil && len(deliverables) > 0 {
		return validateQuoteAmount(*input.Amount, deliverables)
	}

	var pkg *models.ServicePackage
	if project.PackageID != nil {
		var loaded models.ServicePackage
		if err := tx.Take(&loaded, "id = ?", *project.PackageID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, fmt.Errorf("quote service: load package: %w", err)
		} else if err == nil {
			pkg = &loaded
		}
	}

	amount := 0.0
	switch {
	case input.Amount != nil:
		amount = *input.Amount
	case pkg != nil:
		amount = pkg.Price
	default:
		return 0, nil, apperrors.NewBadRequest("amount is required")
	}
	if len(deliverables) == 0 && pkg != nil {
		deliverables = models.DecodeStringList(pkg.Features)
	}
	return validateQuoteAmount(amount, deliverables)
}

func validateQuoteAmount(amount float64, deliverables []string) (float64, []string, error) {
	if amount <= 0 {
		return 0, nil, apperrors.NewBadRequest("amount must be greater than zero")
	}
	return billing.RoundMoney(amount), deliverables, nil
}

// Get returns the quote of a project to its client or an admin.
func (s *QuoteService) Get(ctx context.Context, projectID string) (*models.Quote, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleClient, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	var project models.Project
	err = scopeProjects(s.db.WithContext(ctx).Model(&models.Project{}), session).
		Where("projects.id = ?", projectID).
		Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("quote service: load project: %w", err)
	}

	var quote models.Quote
	err = s.db.WithContext(ctx).Take(&quote, "project_id = ?", project.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("quote service: load quote: %w", err)
	}
	return &quote, nil
}

// Respond records the client's accept or reject decision.
func (s *QuoteService) Respond(ctx context.Context, projectID string, input RespondQuoteInput) (*QuoteResponse, error) {
	switch strings.ToLower(strings.TrimSpace(input.Action)) {
	case QuoteActionAccept:
		return s.Accept(ctx, projectID)
	case QuoteActionReject:
		return s.Reject(ctx, projectID, input.Reason)
	default:
		return nil, ErrUnknownQuoteAction
	}
}

// Accept approves the quote. In one transaction the quote is marked accepted,
// the project moves to in_progress with its final price and the invoice is
// issued. Any failure leaves all three untouched.
func (s *QuoteService) Accept(ctx context.Context, projectID string) (*QuoteResponse, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleClient)
	if err != nil {
		metrics.QuoteResponses.WithLabelValues("refused").Inc()
		return nil, err
	}

	now := s.clock.now()
	var (
		project *models.Project
		quote   *models.Quote
		invoice *models.Invoice
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, quote, err = s.lockForResponse(tx, projectID, session.ProfileID)
		if err != nil {
			return err
		}
		if quote.Expired(now) {
			return ErrQuoteExpired
		}

		if err := tx.Model(quote).Updates(map[string]any{
			"is_accepted": true,
			"accepted_at": now,
		}).Error; err != nil {
			return fmt.Errorf("quote service: accept quote: %w", err)
		}
		quote.IsAccepted = true
		quote.AcceptedAt = &now

		if err := transitionProject(tx, project, models.ProjectInProgress, now, map[string]any{"final_price": quote.Amount}); err != nil {
			return err
		}

		invoice, err = issueInvoice(tx, s.calculator, project.ID, quote.Amount, now, nil, "Quote acceptance")
		return err
	})
	if err != nil {
		metrics.QuoteResponses.WithLabelValues("refused").Inc()
		return nil, err
	}

	metrics.QuoteResponses.WithLabelValues("accepted").Inc()
	metrics.InvoicesIssued.WithLabelValues("quote").Inc()
	recordAudit(s.audit, ctx, auditFromContext(ctx, "quote.accept", "quotes", AuditSuccess, map[string]any{
		"project_id":     project.ID,
		"quote_id":       quote.ID,
		"invoice_id":     invoice.ID,
		"invoice_number": invoice.InvoiceNumber,
	}))

	s.notifyAdmins(ctx, CreateNotificationInput{
		Type:      models.NotificationQuoteAccepted,
		Title:     "Quote accepted",
		Message:   fmt.Sprintf("%s accepted the quote for %q.", session.Email, project.Title),
		ActionURL: "/admin/projects/" + project.ID,
		Metadata:  map[string]any{"project_id": project.ID, "quote_id": quote.ID},
	})
	s.notifications.Notify(ctx, CreateNotificationInput{
		Type:      models.NotificationInvoiceIssued,
		Title:     "Invoice " + invoice.InvoiceNumber + " issued",
		Message:   fmt.Sprintf("%.2f %s due %s", invoice.TotalAmount, invoice.Currency, invoice.DueDate.Format("2 Jan 2006")),
		ActionURL: "/invoices/" + invoice.ID,
		Metadata:  map[string]any{"invoice_id": invoice.ID, "project_id": project.ID},
	}, project.ClientID)

	return &QuoteResponse{Quote: quote, Project: project, Invoice: invoice}, nil
}

// Reject declines the quote and returns the project to inquiry so it can be re-quoted.
func (s *QuoteService) Reject(ctx context.Context, projectID, reason string) (*QuoteResponse, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleClient)
	if err != nil {
		metrics.QuoteResponses.WithLabelValues("refused").Inc()
		return nil, err
	}

	now := s.clock.now()
	var (
		project *models.Project
		quote   *models.Quote
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, quote, err = s.lockForResponse(tx, projectID, session.ProfileID)
		if err != nil {
			return err
		}

		reason = strings.TrimSpace(reason)
		if err := tx.Model(quote).Updates(map[string]any{
			"rejected_at":      now,
			"rejection_reason": reason,
		}).Error; err != nil {
			return fmt.Errorf("quote service: reject quote: %w", err)
		}
		quote.RejectedAt = &now
		quote.RejectionReason = reason

		return transitionProject(tx, project, models.ProjectInquiry, now, nil)
	})
	if err != nil {
		metrics.QuoteResponses.WithLabelValues("refused").Inc()
		return nil, err
	}

	metrics.QuoteResponses.WithLabelValues("rejected").Inc()
	recordAudit(s.audit, ctx, auditFromContext(ctx, "quote.reject", "quotes", AuditSuccess, map[string]any{
		"project_id": project.ID,
		"quote_id":   quote.ID,
		"reason":     quote.RejectionReason,
	}))
	s.notifyAdmins(ctx, CreateNotificationInput{
		Type:      models.NotificationQuoteRejected,
		Title:     "Quote rejected",
		Message:   defaultIfEmpty(quote.RejectionReason, "No reason given."),
		ActionURL: "/admin/projects/" + project.ID,
		Metadata:  map[string]any{"project_id": project.ID, "quote_id": quote.ID},
		Severity:  "warning",
	})

	return &QuoteResponse{Quote: quote, Project: project}, nil
}

// lockForResponse loads and locks the project and quote, enforcing the checks
// shared by accept and reject. Expiry is left to the caller.
func (s *QuoteService) lockForResponse(tx *gorm.DB, projectID, clientID string) (*models.Project, *models.Quote, error) {
	project, err := lockProject(tx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if project.ClientID != clientID {
		return nil, nil, apperrors.ErrForbidden
	}

	var quote models.Quote
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&quote, "project_id = ?", project.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("quote service: lock quote: %w", err)
	}
	if quote.Responded() {
		return nil, nil, ErrQuoteAlreadyResponded
	}
	if project.Status != models.ProjectQuoted {
		return nil, nil, ErrInvalidProjectStatus
	}
	return project, &quote, nil
}

func (s *QuoteService) notifyAdmins(ctx context.Context, input CreateNotificationInput) {
	if s.notifications == nil {
		return
	}
	ids, err := adminProfileIDs(ctx, s.db)
	if err != nil {
		return
	}
	s.notifications.Notify(ctx, input, ids...)
}

func adminProfileIDs(ctx context.Context, db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).Model(&models.Profile{}).
		Where("role = ? AND is_active = ?", models.RoleAdmin, true).
		Pluck("id", &ids).Error
	return ids, err
}
