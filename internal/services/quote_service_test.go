package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
)

type quoteFixture struct {
	db     *gorm.DB
	svc    *QuoteService
	admin  *models.Profile
	client *models.Profile
	now    time.Time
}

func newQuoteFixture(t *testing.T) *quoteFixture {
	t.Helper()

	db := openServiceTestDB(t)
	notifications, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	svc, err := NewQuoteService(db, audit, notifications, nil, QuoteConfig{ValidityDays: 30, Clock: fixedClock(now)})
	require.NoError(t, err)

	return &quoteFixture{
		db:     db,
		svc:    svc,
		admin:  createTestProfile(t, db, models.RoleAdmin),
		client: createTestProfile(t, db, models.RoleClient),
		now:    now,
	}
}

func (f *quoteFixture) reload(t *testing.T, project *models.Project) (*models.Project, *models.Quote) {
	t.Helper()
	var p models.Project
	require.NoError(t, f.db.Take(&p, "id = ?", project.ID).Error)
	var q models.Quote
	err := f.db.Take(&q, "project_id = ?", project.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &p, nil
	}
	require.NoError(t, err)
	return &p, &q
}

func (f *quoteFixture) invoiceCount(t *testing.T, project *models.Project) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Invoice{}).Where("project_id = ?", project.ID).Count(&count).Error)
	return count
}

func TestQuoteCreateMovesProjectToQuoted(t *testing.T) {
	f := newQuoteFixture(t)
	project := createTestProject(t, f.db, f.client, models.ProjectInquiry)

	quote, err := f.svc.Create(sessionContext(f.admin), project.ID, CreateQuoteInput{
		Amount:       ptr(4800.0),
		Deliverables: []string{"Storefront", "Admin panel"},
		PaymentTerms: "50% deposit",
	})
	require.NoError(t, err)
	require.Equal(t, 4800.0, quote.Amount)
	require.True(t, quote.ValidUntil.Equal(f.now.Add(30*24*time.Hour)))
	require.Equal(t, f.admin.ID, quote.CreatedBy)

	reloaded, _ := f.reload(t, project)
	require.Equal(t, models.ProjectQuoted, reloaded.Status)
	require.NotNil(t, reloaded.QuotedPrice)
	require.Equal(t, 4800.0, *reloaded.QuotedPrice)

	var notes int64
	require.NoError(t, f.db.Model(&models.Notification{}).Where("profile_id = ? AND type = ?", f.client.ID, models.NotificationQuoteIssued).Count(&notes).Error)
	require.Equal(t, int64(1), notes)
}

func TestQuoteCreateRejectsDuplicatesAndWrongStatus(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := sessionContext(f.admin)
	project := createTestProject(t, f.db, f.client, models.ProjectInquiry)

	_, err := f.svc.Create(ctx, project.ID, CreateQuoteInput{Amount: ptr(1000.0), Deliverables: []string{"Site"}})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Project{}).Where("id = ?", project.ID).Update("status", models.ProjectInquiry).Error)
	_, err = f.svc.Create(ctx, project.ID, CreateQuoteInput{Amount: ptr(900.0), Deliverables: []string{"Site"}})
	require.ErrorIs(t, err, ErrQuoteExists)

	inProgress := createTestProject(t, f.db, f.client, models.ProjectInProgress)
	_, err = f.svc.Create(ctx, inProgress.ID, CreateQuoteInput{Amount: ptr(900.0), Deliverables: []string{"Site"}})
	require.ErrorIs(t, err, ErrInvalidProjectStatus)

	_, err = f.svc.Create(ctx, project.ID, CreateQuoteInput{Amount: ptr(900.0), ValidUntil: ptr(f.now.Add(-time.Hour))})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = f.svc.Create(sessionContext(f.client), project.ID, CreateQuoteInput{Amount: ptr(1.0)})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestQuoteCreatePrefillsFromPackage(t *testing.T) {
	f := newQuoteFixture(t)

	service := models.Service{Name: "Web", Slug: "web", IsActive: true}
	require.NoError(t, f.db.Create(&service).Error)
	pkg := models.ServicePackage{ServiceID: service.ID, Name: "Business", Price: 3500, Features: models.StringList([]string{"15 pages", "Blog"}), IsActive: true}
	require.NoError(t, f.db.Create(&pkg).Error)

	project := createTestProject(t, f.db, f.client, models.ProjectInquiry)
	require.NoError(t, f.db.Model(project).Update("package_id", pkg.ID).Error)

	quote, err := f.svc.Create(sessionContext(f.admin), project.ID, CreateQuoteInput{})
	require.NoError(t, err)
	require.Equal(t, 3500.0, quote.Amount)
	require.Equal(t, []string{"15 pages", "Blog"}, models.DecodeStringList(quote.Deliverables))

	other := createTestProject(t, f.db, f.client, models.ProjectInquiry)
	_, err = f.svc.Create(sessionContext(f.admin), other.ID, CreateQuoteInput{})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestQuoteAcceptIsAtomic(t *testing.T) {
	f := newQuoteFixture(t)
	project := createTestProject(t, f.db, f.client, models.ProjectQuoted)
	createTestQuote(t, f.db, project, f.admin, 2000, f.now.Add(24*time.Hour))

	resp, err := f.svc.Accept(sessionContext(f.client), project.ID)
	require.NoError(t, err)
	require.True(t, resp.Quote.IsAccepted)
	require.NotNil(t, resp.Quote.AcceptedAt)
	require.Equal(t, models.ProjectInProgress, resp.Project.Status)

	invoice := resp.Invoice
	require.NotNil(t, invoice)
	require.Equal(t, 2000.0, invoice.Amount)
	require.Equal(t, 0.09, invoice.TaxRate)
	require.Equal(t, 180.0, invoice.TaxAmount)
	require.Equal(t, 2180.0, invoice.TotalAmount)
	require.Equal(t, models.InvoicePending, invoice.Status)
	require.True(t, invoice.DueDate.Equal(f.now.AddDate(0, 0, 14)))
	require.Regexp(t, `^INV-202506-[A-Z2-9]{8}$`, invoice.InvoiceNumber)

	reloaded, quote := f.reload(t, project)
	require.Equal(t, models.ProjectInProgress, reloaded.Status)
	require.NotNil(t, reloaded.FinalPrice)
	require.Equal(t, 2000.0, *reloaded.FinalPrice)
	require.NotNil(t, reloaded.StartDate)
	require.True(t, quote.IsAccepted)
	require.Equal(t, int64(1), f.invoiceCount(t, project))

	_, err = f.svc.Accept(sessionContext(f.client), project.ID)
	require.ErrorIs(t, err, ErrQuoteAlreadyResponded)
	require.Equal(t, int64(1), f.invoiceCount(t, project))
}

func TestQuoteAcceptPreconditions(t *testing.T) {
	f := newQuoteFixture(t)

	t.Run("expired", func(t *testing.T) {
		project := createTestProject(t, f.db, f.client, models.ProjectQuoted)
		createTestQuote(t, f.db, project, f.admin, 500, f.now.Add(-time.Minute))

		_, err := f.svc.Accept(sessionContext(f.client), project.ID)
		require.ErrorIs(t, err, ErrQuoteExpired)

		reloaded, quote := f.reload(t, project)
		require.Equal(t, models.ProjectQuoted, reloaded.Status)
		require.False(t, quote.IsAccepted)
		require.Zero(t, f.invoiceCount(t, project))
	})

	t.Run("valid until now is still acceptable", func(t *testing.T) {
		project := createTestProject(t, f.db, f.client, models.ProjectQuoted)
		createTestQuote(t, f.db, project, f.admin, 500, f.now)

		_, err := f.svc.Accept(sessionContext(f.client), project.ID)
		require.NoError(t, err)
	})

	t.Run("wrong project status", func(t *testing.T) {
		project := createTestProject(t, f.db, f.client, models.ProjectInquiry)
		createTestQuote(t, f.db, project, f.admin, 500, f.now.Add(time.Hour))

		_, err := f.svc.Accept(sessionContext(f.client), project.ID)
		require.ErrorIs(t, err, ErrInvalidProjectStatus)
		require.Zero(t, f.invoiceCount(t, project))
	})

	t.Run("admin cannot accept", func(t *testing.T) {
		project := createTestProject(t, f.db, f.client, models.ProjectQuoted)
		createTestQuote(t, f.db, project, f.admin, 500, f.now.Add(time.Hour))

		_, err := f.svc.Accept(sessionContext(f.admin), project.ID)
		require.ErrorIs(t, err, apperrors.ErrForbidden)
		_, quote := f.reload(t, project)
		require.False(t, quote.IsAccepted)
	})

	t.Run("other client cannot accept", func(t *testing.T) {
		project := createTestProject(t, f.db, f.client, models.ProjectQuoted)
		createTestQuote(t, f.db, project, f.admin, 500, f.now.Add(time.Hour))
		stranger := createTestProfile(t, f.db, models.RoleClient)

		_, err := f.svc.Accept(sessionContext(stranger), project.ID)
		require.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("missing quote", func(t *testing.T) {
		project := createTestProject(t, f.db, f.client, models.ProjectQuoted)
		_, err := f.svc.Accept(sessionContext(f.client), project.ID)
		require.ErrorIs(t, err, ErrQuoteNotFound)
	})
}

func TestQuoteAcceptRollsBackWhenInvoiceFails(t *testing.T) {
	f := newQuoteFixture(t)
	project := createTestProject(t, f.db, f.client, models.ProjectQuoted)
	createTestQuote(t, f.db, project, f.admin, 1500, f.now.Add(time.Hour))

	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_invoice", func(tx *gorm.DB) {
		if tx.Statement.Table == "invoices" {
			_ = tx.AddError(errors.New("invoice storage unavailable"))
		}
	}))

	_, err := f.svc.Accept(sessionContext(f.client), project.ID)
	require.Error(t, err)

	reloaded, quote := f.reload(t, project)
	require.Equal(t, models.ProjectQuoted, reloaded.Status)
	require.Nil(t, reloaded.FinalPrice)
	require.False(t, quote.IsAccepted)
	require.Nil(t, quote.AcceptedAt)
	require.Zero(t, f.invoiceCount(t, project))
}

func TestQuoteRejectAndRequote(t *testing.T) {
	f := newQuoteFixture(t)
	project := createTestProject(t, f.db, f.client, models.ProjectQuoted)
	original := createTestQuote(t, f.db, project, f.admin, 3000, f.now.Add(time.Hour))

	resp, err := f.svc.Respond(sessionContext(f.client), project.ID, RespondQuoteInput{Action: "reject", Reason: " Over budget "})
	require.NoError(t, err)
	require.NotNil(t, resp.Quote.RejectedAt)
	require.Equal(t, "Over budget", resp.Quote.RejectionReason)
	require.Equal(t, models.ProjectInquiry, resp.Project.Status)

	_, err = f.svc.Accept(sessionContext(f.client), project.ID)
	require.ErrorIs(t, err, ErrQuoteAlreadyResponded)

	replaced, err := f.svc.Create(sessionContext(f.admin), project.ID, CreateQuoteInput{Amount: ptr(2500.0), Deliverables: []string{"Leaner scope"}})
	require.NoError(t, err)
	require.Equal(t, original.ID, replaced.ID)
	require.Nil(t, replaced.RejectedAt)
	require.Equal(t, 2500.0, replaced.Amount)

	_, err = f.svc.Respond(sessionContext(f.client), project.ID, RespondQuoteInput{Action: "accept"})
	require.NoError(t, err)

	_, err = f.svc.Respond(sessionContext(f.client), project.ID, RespondQuoteInput{Action: "maybe"})
	require.ErrorIs(t, err, ErrUnknownQuoteAction)
}

func TestQuoteGetVisibility(t *testing.T) {
	f := newQuoteFixture(t)
	project := createTestProject(t, f.db, f.client, models.ProjectQuoted)
	createTestQuote(t, f.db, project, f.admin, 700, f.now.Add(time.Hour))

	quote, err := f.svc.Get(sessionContext(f.client), project.ID)
	require.NoError(t, err)
	require.Equal(t, 700.0, quote.Amount)

	_, err = f.svc.Get(sessionContext(f.admin), project.ID)
	require.NoError(t, err)

	stranger := createTestProfile(t, f.db, models.RoleClient)
	_, err = f.svc.Get(sessionContext(stranger), project.ID)
	require.ErrorIs(t, err, ErrProjectNotFound)

	_, err = f.svc.Get(context.Background(), project.ID)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
