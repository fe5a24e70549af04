package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdnaeem95/halaltech/internal/billing"
	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
)

func TestDashboards(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewDashboardService(db)
	require.NoError(t, err)

	admin := createTestProfile(t, db, models.RoleAdmin)
	alice := createTestProfile(t, db, models.RoleClient)
	bob := createTestProfile(t, db, models.RoleClient)

	freelancer := createTestProfile(t, db, models.RoleServiceProvider)
	require.NoError(t, db.Create(&models.FreelancerProfile{ProfileID: freelancer.ID, ApplicationStatus: models.ApplicationApproved, OnboardingCompleted: true}).Error)
	applicant := createTestProfile(t, db, models.RoleServiceProvider)
	require.NoError(t, db.Create(&models.FreelancerProfile{ProfileID: applicant.ID, ApplicationStatus: models.ApplicationPendingReview, OnboardingCompleted: true}).Error)

	createTestProject(t, db, alice, models.ProjectInquiry)
	paidProject := createTestProject(t, db, alice, models.ProjectCompleted)
	lateProject := createTestProject(t, db, alice, models.ProjectInProgress)
	bobProject := createTestProject(t, db, bob, models.ProjectInProgress)

	calc := billing.Default()
	now := time.Now().UTC()

	paid, err := issueInvoice(db, calc, paidProject.ID, 1000, now, nil, "")
	require.NoError(t, err)
	require.NoError(t, db.Model(paid).Updates(map[string]any{"status": models.InvoicePaid, "paid_at": now}).Error)

	_, err = issueInvoice(db, calc, lateProject.ID, 500, now.AddDate(0, 0, -30), nil, "")
	require.NoError(t, err)
	_, err = issueInvoice(db, calc, bobProject.ID, 200, now, nil, "")
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Notification{ProfileID: alice.ID, Type: models.NotificationInvoiceIssued, Title: "Invoice"}).Error)

	adminView, err := svc.Admin(sessionContext(admin))
	require.NoError(t, err)
	require.Equal(t, int64(4), adminView.TotalProjects)
	require.Equal(t, int64(2), adminView.Projects[string(models.ProjectInProgress)])
	require.Equal(t, int64(0), adminView.Projects[string(models.ProjectCancelled)])
	require.Len(t, adminView.Projects, 6)
	require.InDelta(t, 1090.0, adminView.Revenue, 0.001)
	require.InDelta(t, 545.0+218.0, adminView.Outstanding, 0.001)
	require.Equal(t, int64(1), adminView.OverdueInvoices)
	require.Equal(t, int64(1), adminView.PendingApplications)
	require.Equal(t, int64(1), adminView.ActiveFreelancers)
	require.Equal(t, int64(2), adminView.Clients)

	aliceView, err := svc.Client(sessionContext(alice))
	require.NoError(t, err)
	require.Equal(t, int64(3), aliceView.TotalProjects)
	require.Equal(t, int64(1), aliceView.OpenInvoices)
	require.InDelta(t, 545.0, aliceView.OutstandingAmount, 0.001)
	require.Equal(t, int64(1), aliceView.OverdueInvoices)
	require.Equal(t, int64(1), aliceView.UnreadNotifications)

	bobView, err := svc.Client(sessionContext(bob))
	require.NoError(t, err)
	require.Equal(t, int64(1), bobView.TotalProjects)
	require.Zero(t, bobView.OverdueInvoices)

	_, err = svc.Admin(sessionContext(alice))
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = svc.Client(sessionContext(admin))
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}
