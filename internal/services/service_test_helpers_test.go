package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/authctx"
	"github.com/mdnaeem95/halaltech/internal/database/testutil"
	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/pkg/crypto"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func createTestProfile(t *testing.T, db *gorm.DB, role string) *models.Profile {
	t.Helper()

	hashed, err := crypto.HashPassword("password123")
	require.NoError(t, err)

	suffix := uuid.NewString()[:8]
	profile := &models.Profile{
		Email:        fmt.Sprintf("%s-%s@example.com", role, suffix),
		PasswordHash: hashed,
		FullName:     "Test " + role,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

// sessionContext returns a request context carrying the profile as the caller.
func sessionContext(profile *models.Profile) context.Context {
	return authctx.WithSession(context.Background(), authctx.FromProfile(profile, uuid.NewString(), "127.0.0.1", "go-test"))
}

func createTestProject(t *testing.T, db *gorm.DB, client *models.Profile, status models.ProjectStatus) *models.Project {
	t.Helper()

	project := &models.Project{
		ClientID:     client.ID,
		Title:        "Halal bakery storefront",
		Description:  "Online ordering for a neighbourhood bakery",
		Requirements: models.JSONObject(nil),
		Status:       status,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func createTestQuote(t *testing.T, db *gorm.DB, project *models.Project, admin *models.Profile, amount float64, validUntil time.Time) *models.Quote {
	t.Helper()

	quote := &models.Quote{
		ProjectID:    project.ID,
		Amount:       amount,
		Deliverables: models.StringList([]string{"Design", "Build"}),
		PaymentTerms: "50% upfront",
		ValidUntil:   validUntil,
		CreatedBy:    admin.ID,
	}
	require.NoError(t, db.Create(quote).Error)
	return quote
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
