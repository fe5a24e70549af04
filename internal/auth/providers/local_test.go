package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/database/testutil"
	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/pkg/crypto"
)

func TestAuthenticateSuccessResetsCounters(t *testing.T) {
	db := setupDB(t)
	current := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	provider := newLocalProvider(t, db, LocalConfig{Clock: now})

	profile := createProfile(t, db, "alice@example.com", "password123", func(p *models.Profile) {
		p.FailedAttempts = 3
	})

	result, err := provider.Authenticate(context.Background(), AuthenticateInput{
		Email:     "  Alice@Example.com ",
		Password:  "password123",
		IPAddress: "127.0.0.1",
	})
	require.NoError(t, err)
	require.Equal(t, profile.ID, result.ID)

	var updated models.Profile
	require.NoError(t, db.Take(&updated, "id = ?", profile.ID).Error)

	require.Equal(t, 0, updated.FailedAttempts)
	require.Nil(t, updated.LockedUntil)
	require.NotNil(t, updated.LastLoginAt)
	require.True(t, updated.LastLoginAt.Equal(current))
	require.Equal(t, "127.0.0.1", updated.LastLoginIP)
}

func TestAuthenticateInvalidPasswordLocksAccount(t *testing.T) {
	db := setupDB(t)
	current := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	provider := newLocalProvider(t, db, LocalConfig{
		LockoutThreshold: 3,
		LockoutDuration:  10 * time.Minute,
		Clock:            now,
	})

	profile := createProfile(t, db, "bob@example.com", "correct-horse", func(p *models.Profile) {
		p.FailedAttempts = 2
	})

	err := tryAuthenticate(provider, "bob@example.com", "wrong")
	require.ErrorIs(t, err, ErrAccountLocked)

	var updated models.Profile
	require.NoError(t, db.Take(&updated, "id = ?", profile.ID).Error)

	require.Equal(t, 3, updated.FailedAttempts)
	require.NotNil(t, updated.LockedUntil)
	require.WithinDuration(t, current.Add(10*time.Minute), *updated.LockedUntil, time.Second)
}

func TestAuthenticateWrongPasswordBelowThreshold(t *testing.T) {
	db := setupDB(t)
	provider := newLocalProvider(t, db, LocalConfig{})
	createProfile(t, db, "erin@example.com", "correct-horse", nil)

	err := tryAuthenticate(provider, "erin@example.com", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	err = tryAuthenticate(provider, "nobody@example.com", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateLockedAccount(t *testing.T) {
	db := setupDB(t)
	current := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	provider := newLocalProvider(t, db, LocalConfig{Clock: now})

	lockUntil := current.Add(5 * time.Minute)
	createProfile(t, db, "charlie@example.com", "correct-horse", func(p *models.Profile) {
		p.LockedUntil = &lockUntil
		p.FailedAttempts = 5
	})

	err := tryAuthenticate(provider, "charlie@example.com", "correct-horse")
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthenticateExpiredLockIsCleared(t *testing.T) {
	db := setupDB(t)
	current := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	provider := newLocalProvider(t, db, LocalConfig{Clock: now})

	lockUntil := current.Add(-time.Minute)
	profile := createProfile(t, db, "fay@example.com", "correct-horse", func(p *models.Profile) {
		p.LockedUntil = &lockUntil
		p.FailedAttempts = 5
	})

	require.NoError(t, tryAuthenticate(provider, "fay@example.com", "correct-horse"))

	var updated models.Profile
	require.NoError(t, db.Take(&updated, "id = ?", profile.ID).Error)
	require.Nil(t, updated.LockedUntil)
	require.Zero(t, updated.FailedAttempts)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	db := setupDB(t)

	provider := newLocalProvider(t, db, LocalConfig{})

	profile := createProfile(t, db, "diana@example.com", "correct-horse", nil)
	require.NoError(t, db.Model(profile).Update("is_active", false).Error)

	err := tryAuthenticate(provider, "diana@example.com", "correct-horse")
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRegisterHashesPassword(t *testing.T) {
	db := setupDB(t)
	provider := newLocalProvider(t, db, LocalConfig{})

	profile, err := provider.Register(context.Background(), RegisterInput{
		Email:       "New.Client@Example.com",
		Password:    "secret-pass",
		FullName:    " Nora Client ",
		CompanyName: "Nora Pte Ltd",
	})
	require.NoError(t, err)
	require.Equal(t, "new.client@example.com", profile.Email)
	require.Equal(t, models.RoleClient, profile.Role)
	require.Equal(t, "Nora Client", profile.FullName)
	require.NotEqual(t, "secret-pass", profile.PasswordHash)
	require.True(t, crypto.VerifyPassword(profile.PasswordHash, "secret-pass"))
}

func TestRegisterRoles(t *testing.T) {
	db := setupDB(t)
	provider := newLocalProvider(t, db, LocalConfig{})

	profile, err := provider.Register(context.Background(), RegisterInput{
		Email:    "maker@example.com",
		Password: "secret-pass",
		Role:     models.RoleServiceProvider,
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleServiceProvider, profile.Role)

	_, err = provider.Register(context.Background(), RegisterInput{
		Email:    "root@example.com",
		Password: "secret-pass",
		Role:     models.RoleAdmin,
	})
	require.ErrorIs(t, err, ErrRoleNotAllowed)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	db := setupDB(t)
	provider := newLocalProvider(t, db, LocalConfig{})
	createProfile(t, db, "taken@example.com", "secret-pass", nil)

	_, err := provider.Register(context.Background(), RegisterInput{
		Email:    "TAKEN@example.com",
		Password: "secret-pass",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRespectsDisabledFlag(t *testing.T) {
	db := setupDB(t)
	provider := newLocalProvider(t, db, LocalConfig{DisableSignup: true})

	_, err := provider.Register(context.Background(), RegisterInput{
		Email:    "late@example.com",
		Password: "secret-pass",
	})
	require.ErrorIs(t, err, ErrRegistrationDisabled)
}

func TestRegisterEnforcesPasswordLength(t *testing.T) {
	db := setupDB(t)
	provider := newLocalProvider(t, db, LocalConfig{MinPasswordLength: 10})

	_, err := provider.Register(context.Background(), RegisterInput{
		Email:    "short@example.com",
		Password: "short",
	})
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestChangePassword(t *testing.T) {
	db := setupDB(t)
	provider := newLocalProvider(t, db, LocalConfig{})
	profile := createProfile(t, db, "gwen@example.com", "old-password", nil)

	err := provider.ChangePassword(context.Background(), profile.ID, "wrong-password", "new-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, provider.ChangePassword(context.Background(), profile.ID, "old-password", "new-password"))
	require.NoError(t, tryAuthenticate(provider, "gwen@example.com", "new-password"))
	require.ErrorIs(t, tryAuthenticate(provider, "gwen@example.com", "old-password"), ErrInvalidCredentials)
}

func tryAuthenticate(provider *LocalProvider, email, password string) error {
	_, err := provider.Authenticate(context.Background(), AuthenticateInput{
		Email:    email,
		Password: password,
	})
	return err
}

func newLocalProvider(t *testing.T, db *gorm.DB, cfg LocalConfig) *LocalProvider {
	t.Helper()
	provider, err := NewLocalProvider(db, cfg)
	require.NoError(t, err)
	return provider
}

func createProfile(t *testing.T, db *gorm.DB, email, password string, mutate func(*models.Profile)) *models.Profile {
	t.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(t, err)

	profile := &models.Profile{
		Email:        email,
		PasswordHash: hashed,
		FullName:     "Test Profile",
		Role:         models.RoleClient,
		IsActive:     true,
	}
	if mutate != nil {
		mutate(profile)
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}
