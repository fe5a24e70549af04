package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdnaeem95/halaltech/internal/models"
)

func TestAuditServiceLogAndList(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	admin := createTestProfile(t, db, models.RoleAdmin)
	ctx := sessionContext(admin)

	entry := auditFromContext(ctx, "service.create", "services", AuditSuccess, map[string]any{"slug": "web-development"})
	require.NoError(t, svc.Log(ctx, entry))
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "auth.login", Result: AuditFailure, Email: "ghost@example.com"}))

	logs, total, err := svc.List(ctx, AuditListOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, logs, 2)

	filtered, total, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{ProfileID: admin.ID}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "service.create", filtered[0].Action)
	require.Equal(t, admin.Email, filtered[0].Email)
	require.Equal(t, "127.0.0.1", filtered[0].IPAddress)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal([]byte(filtered[0].Metadata), &metadata))
	require.Equal(t, "web-development", metadata["slug"])

	failures, _, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{Result: AuditFailure}})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.Nil(t, failures[0].ProfileID)
}

func TestAuditServiceValidation(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: AuditSuccess}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "x"}))

	_, err = NewAuditService(nil)
	require.Error(t, err)
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	old := models.AuditLog{Action: "old", Result: AuditSuccess, CreatedAt: time.Now().AddDate(0, 0, -120)}
	recent := models.AuditLog{Action: "recent", Result: AuditSuccess}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	removed, err := svc.CleanupOlderThan(context.Background(), 90)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}

func TestRecordAuditToleratesNilService(t *testing.T) {
	recordAudit(nil, context.Background(), AuditEntry{Action: "noop", Result: AuditSuccess})
}
