package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
)

func TestMessageServiceThread(t *testing.T) {
	db := openServiceTestDB(t)
	notifications, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	svc, err := NewMessageService(db, notifications, nil)
	require.NoError(t, err)

	admin := createTestProfile(t, db, models.RoleAdmin)
	client := createTestProfile(t, db, models.RoleClient)
	provider := createTestProfile(t, db, models.RoleServiceProvider)
	project := createTestProject(t, db, client, models.ProjectInProgress)
	require.NoError(t, db.Create(&models.ProjectAssignment{
		ProjectID:    project.ID,
		FreelancerID: provider.ID,
		Status:       models.AssignmentAssigned,
		AssignedBy:   admin.ID,
	}).Error)

	first, err := svc.Post(sessionContext(client), project.ID, PostMessageInput{Message: "  Can we add a halal certificate page? ", Attachments: []string{"brief.pdf"}})
	require.NoError(t, err)
	require.Equal(t, "Can we add a halal certificate page?", first.Message)
	require.NotNil(t, first.Sender)
	require.Equal(t, []string{"brief.pdf"}, models.DecodeStringList(first.Attachments))

	_, err = svc.Post(sessionContext(provider), project.ID, PostMessageInput{Message: "Yes, adding it to the sitemap."})
	require.NoError(t, err)

	messages, err := svc.List(sessionContext(admin), project.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, client.ID, messages[0].SenderID)
	require.Equal(t, provider.ID, messages[1].SenderID)

	var providerNotes, adminNotes int64
	require.NoError(t, db.Model(&models.Notification{}).Where("profile_id = ?", provider.ID).Count(&providerNotes).Error)
	require.NoError(t, db.Model(&models.Notification{}).Where("profile_id = ?", admin.ID).Count(&adminNotes).Error)
	require.Equal(t, int64(1), providerNotes)
	require.Equal(t, int64(2), adminNotes)

	changed, err := svc.MarkRead(sessionContext(client), project.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), changed)

	stranger := createTestProfile(t, db, models.RoleClient)
	_, err = svc.List(sessionContext(stranger), project.ID)
	require.ErrorIs(t, err, ErrProjectNotFound)

	_, err = svc.Post(sessionContext(client), project.ID, PostMessageInput{Message: "   "})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}
