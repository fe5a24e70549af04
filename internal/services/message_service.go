package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/authctx"
	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/internal/realtime"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
)

const maxMessageLength = 5000

// PostMessageInput is a new message on a project thread.
type PostMessageInput struct {
	Message     string
	Attachments []string
}

// MessageService manages project conversation threads.
type MessageService struct {
	db            *gorm.DB
	notifications *NotificationService
	hub           *realtime.Hub
}

// NewMessageService constructs a MessageService. notifications and hub may be nil.
func NewMessageService(db *gorm.DB, notifications *NotificationService, hub *realtime.Hub) (*MessageService, error) {
	if db == nil {
		return nil, errors.New("message service: db is required")
	}
	return &MessageService{db: db, notifications: notifications, hub: hub}, nil
}

// List returns a project's messages oldest first.
func (s *MessageService) List(ctx context.Context, projectID string) ([]models.ProjectMessage, error) {
	ctx = ensureContext(ctx)
	if _, _, err := s.visibleProject(ctx, projectID); err != nil {
		return nil, err
	}

	var messages []models.ProjectMessage
	if err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("message service: list messages: %w", err)
	}
	return messages, nil
}

// Post adds a message and notifies the other participants.
func (s *MessageService) Post(ctx context.Context, projectID string, input PostMessageInput) (*models.ProjectMessage, error) {
	ctx = ensureContext(ctx)
	session, project, err := s.visibleProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(input.Message)
	if body == "" {
		return nil, apperrors.NewBadRequest("message is required")
	}
	if len(body) > maxMessageLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}

	message := &models.ProjectMessage{
		ProjectID:   project.ID,
		SenderID:    session.ProfileID,
		Message:     body,
		Attachments: models.StringList(normaliseStrings(input.Attachments)),
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("message service: create message: %w", err)
	}
	if err := s.db.WithContext(ctx).Preload("Sender").Take(message, "id = ?", message.ID).Error; err != nil {
		return nil, fmt.Errorf("message service: reload message: %w", err)
	}

	recipients, err := s.recipients(ctx, project, session.ProfileID)
	if err != nil {
		return message, nil
	}

	s.notifications.Notify(ctx, CreateNotificationInput{
		Type:      models.NotificationProjectMessage,
		Title:     fmt.Sprintf("New message on %q", project.Title),
		Message:   preview(body, 140),
		ActionURL: "/projects/" + project.ID + "/messages",
		Metadata:  map[string]any{"project_id": project.ID, "message_id": message.ID},
	}, recipients...)
	if s.hub != nil {
		s.hub.BroadcastToProfiles(realtime.StreamProjects, recipients, realtime.Message{
			Event: "project.message",
			Data:  message,
		})
	}
	return message, nil
}

// MarkRead marks messages from other participants read for the caller and
// returns how many changed.
func (s *MessageService) MarkRead(ctx context.Context, projectID string) (int64, error) {
	ctx = ensureContext(ctx)
	session, project, err := s.visibleProject(ctx, projectID)
	if err != nil {
		return 0, err
	}

	result := s.db.WithContext(ctx).Model(&models.ProjectMessage{}).
		Where("project_id = ? AND sender_id <> ? AND is_read = ?", project.ID, session.ProfileID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("message service: mark read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *MessageService) visibleProject(ctx context.Context, projectID string) (authctx.Session, *models.Project, error) {
	session, err := requireSession(ctx)
	if err != nil {
		return session, nil, err
	}

	var project models.Project
	err = scopeProjects(s.db.WithContext(ctx).Model(&models.Project{}), session).
		Where("projects.id = ?", strings.TrimSpace(projectID)).
		Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session, nil, ErrProjectNotFound
	}
	if err != nil {
		return session, nil, fmt.Errorf("message service: load project: %w", err)
	}
	return session, &project, nil
}

// recipients returns every participant except the sender. Admins are included
// when the sender is not one.
func (s *MessageService) recipients(ctx context.Context, project *models.Project, senderID string) ([]string, error) {
	var assigned []string
	if err := s.db.WithContext(ctx).Model(&models.ProjectAssignment{}).
		Where("project_id = ? AND status <> ?", project.ID, models.AssignmentRemoved).
		Pluck("freelancer_id", &assigned).Error; err != nil {
		return nil, err
	}
	admins, err := adminProfileIDs(ctx, s.db)
	if err != nil {
		return nil, err
	}

	candidates := append([]string{project.ClientID}, assigned...)
	if !containsString(admins, senderID) {
		candidates = append(candidates, admins...)
	}

	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if id != senderID && !containsString(out, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
