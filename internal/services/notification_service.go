package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/internal/realtime"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/logger"
)

// ErrNotificationNotFound is returned for unknown or foreign notifications.
var ErrNotificationNotFound = apperrors.NewNotFound("Notification")

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID        string         `json:"id"`
	ProfileID string         `json:"profile_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"`
	ActionURL string         `json:"action_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	ProfileID string
	Type      string
	Title     string
	Message   string
	Severity  string
	ActionURL string
	Metadata  map[string]any
}

// ListNotificationsInput defines paging for a profile's notifications.
type ListNotificationsInput struct {
	ProfileID  string
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationEventPayload represents data sent to realtime consumers.
type NotificationEventPayload struct {
	Notification   *NotificationDTO `json:"notification,omitempty"`
	NotificationID string           `json:"notification_id,omitempty"`
}

// NotificationService manages in-app notifications and pushes them to the realtime hub.
type NotificationService struct {
	db  *gorm.DB
	hub *realtime.Hub
}

// NewNotificationService constructs a NotificationService. hub may be nil.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{db: db, hub: hub}, nil
}

// ListForProfile returns notifications for the profile ordered by recency.
func (s *NotificationService) ListForProfile(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	profileID := strings.TrimSpace(input.ProfileID)
	if profileID == "" {
		return nil, errors.New("notification service: profile id is required")
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := s.db.WithContext(ctx).Where("profile_id = ?", profileID)
	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(max(0, input.Offset)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	return mapNotificationRows(rows), nil
}

// CountUnread returns the number of unread notifications for a profile.
func (s *NotificationService) CountUnread(ctx context.Context, profileID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Notification{}).
		Where("profile_id = ? AND is_read = ?", profileID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: count unread: %w", err)
	}
	return count, nil
}

// Create persists a notification and broadcasts it to the profile's open sockets.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	profileID := strings.TrimSpace(input.ProfileID)
	if profileID == "" {
		return nil, errors.New("notification service: profile id is required")
	}
	notificationType := strings.TrimSpace(input.Type)
	if notificationType == "" {
		return nil, errors.New("notification service: type is required")
	}

	notification := models.Notification{
		ProfileID: profileID,
		Type:      notificationType,
		Title:     strings.TrimSpace(input.Title),
		Message:   strings.TrimSpace(input.Message),
		Severity:  defaultIfEmpty(strings.TrimSpace(input.Severity), "info"),
		ActionURL: strings.TrimSpace(input.ActionURL),
		Metadata:  models.JSONObject(input.Metadata),
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	dto := mapNotification(notification)
	s.broadcast(profileID, "notification.created", &NotificationEventPayload{Notification: &dto})
	return &dto, nil
}

// Notify creates a notification for each recipient, logging rather than
// returning failures. Domain operations call it after their transaction commits.
func (s *NotificationService) Notify(ctx context.Context, input CreateNotificationInput, recipients ...string) {
	if s == nil {
		return
	}
	seen := make(map[string]struct{}, len(recipients))
	for _, recipient := range recipients {
		if recipient == "" {
			continue
		}
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}

		input.ProfileID = recipient
		if _, err := s.Create(ctx, input); err != nil {
			logger.WithModule("notifications").Warn("failed to create notification",
				zap.String("type", input.Type),
				zap.String("profile_id", recipient),
				zap.Error(err),
			)
		}
	}
}

// MarkRead sets the notification read flag for a profile.
func (s *NotificationService) MarkRead(ctx context.Context, profileID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND profile_id = ?", notificationID, profileID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	if !notification.IsRead {
		now := time.Now().UTC()
		if err := s.db.WithContext(ctx).Model(&notification).
			Updates(map[string]any{
				"is_read": true,
				"read_at": now,
			}).Error; err != nil {
			return nil, fmt.Errorf("notification service: mark read: %w", err)
		}
		notification.IsRead = true
		notification.ReadAt = &now
	}

	dto := mapNotification(notification)
	s.broadcast(profileID, "notification.read", &NotificationEventPayload{
		Notification:   &dto,
		NotificationID: notification.ID,
	})
	return &dto, nil
}

// MarkAllRead marks all notifications for the profile as read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, profileID string) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("profile_id = ? AND is_read = ?", profileID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}

	s.broadcast(profileID, "notification.read_all", nil)
	return result.RowsAffected, nil
}

func (s *NotificationService) broadcast(profileID, event string, payload *NotificationEventPayload) {
	if s.hub == nil {
		return
	}
	message := realtime.Message{Event: event}
	if payload != nil {
		message.Data = payload
	}
	s.hub.BroadcastToProfile(realtime.StreamNotifications, profileID, message)
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		ProfileID: row.ProfileID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		Severity:  defaultIfEmpty(row.Severity, "info"),
		ActionURL: row.ActionURL,
		Metadata:  decodeJSON(row.Metadata),
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
		ReadAt:    row.ReadAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}
