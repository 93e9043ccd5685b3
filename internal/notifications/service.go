// Package notifications records per-user notifications and announces them
// to push workers over the event bus.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"marketplace-chat/internal/apperrors"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/repositories"
)

const (
	messageTitle   = "New message"
	maxBodyRunes   = 120
	eventCreated   = "notification_created"
	eventTypeNotif = "notifications"
)

// Publisher is the event bus used to hand notifications to push workers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// Input is a notification raised by another flow (follow, admin, password reset).
type Input struct {
	UserID           string                  `json:"user" binding:"required"`
	Type             models.NotificationType `json:"type" binding:"required"`
	Title            string                  `json:"title" binding:"required,max=200"`
	Body             string                  `json:"message" binding:"required,max=2000"`
	RelatedUserID    *string                 `json:"relatedUser,omitempty"`
	RelatedMessageID *string                 `json:"relatedMessage,omitempty"`
}

type Service struct {
	repo      repositories.NotificationRepository
	publisher Publisher
	logger    *slog.Logger
}

func NewService(repo repositories.NotificationRepository, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// NotifyMessage records a message notification for every room member other
// than the sender. Recipients are handled independently; a failure is logged
// and counted and never stops the others. Returns how many were recorded.
func (s *Service) NotifyMessage(ctx context.Context, room models.Room, msg models.Message, sender models.User) int {
	body := Truncate(fmt.Sprintf("%s: %s", senderName(sender), msg.Summary()), maxBodyRunes)

	created := 0
	seen := map[string]bool{msg.SenderID: true}
	for _, recipient := range room.Members() {
		if seen[recipient] {
			continue
		}
		seen[recipient] = true

		senderID, messageID := msg.SenderID, msg.ID
		n, err := s.repo.Create(ctx, models.Notification{
			UserID:           recipient,
			Type:             models.NotificationMessage,
			Title:            messageTitle,
			Body:             body,
			RelatedUserID:    &senderID,
			RelatedMessageID: &messageID,
		})
		if err != nil {
			observability.IncNotificationFanoutError()
			s.logger.Error("notification fan-out failed",
				"room_id", room.ID, "message_id", msg.ID, "recipient_id", recipient, "error", err)
			continue
		}
		created++
		s.announce(ctx, n)
	}
	return created
}

// Create records a notification raised by another flow.
func (s *Service) Create(ctx context.Context, in Input) (models.Notification, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return models.Notification{}, apperrors.InvalidRequest("user is required")
	}
	if _, err := uuid.Parse(in.UserID); err != nil {
		return models.Notification{}, apperrors.InvalidRequest("user is invalid")
	}
	if !in.Type.Valid() {
		return models.Notification{}, apperrors.InvalidRequest(fmt.Sprintf("unknown notification type %q", in.Type))
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Body) == "" {
		return models.Notification{}, apperrors.InvalidRequest("title and message are required")
	}

	n, err := s.repo.Create(ctx, models.Notification{
		UserID:           in.UserID,
		Type:             in.Type,
		Title:            in.Title,
		Body:             in.Body,
		RelatedUserID:    in.RelatedUserID,
		RelatedMessageID: in.RelatedMessageID,
	})
	if err != nil {
		return models.Notification{}, apperrors.Storage("failed to create notification", err)
	}
	s.announce(ctx, n)
	return n, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []models.Notification{}, nil
	}
	items, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Storage("failed to load notifications", err)
	}
	return items, nil
}

func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NotFound("notification", nil)
	}
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return apperrors.NotFound("notification", err)
		}
		return apperrors.Storage("failed to update notification", err)
	}
	return nil
}

func (s *Service) announce(ctx context.Context, n models.Notification) {
	if s.publisher == nil {
		return
	}
	envelope := observability.NewEnvelope(eventTypeNotif, eventCreated, n)
	if err := s.publisher.Publish(ctx, observability.RoutingMessageNotification, envelope, observability.HeadersFromContext(ctx)); err != nil {
		observability.IncAMQPPublishError()
		s.logger.Warn("notification publish failed", "notification_id", n.ID, "error", err)
	}
}

func senderName(u models.User) string {
	if name := u.Ref().Name; name != "" {
		return name
	}
	return "Someone"
}

// Truncate shortens s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
