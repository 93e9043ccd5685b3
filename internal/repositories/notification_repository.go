package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"marketplace-chat/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

const notificationColumns = `id, user_id, type, title, body, is_read, related_user_id, related_message_id, created_at`

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	var stored models.Notification
	err := r.db.GetContext(ctx, &stored, `INSERT INTO notifications (id, user_id, type, title, body, related_user_id, related_message_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+notificationColumns,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.RelatedUserID, n.RelatedMessageID)
	return stored, err
}

// ListForUser returns the user's notifications newest first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	items := []models.Notification{}
	err := r.db.SelectContext(ctx, &items, `SELECT `+notificationColumns+` FROM notifications
        WHERE user_id=$1
        ORDER BY created_at DESC`, userID)
	return items, err
}

// MarkRead flags a notification as read when it belongs to userID.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
