package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/apperrors"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/notifications"
)

type NotificationService interface {
	Create(ctx context.Context, in notifications.Input) (models.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationHandler serves the notification feed.
type NotificationHandler struct {
	notifications NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(svc NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: svc, logger: logger}
}

// Create records a notification for any user.
func (h *NotificationHandler) Create(c *gin.Context) {
	var in notifications.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, h.logger, apperrors.InvalidRequest("Missing required fields"))
		return
	}

	n, err := h.notifications.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "notification": n})
}

// List returns the caller's notifications newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, isAdmin := caller(c)
	target := c.Param("userId")
	if target != userID && !isAdmin {
		respondError(c, h.logger, apperrors.Forbidden("you can only view your own notifications"))
		return
	}

	items, err := h.notifications.ListForUser(c.Request.Context(), target)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": items})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, _ := caller(c)
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification marked as read"})
}
