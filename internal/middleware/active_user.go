package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/repositories"
)

// UserLookup loads an account by id.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
}

// RequireActiveUser rejects callers whose account is disabled. It must run
// after AuthMiddleware.
func RequireActiveUser(users UserLookup, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if _, err := uuid.Parse(userID); err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
				return
			}
			logger.Error("active user check failed", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
			return
		}
		if user.IsDisabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Your account has been disabled. You cannot perform this action.",
			})
			return
		}
		c.Next()
	}
}
