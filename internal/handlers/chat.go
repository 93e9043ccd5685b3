package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/apperrors"
	"marketplace-chat/internal/chat"
	"marketplace-chat/internal/models"
)

// ChatService is what the HTTP layer needs from chat.Service.
type ChatService interface {
	InitRoom(ctx context.Context, productID, userID string) (models.RoomInit, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]models.RoomListing, error)
	DeleteRoom(ctx context.Context, roomID, actorID string, isAdmin bool) (int64, error)
	SendMessage(ctx context.Context, in chat.SendInput) (models.MessageView, error)
	ListMessages(ctx context.Context, roomID, viewerID string) ([]models.MessageView, error)
	MarkRoomRead(ctx context.Context, roomID, readerID string) (int64, error)
}

// ChatHandler serves room endpoints.
type ChatHandler struct {
	chat   ChatService
	logger *slog.Logger
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(svc ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: svc, logger: logger}
}

// InitChat opens (or returns) the room for a product and the caller.
func (h *ChatHandler) InitChat(c *gin.Context) {
	var req struct {
		ProductID string `json:"productId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	userID, _ := caller(c)
	init, err := h.chat.InitRoom(c.Request.Context(), req.ProductID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"room":    init.Room,
		"seller":  init.Seller,
		"product": init.Product,
	})
}

// ListUserChats returns the caller's inbox. Only the caller's own inbox is
// visible.
func (h *ChatHandler) ListUserChats(c *gin.Context) {
	userID, isAdmin := caller(c)
	target := c.Param("userId")
	if target != userID && !isAdmin {
		respondError(c, h.logger, apperrors.Forbidden("you can only view your own chats"))
		return
	}

	chats, err := h.chat.ListRoomsForUser(c.Request.Context(), target)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chats": chats})
}

// DeleteChat removes a room and its messages.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	userID, isAdmin := caller(c)
	removed, err := h.chat.DeleteRoom(c.Request.Context(), c.Param("roomId"), userID, isAdmin)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat and messages deleted", "deletedMessages": removed})
}
