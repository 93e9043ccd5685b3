package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/apperrors"
	"marketplace-chat/internal/chat"
	"marketplace-chat/internal/storage"
)

// multipartMemory is how much of a multipart form is kept in memory before
// spilling to disk.
const multipartMemory = 8 << 20

// MessageHandler serves message endpoints.
type MessageHandler struct {
	chat   ChatService
	logger *slog.Logger
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(svc ChatService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{chat: svc, logger: logger}
}

type sendRequest struct {
	RoomID string `json:"roomId" form:"roomId"`
	ChatID string `json:"chatId" form:"chatId"`
	Text   string `json:"text" form:"text"`
}

func (r sendRequest) room() string {
	if r.RoomID != "" {
		return r.RoomID
	}
	return r.ChatID
}

// Send accepts JSON {roomId, text} or a multipart form with an optional
// "attachment" file.
func (h *MessageHandler) Send(c *gin.Context) {
	userID, _ := caller(c)
	in := chat.SendInput{SenderID: userID}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			respondError(c, h.logger, apperrors.InvalidRequest("invalid multipart form"))
			return
		}
		defer form.RemoveAll()

		var req sendRequest
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, h.logger, bindError(err))
			return
		}
		in.RoomID, in.Text = req.room(), req.Text

		if files := form.File["attachment"]; len(files) > 0 {
			fh := files[0]
			file, err := fh.Open()
			if err != nil {
				respondError(c, h.logger, apperrors.InvalidRequest("unreadable attachment"))
				return
			}
			defer file.Close()
			in.Attachment = &storage.Attachment{Filename: fh.Filename, Size: fh.Size, Body: file}
		}
	} else {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.logger, bindError(err))
			return
		}
		in.RoomID, in.Text = req.room(), req.Text
	}

	if in.RoomID == "" {
		respondError(c, h.logger, apperrors.InvalidRequest("roomId is required"))
		return
	}

	msg, err := h.chat.SendMessage(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// List returns a room's messages oldest first.
func (h *MessageHandler) List(c *gin.Context) {
	userID, _ := caller(c)
	msgs, err := h.chat.ListMessages(c.Request.Context(), c.Param("roomId"), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}

// MarkRead marks the caller's received messages in a room as read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, _ := caller(c)
	updated, err := h.chat.MarkRoomRead(c.Request.Context(), c.Param("roomId"), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}
