package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"marketplace-chat/internal/apperrors"
	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/chat"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/presence"
)

// ChatService is the part of chat.Service the websocket channel uses.
type ChatService interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	SendMessage(ctx context.Context, in chat.SendInput) (models.MessageView, error)
}

// Handler upgrades authenticated requests and serves the event protocol.
type Handler struct {
	hub         *Hub
	chat        ChatService
	presence    presence.Registry
	broadcaster broadcast.Broadcaster
	tokens      auth.TokenValidator
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewHandler constructs a Handler. allowedOrigins of ["*"] accepts any origin.
func NewHandler(hub *Hub, chatSvc ChatService, registry presence.Registry, broadcaster broadcast.Broadcaster, tokens auth.TokenValidator, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:         hub,
		chat:        chatSvc,
		presence:    registry,
		broadcaster: broadcaster,
		tokens:      tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Handle authenticates the request, upgrades it and starts the pumps.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing token"})
		return
	}
	identity, err := h.tokens.ValidateToken(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	info := ConnInfo{
		SessionID:   uuid.NewString(),
		UserID:      identity.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	session := newSession(conn, info)
	h.hub.Register(session)
	observability.IncWSActive()

	// the request context ends with this handler; the session outlives it
	sessionCtx := context.WithoutCancel(ctx)
	publishLifecycle(sessionCtx, info, eventConnect, "")
	h.logger.Info("websocket connected", "session_id", info.SessionID, "user_id", info.UserID)

	go session.writePump(h.logger)
	go h.readPump(sessionCtx, session)
}

func (h *Handler) readPump(ctx context.Context, s *Session) {
	var reason string
	defer func() {
		h.disconnect(ctx, s, reason)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			reason = err.Error()
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				publishLifecycle(ctx, s.Info, eventError, reason)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.sendError(s, "malformed frame")
			continue
		}
		h.dispatch(ctx, s, frame)
	}
}

func (h *Handler) disconnect(ctx context.Context, s *Session, reason string) {
	h.hub.Unregister(s)
	s.conn.Close()
	observability.DecWSActive()

	removed, err := h.presence.RemoveSession(ctx, s.ID)
	if err != nil {
		h.logger.Warn("presence removal failed", "session_id", s.ID, "error", err)
	}
	if removed {
		h.broadcastPresence(ctx)
	}

	publishLifecycle(ctx, s.Info, eventDisconnect, reason)
	h.logger.Info("websocket disconnected", "session_id", s.ID, "user_id", s.UserID, "reason", reason)
}

func (h *Handler) dispatch(ctx context.Context, s *Session, frame clientFrame) {
	switch frame.Event {
	case clientAnnouncePresence:
		h.announcePresence(ctx, s, decodeUserID(frame.Data))
	case clientJoinRoom:
		h.joinRoom(ctx, s, decodeRoomID(frame.Data))
	case clientLeaveRoom:
		if roomID := decodeRoomID(frame.Data); roomID != "" {
			h.hub.Leave(s, roomID)
		}
	case clientTyping:
		h.typing(ctx, s, frame)
	case clientSendMessage:
		h.sendMessage(ctx, s, frame)
	default:
		h.sendError(s, "unknown event")
	}
}

func (h *Handler) announcePresence(ctx context.Context, s *Session, userID string) {
	if userID != "" && userID != s.UserID {
		h.sendError(s, "cannot announce presence for another user")
		return
	}
	if err := h.presence.SetOnline(ctx, s.UserID, s.ID); err != nil {
		h.logger.Warn("presence update failed", "session_id", s.ID, "user_id", s.UserID, "error", err)
		h.sendError(s, "presence unavailable")
		return
	}
	h.broadcastPresence(ctx)
}

func (h *Handler) broadcastPresence(ctx context.Context) {
	ids, err := h.presence.OnlineUserIDs(ctx)
	if err != nil {
		h.logger.Warn("presence listing failed", "error", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	observability.SetPresenceOnline(len(ids))

	event, err := broadcast.NewEvent(broadcast.EventPresenceChanged, "", ids)
	if err == nil {
		err = h.broadcaster.ToAll(ctx, event)
	}
	if err != nil {
		observability.IncBroadcastError(broadcast.EventPresenceChanged)
		h.logger.Warn("presence broadcast failed", "error", err)
	}
}

func (h *Handler) joinRoom(ctx context.Context, s *Session, roomID string) {
	if roomID == "" {
		h.sendError(s, "roomId is required")
		return
	}
	member, err := h.chat.IsMember(ctx, roomID, s.UserID)
	if err != nil {
		h.logger.Warn("membership check failed", "room_id", roomID, "user_id", s.UserID, "error", err)
		h.sendError(s, "failed to join room")
		return
	}
	if !member {
		h.sendError(s, "you are not a member of this chat")
		return
	}
	h.hub.Join(s, roomID)
}

func (h *Handler) typing(ctx context.Context, s *Session, frame clientFrame) {
	var p TypingPayload
	if err := decodeData(frame.Data, &p); err != nil || p.RoomID == "" {
		h.sendError(s, "roomId is required")
		return
	}
	if !h.hub.InRoom(s, p.RoomID) {
		h.sendError(s, "join the room first")
		return
	}
	p.SenderID = s.UserID

	event, err := broadcast.NewEvent(broadcast.EventTyping, p.RoomID, p)
	if err != nil {
		return
	}
	event.ExceptSession = s.ID
	if err := h.broadcaster.ToRoom(ctx, event); err != nil {
		observability.IncBroadcastError(broadcast.EventTyping)
		h.logger.Warn("typing broadcast failed", "room_id", p.RoomID, "error", err)
	}
}

func (h *Handler) sendMessage(ctx context.Context, s *Session, frame clientFrame) {
	var p sendPayload
	if err := decodeData(frame.Data, &p); err != nil {
		h.sendError(s, "malformed message")
		return
	}
	_, err := h.chat.SendMessage(ctx, chat.SendInput{RoomID: p.RoomID, SenderID: s.UserID, Text: p.Text})
	if err != nil {
		h.sendError(s, apperrors.From(err).Message)
	}
}

func (h *Handler) sendError(s *Session, message string) {
	event, err := broadcast.NewEvent(broadcast.EventError, "", errorPayload{Message: message})
	if err != nil {
		return
	}
	frame, err := event.Frame()
	if err != nil {
		return
	}
	h.hub.DeliverSession(s.ID, frame)
}
