package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marketplace-chat/internal/apperrors"
	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/policy"
	"marketplace-chat/internal/repositories"
	"marketplace-chat/internal/storage"
	"marketplace-chat/internal/telemetry"
)

// SendInput is one send request. Text and Attachment are both optional but
// at least one must be present.
type SendInput struct {
	RoomID     string
	SenderID   string
	Text       string
	Attachment *storage.Attachment
}

// SendMessage validates, persists and delivers a message. Once the message
// is stored the call succeeds even if the room summary, notifications or
// the real-time push fail.
func (s *Service) SendMessage(ctx context.Context, in SendInput) (models.MessageView, error) {
	ctx, span := s.tracer.Start(ctx, "chat.SendMessage", trace.WithAttributes(attribute.String("room.id", in.RoomID)))
	defer span.End()

	view, err := s.sendMessage(ctx, span, in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		switch {
		case apperrors.Is(err, apperrors.KindPolicyViolation):
			observability.IncMessage(observability.MessageBlocked)
		case apperrors.Is(err, apperrors.KindStorage), apperrors.Is(err, apperrors.KindUpstream):
			observability.IncMessage(observability.MessageFailed)
		default:
			observability.IncMessage(observability.MessageRejected)
		}
		return models.MessageView{}, err
	}
	observability.IncMessage(observability.MessageSent)
	return view, nil
}

func (s *Service) sendMessage(ctx context.Context, span trace.Span, in SendInput) (models.MessageView, error) {
	room, err := s.loadRoom(ctx, in.RoomID)
	if err != nil {
		return models.MessageView{}, err
	}
	if !room.HasMember(in.SenderID) {
		return models.MessageView{}, apperrors.Forbidden("you are not a member of this chat")
	}

	text := in.Text
	if strings.TrimSpace(text) == "" {
		text = ""
	}
	if text != "" {
		if res := s.filter.Check(text); res.Blocked {
			span.AddEvent("policy_violation", trace.WithAttributes(attribute.String("policy.rule", res.Rule)))
			s.logger.Info("message blocked by content policy", "room_id", room.ID, "sender_id", in.SenderID, "rule", res.Rule)
			s.audit(ctx, telemetry.AuditRecord{
				Level:  "warn",
				Action: telemetry.ActionPolicyViolation,
				Text:   "message blocked by content policy",
				UserID: in.SenderID,
				Attributes: map[string]string{
					"room_id": room.ID,
					"rule":    res.Rule,
					"reason":  res.Reason,
				},
			})
			return models.MessageView{}, apperrors.PolicyViolation(policy.ViolationMessage)
		}
	}

	var locator string
	if in.Attachment != nil {
		locator, err = s.uploadAttachment(ctx, room.ID, *in.Attachment)
		if err != nil {
			return models.MessageView{}, err
		}
	}

	if text == "" && locator == "" {
		return models.MessageView{}, apperrors.InvalidRequest("text or attachment is required")
	}

	msg := models.Message{ID: uuid.NewString(), RoomID: room.ID, SenderID: in.SenderID}
	if text != "" {
		msg.Text = &text
	}
	if locator != "" {
		msg.Attachment = &locator
	}

	stored, err := s.messages.Create(ctx, msg)
	if err != nil {
		s.discardAttachment(ctx, locator)
		if errors.Is(err, repositories.ErrRoomNotFound) {
			return models.MessageView{}, apperrors.NotFound("room", err)
		}
		return models.MessageView{}, apperrors.Storage("failed to save message", err)
	}
	span.SetAttributes(attribute.String("message.id", stored.ID))

	// the message is durable from here on; the rest is best effort
	bg := context.WithoutCancel(ctx)

	if err := s.rooms.UpdateLastMessage(bg, room.ID, stored.Summary()); err != nil {
		s.logger.Warn("room summary update failed", "room_id", room.ID, "message_id", stored.ID, "error", err)
	}

	sender, err := s.directory.GetUser(bg, in.SenderID)
	if err != nil {
		s.logger.Warn("sender lookup failed", "user_id", in.SenderID, "error", err)
		sender = models.User{ID: in.SenderID}
	}

	if s.notifier != nil {
		s.notifier.NotifyMessage(bg, room, stored, sender)
	}

	view := models.NewMessageView(stored, sender.Ref())
	s.emit(bg, broadcast.EventNewMessage, room.ID, view)
	return view, nil
}

func (s *Service) uploadAttachment(ctx context.Context, roomID string, a storage.Attachment) (string, error) {
	if s.uploader == nil {
		observability.IncAttachmentUpload("unavailable")
		return "", apperrors.Upstream("attachment storage is not configured", nil)
	}

	prepared, err := storage.Prepare(a, s.opts.MaxAttachmentBytes)
	if err != nil {
		observability.IncAttachmentUpload("rejected")
		if errors.Is(err, storage.ErrUnsupportedType) || errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrEmpty) {
			return "", apperrors.InvalidRequest(err.Error())
		}
		return "", apperrors.Upstream("failed to read attachment", err)
	}

	locator, err := s.uploader.Upload(ctx, prepared.Body, prepared.ContentType, prepared.Extension, "attachments/"+roomID)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			observability.IncAttachmentUpload("rejected")
			return "", apperrors.InvalidRequest(err.Error())
		}
		observability.IncAttachmentUpload("failed")
		s.logger.Error("attachment upload failed", "room_id", roomID, "error", err)
		return "", apperrors.Upstream("failed to upload attachment", err)
	}
	observability.IncAttachmentUpload("ok")
	return locator, nil
}

// discardAttachment removes an uploaded object whose message was never stored.
func (s *Service) discardAttachment(ctx context.Context, locator string) {
	if locator == "" || s.uploader == nil {
		return
	}
	if err := s.uploader.Delete(context.WithoutCancel(ctx), locator); err != nil {
		s.logger.Warn("orphaned attachment cleanup failed", "locator", locator, "error", err)
	}
}

// ListMessages returns a room's messages oldest first with senders projected.
func (s *Service) ListMessages(ctx context.Context, roomID, viewerID string) ([]models.MessageView, error) {
	ctx, span := s.tracer.Start(ctx, "chat.ListMessages", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer span.End()

	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(viewerID) {
		return nil, apperrors.Forbidden("you are not a member of this chat")
	}

	msgs, err := s.messages.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, apperrors.Storage("failed to load messages", err)
	}

	senderIDs := make([]string, 0, len(msgs))
	for _, m := range msgs {
		senderIDs = append(senderIDs, m.SenderID)
	}
	refs := s.resolveUsers(ctx, uniq(senderIDs))

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, models.NewMessageView(m, refs[m.SenderID]))
	}
	return views, nil
}

// MarkRoomRead marks every message the reader received in the room as read
// and returns how many changed.
func (s *Service) MarkRoomRead(ctx context.Context, roomID, readerID string) (int64, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if !room.HasMember(readerID) {
		return 0, apperrors.Forbidden("you are not a member of this chat")
	}
	updated, err := s.messages.MarkRoomRead(ctx, room.ID, readerID)
	if err != nil {
		return 0, apperrors.Storage("failed to mark messages read", err)
	}
	return updated, nil
}
