package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"marketplace-chat/internal/apperrors"
	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/repositories"
	"marketplace-chat/internal/telemetry"
)

// InitRoom returns the room between the requesting user and the product's
// seller, creating it on first use.
func (s *Service) InitRoom(ctx context.Context, productID, userID string) (models.RoomInit, error) {
	ctx, span := s.tracer.Start(ctx, "chat.InitRoom", trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return models.RoomInit{}, apperrors.InvalidRequest("productId is required")
	}
	if !validID(productID) {
		return models.RoomInit{}, apperrors.NotFound("product", nil)
	}

	product, err := s.directory.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return models.RoomInit{}, apperrors.NotFound("product", err)
		}
		return models.RoomInit{}, apperrors.Storage("failed to load product", err)
	}

	sellerID := product.PosterID
	if userID == sellerID && s.opts.RejectSelfChat {
		return models.RoomInit{}, apperrors.InvalidRequest("you cannot start a chat on your own listing")
	}
	if s.opts.EnforceBlocks && userID != sellerID {
		blocked, err := s.directory.IsBlocked(ctx, userID, sellerID)
		if err != nil {
			return models.RoomInit{}, apperrors.Storage("failed to check block list", err)
		}
		if blocked {
			return models.RoomInit{}, apperrors.Forbidden("this seller is not accepting messages from you")
		}
	}

	room, created, err := s.rooms.FindOrCreate(ctx, product.ID, userID, sellerID)
	if err != nil {
		return models.RoomInit{}, apperrors.Storage("failed to open chat", err)
	}
	span.SetAttributes(attribute.String("room.id", room.ID), attribute.Bool("room.created", created))
	if created {
		s.logger.Info("chat room created", "room_id", room.ID, "product_id", product.ID, "buyer_id", userID, "seller_id", sellerID)
	}

	refs := s.resolveUsers(ctx, uniq(room.Members()))
	return models.RoomInit{
		Room:    roomView(room, refs),
		Seller:  refs[sellerID],
		Product: product.Summary(),
		Created: created,
	}, nil
}

// ListRoomsForUser returns the user's inbox. The "seller" of each entry is
// the other member from the user's point of view.
func (s *Service) ListRoomsForUser(ctx context.Context, userID string) ([]models.RoomListing, error) {
	ctx, span := s.tracer.Start(ctx, "chat.ListRoomsForUser")
	defer span.End()

	if !validID(userID) {
		return []models.RoomListing{}, nil
	}
	rooms, err := s.rooms.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Storage("failed to load chats", err)
	}
	listings := make([]models.RoomListing, 0, len(rooms))
	if len(rooms) == 0 {
		return listings, nil
	}

	roomIDs := make([]string, 0, len(rooms))
	productIDs := make([]string, 0, len(rooms))
	memberIDs := make([]string, 0, len(rooms)*2)
	for _, room := range rooms {
		roomIDs = append(roomIDs, room.ID)
		productIDs = append(productIDs, room.ProductID)
		memberIDs = append(memberIDs, room.Members()...)
	}

	last, err := s.messages.LastForRooms(ctx, roomIDs)
	if err != nil {
		return nil, apperrors.Storage("failed to load last messages", err)
	}
	products, err := s.directory.GetProducts(ctx, uniq(productIDs))
	if err != nil {
		return nil, apperrors.Storage("failed to load products", err)
	}
	refs := s.resolveUsers(ctx, uniq(memberIDs))

	for _, room := range rooms {
		listing := models.RoomListing{
			RoomID: room.ID,
			Room:   roomView(room, refs),
			Seller: refs[room.OtherMember(userID)],
		}
		if p, ok := products[room.ProductID]; ok {
			listing.Product = p.Summary()
		} else {
			listing.Product = models.ProductSummary{ID: room.ProductID}
		}
		if msg, ok := last[room.ID]; ok {
			listing.LastMessage = msg.TextOrEmpty()
			listing.Unread = !msg.Read && msg.SenderID != userID
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// IsMember reports whether userID belongs to roomID. Unknown rooms are not
// an error.
func (s *Service) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	if !validID(roomID) {
		return false, nil
	}
	ok, err := s.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return false, apperrors.Storage("failed to check membership", err)
	}
	return ok, nil
}

// DeleteRoom removes a room and all of its messages. Members may delete
// their own rooms; admins may delete any.
func (s *Service) DeleteRoom(ctx context.Context, roomID, actorID string, isAdmin bool) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "chat.DeleteRoom", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer span.End()

	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if !room.HasMember(actorID) && !isAdmin {
		return 0, apperrors.Forbidden("you are not a member of this chat")
	}

	removed, err := s.rooms.Delete(ctx, room.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			return 0, apperrors.NotFound("room", err)
		}
		return 0, apperrors.Storage("failed to delete chat", err)
	}

	s.logger.Info("chat room deleted", "room_id", room.ID, "actor_id", actorID, "admin", isAdmin, "messages_removed", removed)
	s.audit(ctx, telemetry.AuditRecord{
		Level:  "info",
		Action: telemetry.ActionRoomDeleted,
		Text:   "chat room deleted",
		UserID: actorID,
		Attributes: map[string]string{
			"room_id":          room.ID,
			"product_id":       room.ProductID,
			"messages_removed": strconv.FormatInt(removed, 10),
			"admin":            strconv.FormatBool(isAdmin),
		},
	})
	s.emit(context.WithoutCancel(ctx), broadcast.EventRoomDeleted, room.ID, map[string]string{"roomId": room.ID})
	return removed, nil
}

func (s *Service) loadRoom(ctx context.Context, roomID string) (models.Room, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return models.Room{}, apperrors.InvalidRequest("roomId is required")
	}
	if !validID(roomID) {
		return models.Room{}, apperrors.NotFound("room", nil)
	}
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			return models.Room{}, apperrors.NotFound("room", err)
		}
		return models.Room{}, apperrors.Storage("failed to load chat", err)
	}
	return room, nil
}

// emit hands an event to the broadcaster. Failures are logged and counted.
func (s *Service) emit(ctx context.Context, name, roomID string, data any) {
	if s.broadcaster == nil {
		return
	}
	event, err := broadcast.NewEvent(name, roomID, data)
	if err == nil {
		err = s.broadcaster.ToRoom(ctx, event)
	}
	if err != nil {
		observability.IncBroadcastError(name)
		s.logger.Warn("broadcast failed", "event", name, "room_id", roomID, "error", err)
	}
}
