package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"marketplace-chat/internal/chat"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/notifications"
)

type chatServiceMock struct {
	mock.Mock
}

func (m *chatServiceMock) InitRoom(ctx context.Context, productID, userID string) (models.RoomInit, error) {
	args := m.Called(ctx, productID, userID)
	return args.Get(0).(models.RoomInit), args.Error(1)
}

func (m *chatServiceMock) ListRoomsForUser(ctx context.Context, userID string) ([]models.RoomListing, error) {
	args := m.Called(ctx, userID)
	var out []models.RoomListing
	if val := args.Get(0); val != nil {
		out = val.([]models.RoomListing)
	}
	return out, args.Error(1)
}

func (m *chatServiceMock) DeleteRoom(ctx context.Context, roomID, actorID string, isAdmin bool) (int64, error) {
	args := m.Called(ctx, roomID, actorID, isAdmin)
	return args.Get(0).(int64), args.Error(1)
}

func (m *chatServiceMock) SendMessage(ctx context.Context, in chat.SendInput) (models.MessageView, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.MessageView), args.Error(1)
}

func (m *chatServiceMock) ListMessages(ctx context.Context, roomID, viewerID string) ([]models.MessageView, error) {
	args := m.Called(ctx, roomID, viewerID)
	var out []models.MessageView
	if val := args.Get(0); val != nil {
		out = val.([]models.MessageView)
	}
	return out, args.Error(1)
}

func (m *chatServiceMock) MarkRoomRead(ctx context.Context, roomID, readerID string) (int64, error) {
	args := m.Called(ctx, roomID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

type notificationServiceMock struct {
	mock.Mock
}

func (m *notificationServiceMock) Create(ctx context.Context, in notifications.Input) (models.Notification, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.Notification), args.Error(1)
}

func (m *notificationServiceMock) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	var out []models.Notification
	if val := args.Get(0); val != nil {
		out = val.([]models.Notification)
	}
	return out, args.Error(1)
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}
