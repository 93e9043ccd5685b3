package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/models"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) FindOrCreate(ctx context.Context, productID, buyerID, sellerID string) (models.Room, bool, error) {
	args := m.Called(ctx, productID, buyerID, sellerID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *RoomRepositoryMock) Get(ctx context.Context, roomID string) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) UpdateLastMessage(ctx context.Context, roomID, summary string) error {
	args := m.Called(ctx, roomID, summary)
	return args.Error(0)
}

func (m *RoomRepositoryMock) Delete(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) ListByRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) LastForRooms(ctx context.Context, roomIDs []string) (map[string]models.Message, error) {
	args := m.Called(ctx, roomIDs)
	var last map[string]models.Message
	if val := args.Get(0); val != nil {
		last = val.(map[string]models.Message)
	}
	return last, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRoomRead(ctx context.Context, roomID, readerID string) (int64, error) {
	args := m.Called(ctx, roomID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var stored models.Notification
	if val := args.Get(0); val != nil {
		stored = val.(models.Notification)
	}
	return stored, args.Error(1)
}

func (m *NotificationRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	var items []models.Notification
	if val := args.Get(0); val != nil {
		items = val.([]models.Notification)
	}
	return items, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

type DirectoryRepositoryMock struct {
	mock.Mock
}

func (m *DirectoryRepositoryMock) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	args := m.Called(ctx, productID)
	var p models.Product
	if val := args.Get(0); val != nil {
		p = val.(models.Product)
	}
	return p, args.Error(1)
}

func (m *DirectoryRepositoryMock) GetProducts(ctx context.Context, productIDs []string) (map[string]models.Product, error) {
	args := m.Called(ctx, productIDs)
	var products map[string]models.Product
	if val := args.Get(0); val != nil {
		products = val.(map[string]models.Product)
	}
	return products, args.Error(1)
}

func (m *DirectoryRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

func (m *DirectoryRepositoryMock) GetUsers(ctx context.Context, userIDs []string) (map[string]models.User, error) {
	args := m.Called(ctx, userIDs)
	var users map[string]models.User
	if val := args.Get(0); val != nil {
		users = val.(map[string]models.User)
	}
	return users, args.Error(1)
}

func (m *DirectoryRepositoryMock) IsBlocked(ctx context.Context, userID, byUserID string) (bool, error) {
	args := m.Called(ctx, userID, byUserID)
	return args.Bool(0), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type UploaderMock struct {
	mock.Mock
}

func (m *UploaderMock) Upload(ctx context.Context, body io.Reader, contentType, extension, folder string) (string, error) {
	// drain so callers observe the body being consumed
	_, _ = io.Copy(io.Discard, body)
	args := m.Called(ctx, contentType, extension, folder)
	return args.String(0), args.Error(1)
}

func (m *UploaderMock) Delete(ctx context.Context, locator string) error {
	args := m.Called(ctx, locator)
	return args.Error(0)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) ToRoom(ctx context.Context, event broadcast.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *BroadcasterMock) ToAll(ctx context.Context, event broadcast.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) NotifyMessage(ctx context.Context, room models.Room, msg models.Message, sender models.User) int {
	args := m.Called(ctx, room, msg, sender)
	return args.Int(0)
}
