package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/repositories"
)

// memStore backs rooms, messages and the directory in memory.
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	rooms    map[string]models.Room
	messages []models.Message
	users    map[string]models.User
	products map[string]models.Product
	blocks   map[[2]string]bool
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		rooms:    map[string]models.Room{},
		users:    map[string]models.User{},
		products: map[string]models.Product{},
		blocks:   map[[2]string]bool{},
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) addUser(first string) models.User {
	u := models.User{ID: uuid.NewString(), FirstName: first, LastName: "Test", Email: first + "@example.com"}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addProduct(posterID, title string) models.Product {
	p := models.Product{ID: uuid.NewString(), PosterID: posterID, Title: title, Price: 10}
	s.products[p.ID] = p
	return p
}

func samePair(r models.Room, a, b string) bool {
	return (r.BuyerID == a && r.SellerID == b) || (r.BuyerID == b && r.SellerID == a)
}

func (s *memStore) FindOrCreate(_ context.Context, productID, buyerID, sellerID string) (models.Room, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.ProductID == productID && samePair(r, buyerID, sellerID) {
			return r, false, nil
		}
	}
	now := s.tick()
	r := models.Room{ID: uuid.NewString(), ProductID: productID, BuyerID: buyerID, SellerID: sellerID, CreatedAt: now, UpdatedAt: now}
	s.rooms[r.ID] = r
	return r, true, nil
}

func (s *memStore) Get(_ context.Context, roomID string) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return models.Room{}, repositories.ErrRoomNotFound
	}
	return r, nil
}

func (s *memStore) ListForUser(_ context.Context, userID string) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Room
	for _, r := range s.rooms {
		if r.HasMember(userID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *memStore) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	return ok && r.HasMember(userID), nil
}

func (s *memStore) UpdateLastMessage(_ context.Context, roomID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return repositories.ErrRoomNotFound
	}
	r.LastMessage = summary
	r.UpdatedAt = s.tick()
	s.rooms[roomID] = r
	return nil
}

func (s *memStore) Delete(_ context.Context, roomID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return 0, repositories.ErrRoomNotFound
	}
	delete(s.rooms, roomID)
	kept := s.messages[:0]
	var removed int64
	for _, m := range s.messages {
		if m.RoomID == roomID {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	return removed, nil
}

func (s *memStore) Create(_ context.Context, msg models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[msg.RoomID]; !ok {
		return models.Message{}, repositories.ErrRoomNotFound
	}
	msg.CreatedAt = s.tick()
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *memStore) ListByRoom(_ context.Context, roomID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) LastForRooms(_ context.Context, roomIDs []string) (map[string]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]models.Message{}
	for _, id := range roomIDs {
		for _, m := range s.messages {
			if m.RoomID == id {
				out[id] = m
			}
		}
	}
	return out, nil
}

func (s *memStore) MarkRoomRead(_ context.Context, roomID, readerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i, m := range s.messages {
		if m.RoomID == roomID && m.SenderID != readerID && !m.Read {
			s.messages[i].Read = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetProduct(_ context.Context, productID string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return models.Product{}, repositories.ErrProductNotFound
	}
	return p, nil
}

func (s *memStore) GetProducts(_ context.Context, productIDs []string) (map[string]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]models.Product{}
	for _, id := range productIDs {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *memStore) GetUser(_ context.Context, userID string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return models.User{}, repositories.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) GetUsers(_ context.Context, userIDs []string) (map[string]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]models.User{}
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *memStore) IsBlocked(_ context.Context, userID, byUserID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks[[2]string{userID, byUserID}], nil
}

// recorder captures broadcast events and notifications.
type recorder struct {
	mu         sync.Mutex
	events     []string
	rooms      []string
	notified   []string
	recipients []string
}

func (r *recorder) ToRoom(_ context.Context, e broadcast.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Name)
	r.rooms = append(r.rooms, e.RoomID)
	return nil
}

func (r *recorder) ToAll(_ context.Context, e broadcast.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Name)
	return nil
}

func (r *recorder) NotifyMessage(_ context.Context, room models.Room, msg models.Message, _ models.User) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, msg.ID)
	r.recipients = append(r.recipients, room.OtherMember(msg.SenderID))
	return 1
}
