package ws

import (
	"sync"

	"marketplace-chat/internal/observability"
)

// sendBuffer is the number of frames a session may fall behind before it
// is dropped.
const sendBuffer = 256

// Hub tracks connected sessions and the rooms each one has joined. It
// implements broadcast.Deliverer.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]map[string]*Session
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
	}
}

// Register adds a session.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID] = s
}

// Unregister removes a session from every room and closes its send
// channel. It reports whether the session was still registered.
func (h *Hub) Unregister(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unregisterLocked(s)
}

func (h *Hub) unregisterLocked(s *Session) bool {
	if _, ok := h.sessions[s.ID]; !ok {
		return false
	}
	delete(h.sessions, s.ID)
	for roomID := range s.rooms {
		h.leaveLocked(s, roomID)
	}
	close(s.send)
	return true
}

// Join subscribes a registered session to a room.
func (h *Hub) Join(s *Session, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s.ID]; !ok {
		return false
	}
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*Session)
		h.rooms[roomID] = members
	}
	members[s.ID] = s
	s.rooms[roomID] = struct{}{}
	return true
}

// Leave unsubscribes a session from a room.
func (h *Hub) Leave(s *Session, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s, roomID)
}

func (h *Hub) leaveLocked(s *Session, roomID string) {
	delete(s.rooms, roomID)
	if members, ok := h.rooms[roomID]; ok {
		delete(members, s.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// InRoom reports whether the session has joined roomID.
func (h *Hub) InRoom(s *Session, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

// RoomSize returns the number of sessions joined to roomID.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// DeliverRoom queues frame for every session in roomID except
// exceptSession and returns how many sessions accepted it.
func (h *Hub) DeliverRoom(roomID string, frame []byte, exceptSession string) int {
	h.mu.RLock()
	var delivered int
	var slow []*Session
	for id, s := range h.rooms[roomID] {
		if id == exceptSession {
			continue
		}
		if s.offer(frame) {
			delivered++
		} else {
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	h.drop(slow)
	return delivered
}

// DeliverAll queues frame for every registered session.
func (h *Hub) DeliverAll(frame []byte) int {
	h.mu.RLock()
	var delivered int
	var slow []*Session
	for _, s := range h.sessions {
		if s.offer(frame) {
			delivered++
		} else {
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	h.drop(slow)
	return delivered
}

// DeliverSession queues frame for a single session.
func (h *Hub) DeliverSession(sessionID string, frame []byte) bool {
	h.mu.RLock()
	s, ok := h.sessions[sessionID]
	delivered := ok && s.offer(frame)
	h.mu.RUnlock()

	if ok && !delivered {
		h.drop([]*Session{s})
	}
	return delivered
}

// drop disconnects sessions whose send buffer is full.
func (h *Hub) drop(slow []*Session) {
	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range slow {
		if h.unregisterLocked(s) {
			observability.IncWSDroppedSession()
		}
	}
}

// CloseAll unregisters every session, which makes their write pumps send a
// close frame and exit.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		h.unregisterLocked(s)
	}
}
