// Package presence tracks which users hold a live real-time session.
package presence

import (
	"context"
	"sort"
	"sync"
)

// Registry maps online users to their current session. A user has at most
// one session; the latest SetOnline wins.
type Registry interface {
	SetOnline(ctx context.Context, userID, sessionID string) error
	// RemoveSession drops the user mapped to exactly sessionID and reports
	// whether anything was removed.
	RemoveSession(ctx context.Context, sessionID string) (bool, error)
	OnlineUserIDs(ctx context.Context) ([]string, error)
}

// Memory is the process-local Registry.
type Memory struct {
	mu       sync.Mutex
	users    map[string]string // userID -> sessionID
	sessions map[string]string // sessionID -> userID
}

// NewMemory returns an empty in-process registry.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]string),
		sessions: make(map[string]string),
	}
}

func (m *Memory) SetOnline(_ context.Context, userID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.users[userID]; ok {
		delete(m.sessions, old)
	}
	if prevUser, ok := m.sessions[sessionID]; ok && prevUser != userID {
		delete(m.users, prevUser)
	}
	m.users[userID] = sessionID
	m.sessions[sessionID] = userID
	return nil
}

func (m *Memory) RemoveSession(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}
	delete(m.sessions, sessionID)
	if m.users[userID] == sessionID {
		delete(m.users, userID)
	}
	return true, nil
}

// OnlineUserIDs returns the online users sorted by id.
func (m *Memory) OnlineUserIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	sort.Strings(ids)
	return ids, nil
}
