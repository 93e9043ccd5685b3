package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(id string) *Session {
	return newSession(nil, ConnInfo{SessionID: id, UserID: "user-" + id, ConnectedAt: time.Now()})
}

func drain(s *Session) []string {
	var frames []string
	for {
		select {
		case f, ok := <-s.send:
			if !ok {
				return frames
			}
			frames = append(frames, string(f))
		default:
			return frames
		}
	}
}

func TestHubJoinAndLeave(t *testing.T) {
	hub := NewHub()
	s := testSession("a")

	assert.False(t, hub.Join(s, "room-1"), "unregistered sessions cannot join")

	hub.Register(s)
	require.True(t, hub.Join(s, "room-1"))
	assert.Equal(t, 1, hub.RoomSize("room-1"))
	assert.True(t, hub.InRoom(s, "room-1"))

	hub.Leave(s, "room-1")
	assert.Equal(t, 0, hub.RoomSize("room-1"))
	assert.Empty(t, hub.rooms)
}

func TestHubDeliverRoomIsolatesRooms(t *testing.T) {
	hub := NewHub()
	a, b, c := testSession("a"), testSession("b"), testSession("c")
	for _, s := range []*Session{a, b, c} {
		hub.Register(s)
	}
	hub.Join(a, "room-A")
	hub.Join(b, "room-A")
	hub.Join(c, "room-B")

	n := hub.DeliverRoom("room-A", []byte("hello-A"), "")
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"hello-A"}, drain(a))
	assert.Equal(t, []string{"hello-A"}, drain(b))
	assert.Empty(t, drain(c))

	assert.Zero(t, hub.DeliverRoom("room-empty", []byte("x"), ""))
}

func TestHubDeliverRoomSkipsExceptSession(t *testing.T) {
	hub := NewHub()
	a, b := testSession("a"), testSession("b")
	hub.Register(a)
	hub.Register(b)
	hub.Join(a, "room")
	hub.Join(b, "room")

	assert.Equal(t, 1, hub.DeliverRoom("room", []byte("typing"), "a"))
	assert.Empty(t, drain(a))
	assert.Equal(t, []string{"typing"}, drain(b))
}

func TestHubDeliverAll(t *testing.T) {
	hub := NewHub()
	a, b := testSession("a"), testSession("b")
	hub.Register(a)
	hub.Register(b)
	hub.Join(a, "room")

	assert.Equal(t, 2, hub.DeliverAll([]byte("presence")))
	assert.Equal(t, []string{"presence"}, drain(a))
	assert.Equal(t, []string{"presence"}, drain(b))
}

func TestHubDropsSlowSession(t *testing.T) {
	hub := NewHub()
	slow, fast := testSession("slow"), testSession("fast")
	hub.Register(slow)
	hub.Register(fast)
	hub.Join(slow, "room")
	hub.Join(fast, "room")

	for i := 0; i < sendBuffer; i++ {
		slow.send <- []byte("backlog")
	}

	assert.Equal(t, 1, hub.DeliverRoom("room", []byte("next"), ""))
	assert.Equal(t, 1, hub.SessionCount())
	assert.Equal(t, 1, hub.RoomSize("room"))

	frames := drain(slow)
	assert.Len(t, frames, sendBuffer)
	_, open := <-slow.send
	assert.False(t, open, "dropped session's channel is closed")
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	s := testSession("a")
	hub.Register(s)
	hub.Join(s, "r1")
	hub.Join(s, "r2")

	assert.True(t, hub.Unregister(s))
	assert.False(t, hub.Unregister(s))
	assert.Zero(t, hub.RoomSize("r1"))
	assert.Zero(t, hub.RoomSize("r2"))
	assert.False(t, hub.DeliverSession("a", []byte("x")))
}

func TestHubCloseAll(t *testing.T) {
	hub := NewHub()
	hub.Register(testSession("a"))
	hub.Register(testSession("b"))

	hub.CloseAll()
	assert.Zero(t, hub.SessionCount())
}
