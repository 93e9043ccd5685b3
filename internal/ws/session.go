package ws

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Session is one connected websocket client. Its rooms set is owned by the
// Hub and only touched under the hub lock.
type Session struct {
	ID     string
	UserID string
	Info   ConnInfo

	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{}
}

func newSession(conn *websocket.Conn, info ConnInfo) *Session {
	return &Session{
		ID:     info.SessionID,
		UserID: info.UserID,
		Info:   info,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// offer queues frame without blocking. Callers hold the hub lock, which
// guarantees send is still open.
func (s *Session) offer(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// writePump drains the send channel onto the connection and keeps it alive
// with pings. It exits when the channel is closed or a write fails.
func (s *Session) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("websocket write failed", "session_id", s.ID, "error", err)
				}
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
