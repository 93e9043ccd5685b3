package ws

import "time"

// ConnInfo identifies one websocket session for lifecycle events.
type ConnInfo struct {
	SessionID   string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
