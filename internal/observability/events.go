package observability

import "time"

// Routing keys on the service exchange.
const (
	RoutingWSEvents            = "ws_events.chats"
	RoutingMessageNotification = "notifications.message"
	RoutingAudit               = "audit.chat"
)

type EventEnvelope struct {
	EventType  string      `json:"event_type"`
	EventName  string      `json:"event_name"`
	OccurredAt string      `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// NewEnvelope stamps an envelope with the current time.
func NewEnvelope(eventType, eventName string, payload interface{}) EventEnvelope {
	return EventEnvelope{
		EventType:  eventType,
		EventName:  eventName,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:    payload,
	}
}

// WSEvent is the payload of a websocket lifecycle event.
type WSEvent struct {
	Event      string `json:"event"`
	SessionID  string `json:"session_id"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason"`
}

// Identity describes who was on the other end of a connection.
type Identity struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
