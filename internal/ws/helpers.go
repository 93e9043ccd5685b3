package ws

import (
	"context"
	"time"

	"marketplace-chat/internal/observability"
)

// Lifecycle event names.
const (
	eventConnect    = "ws_connect"
	eventDisconnect = "ws_disconnect"
	eventError      = "ws_error"
)

// publishLifecycle counts a lifecycle event and forwards it to the broker.
func publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	observability.IncWSEvent(event)

	var duration int64
	if event != eventConnect {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": observability.WSEvent{
			Event:      event,
			SessionID:  info.SessionID,
			DurationMS: duration,
			Reason:     reason,
		},
		"identity": observability.Identity{
			UserID:   info.UserID,
			DeviceID: info.DeviceID,
			IP:       info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, observability.RoutingWSEvents,
		observability.NewEnvelope("ws_events", event, payload),
		observability.BuildHeaders(info.RequestID, info.TraceID))
}
