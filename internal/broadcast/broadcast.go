// Package broadcast pushes real-time events to connected sessions, either
// within this process or across instances through NATS.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event names sent to clients.
const (
	EventNewMessage      = "newMessage"
	EventTyping          = "typing"
	EventPresenceChanged = "onlinePresenceChanged"
	EventRoomDeleted     = "roomDeleted"
	EventError           = "error"
)

// Event is one server-to-client push. RoomID is empty for events addressed
// to every session. ExceptSession, when set, is skipped during delivery.
type Event struct {
	Name          string          `json:"name"`
	RoomID        string          `json:"roomId,omitempty"`
	ExceptSession string          `json:"exceptSession,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent marshals data into an Event.
func NewEvent(name, roomID string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("broadcast: encode %s: %w", name, err)
	}
	return Event{Name: name, RoomID: roomID, Data: raw}, nil
}

// Frame is the wire shape a client receives.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Frame encodes the event as a client frame.
func (e Event) Frame() ([]byte, error) {
	return json.Marshal(Frame{Event: e.Name, Data: e.Data})
}

// Broadcaster delivers events to subscribed sessions. Delivering to a room
// with no subscribers is not an error.
type Broadcaster interface {
	ToRoom(ctx context.Context, event Event) error
	ToAll(ctx context.Context, event Event) error
}

// Deliverer writes encoded frames to the sessions held by this process and
// returns how many sessions were reached.
type Deliverer interface {
	DeliverRoom(roomID string, frame []byte, exceptSession string) int
	DeliverAll(frame []byte) int
}

// Local delivers straight to this process's sessions.
type Local struct {
	deliverer Deliverer
}

// NewLocal constructs a Local broadcaster over d.
func NewLocal(d Deliverer) *Local {
	return &Local{deliverer: d}
}

func (l *Local) ToRoom(_ context.Context, event Event) error {
	if l == nil || l.deliverer == nil {
		return nil
	}
	if event.RoomID == "" {
		return fmt.Errorf("broadcast: %s has no room", event.Name)
	}
	frame, err := event.Frame()
	if err != nil {
		return err
	}
	l.deliverer.DeliverRoom(event.RoomID, frame, event.ExceptSession)
	return nil
}

func (l *Local) ToAll(_ context.Context, event Event) error {
	if l == nil || l.deliverer == nil {
		return nil
	}
	frame, err := event.Frame()
	if err != nil {
		return err
	}
	l.deliverer.DeliverAll(frame)
	return nil
}
