package broadcast

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	roomID string
	frame  []byte
	except string
}

type recordingDeliverer struct {
	mu   sync.Mutex
	room []delivery
	all  [][]byte
}

func (d *recordingDeliverer) DeliverRoom(roomID string, frame []byte, exceptSession string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.room = append(d.room, delivery{roomID: roomID, frame: frame, except: exceptSession})
	return 1
}

func (d *recordingDeliverer) DeliverAll(frame []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, frame)
	return 1
}

func (d *recordingDeliverer) snapshot() ([]delivery, [][]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.room...), append([][]byte(nil), d.all...)
}

func TestEventFrameShape(t *testing.T) {
	event, err := NewEvent(EventTyping, "r1", map[string]any{"roomId": "r1", "isTyping": true})
	require.NoError(t, err)

	frame, err := event.Frame()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, "typing", decoded["event"])
	assert.Equal(t, map[string]any{"roomId": "r1", "isTyping": true}, decoded["data"])
}

func TestLocalDeliversToRoomAndAll(t *testing.T) {
	d := &recordingDeliverer{}
	local := NewLocal(d)
	ctx := context.Background()

	event, err := NewEvent(EventNewMessage, "r1", map[string]string{"text": "hi"})
	require.NoError(t, err)
	event.ExceptSession = "s1"
	require.NoError(t, local.ToRoom(ctx, event))

	all, err := NewEvent(EventPresenceChanged, "", []string{"u1"})
	require.NoError(t, err)
	require.NoError(t, local.ToAll(ctx, all))

	room, broadcasts := d.snapshot()
	require.Len(t, room, 1)
	assert.Equal(t, "r1", room[0].roomID)
	assert.Equal(t, "s1", room[0].except)
	assert.JSONEq(t, `{"event":"newMessage","data":{"text":"hi"}}`, string(room[0].frame))
	require.Len(t, broadcasts, 1)
	assert.JSONEq(t, `{"event":"onlinePresenceChanged","data":["u1"]}`, string(broadcasts[0]))
}

func TestLocalWithoutTransportIsNoop(t *testing.T) {
	var nilLocal *Local
	event, err := NewEvent(EventNewMessage, "r1", nil)
	require.NoError(t, err)

	assert.NoError(t, nilLocal.ToRoom(context.Background(), event))
	assert.NoError(t, NewLocal(nil).ToAll(context.Background(), event))
}

func TestLocalRejectsRoomEventWithoutRoom(t *testing.T) {
	event, err := NewEvent(EventNewMessage, "", nil)
	require.NoError(t, err)
	assert.Error(t, NewLocal(&recordingDeliverer{}).ToRoom(context.Background(), event))
}

func TestNATSRelayRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL not set")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := DefaultNATSConfig()
	cfg.URL = url
	cfg.SubjectPrefix = "test_chat_" + strconv.FormatInt(time.Now().UnixNano(), 10)

	d := &recordingDeliverer{}
	relay, err := NewNATSRelay(cfg, d, logger)
	require.NoError(t, err)
	defer relay.Close()

	event, err := NewEvent(EventNewMessage, "room-1", map[string]string{"text": "hi"})
	require.NoError(t, err)
	event.ExceptSession = "s9"
	require.NoError(t, relay.ToRoom(context.Background(), event))

	all, err := NewEvent(EventPresenceChanged, "", []string{"u1"})
	require.NoError(t, err)
	require.NoError(t, relay.ToAll(context.Background(), all))

	assert.Eventually(t, func() bool {
		room, broadcasts := d.snapshot()
		return len(room) == 1 && len(broadcasts) == 1
	}, 2*time.Second, 20*time.Millisecond)

	room, _ := d.snapshot()
	require.Len(t, room, 1)
	assert.Equal(t, "room-1", room[0].roomID)
	assert.Equal(t, "s9", room[0].except)
}
