package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	routingKey string
	headers    map[string]string
	err        error
}

func (p *capturePublisher) Publish(_ context.Context, routingKey string, _ any, headers map[string]string) error {
	p.routingKey = routingKey
	p.headers = headers
	return p.err
}

func TestPublishEventWithoutPublisherIsNoop(t *testing.T) {
	SetPublisher(nil)
	assert.NoError(t, PublishEvent(context.Background(), RoutingWSEvents, NewEnvelope("ws_events", "ws_connect", nil), nil))
}

func TestPublishEventForwardsAndReportsErrors(t *testing.T) {
	pub := &capturePublisher{}
	SetPublisher(pub)
	t.Cleanup(func() { SetPublisher(nil) })

	ctx := WithRequestID(context.Background(), "req-1")
	require.NoError(t, PublishEvent(ctx, RoutingAudit, NewEnvelope("audit", "x", nil), HeadersFromContext(ctx)))
	assert.Equal(t, RoutingAudit, pub.routingKey)
	assert.Equal(t, map[string]string{"x-request-id": "req-1"}, pub.headers)

	pub.err = errors.New("channel closed")
	assert.Error(t, PublishEvent(ctx, RoutingAudit, nil, nil))
}

func TestIPFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", IPFromRequest(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", IPFromRequest(r))
}

func TestRequestIDPrefersContext(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Request-Id", "from-header")
	assert.Equal(t, "from-header", RequestIDFromRequest(r))

	r = r.WithContext(WithRequestID(r.Context(), "from-ctx"))
	assert.Equal(t, "from-ctx", RequestIDFromRequest(r))
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "room_id", "r1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "r1", line["room_id"])
}

func TestInitTracerWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "marketplace-chat", "test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, "collector:4317", trimScheme("http://collector:4317/"))
}
