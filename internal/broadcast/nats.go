package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig holds relay connection settings.
type NATSConfig struct {
	URL           string
	Name          string
	SubjectPrefix string // rooms publish on <prefix>.room.<id>, broadcasts on <prefix>.all
	ReconnectWait time.Duration
	MaxReconnects int // -1 for infinite
}

// DefaultNATSConfig returns the production defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "marketplace-chat",
		SubjectPrefix: "chat",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// NATSRelay publishes every event to NATS and delivers whatever arrives on
// the shared subjects to local sessions, so a session connected to any
// instance receives events raised on any other.
type NATSRelay struct {
	conn      *nats.Conn
	deliverer Deliverer
	prefix    string
	logger    *slog.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewNATSRelay connects to NATS and subscribes to the relay subjects.
func NewNATSRelay(cfg NATSConfig, d Deliverer, logger *slog.Logger) (*NATSRelay, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	relay := &NATSRelay{conn: nc, deliverer: d, prefix: cfg.SubjectPrefix, logger: logger}
	sub, err := nc.Subscribe(cfg.SubjectPrefix+".>", relay.handle)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	relay.sub = sub

	logger.Info("nats relay connected", "url", nc.ConnectedUrl(), "subjects", cfg.SubjectPrefix+".>")
	return relay, nil
}

func (r *NATSRelay) roomSubject(roomID string) string {
	return r.prefix + ".room." + roomID
}

func (r *NATSRelay) allSubject() string {
	return r.prefix + ".all"
}

func (r *NATSRelay) ToRoom(_ context.Context, event Event) error {
	if event.RoomID == "" {
		return fmt.Errorf("broadcast: %s has no room", event.Name)
	}
	return r.publish(r.roomSubject(event.RoomID), event)
}

func (r *NATSRelay) ToAll(_ context.Context, event Event) error {
	return r.publish(r.allSubject(), event)
}

func (r *NATSRelay) publish(subject string, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("broadcast: encode %s: %w", event.Name, err)
	}
	if err := r.conn.Publish(subject, body); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

func (r *NATSRelay) handle(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		r.logger.Warn("nats relay dropped malformed event", "subject", msg.Subject, "error", err)
		return
	}
	frame, err := event.Frame()
	if err != nil {
		r.logger.Warn("nats relay failed to encode frame", "subject", msg.Subject, "error", err)
		return
	}

	switch {
	case msg.Subject == r.allSubject():
		r.deliverer.DeliverAll(frame)
	case strings.HasPrefix(msg.Subject, r.prefix+".room."):
		roomID := strings.TrimPrefix(msg.Subject, r.prefix+".room.")
		r.deliverer.DeliverRoom(roomID, frame, event.ExceptSession)
	}
}

// Close drains the subscription and the connection.
func (r *NATSRelay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		if err := r.sub.Drain(); err != nil {
			r.logger.Warn("nats drain subscription", "error", err)
		}
		r.sub = nil
	}
	if err := r.conn.Drain(); err != nil {
		r.logger.Warn("nats drain connection", "error", err)
	}
}

// Healthy reports whether the relay currently holds a NATS connection.
func (r *NATSRelay) Healthy(context.Context) error {
	if !r.conn.IsConnected() {
		return fmt.Errorf("nats: %s", r.conn.Status())
	}
	return nil
}
