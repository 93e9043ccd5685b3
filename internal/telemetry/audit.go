package telemetry

import (
	"context"
	"log/slog"
	"time"

	"marketplace-chat/internal/observability"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// Audit actions emitted by the chat core.
const (
	ActionPolicyViolation = "message.policy_violation"
	ActionRoomDeleted     = "room.deleted"
)

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	logger      *slog.Logger
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level      string            `json:"level"`
	Action     string            `json:"action"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// AuditRecord is what callers hand to Emit.
type AuditRecord struct {
	Level      string
	Action     string
	Text       string
	UserID     string
	Attributes map[string]string
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string, logger *slog.Logger) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		logger:      logger,
	}
}

// Emit publishes an audit envelope. A nil emitter drops the record.
func (e *AuditEmitter) Emit(ctx context.Context, rec AuditRecord) {
	if e == nil || e.publisher == nil {
		return
	}

	requestID := observability.RequestIDFromContext(ctx)
	var userID *string
	if rec.UserID != "" {
		userID = &rec.UserID
	}
	level := rec.Level
	if level == "" {
		level = "info"
	}

	e.logger.Info("audit emit", "action", rec.Action, "level", level, "request_id", requestID, "user_id", rec.UserID)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload: AuditPayload{
			Level:      level,
			Action:     rec.Action,
			Text:       rec.Text,
			Attributes: rec.Attributes,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope, observability.HeadersFromContext(ctx)); err != nil {
		observability.IncAMQPPublishError()
		e.logger.Warn("audit publish failed", "action", rec.Action, "error", err)
	}
}
