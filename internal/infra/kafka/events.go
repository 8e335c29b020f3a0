package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/core/port"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed session event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishSessionIssued publishes auth.session.issued events.
func (p *EventPublisher) PublishSessionIssued(ctx context.Context, event domain.SessionIssuedEvent) error {
	payload := struct {
		SessionID string    `json:"session_id"`
		UserID    string    `json:"user_id"`
		UserAgent *string   `json:"user_agent,omitempty"`
		IPAddress *string   `json:"ip_address,omitempty"`
		IssuedAt  time.Time `json:"issued_at"`
		ExpiresAt time.Time `json:"expires_at"`
	}{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		UserAgent: event.UserAgent,
		IPAddress: event.IPAddress,
		IssuedAt:  event.IssuedAt.UTC(),
		ExpiresAt: event.ExpiresAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.session.issued", event.UserID, event.IssuedAt, payload)
}

// PublishSessionRotated publishes auth.session.rotated events.
func (p *EventPublisher) PublishSessionRotated(ctx context.Context, event domain.SessionRotatedEvent) error {
	payload := struct {
		SessionID string    `json:"session_id"`
		UserID    string    `json:"user_id"`
		RotatedAt time.Time `json:"rotated_at"`
		ExpiresAt time.Time `json:"expires_at"`
	}{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		RotatedAt: event.RotatedAt.UTC(),
		ExpiresAt: event.ExpiresAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.session.rotated", event.UserID, event.RotatedAt, payload)
}

// PublishSessionRevoked publishes auth.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID string    `json:"session_id"`
		UserID    string    `json:"user_id"`
		RevokedAt time.Time `json:"revoked_at"`
		RevokedBy string    `json:"revoked_by"`
		Reason    string    `json:"reason,omitempty"`
	}{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		RevokedAt: event.RevokedAt.UTC(),
		RevokedBy: event.RevokedBy,
		Reason:    event.Reason,
	}

	return p.publish(ctx, event.EventID, "auth.session.revoked", event.UserID, event.RevokedAt, payload)
}

// PublishSessionsSwept publishes auth.session.swept events.
func (p *EventPublisher) PublishSessionsSwept(ctx context.Context, event domain.SessionsSweptEvent) error {
	payload := struct {
		SweptAt time.Time `json:"swept_at"`
		Removed int       `json:"removed"`
	}{
		SweptAt: event.SweptAt.UTC(),
		Removed: event.Removed,
	}

	return p.publish(ctx, event.EventID, "auth.session.swept", "", event.SweptAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
