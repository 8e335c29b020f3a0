package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishSessionIssued logs auth.session.issued events.
func (p *StubPublisher) PublishSessionIssued(_ context.Context, event domain.SessionIssuedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"user_id":    event.UserID,
		"issued_at":  event.IssuedAt,
		"expires_at": event.ExpiresAt,
	}
	p.logEvent("auth.session.issued", event.UserID, event.IssuedAt, payload)
	return nil
}

// PublishSessionRotated logs auth.session.rotated events.
func (p *StubPublisher) PublishSessionRotated(_ context.Context, event domain.SessionRotatedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"user_id":    event.UserID,
		"rotated_at": event.RotatedAt,
		"expires_at": event.ExpiresAt,
	}
	p.logEvent("auth.session.rotated", event.UserID, event.RotatedAt, payload)
	return nil
}

// PublishSessionRevoked logs auth.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"user_id":    event.UserID,
		"revoked_at": event.RevokedAt,
		"revoked_by": event.RevokedBy,
		"reason":     event.Reason,
	}
	p.logEvent("auth.session.revoked", event.UserID, event.RevokedAt, payload)
	return nil
}

// PublishSessionsSwept logs auth.session.swept events.
func (p *StubPublisher) PublishSessionsSwept(_ context.Context, event domain.SessionsSweptEvent) error {
	payload := map[string]any{
		"swept_at": event.SweptAt,
		"removed":  event.Removed,
	}
	p.logEvent("auth.session.swept", "", event.SweptAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
