package port

import (
	"context"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
)

// EventPublisher fans session lifecycle changes out to downstream consumers
// (audit trail, analytics). Publishing is best effort; failures are logged,
// never surfaced to the authentication caller.
type EventPublisher interface {
	PublishSessionIssued(ctx context.Context, event domain.SessionIssuedEvent) error
	PublishSessionRotated(ctx context.Context, event domain.SessionRotatedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishSessionsSwept(ctx context.Context, event domain.SessionsSweptEvent) error
}
