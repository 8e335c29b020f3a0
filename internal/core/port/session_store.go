package port

import (
	"context"
	"time"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
)

// SessionStore is the durable home of session rows. It is the only component
// holding shared mutable state; Rotate must be a single atomic conditional
// write so that two callers racing on the same token cannot both succeed.
type SessionStore interface {
	// Create persists a new session with a freshly generated refresh token
	// and returns the raw token.
	Create(ctx context.Context, userID string, meta domain.SessionMetadata) (string, *domain.Session, error)

	// FindByToken returns the session owning the supplied refresh token.
	FindByToken(ctx context.Context, refreshToken string) (*domain.Session, error)

	// Rotate atomically replaces the refresh token and advances the expiry of
	// the session currently holding oldToken. The old token is invalid the
	// instant the call succeeds. A matching but already expired row is
	// deleted and the call fails with repository.ErrExpired.
	Rotate(ctx context.Context, oldToken string, meta domain.SessionMetadata) (string, *domain.Session, error)

	// Revoke deletes exactly one session by id, but only when it is owned by
	// userID. A foreign or unknown session reports repository.ErrNotFound.
	Revoke(ctx context.Context, sessionID, userID string) error

	// RevokeAllForUser deletes every session owned by the user and reports
	// how many were removed. Zero is a valid result.
	RevokeAllForUser(ctx context.Context, userID string) (int, error)

	// ListActive returns the non-expired sessions for a user, most recently
	// created first, projected without the raw token.
	ListActive(ctx context.Context, userID string) ([]domain.SessionInfo, error)

	// SweepExpired deletes every session past its expiry as of the supplied
	// moment and reports the count removed. Idempotent.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
