package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/core/port"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/logger"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/security"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/telemetry"
	"github.com/jnalv414/letip-lead-system-sub002/internal/repository"
)

// ErrUnauthorized is the single error surfaced to callers for every
// authentication failure. Unknown, expired, malformed and revoked tokens are
// indistinguishable from the outside; the underlying cause is only logged.
var ErrUnauthorized = errors.New("unauthorized")

// TokenService owns the token lifecycle: issuing access/refresh pairs,
// verifying access tokens, rotating refresh tokens and revoking sessions.
type TokenService struct {
	codec    *security.ClaimsCodec
	sessions port.SessionStore
	users    port.UserRepository
	events   port.EventPublisher
	metrics  *telemetry.TokenMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewTokenService wires the lifecycle dependencies. events and metrics may be
// nil; both are optional observers.
func NewTokenService(codec *security.ClaimsCodec, sessions port.SessionStore, users port.UserRepository, events port.EventPublisher, metrics *telemetry.TokenMetrics, log *zap.Logger) *TokenService {
	if log == nil {
		log = zap.NewNop()
	}

	return &TokenService{
		codec:    codec,
		sessions: sessions,
		users:    users,
		events:   events,
		metrics:  metrics,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs an access token and persists a new session for the user. The
// session is created first so a storage fault never leaks a signed access
// token paired with no server-side session.
func (s *TokenService) Issue(ctx context.Context, user domain.User, meta domain.SessionMetadata) (*domain.TokenPair, error) {
	if user.ID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	refreshToken, session, err := s.sessions.Create(ctx, user.ID, meta)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	accessToken, err := s.codec.Sign(user.ID, user.Email, user.Role)
	if err != nil {
		// Roll the orphaned session back; best effort.
		if revokeErr := s.sessions.Revoke(ctx, session.ID, user.ID); revokeErr != nil && !errors.Is(revokeErr, repository.ErrNotFound) {
			s.logger.Warn("failed to revoke session after signing failure",
				zap.String("session_id", session.ID),
				zap.Error(revokeErr),
			)
		}
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Issued.Inc()
	}

	s.publishIssued(ctx, session)

	s.logger.Info("session issued",
		zap.String("session_id", session.ID),
		zap.String("user_id", logger.MaskToken(user.ID)),
		zap.Time("expires_at", session.ExpiresAt),
	)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    session.ID,
	}, nil
}

// VerifyAccess validates an access token purely against its signature and
// embedded expiry. No session lookup happens here; revocation only cuts off
// the refresh path.
func (s *TokenService) VerifyAccess(token string) (*security.AccessClaims, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		s.logger.Debug("access token rejected", zap.Error(err))
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Rotate exchanges a refresh token for a fresh pair. The exchange is a single
// conditional write in the store, so concurrent calls with the same token
// produce exactly one winner; every loser gets ErrUnauthorized.
func (s *TokenService) Rotate(ctx context.Context, oldToken string, meta domain.SessionMetadata) (*domain.TokenPair, error) {
	if oldToken == "" {
		s.countRotation(telemetry.RotationUnauthorized)
		return nil, ErrUnauthorized
	}

	newToken, session, err := s.sessions.Rotate(ctx, oldToken, meta)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.countRotation(telemetry.RotationUnauthorized)
			s.logger.Debug("rotation rejected: token unknown or already used",
				zap.String("token_sha256", security.HashToken(oldToken)),
			)
			return nil, ErrUnauthorized
		case errors.Is(err, repository.ErrExpired):
			s.countRotation(telemetry.RotationExpired)
			s.logger.Debug("rotation rejected: session expired",
				zap.String("token_sha256", security.HashToken(oldToken)),
			)
			return nil, ErrUnauthorized
		default:
			s.countRotation(telemetry.RotationError)
			return nil, fmt.Errorf("rotate session: %w", err)
		}
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.countRotation(telemetry.RotationUnauthorized)
			s.logger.Warn("rotated session references missing user",
				zap.String("session_id", session.ID),
			)
			return nil, ErrUnauthorized
		}
		s.countRotation(telemetry.RotationError)
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !user.IsActive {
		s.countRotation(telemetry.RotationUnauthorized)
		if revokeErr := s.sessions.Revoke(ctx, session.ID, session.UserID); revokeErr != nil && !errors.Is(revokeErr, repository.ErrNotFound) {
			s.logger.Warn("failed to revoke session of inactive user", zap.Error(revokeErr))
		}
		return nil, ErrUnauthorized
	}

	accessToken, err := s.codec.Sign(user.ID, user.Email, user.Role)
	if err != nil {
		s.countRotation(telemetry.RotationError)
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.countRotation(telemetry.RotationOK)
	s.publishRotated(ctx, session)

	s.logger.Info("session rotated",
		zap.String("session_id", session.ID),
		zap.Time("expires_at", session.ExpiresAt),
	)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newToken,
		SessionID:    session.ID,
	}, nil
}

// Logout revokes a single session owned by userID. An unknown session id and
// a session owned by someone else both report ErrUnauthorized, so callers
// cannot probe for live session ids or revoke sessions they do not own.
func (s *TokenService) Logout(ctx context.Context, sessionID, userID string) error {
	if err := s.sessions.Revoke(ctx, sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("revoke session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Revoked.Inc()
	}

	s.publishRevoked(ctx, sessionID, userID, "logout")

	s.logger.Info("session revoked", zap.String("session_id", sessionID))
	return nil
}

// LogoutAll revokes every session the user owns and returns the count. A user
// with no sessions gets zero, not an error.
func (s *TokenService) LogoutAll(ctx context.Context, userID string) (int, error) {
	count, err := s.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Revoked.Add(float64(count))
	}

	if count > 0 {
		s.publishRevoked(ctx, "", userID, "logout_all")
	}

	s.logger.Info("all sessions revoked",
		zap.String("user_id", logger.MaskToken(userID)),
		zap.Int("count", count),
	)

	return count, nil
}

// ListSessions returns the user's active sessions without raw tokens.
func (s *TokenService) ListSessions(ctx context.Context, userID string) ([]domain.SessionInfo, error) {
	sessions, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Sweep removes every session past its expiry and returns the count removed.
func (s *TokenService) Sweep(ctx context.Context) (int, error) {
	now := s.now()

	removed, err := s.sessions.SweepExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Swept.Add(float64(removed))
	}

	if removed > 0 && s.events != nil {
		event := domain.SessionsSweptEvent{
			EventID: uuid.NewString(),
			SweptAt: now,
			Removed: removed,
		}
		if err := s.events.PublishSessionsSwept(ctx, event); err != nil {
			s.logger.Warn("failed to publish sweep event", zap.Error(err))
		}
	}

	return removed, nil
}

func (s *TokenService) countRotation(result string) {
	if s.metrics != nil {
		s.metrics.Rotations.WithLabelValues(result).Inc()
	}
}

func (s *TokenService) publishIssued(ctx context.Context, session *domain.Session) {
	if s.events == nil {
		return
	}

	event := domain.SessionIssuedEvent{
		EventID:   uuid.NewString(),
		SessionID: session.ID,
		UserID:    session.UserID,
		UserAgent: session.UserAgent,
		IPAddress: session.IPAddress,
		IssuedAt:  session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	if err := s.events.PublishSessionIssued(ctx, event); err != nil {
		s.logger.Warn("failed to publish issue event",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}

func (s *TokenService) publishRotated(ctx context.Context, session *domain.Session) {
	if s.events == nil {
		return
	}

	event := domain.SessionRotatedEvent{
		EventID:   uuid.NewString(),
		SessionID: session.ID,
		UserID:    session.UserID,
		RotatedAt: s.now(),
		ExpiresAt: session.ExpiresAt,
	}
	if err := s.events.PublishSessionRotated(ctx, event); err != nil {
		s.logger.Warn("failed to publish rotation event",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}

func (s *TokenService) publishRevoked(ctx context.Context, sessionID, userID, reason string) {
	if s.events == nil {
		return
	}

	event := domain.SessionRevokedEvent{
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		RevokedAt: s.now(),
		RevokedBy: userID,
		Reason:    reason,
	}
	if err := s.events.PublishSessionRevoked(ctx, event); err != nil {
		s.logger.Warn("failed to publish revoke event",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}
