package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/core/port"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/logger"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/security"
	"github.com/jnalv414/letip-lead-system-sub002/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is disabled.
	ErrInactiveAccount = errors.New("account is not active")
)

// AuthService checks credentials and hands successful logins to the token
// lifecycle for session issuance.
type AuthService struct {
	users  port.UserRepository
	tokens *TokenService
	logger *zap.Logger
}

// NewAuthService constructs the credential checking service.
func NewAuthService(users port.UserRepository, tokens *TokenService, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, logger: log}
}

// Login verifies the email and password pair and issues a token pair. Unknown
// accounts and wrong passwords collapse into ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.SessionMetadata) (*domain.TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("login rejected: unknown account",
				zap.String("email", logger.MaskEmail(email)),
			)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	match, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		s.logger.Debug("login rejected: password mismatch",
			zap.String("email", logger.MaskEmail(email)),
		)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	pair, err := s.tokens.Issue(ctx, *user, meta)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("session_id", pair.SessionID),
	)

	return pair, nil
}
