package port

import (
	"context"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
)

// UserRepository exposes the account lookups the credential check needs.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
