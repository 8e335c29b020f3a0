package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/core/port"
	"github.com/jnalv414/letip-lead-system-sub002/internal/repository"
)

// UserRepository implements port.UserRepository for PostgreSQL. The wider
// member profile lives with the CRM service; this table carries only what
// the credential check needs.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByEmail returns the account registered under the supplied address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
}

// GetByID returns the account by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r *UserRepository) getBy(ctx context.Context, cond squirrel.Eq) (*domain.User, error) {
	sqlStmt, args, err := r.builder.
		Select(
			"id",
			"email",
			"role",
			"password_hash",
			"is_active",
			"created_at",
		).
		From("auth.users").
		Where(cond).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, sqlStmt, args...)

	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
