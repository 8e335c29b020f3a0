package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/core/port"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/security"
	"github.com/jnalv414/letip-lead-system-sub002/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const defaultRefreshWindow = 7 * 24 * time.Hour

// The success path of a rotation is this single conditional update: the row
// is located and replaced by its current token in one statement, so two
// callers racing on the same token cannot both win. NULL metadata arguments
// preserve the stored values; non-NULL values (including empty strings)
// overwrite them.
const rotateSessionSQL = `
UPDATE auth.sessions
   SET refresh_token = $2,
       expires_at = $3,
       user_agent = COALESCE($4, user_agent),
       ip_address = COALESCE($5, ip_address)
 WHERE refresh_token = $1
   AND expires_at > $6
RETURNING id, user_id, user_agent, ip_address, created_at, expires_at
`

const deleteExpiredByTokenSQL = `
DELETE FROM auth.sessions
 WHERE refresh_token = $1
   AND expires_at <= $2
`

// SessionRepository implements port.SessionStore backed by PostgreSQL.
type SessionRepository struct {
	pool     *pgxpool.Pool
	exec     pgExecutor
	builder  squirrel.StatementBuilderType
	window   time.Duration
	generate func() (string, error)
	now      func() time.Time
}

// NewSessionRepository constructs a repository backed by any executor that
// satisfies pgExecutor. window bounds the refresh-token lifetime.
func NewSessionRepository(exec pgExecutor, window time.Duration) *SessionRepository {
	if window <= 0 {
		window = defaultRefreshWindow
	}

	repo := &SessionRepository{
		exec:     exec,
		builder:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		window:   window,
		generate: security.NewRefreshToken,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the
// supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	clone := *r
	clone.exec = tx
	return &clone
}

// WithClock replaces the repository clock, primarily for tests and fixtures.
func (r *SessionRepository) WithClock(now func() time.Time) *SessionRepository {
	if now != nil {
		r.now = now
	}
	return r
}

// WithTokenSource replaces the refresh-token generator.
func (r *SessionRepository) WithTokenSource(generate func() (string, error)) *SessionRepository {
	if generate != nil {
		r.generate = generate
	}
	return r
}

// Create persists a new session with a fresh refresh token expiring one
// window from now and returns the raw token.
func (r *SessionRepository) Create(ctx context.Context, userID string, meta domain.SessionMetadata) (string, *domain.Session, error) {
	token, err := r.generate()
	if err != nil {
		return "", nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := r.now()
	session := domain.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		RefreshToken: token,
		UserAgent:    meta.UserAgent,
		IPAddress:    meta.IPAddress,
		CreatedAt:    now,
		ExpiresAt:    now.Add(r.window),
	}

	if err := r.Insert(ctx, session); err != nil {
		return "", nil, err
	}

	return token, &session, nil
}

// Insert persists a fully populated session row. Create is the normal entry
// point; Insert exists for seeding and expiry fixtures.
func (r *SessionRepository) Insert(ctx context.Context, session domain.Session) error {
	sqlStmt, args, err := r.builder.Insert("auth.sessions").
		Columns(
			"id",
			"user_id",
			"refresh_token",
			"user_agent",
			"ip_address",
			"created_at",
			"expires_at",
		).
		Values(
			session.ID,
			session.UserID,
			session.RefreshToken,
			session.UserAgent,
			session.IPAddress,
			session.CreatedAt,
			session.ExpiresAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// FindByToken returns the session currently holding the supplied token.
func (r *SessionRepository) FindByToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	sqlStmt, args, err := r.builder.
		Select(
			"id",
			"user_id",
			"refresh_token",
			"user_agent",
			"ip_address",
			"created_at",
			"expires_at",
		).
		From("auth.sessions").
		Where(squirrel.Eq{"refresh_token": refreshToken}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, sqlStmt, args...)

	var (
		session   domain.Session
		userAgent sql.NullString
		ipAddress sql.NullString
	)
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshToken,
		&userAgent,
		&ipAddress,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	session.UserAgent = nullableStringPtr(userAgent)
	session.IPAddress = nullableStringPtr(ipAddress)

	return &session, nil
}

// Rotate atomically swaps the session's refresh token for a new one and
// advances its expiry. Exactly one of any set of concurrent callers
// presenting the same oldToken can succeed; the rest observe ErrNotFound. A
// row that matched but already expired is deleted and reported as ErrExpired.
func (r *SessionRepository) Rotate(ctx context.Context, oldToken string, meta domain.SessionMetadata) (string, *domain.Session, error) {
	newToken, err := r.generate()
	if err != nil {
		return "", nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := r.now()
	newExpiry := now.Add(r.window)

	row := r.exec.QueryRow(ctx, rotateSessionSQL,
		oldToken,
		newToken,
		newExpiry,
		meta.UserAgent,
		meta.IPAddress,
		now,
	)

	var (
		session   domain.Session
		userAgent sql.NullString
		ipAddress sql.NullString
	)
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&userAgent,
		&ipAddress,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, r.classifyRotateMiss(ctx, oldToken, now)
		}
		return "", nil, fmt.Errorf("rotate session: %w", err)
	}

	session.RefreshToken = newToken
	session.UserAgent = nullableStringPtr(userAgent)
	session.IPAddress = nullableStringPtr(ipAddress)

	return newToken, &session, nil
}

// classifyRotateMiss distinguishes a stale token from an expired session
// after the conditional update matched nothing. Deleting the expired row here
// cannot race with a successful rotation: the update already refused it.
func (r *SessionRepository) classifyRotateMiss(ctx context.Context, oldToken string, now time.Time) error {
	ct, err := r.exec.Exec(ctx, deleteExpiredByTokenSQL, oldToken, now)
	if err != nil {
		return fmt.Errorf("delete expired session: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return repository.ErrExpired
	}
	return repository.ErrNotFound
}

// Revoke deletes exactly one session by primary key. The delete is scoped to
// the owning user so a session id leaked across accounts cannot be revoked by
// anyone but its owner.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID, userID string) error {
	sqlStmt, args, err := r.builder.Delete("auth.sessions").
		Where(squirrel.Eq{"id": sessionID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete session sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RevokeAllForUser deletes every session for the user and reports the count.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	sqlStmt, args, err := r.builder.Delete("auth.sessions").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for user: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// ListActive returns the user's non-expired sessions, newest first.
func (r *SessionRepository) ListActive(ctx context.Context, userID string) ([]domain.SessionInfo, error) {
	now := r.now()
	sqlStmt, args, err := r.builder.
		Select(
			"id",
			"user_id",
			"user_agent",
			"ip_address",
			"created_at",
			"expires_at",
		).
		From("auth.sessions").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Gt{"expires_at": now}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.SessionInfo
	for rows.Next() {
		var (
			info      domain.SessionInfo
			userAgent sql.NullString
			ipAddress sql.NullString
		)
		if err := rows.Scan(
			&info.ID,
			&info.UserID,
			&userAgent,
			&ipAddress,
			&info.CreatedAt,
			&info.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.UserAgent = nullableStringPtr(userAgent)
		info.IPAddress = nullableStringPtr(ipAddress)
		sessions = append(sessions, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// SweepExpired deletes every session past its expiry as of now.
func (r *SessionRepository) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	sqlStmt, args, err := r.builder.Delete("auth.sessions").
		Where(squirrel.Lt{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sweep sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

func nullableStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

var _ port.SessionStore = (*SessionRepository)(nil)
