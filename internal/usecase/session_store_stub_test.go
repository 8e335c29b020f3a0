package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/core/port"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/security"
	"github.com/jnalv414/letip-lead-system-sub002/internal/repository"
)

// memorySessionStore mirrors the postgres repository semantics behind a
// mutex: rotation is a single critical section, so exactly one of several
// racing callers can win a token.
type memorySessionStore struct {
	mu       sync.Mutex
	byToken  map[string]*domain.Session
	window   time.Duration
	now      func() time.Time
	createFn func() error
}

func newMemorySessionStore(now func() time.Time) *memorySessionStore {
	return &memorySessionStore{
		byToken: make(map[string]*domain.Session),
		window:  7 * 24 * time.Hour,
		now:     now,
	}
}

func (m *memorySessionStore) Create(ctx context.Context, userID string, meta domain.SessionMetadata) (string, *domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createFn != nil {
		if err := m.createFn(); err != nil {
			return "", nil, err
		}
	}

	token, err := security.NewRefreshToken()
	if err != nil {
		return "", nil, err
	}

	now := m.now()
	session := &domain.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		RefreshToken: token,
		UserAgent:    meta.UserAgent,
		IPAddress:    meta.IPAddress,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.window),
	}
	m.byToken[token] = session

	return token, session, nil
}

func (m *memorySessionStore) FindByToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.byToken[refreshToken]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *memorySessionStore) Rotate(ctx context.Context, oldToken string, meta domain.SessionMetadata) (string, *domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.byToken[oldToken]
	if !ok {
		return "", nil, repository.ErrNotFound
	}

	now := m.now()
	if !session.ExpiresAt.After(now) {
		delete(m.byToken, oldToken)
		return "", nil, repository.ErrExpired
	}

	token, err := security.NewRefreshToken()
	if err != nil {
		return "", nil, err
	}

	delete(m.byToken, oldToken)
	session.RefreshToken = token
	session.ExpiresAt = now.Add(m.window)
	if meta.UserAgent != nil {
		session.UserAgent = meta.UserAgent
	}
	if meta.IPAddress != nil {
		session.IPAddress = meta.IPAddress
	}
	m.byToken[token] = session

	copied := *session
	return token, &copied, nil
}

func (m *memorySessionStore) Revoke(ctx context.Context, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for token, session := range m.byToken {
		if session.ID == sessionID && session.UserID == userID {
			delete(m.byToken, token)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memorySessionStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for token, session := range m.byToken {
		if session.UserID == userID {
			delete(m.byToken, token)
			count++
		}
	}
	return count, nil
}

func (m *memorySessionStore) ListActive(ctx context.Context, userID string) ([]domain.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var infos []domain.SessionInfo
	for _, session := range m.byToken {
		if session.UserID == userID && session.ExpiresAt.After(now) {
			infos = append(infos, session.Info())
		}
	}
	return infos, nil
}

func (m *memorySessionStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for token, session := range m.byToken {
		if !session.ExpiresAt.After(now) {
			delete(m.byToken, token)
			count++
		}
	}
	return count, nil
}

// insert seeds a session directly, bypassing token generation.
func (m *memorySessionStore) insert(session *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byToken[session.RefreshToken] = session
}

func (m *memorySessionStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byToken)
}

var _ port.SessionStore = (*memorySessionStore)(nil)

// memoryUserRepo serves fixed accounts keyed by id and email.
type memoryUserRepo struct {
	users map[string]*domain.User
}

func newMemoryUserRepo(users ...*domain.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

var _ port.UserRepository = (*memoryUserRepo)(nil)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu      sync.Mutex
	issued  []domain.SessionIssuedEvent
	rotated []domain.SessionRotatedEvent
	revoked []domain.SessionRevokedEvent
	swept   []domain.SessionsSweptEvent
}

func (p *recordingPublisher) PublishSessionIssued(_ context.Context, event domain.SessionIssuedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued = append(p.issued, event)
	return nil
}

func (p *recordingPublisher) PublishSessionRotated(_ context.Context, event domain.SessionRotatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rotated = append(p.rotated, event)
	return nil
}

func (p *recordingPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}

func (p *recordingPublisher) PublishSessionsSwept(_ context.Context, event domain.SessionsSweptEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.swept = append(p.swept, event)
	return nil
}

var _ port.EventPublisher = (*recordingPublisher)(nil)
