package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/security"
)

func newAuthFixture(t *testing.T, password string) (*AuthService, *tokenFixture) {
	t.Helper()

	f := newTokenFixture(t)

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	f.user.PasswordHash = hash
	f.users.users[f.user.ID] = f.user

	return NewAuthService(f.users, f.service, zaptest.NewLogger(t)), f
}

func TestLoginSuccess(t *testing.T) {
	auth, f := newAuthFixture(t, "correct horse battery staple")

	pair, err := auth.Login(context.Background(), "alice@example.com", "correct horse battery staple", domain.SessionMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("incomplete token pair: %+v", pair)
	}
	if f.store.len() != 1 {
		t.Fatalf("expected one session, got %d", f.store.len())
	}
}

func TestLoginNormalizesEmail(t *testing.T) {
	auth, _ := newAuthFixture(t, "pw-123456")

	if _, err := auth.Login(context.Background(), "  ALICE@Example.COM ", "pw-123456", domain.SessionMetadata{}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	auth, f := newAuthFixture(t, "pw-123456")

	_, err := auth.Login(context.Background(), "alice@example.com", "wrong", domain.SessionMetadata{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	if f.store.len() != 0 {
		t.Fatal("failed login must not create a session")
	}
}

func TestLoginUnknownAccount(t *testing.T) {
	auth, _ := newAuthFixture(t, "pw-123456")

	_, err := auth.Login(context.Background(), "nobody@example.com", "pw-123456", domain.SessionMetadata{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	auth, f := newAuthFixture(t, "pw-123456")
	f.user.IsActive = false
	f.users.users[f.user.ID] = f.user

	_, err := auth.Login(context.Background(), "alice@example.com", "pw-123456", domain.SessionMetadata{})
	if !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("got %v, want ErrInactiveAccount", err)
	}
}
