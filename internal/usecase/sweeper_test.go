package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
)

func TestSweeperRunsImmediatelyAndStops(t *testing.T) {
	f := newTokenFixture(t)

	f.store.insert(&domain.Session{
		ID:           "session-dead",
		UserID:       f.user.ID,
		RefreshToken: "dead-token",
		ExpiresAt:    f.clock.Now().Add(-time.Minute),
	})

	sweeper := NewSweeper(f.service, time.Hour, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	// The startup sweep should clear the expired row without waiting a tick.
	deadline := time.After(2 * time.Second)
	for f.store.len() != 0 {
		select {
		case <-deadline:
			t.Fatal("startup sweep did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
