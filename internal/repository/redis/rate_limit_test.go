package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRepository(t *testing.T) *RateLimitRepository {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRateLimitRepository(client, "letip:rate_limit:test", time.Minute)
}

func TestRateLimitRepository_CountWithinWindow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		if err := repo.RecordAttempt(ctx, "198.51.100.1", now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	count, err := repo.CountAttempts(ctx, "198.51.100.1", time.Minute, now.Add(3*time.Second))
	if err != nil {
		t.Fatalf("CountAttempts: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	// Attempts from a different identifier must not leak into the count.
	count, err = repo.CountAttempts(ctx, "198.51.100.2", time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestRateLimitRepository_TrimDropsOldAttempts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now()

	if err := repo.RecordAttempt(ctx, "client", now.Add(-2*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "client", now); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	if err := repo.TrimWindow(ctx, "client", time.Minute, now); err != nil {
		t.Fatalf("TrimWindow: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "client", 10*time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts: %v", err)
	}
	if count != 1 {
		t.Fatalf("count after trim = %d, want 1", count)
	}
}

func TestRateLimitRepository_OldestAttempt(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now()

	_, found, err := repo.OldestAttempt(ctx, "client", time.Minute, now)
	if err != nil {
		t.Fatalf("OldestAttempt: %v", err)
	}
	if found {
		t.Fatal("found an attempt in an empty window")
	}

	first := now.Add(-30 * time.Second)
	if err := repo.RecordAttempt(ctx, "client", first); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "client", now); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	oldest, found, err := repo.OldestAttempt(ctx, "client", time.Minute, now)
	if err != nil {
		t.Fatalf("OldestAttempt: %v", err)
	}
	if !found {
		t.Fatal("expected an attempt inside the window")
	}
	if !oldest.Equal(time.Unix(0, first.UnixNano())) {
		t.Fatalf("oldest = %v, want %v", oldest, first)
	}
}
