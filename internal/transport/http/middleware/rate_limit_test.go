package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type fakeRateLimitStore struct {
	trimErr   error
	count     int
	countErr  error
	oldest    time.Time
	hasOldest bool
	oldestErr error
	recordErr error

	recordedKey string
	recordCalls int
}

func (f *fakeRateLimitStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	return f.trimErr
}

func (f *fakeRateLimitStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	return f.count, f.countErr
}

func (f *fakeRateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	f.recordedKey = identifier
	f.recordCalls++
	return f.recordErr
}

func (f *fakeRateLimitStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	return f.oldest, f.hasOldest, f.oldestErr
}

func performLimitedRequest(t *testing.T, store *fakeRateLimitStore, rule RateLimitRule, now time.Time) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).
		WithClock(func() time.Time { return now })

	router := gin.New()
	router.POST("/login", limiter.Limit(rule), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/login", nil)
	request.RemoteAddr = "203.0.113.9:4444"
	router.ServeHTTP(recorder, request)

	return recorder
}

func TestLimitAllowsBelowThreshold(t *testing.T) {
	now := time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{
		count:     2,
		oldest:    now.Add(-30 * time.Second),
		hasOldest: true,
	}

	recorder := performLimitedRequest(t, store, RateLimitRule{
		Name:   "login",
		Limit:  5,
		Window: time.Minute,
	}, now)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	if store.recordCalls != 1 {
		t.Fatalf("expected one recorded attempt, got %d", store.recordCalls)
	}
	if store.recordedKey != "login:203.0.113.9" {
		t.Fatalf("unexpected storage key %q", store.recordedKey)
	}
	if got := recorder.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("unexpected remaining header %q", got)
	}
}

func TestLimitRejectsAtThreshold(t *testing.T) {
	now := time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)
	oldest := now.Add(-20 * time.Second)
	store := &fakeRateLimitStore{
		count:     5,
		oldest:    oldest,
		hasOldest: true,
	}

	recorder := performLimitedRequest(t, store, RateLimitRule{
		Name:   "login",
		Limit:  5,
		Window: time.Minute,
	}, now)

	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	if store.recordCalls != 0 {
		t.Fatal("rejected request must not record an attempt")
	}

	wantRetry := strconv.Itoa(40)
	if got := recorder.Header().Get("Retry-After"); got != wantRetry {
		t.Fatalf("unexpected Retry-After %q, want %q", got, wantRetry)
	}
	if got := recorder.Header().Get("X-RateLimit-Reset"); got != strconv.FormatInt(oldest.Add(time.Minute).Unix(), 10) {
		t.Fatalf("unexpected X-RateLimit-Reset %q", got)
	}
}

func TestLimitFailsOpenOnStoreError(t *testing.T) {
	now := time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{
		countErr: context.DeadlineExceeded,
	}

	recorder := performLimitedRequest(t, store, RateLimitRule{
		Name:   "login",
		Limit:  5,
		Window: time.Minute,
	}, now)

	if recorder.Code != http.StatusOK {
		t.Fatalf("store failure should not block requests, got %d", recorder.Code)
	}
}
