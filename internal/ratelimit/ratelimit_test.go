package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T) (Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Limiter{Client: client}, mr
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, _, err := l.Allow(ctx, "k", time.Minute, 3)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, remaining, _, err := l.Allow(ctx, "k", time.Minute, 3)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatal("fourth request should exceed the limit")
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
}

func TestAllowSeparateKeys(t *testing.T) {
	l, _ := newLimiter(t)
	ctx := context.Background()

	if allowed, _, _, _ := l.Allow(ctx, "a", time.Minute, 1); !allowed {
		t.Fatal("first key should be allowed")
	}
	if allowed, _, _, _ := l.Allow(ctx, "b", time.Minute, 1); !allowed {
		t.Fatal("second key has its own window")
	}
}

func TestAllowUnconfigured(t *testing.T) {
	var l Limiter
	if allowed, _, _, err := l.Allow(context.Background(), "k", time.Minute, 5); !allowed || err != nil {
		t.Fatalf("unconfigured limiter should allow everything, got %v/%v", allowed, err)
	}
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	l, _ := newLimiter(t)
	h := Handler{
		Limiter: l,
		Config:  Config{Window: time.Minute, Max: 1},
	}
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request code = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request code = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestMiddlewareFailsOpen(t *testing.T) {
	l, mr := newLimiter(t)
	mr.Close()

	var sawErr error
	h := Handler{
		Limiter: l,
		Config:  Config{Window: time.Minute, Max: 1},
		OnError: func(err error) { sawErr = err },
	}
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200 when limiter is unavailable", rr.Code)
	}
	if sawErr == nil {
		t.Fatal("expected limiter error to be reported")
	}
}
