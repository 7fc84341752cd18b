package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticLimiter struct {
	allow bool
}

func (s *staticLimiter) Allow() bool {
	return s.allow
}

func TestRateLimitMiddlewareBlocksWhenLimiterDenies(t *testing.T) {
	middleware := rateLimitMiddleware(&staticLimiter{allow: false})(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRateLimitMiddlewarePassesWhenLimiterAllows(t *testing.T) {
	var called bool
	middleware := rateLimitMiddleware(&staticLimiter{allow: true})(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to execute when limiter allows")
	}
}

func TestNewTokenBucketLimiterDisabledForNonPositiveBounds(t *testing.T) {
	for _, tc := range []struct {
		rps   float64
		burst int
	}{{0, 10}, {-1, 10}, {5, 0}, {5, -1}} {
		if limiter := newTokenBucketLimiter(tc.rps, tc.burst); limiter != nil {
			t.Fatalf("expected no limiter for rps=%v burst=%d", tc.rps, tc.burst)
		}
	}
}

func TestNewTokenBucketLimiterAllowsBurst(t *testing.T) {
	limiter := newTokenBucketLimiter(1, 2)
	if limiter == nil {
		t.Fatalf("expected limiter instance")
	}
	if !limiter.Allow() || !limiter.Allow() {
		t.Fatalf("expected burst of two to be allowed")
	}
	if limiter.Allow() {
		t.Fatalf("expected third immediate request to be denied")
	}
}
