package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eugenenazirov/code-allocator/internal/storage"
)

func newTestRouter(t *testing.T, logger *zap.Logger, opts ...RouterOption) http.Handler {
	t.Helper()

	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	handler := NewHandler(storage.NewMemoryStorage(), WithHandlerLogger(logger))
	return NewRouter(handler, logger, opts...)
}

func TestRouterServesEveryAPIRoute(t *testing.T) {
	router := newTestRouter(t, nil, WithLogging(false), WithRateLimit(0, 0))

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/health"},
		{http.MethodGet, "/api/settings"},
		{http.MethodPut, "/api/settings"},
		{http.MethodPost, "/api/parse"},
		{http.MethodPost, "/api/solve"},
		{http.MethodPost, "/api/partition"},
		{http.MethodGet, "/api/runs"},
		{http.MethodGet, "/api/runs/" + uuid.NewString()},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := doJSON(t, router, rt.method, rt.path, nil)
			if rec.Code == http.StatusMethodNotAllowed {
				t.Fatalf("route not registered for %s", rt.method)
			}
			if rec.Code == http.StatusNotFound {
				if body := decode[errorResponse](t, rec); body.Details == "no such endpoint" {
					t.Fatalf("route %s is not mounted", rt.path)
				}
			}
		})
	}
}

func TestAccessLogCarriesRequestFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := newTestRouter(t, zap.New(core), WithRateLimit(0, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/api/settings" || fields["method"] != http.MethodGet {
		t.Fatalf("unexpected request fields %v", fields)
	}
	if fields["status"] != int64(http.StatusOK) {
		t.Fatalf("expected logged status 200, got %v", fields["status"])
	}
	if fields["request_id"] != "req-42" {
		t.Fatalf("expected caller request id in log, got %v", fields["request_id"])
	}
}

func TestAccessLogDisabled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := newTestRouter(t, zap.New(core), WithLogging(false), WithRateLimit(0, 0))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if n := logs.FilterMessage("request completed").Len(); n != 0 {
		t.Fatalf("expected no access log entries, got %d", n)
	}
}

func TestRecoveryMiddlewareReportsPanicAsJSON(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := requestIDMiddleware(recoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("table corrupted"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/solve", nil)
	req.Header.Set("X-Request-ID", "req-panic")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
	if body := decode[errorResponse](t, rec); body.Error != "Internal error" {
		t.Fatalf("unexpected error body %+v", body)
	}
	entries := logs.FilterMessage("panic recovered").All()
	if len(entries) != 1 || entries[0].ContextMap()["request_id"] != "req-panic" {
		t.Fatalf("expected panic logged with request id, got %v", entries)
	}
}

func TestRateLimitedResponseKeepsRequestID(t *testing.T) {
	router := newTestRouter(t, nil, WithLogging(false), WithRateLimiter(&staticLimiter{allow: false}))

	rec := doJSON(t, router, http.MethodPost, "/api/solve", nil)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if _, err := uuid.Parse(rec.Header().Get("X-Request-ID")); err != nil {
		t.Fatalf("expected generated request id on rejected request: %v", err)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", rec.Header().Get("Retry-After"))
	}
	if body := decode[errorResponse](t, rec); body.Error != "Too many requests" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestRateLimitOptions(t *testing.T) {
	t.Run("zero bounds disable a configured limiter", func(t *testing.T) {
		router := newTestRouter(t, nil, WithLogging(false),
			WithRateLimiter(&staticLimiter{allow: false}), WithRateLimit(0, 0))

		if rec := doJSON(t, router, http.MethodGet, "/api/health", nil); rec.Code != http.StatusOK {
			t.Fatalf("expected limiter to be disabled, got %d", rec.Code)
		}
	})

	t.Run("token bucket rejects past the burst", func(t *testing.T) {
		router := newTestRouter(t, nil, WithLogging(false), WithRateLimit(1, 1))

		if rec := doJSON(t, router, http.MethodGet, "/api/health", nil); rec.Code != http.StatusOK {
			t.Fatalf("expected first request to succeed, got %d", rec.Code)
		}
		if rec := doJSON(t, router, http.MethodGet, "/api/health", nil); rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected second request to be limited, got %d", rec.Code)
		}
	})
}
