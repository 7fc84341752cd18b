package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/code-allocator/internal/config"
	"github.com/eugenenazirov/code-allocator/internal/storage"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	cfg.QuantizationUnit = 500
	cfg.DefaultTarget = 120_000
	logger := zaptest.NewLogger(t)

	app, err := New(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	settings, err := app.storage.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings returned error: %v", err)
	}
	if settings != cfg.Settings() {
		t.Fatalf("expected settings %+v, got %+v", cfg.Settings(), settings)
	}
	if app.server == nil || app.router == nil || app.handler == nil {
		t.Fatalf("expected server, router, and handler to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
	if app.Server().Handler != app.Handler() {
		t.Fatalf("expected server to serve the API router")
	}
}

func TestNewServesAPI(t *testing.T) {
	app, err := New(context.Background(), baseTestConfig(":0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestNewWithSQLiteStorage(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.StorageDriver = "sqlite"
	cfg.StorageDSN = filepath.Join(t.TempDir(), "app.db")

	app, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := app.storage.(*storage.SQLiteStorage); !ok {
		t.Fatalf("expected sqlite storage, got %T", app.storage)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewReturnsErrorForInvalidSettings(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.QuantizationUnit = 0

	if _, err := New(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for invalid settings")
	}
}

func TestNewReturnsErrorForUnknownStorage(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.StorageDriver = "cassandra"

	if _, err := New(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for unknown storage driver")
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                 port,
		DefaultTarget:        storage.DefaultTarget,
		QuantizationUnit:     1000,
		ExtractionWindow:     50,
		MaxStates:            1_000_000,
		MaxAmount:            200_000,
		StorageDriver:        "memory",
		LogLevel:             "info",
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
	}
}
