package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/code-allocator/internal/api"
	"github.com/eugenenazirov/code-allocator/internal/config"
	"github.com/eugenenazirov/code-allocator/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided
// configuration. The configured engine settings replace whatever the store
// held before; later PUT /api/settings calls apply until the next start.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := storage.Open(ctx, cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.StorageDriver, err)
	}
	if err := store.SetSettings(ctx, cfg.Settings()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to apply initial settings: %w", err)
	}

	handler := api.NewHandler(store,
		api.WithHandlerLogger(logger),
		api.WithMaxStates(cfg.MaxStates),
		api.WithMaxAmount(cfg.MaxAmount),
	)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	logger.Info("storage ready", zap.String("driver", cfg.StorageDriver))

	return &App{
		storage: store,
		handler: handler,
		router:  router,
		logger:  logger,
		server:  NewServer(cfg, router),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Close releases the storage back end. Call it after the server has stopped.
func (a *App) Close() error {
	return a.storage.Close()
}
