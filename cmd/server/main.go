package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/code-allocator/internal/application"
	"github.com/eugenenazirov/code-allocator/internal/config"
	"github.com/eugenenazirov/code-allocator/internal/logging"
	"github.com/eugenenazirov/code-allocator/internal/telemetry"
)

const version = "1.0.0"

var signalNotify = signal.Notify

func main() {
	overrides, err := parseFlags(os.Args[1:])
	kingpin.FatalIfError(err, "invalid arguments")

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx, version, cfg.TracingEndpoint)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	drain(app.Server(), app, shutdownTracing, cfg.ShutdownGracePeriod, logger)
}

// drain blocks until a termination signal stops the server, then closes
// storage and flushes pending spans, in that order.
func drain(server *http.Server, store io.Closer, flushTraces telemetry.ShutdownFunc, grace time.Duration, logger *zap.Logger) {
	shutdown(server, grace, logger)

	if err := store.Close(); err != nil {
		logger.Warn("closing storage failed", zap.Error(err))
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := flushTraces(flushCtx); err != nil {
		logger.Warn("flushing traces failed", zap.Error(err))
	}
}

// parseFlags maps command-line flags onto config overrides. Flags that were
// not given stay nil so lower configuration layers apply.
func parseFlags(args []string) (*config.CLIOverrides, error) {
	app := kingpin.New("allocator-server", "Code Allocator - splits pasted code pools into target-sized sets")
	app.Version(version)
	configFile := app.Flag("config", "Path to YAML configuration file").String()
	port := app.Flag("port", "HTTP port exposed by the service").String()
	target := app.Flag("default-target", "Target used when a request does not name one").Default("-1").Int()
	unit := app.Flag("unit", "Quantization unit applied to amounts").Default("-1").Int()
	window := app.Flag("window", "Extraction window above the target, in quantized units").Default("-1").Int()
	var overshootSet bool
	overshoot := app.Flag("overshoot-window", "Solver overshoot bound in quantized units (-1 sizes it to the largest item)").
		IsSetByUser(&overshootSet).Int()
	storageDriver := app.Flag("storage", "Storage driver").Enum("memory", "sqlite", "postgres")
	dsn := app.Flag("dsn", "Storage DSN (SQLite path or PostgreSQL URL)").String()
	logLevel := app.Flag("log-level", "Log level (debug, info, warn, error)").String()
	otlpEndpoint := app.Flag("otlp-endpoint", "OTLP/HTTP trace collector URL").String()
	rateLimitRPS := app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurst := app.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}

	overrides := &config.CLIOverrides{
		ConfigFile:      *configFile,
		Port:            port,
		StorageDriver:   storageDriver,
		StorageDSN:      dsn,
		LogLevel:        logLevel,
		TracingEndpoint: otlpEndpoint,
	}
	if *target >= 0 {
		overrides.DefaultTarget = target
	}
	if *unit >= 0 {
		overrides.QuantizationUnit = unit
	}
	if *window >= 0 {
		overrides.ExtractionWindow = window
	}
	if overshootSet {
		overrides.OvershootWindow = overshoot
	}
	if *rateLimitRPS >= 0 {
		overrides.RateLimitRPS = rateLimitRPS
	}
	if *rateLimitBurst >= 0 {
		overrides.RateLimitBurst = rateLimitBurst
	}

	return overrides, nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
