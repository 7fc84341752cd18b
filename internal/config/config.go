package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/code-allocator/internal/allocator"
	"github.com/eugenenazirov/code-allocator/internal/logging"
	"github.com/eugenenazirov/code-allocator/internal/parser"
	"github.com/eugenenazirov/code-allocator/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultStorageDriver  = "memory"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	DefaultTarget        int
	QuantizationUnit     int
	ExtractionWindow     int
	OvershootWindow      int
	MaxStates            int
	MaxAmount            int
	StorageDriver        string
	StorageDSN           string
	LogLevel             string
	TracingEndpoint      string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// Settings returns the engine settings seeded into storage at start-up.
func (c Config) Settings() storage.Settings {
	return storage.Settings{
		QuantizationUnit: c.QuantizationUnit,
		ExtractionWindow: c.ExtractionWindow,
		OvershootWindow:  c.OvershootWindow,
		DefaultTarget:    c.DefaultTarget,
	}
}

// yamlConfig represents the YAML configuration file structure. Pointer fields
// distinguish an omitted key from an explicit zero.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	DefaultTarget        *int          `yaml:"default_target"`
	QuantizationUnit     *int          `yaml:"quantization_unit"`
	ExtractionWindow     *int          `yaml:"extraction_window"`
	OvershootWindow      *int          `yaml:"overshoot_window"`
	MaxStates            *int          `yaml:"max_states"`
	MaxAmount            *int          `yaml:"max_amount"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	Storage              yamlStorage   `yaml:"storage"`
	Tracing              yamlTracing   `yaml:"tracing"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

type yamlStorage struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type yamlTracing struct {
	Endpoint string `yaml:"endpoint"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides. Nil or empty values leave
// the lower layers untouched.
type CLIOverrides struct {
	ConfigFile       string
	Port             *string
	DefaultTarget    *int
	QuantizationUnit *int
	ExtractionWindow *int
	OvershootWindow  *int
	StorageDriver    *string
	StorageDSN       *string
	LogLevel         *string
	TracingEndpoint  *string
	RateLimitRPS     *float64
	RateLimitBurst   *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		DefaultTarget:        storage.DefaultTarget,
		QuantizationUnit:     allocator.DefaultUnit,
		ExtractionWindow:     allocator.DefaultExtractionWindow,
		OvershootWindow:      allocator.AutoOvershootWindow,
		MaxStates:            allocator.DefaultMaxStates,
		MaxAmount:            parser.DefaultMaxAmount,
		StorageDriver:        defaultStorageDriver,
		LogLevel:             logging.DefaultLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}
	setInt(&cfg.DefaultTarget, yamlCfg.DefaultTarget)
	setInt(&cfg.QuantizationUnit, yamlCfg.QuantizationUnit)
	setInt(&cfg.ExtractionWindow, yamlCfg.ExtractionWindow)
	setInt(&cfg.OvershootWindow, yamlCfg.OvershootWindow)
	setInt(&cfg.MaxStates, yamlCfg.MaxStates)
	setInt(&cfg.MaxAmount, yamlCfg.MaxAmount)

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.Storage.Driver != "" {
		cfg.StorageDriver = yamlCfg.Storage.Driver
	}
	if yamlCfg.Storage.DSN != "" {
		cfg.StorageDSN = yamlCfg.Storage.DSN
	}
	if yamlCfg.Tracing.Endpoint != "" {
		cfg.TracingEndpoint = yamlCfg.Tracing.Endpoint
	}

	durations := []struct {
		key   string
		raw   string
		field *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.field = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}
	return nil
}

// applyEnvConfig applies environment variable configuration. Malformed
// numeric values are reported rather than silently ignored.
func applyEnvConfig(cfg *Config) error {
	textVars := []struct {
		key   string
		field *string
	}{
		{"PORT", &cfg.Port},
		{"STORAGE_DRIVER", &cfg.StorageDriver},
		{"STORAGE_DSN", &cfg.StorageDSN},
		{"LOG_LEVEL", &cfg.LogLevel},
		{"OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.TracingEndpoint},
	}
	for _, s := range textVars {
		if value := strings.TrimSpace(os.Getenv(s.key)); value != "" {
			*s.field = value
		}
	}

	ints := []struct {
		key   string
		field *int
	}{
		{"DEFAULT_TARGET", &cfg.DefaultTarget},
		{"QUANTIZATION_UNIT", &cfg.QuantizationUnit},
		{"EXTRACTION_WINDOW", &cfg.ExtractionWindow},
		{"OVERSHOOT_WINDOW", &cfg.OvershootWindow},
		{"MAX_STATES", &cfg.MaxStates},
		{"MAX_AMOUNT", &cfg.MaxAmount},
		{"RATE_LIMIT_BURST", &cfg.RateLimitBurst},
	}
	for _, i := range ints {
		raw := strings.TrimSpace(os.Getenv(i.key))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", i.key, raw)
		}
		*i.field = value
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		value, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: invalid number %q", rps)
		}
		cfg.RateLimitRPS = value
	}
	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	setString(&cfg.Port, overrides.Port)
	setString(&cfg.StorageDriver, overrides.StorageDriver)
	setString(&cfg.StorageDSN, overrides.StorageDSN)
	setString(&cfg.LogLevel, overrides.LogLevel)
	setString(&cfg.TracingEndpoint, overrides.TracingEndpoint)
	setInt(&cfg.DefaultTarget, overrides.DefaultTarget)
	setInt(&cfg.QuantizationUnit, overrides.QuantizationUnit)
	setInt(&cfg.ExtractionWindow, overrides.ExtractionWindow)
	setInt(&cfg.OvershootWindow, overrides.OvershootWindow)
	setInt(&cfg.RateLimitBurst, overrides.RateLimitBurst)

	if overrides.RateLimitRPS != nil {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if err := cfg.Settings().Validate(); err != nil {
		return err
	}
	if cfg.MaxStates <= 0 {
		return fmt.Errorf("max states must be positive, got %d", cfg.MaxStates)
	}
	if cfg.MaxAmount <= 0 {
		return fmt.Errorf("max amount must be positive, got %d", cfg.MaxAmount)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	switch cfg.StorageDriver {
	case "memory":
	case "sqlite", "postgres":
		if cfg.StorageDSN == "" {
			return fmt.Errorf("storage driver %q requires a DSN", cfg.StorageDriver)
		}
	default:
		return fmt.Errorf("%w: %q", storage.ErrUnknownDriver, cfg.StorageDriver)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
