package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eugenenazirov/code-allocator/internal/allocator"
)

var (
	// ErrInvalidSettings indicates the provided settings violate validation rules.
	ErrInvalidSettings = errors.New("settings require a positive unit and target, a non-negative extraction window and an overshoot window of -1 or more")
	// ErrRunNotFound is returned when no run exists for the requested id.
	ErrRunNotFound = errors.New("run not found")
	// ErrUnknownDriver is returned by Open for unsupported drivers.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

const (
	// DefaultTarget is the target sum used when a request does not name one.
	DefaultTarget = 100_000
	// DefaultListLimit bounds ListRuns when the caller passes a non-positive limit.
	DefaultListLimit = 20
	maxListLimit     = 200
)

// Settings are the engine parameters applied to subsequent computations.
type Settings struct {
	QuantizationUnit int `json:"quantizationUnit"`
	ExtractionWindow int `json:"extractionWindow"`
	// OvershootWindow bounds solver overshoot in quantized units;
	// allocator.AutoOvershootWindow means one largest item.
	OvershootWindow  int `json:"overshootWindow"`
	DefaultTarget    int `json:"defaultTarget"`
}

// DefaultSettings returns the built-in engine settings.
func DefaultSettings() Settings {
	return Settings{
		QuantizationUnit: allocator.DefaultUnit,
		ExtractionWindow: allocator.DefaultExtractionWindow,
		OvershootWindow:  allocator.AutoOvershootWindow,
		DefaultTarget:    DefaultTarget,
	}
}

// Validate reports ErrInvalidSettings when any field is out of range.
func (s Settings) Validate() error {
	if s.QuantizationUnit <= 0 || s.ExtractionWindow < 0 || s.DefaultTarget <= 0 ||
		s.OvershootWindow < allocator.AutoOvershootWindow {
		return ErrInvalidSettings
	}
	return nil
}

// RunKind distinguishes single-combination runs from batch partitions.
type RunKind string

const (
	RunKindSolve     RunKind = "solve"
	RunKindPartition RunKind = "partition"
)

// Run is one persisted computation. Result carries the JSON encoded
// outcome and is left empty by ListRuns.
type Run struct {
	ID          string          `json:"id"`
	Kind        RunKind         `json:"kind"`
	Target      int             `json:"target"`
	PoolSize    int             `json:"poolSize"`
	PoolTotal   int             `json:"poolTotal"`
	ResultCount int             `json:"resultCount"`
	CreatedAt   time.Time       `json:"createdAt"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// Storage persists engine settings and computation runs.
type Storage interface {
	GetSettings(ctx context.Context) (Settings, error)
	SetSettings(ctx context.Context, settings Settings) error
	SaveRun(ctx context.Context, run Run) (Run, error)
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Open creates the Storage named by driver. DSN is ignored for "memory".
func Open(ctx context.Context, driver, dsn string) (Storage, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "sqlite":
		return NewSQLiteStorage(dsn)
	case "postgres":
		return NewPostgresStorage(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// prepareRun fills in the identity and timestamp of a run about to be saved.
func prepareRun(run Run) Run {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if len(run.Result) == 0 {
		run.Result = json.RawMessage("null")
	}
	return run
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, maxListLimit)
}
