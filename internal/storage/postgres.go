package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed postgres_schema.sql
var postgresSchema string

// PostgresStorage persists settings and runs in PostgreSQL through a pgx pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

var _ Storage = (*PostgresStorage)(nil)

// NewPostgresStorage connects to the database at dsn and applies the schema.
func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres storage requires a connection string")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStorage{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) initSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	defaults := DefaultSettings()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO allocator_settings (id, quantization_unit, extraction_window, overshoot_window, default_target)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		defaults.QuantizationUnit, defaults.ExtractionWindow, defaults.OvershootWindow, defaults.DefaultTarget,
	)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

// GetSettings returns the stored settings.
func (s *PostgresStorage) GetSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	err := s.pool.QueryRow(ctx,
		`SELECT quantization_unit, extraction_window, overshoot_window, default_target FROM allocator_settings WHERE id = 1`,
	).Scan(&settings.QuantizationUnit, &settings.ExtractionWindow, &settings.OvershootWindow, &settings.DefaultTarget)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// SetSettings validates and stores settings.
func (s *PostgresStorage) SetSettings(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE allocator_settings
		SET quantization_unit = $1, extraction_window = $2, overshoot_window = $3, default_target = $4
		WHERE id = 1`,
		settings.QuantizationUnit, settings.ExtractionWindow, settings.OvershootWindow, settings.DefaultTarget,
	)
	if err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}

// SaveRun inserts run and returns it with its assigned id and timestamp.
func (s *PostgresStorage) SaveRun(ctx context.Context, run Run) (Run, error) {
	run = prepareRun(run)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO allocator_runs (id, kind, target, pool_size, pool_total, result_count, created_at, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID,
		string(run.Kind),
		run.Target,
		run.PoolSize,
		run.PoolTotal,
		run.ResultCount,
		run.CreatedAt,
		string(run.Result),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// GetRun loads a run including its result.
func (s *PostgresStorage) GetRun(ctx context.Context, id string) (Run, error) {
	// Anything that is not a UUID cannot match the primary key.
	if _, err := uuid.Parse(id); err != nil {
		return Run{}, ErrRunNotFound
	}

	var (
		run    Run
		kind   string
		result string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, kind, target, pool_size, pool_total, result_count, created_at, result::text
		FROM allocator_runs WHERE id = $1`, id,
	).Scan(&run.ID, &kind, &run.Target, &run.PoolSize, &run.PoolTotal, &run.ResultCount, &run.CreatedAt, &result)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("load run: %w", err)
	}
	run.Kind = RunKind(kind)
	run.CreatedAt = run.CreatedAt.UTC()
	run.Result = []byte(result)
	return run, nil
}

// ListRuns returns up to limit runs, newest first, without their results.
func (s *PostgresStorage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, kind, target, pool_size, pool_total, result_count, created_at
		FROM allocator_runs ORDER BY created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run  Run
			kind string
		)
		if err := rows.Scan(&run.ID, &kind, &run.Target, &run.PoolSize, &run.PoolTotal, &run.ResultCount, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Kind = RunKind(kind)
		run.CreatedAt = run.CreatedAt.UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
