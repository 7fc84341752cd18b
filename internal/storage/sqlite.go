package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Fixed width keeps lexical and chronological order identical.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStorage persists settings and runs in a SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens the database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite storage requires a database path")
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serialises writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		quantization_unit INTEGER NOT NULL,
		extraction_window INTEGER NOT NULL,
		overshoot_window INTEGER NOT NULL DEFAULT -1,
		default_target INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		target INTEGER NOT NULL,
		pool_size INTEGER NOT NULL,
		pool_total INTEGER NOT NULL,
		result_count INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		result TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	defaults := DefaultSettings()
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO settings (id, quantization_unit, extraction_window, overshoot_window, default_target) VALUES (1, ?, ?, ?, ?)`,
		defaults.QuantizationUnit, defaults.ExtractionWindow, defaults.OvershootWindow, defaults.DefaultTarget,
	)
	return err
}

// GetSettings returns the stored settings.
func (s *SQLiteStorage) GetSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT quantization_unit, extraction_window, overshoot_window, default_target FROM settings WHERE id = 1`,
	).Scan(&settings.QuantizationUnit, &settings.ExtractionWindow, &settings.OvershootWindow, &settings.DefaultTarget)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// SetSettings validates and stores settings.
func (s *SQLiteStorage) SetSettings(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE settings SET quantization_unit = ?, extraction_window = ?, overshoot_window = ?, default_target = ? WHERE id = 1`,
		settings.QuantizationUnit, settings.ExtractionWindow, settings.OvershootWindow, settings.DefaultTarget,
	)
	if err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}

// SaveRun inserts run and returns it with its assigned id and timestamp.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run Run) (Run, error) {
	run = prepareRun(run)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, target, pool_size, pool_total, result_count, created_at, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.Kind),
		run.Target,
		run.PoolSize,
		run.PoolTotal,
		run.ResultCount,
		run.CreatedAt.UTC().Format(sqliteTimeLayout),
		string(run.Result),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// GetRun loads a run including its result.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, target, pool_size, pool_total, result_count, created_at, result
		FROM runs WHERE id = ?`, id)

	var (
		run       Run
		kind      string
		createdAt string
		result    string
	)
	err := row.Scan(&run.ID, &kind, &run.Target, &run.PoolSize, &run.PoolTotal, &run.ResultCount, &createdAt, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("load run: %w", err)
	}

	run.Kind = RunKind(kind)
	if run.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return Run{}, fmt.Errorf("parse run timestamp: %w", err)
	}
	run.Result = []byte(result)
	return run, nil
}

// ListRuns returns up to limit runs, newest first, without their results.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, target, pool_size, pool_total, result_count, created_at
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []Run{}
	for rows.Next() {
		var (
			run       Run
			kind      string
			createdAt string
		)
		if err := rows.Scan(&run.ID, &kind, &run.Target, &run.PoolSize, &run.PoolTotal, &run.ResultCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Kind = RunKind(kind)
		if run.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse run timestamp: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
