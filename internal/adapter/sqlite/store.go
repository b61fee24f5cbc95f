// Package sqlite persists alarms, the cached weather snapshot and user
// preferences in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS alarms (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	hour          INTEGER NOT NULL,
	minute        INTEGER NOT NULL,
	days          TEXT    NOT NULL DEFAULT '',
	selected_date TEXT,
	enabled       INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_alarms_time ON alarms (hour, minute);

CREATE TABLE IF NOT EXISTS weather_cache (
	id                    INTEGER PRIMARY KEY CHECK (id = 1),
	current_icon_url      TEXT NOT NULL,
	current_temperature   TEXT NOT NULL,
	current_description   TEXT NOT NULL,
	current_max_temp      TEXT NOT NULL,
	current_min_temp      TEXT NOT NULL,
	current_feels_like    TEXT NOT NULL,
	details_feels_like    TEXT NOT NULL,
	details_humidity      TEXT NOT NULL,
	details_precipitation TEXT NOT NULL,
	details_wind          TEXT NOT NULL,
	details_pm10          TEXT NOT NULL,
	details_pressure      TEXT NOT NULL,
	details_visibility    TEXT NOT NULL,
	details_uv_index      TEXT NOT NULL,
	hourly_forecast_json  TEXT NOT NULL,
	weekly_forecast_json  TEXT NOT NULL,
	latitude              REAL NOT NULL,
	longitude             REAL NOT NULL,
	address               TEXT NOT NULL,
	last_updated          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CheckReadiness implements the HTTP server's readiness check.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	return nil
}
