// Package store persists the shop settings and operational state as
// single-row JSON documents in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"machiai/internal/settings"
	"machiai/internal/state"
)

// DB wraps sql.DB for the status board.
type DB struct {
	*sql.DB
}

// Open opens the database at path and creates the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS shop_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			document TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS shop_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			document TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// LoadSettings returns the stored settings merged over the defaults.
// A missing row or a malformed document yields the defaults; only SQL
// failures are errors.
func (db *DB) LoadSettings(ctx context.Context) (*settings.Settings, error) {
	var doc string
	err := db.QueryRowContext(ctx,
		"SELECT document FROM shop_settings WHERE id = 1",
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return settings.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	cfg, err := settings.FromJSON([]byte(doc))
	if err != nil {
		// A corrupt document must not take the board down.
		return settings.Default(), nil
	}
	return cfg, nil
}

// SaveSettings upserts the settings document.
func (db *DB) SaveSettings(ctx context.Context, cfg *settings.Settings) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO shop_settings (id, document, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`,
		string(doc), time.Now())
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadState returns the stored operational state, normalized to the
// configured bounds. A missing row or malformed document yields a fresh
// reset state rather than undefined data.
func (db *DB) LoadState(ctx context.Context, cfg *settings.Settings, now time.Time) (*state.State, error) {
	var doc string
	err := db.QueryRowContext(ctx,
		"SELECT document FROM shop_state WHERE id = 1",
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return state.Fresh(cfg, now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var st state.State
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return state.Fresh(cfg, now), nil
	}
	st.Normalize(cfg)
	return &st, nil
}

// SaveState upserts the state document.
func (db *DB) SaveState(ctx context.Context, st *state.State) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO shop_state (id, document, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`,
		string(doc), time.Now())
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
