package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// pragmas run once on the single pooled connection.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
}

// schema is applied in order inside one transaction on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS shield_events (
    id          TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type        TEXT NOT NULL,
    message     TEXT NOT NULL,
    meta        TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_shield_events_occurred_at ON shield_events (occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_shield_events_type ON shield_events (type, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
}

// InitDB opens/creates the SQLite audit database and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	conn, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	// one writer; the recorder and the API share it
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := setup(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func setup(conn *sql.DB) error {
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return ensureSchema(conn)
}

func ensureSchema(conn *sql.DB) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
