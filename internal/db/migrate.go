package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Every statement is idempotent so the
// whole list is replayed on each open.
//
// The client and the reference server share one schema: the client uses
// kv_store and pending_sessions, the server uses study_sessions.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	// Durable shadow of the timer. Values are string-encoded scalars.
	`CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	// Records that could not be delivered to the backend yet.
	`CREATE TABLE IF NOT EXISTS pending_sessions (
		id               TEXT PRIMARY KEY,
		start_time       TEXT NOT NULL,
		end_time         TEXT,
		duration_seconds INTEGER NOT NULL CHECK(duration_seconds >= 0),
		attempts         INTEGER NOT NULL DEFAULT 0,
		last_error       TEXT NOT NULL DEFAULT '',
		enqueued_at      TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_enqueued ON pending_sessions(enqueued_at)`,

	`CREATE TABLE IF NOT EXISTS study_sessions (
		id               TEXT PRIMARY KEY,
		client_id        TEXT,
		start_time       TEXT NOT NULL,
		end_time         TEXT,
		duration_seconds INTEGER NOT NULL DEFAULT 0 CHECK(duration_seconds >= 0),
		created_at       TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_study_sessions_client ON study_sessions(client_id) WHERE client_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_study_sessions_start ON study_sessions(start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_study_sessions_created ON study_sessions(created_at)`,
}
