// Package store is the local SQLite persistence layer: chats, messages,
// notifications, and toolbox reports.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is a fixed-width UTC ISO-8601 form so that string comparison in
// SQL matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

const schema = `
CREATE TABLE IF NOT EXISTS chats (
	id          TEXT PRIMARY KEY,
	project_id  TEXT,
	title       TEXT NOT NULL,
	model       TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	chat_id     TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	attachments TEXT,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	type         TEXT NOT NULL,
	severity     TEXT NOT NULL,
	title        TEXT NOT NULL,
	message      TEXT NOT NULL,
	related_tool TEXT,
	read         INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tool_reports (
	id         TEXT PRIMARY KEY,
	tool_name  TEXT NOT NULL,
	status     TEXT NOT NULL,
	summary    TEXT,
	details    TEXT,
	created_at TEXT NOT NULL
);
`

// Store wraps the SQLite database. All repositories share one handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func newID() string {
	return uuid.NewString()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Tolerate hand-edited rows with plain RFC3339 timestamps.
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
