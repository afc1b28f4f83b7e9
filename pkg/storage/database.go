// Package storage keeps the node's in-memory message history. The schema
// lives in SQLite opened on :memory:, so nothing survives a restart.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

// HistoryDB holds per-peer direct message history and the received post
// feed. All access goes through database/sql, which serializes
// concurrent use across the listener and user goroutines.
type HistoryDB struct {
	db *sql.DB
}

// NewHistoryDB opens a fresh in-memory history database.
func NewHistoryDB() (*HistoryDB, error) {
	// A single connection keeps every statement on the same :memory:
	// database.
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %v", err)
	}
	db.SetMaxOpenConns(1)

	hdb := &HistoryDB{db: db}
	if err := hdb.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return hdb, nil
}

// initSchema creates the database schema
func (h *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		peer_id TEXT NOT NULL,
		message_id TEXT UNIQUE NOT NULL,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		is_outgoing INTEGER NOT NULL DEFAULT 0
	);

	-- Index for per-conversation lookup
	CREATE INDEX IF NOT EXISTS idx_messages_peer ON messages(peer_id, id);

	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT UNIQUE NOT NULL,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_user ON posts(user_id);
	`

	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %v", err)
	}

	return nil
}

// Close closes the underlying database.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
