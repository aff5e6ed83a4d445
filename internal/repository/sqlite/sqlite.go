// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// IN-MEMORY ONLY:
// History is session-scoped — it must not outlive the process. The server
// opens this database with the ":memory:" DSN, so SQLite keeps every page in
// RAM and nothing is written to disk. What SQLite buys us over a slice is
// one shared, indexed table for all sessions and set-based trimming
// ("keep the newest N") in a single statement.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dsn and runs migrations.
//
// ONE CONNECTION:
// Every connection to ":memory:" gets its OWN empty database. If the pool
// opened a second connection, queries on it would see no tables at all.
// Pinning the pool to a single connection keeps everyone on the same data;
// database/sql queues callers on that connection, which also serialises
// writes the way SQLite wants.
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	// An idle in-memory connection being closed would drop the whole database.
	conn.SetConnMaxIdleTime(0)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. For ":memory:" this discards all data.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema.
//
// seq is the insertion order. Ordering by seq rather than created_at keeps
// "most recent first" exact even when two entries share a timestamp.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS history_entries (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			language   TEXT NOT NULL,
			preview    TEXT NOT NULL,
			code       TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_session_seq ON history_entries(session_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("creating history_entries table: %w", err)
	}
	return nil
}

// Forget removes every history entry of a session.
// Called when an idle session is swept.
func (db *DB) Forget(ctx context.Context, sessionID string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM history_entries WHERE session_id = ?`, sessionID,
	); err != nil {
		return fmt.Errorf("sqlite: forgetting session %s: %w", sessionID, err)
	}
	return nil
}
