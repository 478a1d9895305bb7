// Package journal persists queued index snapshots and source file checksums
// in SQLite, with optional FTS5 search over snapshot payloads.
package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	snapshotsTable = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         INTEGER NOT NULL,
	seq        INTEGER NOT NULL DEFAULT 0,
	payload    TEXT    NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts, seq);`

	sourcesTable = `
CREATE TABLE IF NOT EXISTS sources (
	path      TEXT PRIMARY KEY,
	checksum  TEXT NOT NULL DEFAULT '',
	loaded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

	// dsnParams applies to every connection in the pool.
	dsnParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
)

// DB is the snapshot journal. It is safe for concurrent use.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the journal at dsn, a file path or ":memory:".
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", dsn, err)
	}
	steps := []struct {
		name  string
		apply func() error
	}{
		{"ping", conn.Ping},
		{"snapshots table", func() error { _, err := conn.Exec(snapshotsTable); return err }},
		{"sources table", func() error { _, err := conn.Exec(sourcesTable); return err }},
		{"search table", func() error { return initFTS(conn) }},
	}
	for _, s := range steps {
		if err := s.apply(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("journal: %s: %w", s.name, err)
		}
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// scanResults drains rows of (id, ts, snippet).
func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Snippet); err != nil {
			return nil, fmt.Errorf("journal: scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func searchLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
