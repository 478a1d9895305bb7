//go:build sqlite_fts5

package journal

import (
	"database/sql"
	"fmt"
)

// snapshots_fts shadows snapshots.payload; rowid matches snapshots.id.
func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS snapshots_fts USING fts5(
			payload,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, id int64, payload string) error {
	if _, err := tx.Exec(`INSERT INTO snapshots_fts (rowid, payload) VALUES (?, ?)`, id, payload); err != nil {
		return fmt.Errorf("journal: index snapshot %d: %w", id, err)
	}
	return nil
}

// ftsTrim drops shadow rows whose snapshot was trimmed.
func ftsTrim(tx *sql.Tx) {
	_, _ = tx.Exec(`DELETE FROM snapshots_fts WHERE rowid NOT IN (SELECT id FROM snapshots)`)
}

// Search runs an FTS5 MATCH over snapshot payloads, best match first, with
// hits bracketed in the snippet.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	rows, err := db.conn.Query(`
		SELECT s.id, s.ts, snippet(snapshots_fts, 0, '[', ']', '...', 32)
		FROM snapshots_fts
		JOIN snapshots s ON s.id = snapshots_fts.rowid
		WHERE snapshots_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("journal: search %q: %w", query, err)
	}
	return scanResults(rows)
}
