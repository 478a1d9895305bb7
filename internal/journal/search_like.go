//go:build !sqlite_fts5

package journal

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 there is no shadow table; search scans snapshots.payload.
func initFTS(*sql.DB) error { return nil }
func ftsInsert(*sql.Tx, int64, string) error { return nil }
func ftsTrim(*sql.Tx) {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns snapshots whose payload contains query verbatim, newest
// first. The snippet is the first 200 bytes of the payload.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	rows, err := db.conn.Query(`
		SELECT id, ts, substr(payload, 1, 200)
		FROM snapshots
		WHERE payload LIKE ? ESCAPE '\'
		ORDER BY id DESC
		LIMIT ?
	`, "%"+likeEscaper.Replace(query)+"%", searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("journal: search %q: %w", query, err)
	}
	return scanResults(rows)
}
