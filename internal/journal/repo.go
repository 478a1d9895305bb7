package journal

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/vrindex/internal/queue"
)

// SearchResult is one snapshot matching a search.
type SearchResult struct {
	ID        int64
	Timestamp int64
	Snippet   string
}

// AppendQueue stores every item of q, in order, within one transaction and
// returns how many rows were written. q itself is left untouched.
func (db *DB) AppendQueue(q *queue.Queue) (int, error) {
	items := q.Items()
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`INSERT INTO snapshots (ts, seq, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("journal: prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		payload, err := it.Text()
		if err != nil {
			return 0, fmt.Errorf("journal: render snapshot %d: %w", it.Timestamp(), err)
		}
		res, err := stmt.Exec(it.Timestamp(), it.Seq(), payload)
		if err != nil {
			return 0, fmt.Errorf("journal: insert snapshot: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("journal: snapshot id: %w", err)
		}
		if err := ftsInsert(tx, id, payload); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("journal: commit: %w", err)
	}
	return len(items), nil
}

// LoadQueue rebuilds a queue from the newest limit snapshots, oldest first.
// A limit of zero or less loads everything.
func (db *DB) LoadQueue(limit int) (*queue.Queue, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`
		SELECT ts, payload FROM (
			SELECT id, ts, seq, payload FROM snapshots ORDER BY id DESC LIMIT ?
		) ORDER BY ts, seq, id
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: load queue: %w", err)
	}
	defer rows.Close()

	q := queue.New()
	for rows.Next() {
		var (
			ts      int64
			payload string
		)
		if err := rows.Scan(&ts, &payload); err != nil {
			return nil, err
		}
		q.Push(ts, payload)
	}
	return q, rows.Err()
}

// Trim keeps the newest keep snapshots and deletes the rest, returning the
// number removed. keep <= 0 keeps everything.
func (db *DB) Trim(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`
		DELETE FROM snapshots
		WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("journal: trim: %w", err)
	}
	n, _ := res.RowsAffected()
	ftsTrim(tx)
	return n, tx.Commit()
}

// GetChecksum returns the stored checksum for a source, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM sources WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("journal: get checksum: %w", err)
	}
	return cs, nil
}

// SetChecksum records that path was loaded with the given checksum.
func (db *DB) SetChecksum(path, checksum string) error {
	_, err := db.conn.Exec(`
		INSERT INTO sources (path, checksum, loaded_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			checksum  = excluded.checksum,
			loaded_at = excluded.loaded_at
	`, path, checksum)
	if err != nil {
		return fmt.Errorf("journal: set checksum: %w", err)
	}
	return nil
}

// AllChecksums returns path→checksum for every recorded source.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM sources`)
	if err != nil {
		return nil, fmt.Errorf("journal: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// DeleteSource forgets a source path.
func (db *DB) DeleteSource(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM sources WHERE path = ?`, path); err != nil {
		return fmt.Errorf("journal: delete source: %w", err)
	}
	return nil
}
