package journal

import "github.com/starford/vrindex/internal/queue"

// Journal is what the service layer needs from snapshot persistence.
type Journal interface {
	AppendQueue(q *queue.Queue) (int, error)
	LoadQueue(limit int) (*queue.Queue, error)
	Trim(keep int) (int64, error)
	Search(query string, limit int) ([]SearchResult, error)
	GetChecksum(path string) (string, error)
	SetChecksum(path, checksum string) error
	AllChecksums() (map[string]string, error)
	DeleteSource(path string) error
	Close() error
}

// Verify *DB satisfies Journal at compile time.
var _ Journal = (*DB)(nil)
