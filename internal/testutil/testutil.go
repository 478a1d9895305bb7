// Package testutil provides shared test helpers for setting up source
// directories, journals and services.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/vrindex/internal/index"
	"github.com/starford/vrindex/internal/journal"
	"github.com/starford/vrindex/internal/service"
	"github.com/starford/vrindex/internal/storage"
)

// TestJournal creates a temporary SQLite journal that is automatically cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vrindex-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSources creates a temporary source directory with a storage.Provider.
func TestSources(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteSource puts a source file directly on disk, bypassing the provider.
func WriteSource(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestService wires a fresh index to a temporary source directory and journal.
func TestService(t *testing.T, opts ...service.Option) (*service.Service, string) {
	t.Helper()
	dir, store := TestSources(t)
	all := append([]service.Option{
		service.WithStore(store),
		service.WithJournal(TestJournal(t)),
	}, opts...)
	return service.New(index.New(), all...), dir
}
