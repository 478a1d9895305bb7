package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotSource is returned for paths that do not name a source file.
var ErrNotSource = errors.New("storage: not a source file")

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the sources directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute sources directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes sources root: %s", rel)
	}
	return abs, nil
}

// sourcePath is safePath restricted to files carrying Ext.
func (f *FS) sourcePath(rel string) (string, error) {
	if !strings.EqualFold(filepath.Ext(rel), Ext) {
		return "", fmt.Errorf("%w: %s", ErrNotSource, rel)
	}
	return f.safePath(rel)
}

// describe builds the metadata for the source at abs.
func (f *FS) describe(abs string) (Source, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return Source{}, err
	}
	if info.IsDir() {
		return Source{}, fmt.Errorf("%w: %s is a directory", ErrNotSource, abs)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Source{}, err
	}
	rel, _ := filepath.Rel(f.root, abs)
	return Source{
		Path:      filepath.ToSlash(rel),
		Checksum:  Checksum(data),
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// List walks dir (relative to root) and returns metadata for every source
// file, sorted by path. Hidden directories are skipped.
func (f *FS) List(dir string) ([]Source, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []Source
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), Ext) {
			return nil
		}
		src, err := f.describe(p)
		if err != nil {
			return err
		}
		out = append(out, src)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Stat returns the metadata of one source file.
func (f *FS) Stat(path string) (Source, error) {
	abs, err := f.sourcePath(path)
	if err != nil {
		return Source{}, err
	}
	src, err := f.describe(abs)
	if err != nil {
		return Source{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return src, nil
}

// Read returns the raw bytes of a source file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.sourcePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces path with content through a synced temp file.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.sourcePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	// The temp name must not carry Ext so watchers ignore it.
	tmp, err := os.CreateTemp(dir, ".vrindex-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a source file.
func (f *FS) Delete(path string) error {
	abs, err := f.sourcePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}
