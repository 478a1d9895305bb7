// Package storage lists and edits the XML configuration sources the index is
// loaded from.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Ext is the file extension of configuration sources.
const Ext = ".xml"

// Source describes one configuration file under the sources root.
type Source struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for source file operations. Paths are relative
// to the sources root.
type Provider interface {
	// List returns metadata for every source file under dir.
	List(dir string) ([]Source, error)
	// Stat returns the metadata of the source at path.
	Stat(path string) (Source, error)
	// Read returns the raw bytes of the source at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the source at path.
	Delete(path string) error
	// Root returns the absolute sources directory.
	Root() string
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
