package api

import (
	"github.com/starford/vrindex/internal/service"
	"github.com/starford/vrindex/internal/storage"
)

// Entry is a single index entry (aliased from the domain layer).
type Entry = service.Entry

// Snapshot is one queued or journaled snapshot (aliased from the domain layer).
type Snapshot = service.Snapshot

// SetValueRequest is the request body for POST /values.
type SetValueRequest struct {
	Assignment string `json:"assignment" example:"/MVR/Display/width=1280" validate:"required"`
}

// SnapshotRequest is the request body for POST /snapshots. An empty Names
// snapshots the whole index.
type SnapshotRequest struct {
	Names     []string `json:"names" example:"width,height"`
	Namespace string   `json:"ns" example:"/MVR/Display"`
}

// NameResponse carries the name a write or lookup ended on.
type NameResponse struct {
	Name string `json:"name" example:"/MVR/Display/width" validate:"required"`
}

// NamesResponse wraps a selection.
type NamesResponse struct {
	Names []string `json:"names" validate:"required"`
}

// SnapshotListResponse wraps snapshot listings.
type SnapshotListResponse struct {
	Snapshots []Snapshot `json:"snapshots" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []service.SearchHit `json:"results" validate:"required"`
}

// CountResponse reports how many queue items an operation touched.
type CountResponse struct {
	Count int `json:"count" example:"2" validate:"required"`
}

// SourceListResponse wraps the source file listing.
type SourceListResponse struct {
	Sources []storage.Source `json:"sources" validate:"required"`
}
