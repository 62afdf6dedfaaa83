// Package store defines the composition store: the persistent record of
// corpus documents, their dependency edges, and their render state.
//
// This package defines the [Store] interface with implementations for
// different backends:
//   - memory: In-memory storage for development/testing
//   - surreal: SurrealDB-backed graph storage for real corpora
//
// # Architecture
//
// The store is a derived index, not the source of truth: the markdown
// files on disk are authoritative. Each document record carries two hashes:
//
//   - ContentHash: hash of the file at the last scan
//   - RenderedHash: hash of the content the last successful render saw
//
// A document is dirty iff the two differ. The engine re-renders dirty
// documents plus their transitive dependents, then calls MarkRendered to
// converge the hashes.
//
// Dependency edges are stored dependent -> dependency ("a depends_on b"),
// matching the graph traversal direction of the SurrealDB backend.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a document record does not exist.
	ErrNotFound = errors.New("not found")
)

// DocumentRecord is the stored form of a corpus document.
type DocumentRecord struct {
	Slug         string    `json:"slug"`
	Path         string    `json:"path"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
	ContentHash  string    `json:"content_hash"`
	RenderedHash string    `json:"rendered_hash"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Dirty reports whether the document needs rendering: its content hash
// has moved past what the last render saw.
func (r *DocumentRecord) Dirty() bool {
	return r.ContentHash != r.RenderedHash
}

// EdgeRecord is a stored dependency edge: Dependent depends on Dependency.
type EdgeRecord struct {
	Dependent  string `json:"dependent"`
	Dependency string `json:"dependency"`
}

// Store is the interface for composition store backends.
type Store interface {
	// Init ensures the backend schema exists. Safe to call repeatedly.
	Init(ctx context.Context) error

	// UpsertDocument creates or replaces a document record keyed by slug.
	// RenderedHash is preserved across upserts so staleness survives scans.
	UpsertDocument(ctx context.Context, rec DocumentRecord) error

	// ReplaceEdges replaces the outgoing dependency edges of a document.
	ReplaceEdges(ctx context.Context, slug string, deps []string) error

	// Document retrieves a record by slug.
	// Returns ErrNotFound if the document doesn't exist.
	Document(ctx context.Context, slug string) (*DocumentRecord, error)

	// Documents returns all document records. The order is not guaranteed.
	Documents(ctx context.Context) ([]DocumentRecord, error)

	// Edges returns all dependency edges. The order is not guaranteed.
	Edges(ctx context.Context) ([]EdgeRecord, error)

	// MarkRendered records a successful render of the document.
	MarkRendered(ctx context.Context, slug, renderedHash string) error

	// Prune removes records whose slug is not in keep, along with their
	// edges. Returns the number of documents removed.
	Prune(ctx context.Context, keep []string) (int, error)

	// Close releases backend resources.
	Close() error
}
