package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with in-process maps.
// Useful for tests and single-shot CLI runs without a database.
// Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]DocumentRecord
	edges map[string][]string // dependent -> dependencies
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]DocumentRecord),
		edges: make(map[string][]string),
	}
}

// Init is a no-op for the in-memory store.
func (s *MemoryStore) Init(ctx context.Context) error { return nil }

// UpsertDocument creates or replaces a document record.
// RenderedHash from an existing record is preserved.
func (s *MemoryStore) UpsertDocument(ctx context.Context, rec DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.docs[rec.Slug]; ok && rec.RenderedHash == "" {
		rec.RenderedHash = existing.RenderedHash
	}
	rec.UpdatedAt = time.Now()
	s.docs[rec.Slug] = rec
	return nil
}

// ReplaceEdges replaces the dependency list of a document.
func (s *MemoryStore) ReplaceEdges(ctx context.Context, slug string, deps []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(deps) == 0 {
		delete(s.edges, slug)
		return nil
	}
	s.edges[slug] = append([]string(nil), deps...)
	return nil
}

// Document retrieves a record by slug.
func (s *MemoryStore) Document(ctx context.Context, slug string) (*DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.docs[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Documents returns all document records.
func (s *MemoryStore) Documents(ctx context.Context) ([]DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DocumentRecord, 0, len(s.docs))
	for _, rec := range s.docs {
		out = append(out, rec)
	}
	return out, nil
}

// Edges returns all dependency edges.
func (s *MemoryStore) Edges(ctx context.Context) ([]EdgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []EdgeRecord
	for dependent, deps := range s.edges {
		for _, dep := range deps {
			out = append(out, EdgeRecord{Dependent: dependent, Dependency: dep})
		}
	}
	return out, nil
}

// MarkRendered records a successful render.
func (s *MemoryStore) MarkRendered(ctx context.Context, slug, renderedHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.docs[slug]
	if !ok {
		return ErrNotFound
	}
	rec.RenderedHash = renderedHash
	rec.UpdatedAt = time.Now()
	s.docs[slug] = rec
	return nil
}

// Prune removes records whose slug is not in keep.
func (s *MemoryStore) Prune(ctx context.Context, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keepSet := make(map[string]struct{}, len(keep))
	for _, slug := range keep {
		keepSet[slug] = struct{}{}
	}

	removed := 0
	for slug := range s.docs {
		if _, ok := keepSet[slug]; !ok {
			delete(s.docs, slug)
			delete(s.edges, slug)
			removed++
		}
	}

	// Drop dangling edges that point at pruned documents.
	for dependent, deps := range s.edges {
		filtered := deps[:0]
		for _, dep := range deps {
			if _, ok := s.docs[dep]; ok {
				filtered = append(filtered, dep)
			}
		}
		if len(filtered) == 0 {
			delete(s.edges, dependent)
			continue
		}
		s.edges[dependent] = filtered
	}

	return removed, nil
}

// Close does nothing for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
