package compose

import (
	"context"
	"fmt"
	"time"

	"github.com/loomkit/loom/pkg/corpus"
	"github.com/loomkit/loom/pkg/errors"
	"github.com/loomkit/loom/pkg/store"
)

// SyncStats summarizes a store synchronization.
type SyncStats struct {
	Documents int           // records upserted
	Edges     int           // dependency edges written
	Pruned    int           // stale records removed
	Elapsed   time.Duration // wall time
}

// Sync pushes the scanned corpus into the composition store.
//
// Every document gets its record upserted and its outgoing dependency
// edges replaced. Edges to slugs absent from the corpus are not written;
// Plan reports those as missing references instead. Records whose source
// file no longer exists are pruned.
//
// Sync never touches rendered hashes, so dirtiness computed on a later
// Plan reflects real content drift rather than the sync itself.
func (e *Engine) Sync(ctx context.Context, c *corpus.Corpus) (*SyncStats, error) {
	start := time.Now()
	stats := &SyncStats{}

	if err := e.store.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	slugs := c.Slugs()
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc := c.Documents[slug]

		// Slugs become store record IDs and artifact paths; reject
		// anything the loader would never produce.
		if err := errors.ValidateSlug(slug); err != nil {
			return nil, err
		}

		if err := e.store.UpsertDocument(ctx, recordFromDocument(doc)); err != nil {
			return nil, fmt.Errorf("upserting %s: %w", slug, err)
		}
		stats.Documents++

		deps := knownDependencies(doc, c)
		if err := e.store.ReplaceEdges(ctx, slug, deps); err != nil {
			return nil, fmt.Errorf("replacing edges of %s: %w", slug, err)
		}
		stats.Edges += len(deps)
	}

	pruned, err := e.store.Prune(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("pruning store: %w", err)
	}
	stats.Pruned = pruned
	stats.Elapsed = time.Since(start)

	e.logger.Info("synced corpus",
		"documents", stats.Documents,
		"edges", stats.Edges,
		"pruned", stats.Pruned,
		"duration", stats.Elapsed)

	return stats, nil
}

// knownDependencies filters a document's dependencies to slugs that exist
// in the corpus. Unknown targets never become edges.
func knownDependencies(doc *corpus.Document, c *corpus.Corpus) []string {
	var deps []string
	for _, dep := range doc.Dependencies() {
		if _, ok := c.Document(dep); ok {
			deps = append(deps, dep)
		}
	}
	return deps
}

func recordFromDocument(doc *corpus.Document) store.DocumentRecord {
	title := doc.FrontMatter.Title
	if title == "" {
		title = doc.FrontMatter.Name
	}
	if title == "" {
		title = doc.Slug
	}
	return store.DocumentRecord{
		Slug:        doc.Slug,
		Path:        doc.Path,
		Title:       title,
		Description: doc.FrontMatter.Description,
		Tags:        doc.FrontMatter.Tags,
		ContentHash: doc.ContentHash,
		UpdatedAt:   doc.Modified,
	}
}
