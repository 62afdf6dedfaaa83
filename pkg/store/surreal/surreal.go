// Package surreal implements the composition store on SurrealDB.
//
// Documents are records in the `document` table keyed by slug; dependency
// edges are `depends_on` graph edges created with RELATE, pointing from
// the dependent to the dependency:
//
//	RELATE document:⟨a⟩->depends_on->document:⟨b⟩   -- a depends on b
//
// The driver speaks the WebSocket RPC protocol
// (github.com/surrealdb/surrealdb.go); all access goes through SurrealQL
// queries so the schema stays visible in one place.
package surreal

import (
	"context"
	"fmt"
	"time"

	surrealdb "github.com/surrealdb/surrealdb.go"

	"github.com/loomkit/loom/pkg/errors"
	"github.com/loomkit/loom/pkg/observability"
	"github.com/loomkit/loom/pkg/store"
)

// Config holds SurrealDB connection parameters.
type Config struct {
	// URL is the RPC endpoint, e.g. "ws://localhost:8000/rpc".
	URL string
	// Namespace and Database select the keyspace.
	Namespace string
	Database  string
	// User and Pass authenticate the connection.
	User string
	Pass string
}

// database is the slice of the driver the store uses.
// Narrowing the dependency keeps the store testable without a server.
type database interface {
	Query(sql string, vars interface{}) (interface{}, error)
	Close()
}

// Store implements store.Store on SurrealDB.
type Store struct {
	db database
}

// Connect dials SurrealDB, authenticates, and selects the namespace and
// database from cfg. The driver dials without deadline support, so ctx is
// only consulted before the handshake starts.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.ValidateStoreURL(cfg.URL); err != nil {
		return nil, err
	}

	db, err := surrealdb.New(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreConn, err, "connect to %s", cfg.URL)
	}

	if _, err := db.Signin(map[string]any{"user": cfg.User, "pass": cfg.Pass}); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStoreConn, err, "signin as %s", cfg.User)
	}

	if _, err := db.Use(cfg.Namespace, cfg.Database); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStoreConn, err, "use %s/%s", cfg.Namespace, cfg.Database)
	}

	return &Store{db: db}, nil
}

// query runs one SurrealQL statement and reports it to the store hooks.
func (s *Store) query(ctx context.Context, op, sql string, vars map[string]any) (any, error) {
	start := time.Now()
	res, err := s.db.Query(sql, vars)
	observability.Store().OnQuery(ctx, op, time.Since(start), err)
	return res, err
}

// Init defines the document table and its unique slug index.
// DEFINE statements are idempotent, so Init is safe to call repeatedly.
func (s *Store) Init(ctx context.Context) error {
	const schema = `
		DEFINE TABLE document SCHEMALESS;
		DEFINE INDEX document_slug ON TABLE document COLUMNS slug UNIQUE;
		DEFINE TABLE depends_on SCHEMALESS;
	`
	if _, err := s.query(ctx, "init", schema, nil); err != nil {
		return errors.Wrap(errors.ErrCodeStoreSchema, err, "define schema")
	}
	return nil
}

// UpsertDocument creates or replaces a document record keyed by slug.
// MERGE preserves rendered_hash across scans so staleness survives.
func (s *Store) UpsertDocument(ctx context.Context, rec store.DocumentRecord) error {
	const q = `
		UPDATE type::thing('document', $slug) MERGE {
			slug: $slug,
			path: $path,
			title: $title,
			description: $description,
			tags: $tags,
			content_hash: $content_hash,
			updated_at: time::now()
		};
	`
	vars := map[string]any{
		"slug":         rec.Slug,
		"path":         rec.Path,
		"title":        rec.Title,
		"description":  rec.Description,
		"tags":         rec.Tags,
		"content_hash": rec.ContentHash,
	}
	if _, err := s.query(ctx, "upsert_document", q, vars); err != nil {
		return errors.Wrap(errors.ErrCodeStoreQuery, err, "upsert document %s", rec.Slug)
	}
	return nil
}

// ReplaceEdges replaces the outgoing depends_on edges of a document.
func (s *Store) ReplaceEdges(ctx context.Context, slug string, deps []string) error {
	const clear = `DELETE type::thing('document', $slug)->depends_on;`
	if _, err := s.query(ctx, "clear_edges", clear, map[string]any{"slug": slug}); err != nil {
		return errors.Wrap(errors.ErrCodeStoreQuery, err, "clear edges of %s", slug)
	}

	const relate = `RELATE (type::thing('document', $slug))->depends_on->(type::thing('document', $dep));`
	for _, dep := range deps {
		vars := map[string]any{"slug": slug, "dep": dep}
		if _, err := s.query(ctx, "relate", relate, vars); err != nil {
			return errors.Wrap(errors.ErrCodeStoreQuery, err, "relate %s -> %s", slug, dep)
		}
	}
	return nil
}

// Document retrieves a record by slug.
func (s *Store) Document(ctx context.Context, slug string) (*store.DocumentRecord, error) {
	const q = `SELECT * FROM document WHERE slug = $slug;`
	recs, err := surrealdb.SmartUnmarshal[[]store.DocumentRecord](s.query(ctx, "select_document", q, map[string]any{"slug": slug}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreQuery, err, "select document %s", slug)
	}
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}
	return &recs[0], nil
}

// Documents returns all document records.
func (s *Store) Documents(ctx context.Context) ([]store.DocumentRecord, error) {
	const q = `SELECT * FROM document;`
	recs, err := surrealdb.SmartUnmarshal[[]store.DocumentRecord](s.query(ctx, "select_documents", q, nil))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreQuery, err, "select documents")
	}
	return recs, nil
}

// Edges returns all dependency edges, resolved to slugs.
func (s *Store) Edges(ctx context.Context) ([]store.EdgeRecord, error) {
	const q = `SELECT in.slug AS dependent, out.slug AS dependency FROM depends_on;`
	edges, err := surrealdb.SmartUnmarshal[[]store.EdgeRecord](s.query(ctx, "select_edges", q, nil))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreQuery, err, "select edges")
	}
	return edges, nil
}

// MarkRendered records a successful render of the document.
func (s *Store) MarkRendered(ctx context.Context, slug, renderedHash string) error {
	const q = `
		UPDATE type::thing('document', $slug) MERGE {
			rendered_hash: $hash,
			updated_at: time::now()
		};
	`
	vars := map[string]any{"slug": slug, "hash": renderedHash}
	if _, err := s.query(ctx, "mark_rendered", q, vars); err != nil {
		return errors.Wrap(errors.ErrCodeStoreQuery, err, "mark rendered %s", slug)
	}
	return nil
}

// Prune removes documents whose slug is not in keep, including any edges
// touching them.
func (s *Store) Prune(ctx context.Context, keep []string) (int, error) {
	type slugRow struct {
		Slug string `json:"slug"`
	}
	rows, err := surrealdb.SmartUnmarshal[[]slugRow](s.query(ctx, "select_slugs", `SELECT slug FROM document;`, nil))
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStoreQuery, err, "select slugs")
	}

	keepSet := make(map[string]struct{}, len(keep))
	for _, slug := range keep {
		keepSet[slug] = struct{}{}
	}

	const del = `
		DELETE type::thing('document', $slug)->depends_on;
		DELETE type::thing('document', $slug)<-depends_on;
		DELETE type::thing('document', $slug);
	`
	removed := 0
	for _, row := range rows {
		if _, ok := keepSet[row.Slug]; ok {
			continue
		}
		if _, err := s.query(ctx, "prune", del, map[string]any{"slug": row.Slug}); err != nil {
			return removed, errors.Wrap(errors.ErrCodeStoreQuery, err, "prune %s", row.Slug)
		}
		removed++
	}
	return removed, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)

// String describes the store target for logs.
func (c Config) String() string {
	return fmt.Sprintf("%s (%s/%s)", c.URL, c.Namespace, c.Database)
}
