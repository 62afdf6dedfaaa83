package surreal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/pkg/store"
)

// fakeDB records queries and plays back canned responses, letting the
// store logic run without a SurrealDB server.
type fakeDB struct {
	queries   []string
	vars      []map[string]any
	responses map[string]any // matched by substring of the query
	err       error
}

func (f *fakeDB) Query(sql string, vars interface{}) (interface{}, error) {
	f.queries = append(f.queries, sql)
	m, _ := vars.(map[string]any)
	f.vars = append(f.vars, m)
	if f.err != nil {
		return nil, f.err
	}
	for needle, resp := range f.responses {
		if strings.Contains(sql, needle) {
			return resp, nil
		}
	}
	return okResult(), nil
}

func (f *fakeDB) Close() {}

// okResult wraps rows the way the RPC protocol frames query responses:
// one status envelope per statement.
func okResult(rows ...any) []any {
	return []any{map[string]any{
		"status": "OK",
		"time":   "152.5µs",
		"result": rows,
	}}
}

func docRow(slug, contentHash, renderedHash string) map[string]any {
	return map[string]any{
		"slug":          slug,
		"path":          slug + ".md",
		"title":         strings.ToUpper(slug),
		"description":   "",
		"tags":          []any{"rust"},
		"content_hash":  contentHash,
		"rendered_hash": renderedHash,
	}
}

func TestDocument(t *testing.T) {
	db := &fakeDB{responses: map[string]any{
		"FROM document WHERE slug": okResult(docRow("xxhash", "aaaa", "aaaa")),
	}}
	s := &Store{db: db}

	rec, err := s.Document(context.Background(), "xxhash")
	require.NoError(t, err)
	assert.Equal(t, "xxhash", rec.Slug)
	assert.Equal(t, "xxhash.md", rec.Path)
	assert.False(t, rec.Dirty())

	require.Len(t, db.vars, 1)
	assert.Equal(t, "xxhash", db.vars[0]["slug"])
}

func TestConnectCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, Config{URL: "ws://localhost:8000/rpc"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocumentNotFound(t *testing.T) {
	s := &Store{db: &fakeDB{}}

	_, err := s.Document(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertDocument(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}

	err := s.UpsertDocument(context.Background(), store.DocumentRecord{
		Slug:        "skills/mdast",
		Path:        "skills/mdast.md",
		Title:       "mdast",
		Tags:        []string{"markdown"},
		ContentHash: "bbbb",
	})
	require.NoError(t, err)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "MERGE")
	// MERGE must not touch rendered_hash, or staleness would be lost on scan
	assert.NotContains(t, db.queries[0], "rendered_hash")
	assert.Equal(t, "skills/mdast", db.vars[0]["slug"])
	assert.Equal(t, "bbbb", db.vars[0]["content_hash"])
}

func TestReplaceEdges(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}

	err := s.ReplaceEdges(context.Background(), "guide", []string{"intro", "api"})
	require.NoError(t, err)

	// One DELETE plus one RELATE per dependency
	require.Len(t, db.queries, 3)
	assert.Contains(t, db.queries[0], "DELETE")
	assert.Contains(t, db.queries[1], "RELATE")
	assert.Equal(t, "intro", db.vars[1]["dep"])
	assert.Equal(t, "api", db.vars[2]["dep"])
}

func TestEdges(t *testing.T) {
	db := &fakeDB{responses: map[string]any{
		"FROM depends_on": okResult(
			map[string]any{"dependent": "guide", "dependency": "intro"},
		),
	}}
	s := &Store{db: db}

	edges, err := s.Edges(context.Background())
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, store.EdgeRecord{Dependent: "guide", Dependency: "intro"}, edges[0])
}

func TestMarkRendered(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}

	require.NoError(t, s.MarkRendered(context.Background(), "intro", "cccc"))
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "rendered_hash")
	assert.Equal(t, "cccc", db.vars[0]["hash"])
}

func TestPrune(t *testing.T) {
	db := &fakeDB{responses: map[string]any{
		"SELECT slug": okResult(
			map[string]any{"slug": "keep-me"},
			map[string]any{"slug": "stale-a"},
			map[string]any{"slug": "stale-b"},
		),
	}}
	s := &Store{db: db}

	removed, err := s.Prune(context.Background(), []string{"keep-me"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// 1 select + 2 deletes
	assert.Len(t, db.queries, 3)
}
