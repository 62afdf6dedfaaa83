package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/pkg/cache"
	"github.com/loomkit/loom/pkg/corpus"
	"github.com/loomkit/loom/pkg/errors"
	"github.com/loomkit/loom/pkg/store"
)

// buildCorpus assembles an in-memory corpus from slug -> body markdown.
func buildCorpus(t *testing.T, bodies map[string]string) *corpus.Corpus {
	t.Helper()
	c := &corpus.Corpus{Root: "/corpus", Documents: make(map[string]*corpus.Document)}
	for slug, body := range bodies {
		raw := []byte(body)
		c.Documents[slug] = &corpus.Document{
			Slug:        slug,
			Path:        slug + ".md",
			FrontMatter: corpus.FrontMatter{Name: slug},
			Body:        raw,
			ContentHash: corpus.HashContent(raw),
			Refs:        corpus.ExtractRefs(raw),
			Modified:    time.Now(),
		}
	}
	return c
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })
	return NewEngine(st, append([]Option{WithWorkers(4)}, opts...)...), st
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	engine, st := newTestEngine(t)

	c := buildCorpus(t, map[string]string{
		"serde": "Serialization.",
		"tokio": "Runtime built on [[serde]].",
	})

	stats, err := engine.Sync(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 1, stats.Edges)
	assert.Equal(t, 0, stats.Pruned)

	edges, err := st.Edges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "tokio", edges[0].Dependent)
	assert.Equal(t, "serde", edges[0].Dependency)
}

func TestSyncPrunesDeletedDocuments(t *testing.T) {
	ctx := context.Background()
	engine, st := newTestEngine(t)

	_, err := engine.Sync(ctx, buildCorpus(t, map[string]string{
		"serde": "v1", "tokio": "v1", "anyhow": "v1",
	}))
	require.NoError(t, err)

	stats, err := engine.Sync(ctx, buildCorpus(t, map[string]string{
		"serde": "v1", "tokio": "v1",
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pruned)

	_, err = st.Document(ctx, "anyhow")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSyncRejectsInvalidSlug(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	c := buildCorpus(t, map[string]string{"../evil": "escape attempt"})
	_, err := engine.Sync(ctx, c)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidSlug, errors.GetCode(err))
}

func TestSyncSkipsMissingRefEdges(t *testing.T) {
	ctx := context.Background()
	engine, st := newTestEngine(t)

	c := buildCorpus(t, map[string]string{
		"tokio": "Built on [[missing-crate]].",
	})
	stats, err := engine.Sync(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Edges)

	edges, err := st.Edges(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestPlanFreshCorpusAllDirty(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	c := buildCorpus(t, map[string]string{
		"serde": "Serialization.",
		"tokio": "Runtime built on [[serde]].",
		"axum":  "Web framework on [[tokio]].",
	})
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)

	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, plan.DirtyCount())
	require.Len(t, plan.Layers, 3)
	assert.Equal(t, []string{"serde"}, plan.Layers[0])
	assert.Equal(t, []string{"tokio"}, plan.Layers[1])
	assert.Equal(t, []string{"axum"}, plan.Layers[2])
}

func TestPlanCleanAfterExecute(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	c := buildCorpus(t, map[string]string{
		"serde": "Serialization.",
		"tokio": "Runtime built on [[serde]].",
	})
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)

	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)
	_, err = engine.Execute(ctx, c, plan, ExecuteOptions{OutDir: t.TempDir()})
	require.NoError(t, err)

	plan, err = engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)
	assert.Zero(t, plan.DirtyCount(), "nothing should be dirty after a full run")
}

func TestPlanDirtPropagatesToDependents(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	bodies := map[string]string{
		"serde":  "Serialization.",
		"tokio":  "Runtime built on [[serde]].",
		"axum":   "Web framework on [[tokio]].",
		"anyhow": "Unrelated error crate.",
	}
	c := buildCorpus(t, bodies)
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)
	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)
	_, err = engine.Execute(ctx, c, plan, ExecuteOptions{OutDir: t.TempDir()})
	require.NoError(t, err)

	// Touch the root of the chain.
	bodies["serde"] = "Serialization, revised."
	c = buildCorpus(t, bodies)
	_, err = engine.Sync(ctx, c)
	require.NoError(t, err)

	plan, err = engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)

	assert.True(t, plan.Dirty["serde"])
	assert.True(t, plan.Dirty["tokio"], "dependents of dirty documents re-render")
	assert.True(t, plan.Dirty["axum"], "staleness is transitive")
	assert.False(t, plan.Dirty["anyhow"], "unrelated documents stay clean")
	assert.Equal(t, 3, plan.DirtyCount())
}

func TestPlanForce(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	c := buildCorpus(t, map[string]string{"serde": "Serialization."})
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)
	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)
	_, err = engine.Execute(ctx, c, plan, ExecuteOptions{OutDir: t.TempDir()})
	require.NoError(t, err)

	plan, err = engine.Plan(ctx, c, PlanOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.DirtyCount())
}

func TestPlanDepthsRespectFullGraph(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	bodies := map[string]string{
		"serde": "Serialization.",
		"tokio": "Runtime built on [[serde]].",
		"axum":  "Web framework on [[tokio]].",
	}
	c := buildCorpus(t, bodies)
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)
	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, plan.Depths)
	_, err = engine.Execute(ctx, c, plan, ExecuteOptions{OutDir: t.TempDir()})
	require.NoError(t, err)

	// Touch only the leaf: its clean ancestors' layers are dropped, but
	// the reported depth still names its place in the full graph.
	bodies["axum"] = "Web framework on [[tokio]], revised."
	c = buildCorpus(t, bodies)
	_, err = engine.Sync(ctx, c)
	require.NoError(t, err)

	plan, err = engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"axum"}}, plan.Layers)
	assert.Equal(t, []int{2}, plan.Depths)
}

func TestPlanExcludesDrafts(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	c := buildCorpus(t, map[string]string{
		"serde": "Serialization.",
		"draft": "Work in progress.",
	})
	c.Documents["draft"].FrontMatter.Draft = true
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)

	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.DirtyCount())

	plan, err = engine.Plan(ctx, c, PlanOptions{IncludeDrafts: true})
	require.NoError(t, err)
	assert.Equal(t, 2, plan.DirtyCount())
}

func TestPlanReportsMissingRefs(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	c := buildCorpus(t, map[string]string{
		"tokio": "Built on [[missing-crate]].",
	})
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)

	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Missing, 1)
	assert.Equal(t, "tokio", plan.Missing[0].Source)
	assert.Equal(t, "missing-crate", plan.Missing[0].Target)
}

func TestPlanRejectsCycles(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	c := buildCorpus(t, map[string]string{
		"a": "depends on [[b]]",
		"b": "depends on [[a]]",
	})
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)

	_, err = engine.Plan(ctx, c, PlanOptions{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCycle, errors.GetCode(err))
}

func TestExecuteWritesArtifacts(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	out := t.TempDir()

	c := buildCorpus(t, map[string]string{
		"serde":        "# Serde\n\nSerialization.",
		"skills/tokio": "# Tokio\n\nSee [[serde]].\n\n![[serde]]",
	})
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)
	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)

	result, err := engine.Execute(ctx, c, plan, ExecuteOptions{OutDir: out})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rendered)
	assert.Zero(t, result.Failed)
	assert.NotEqual(t, result.RunID.String(), "00000000-0000-0000-0000-000000000000")

	serde, err := os.ReadFile(filepath.Join(out, "serde.html"))
	require.NoError(t, err)
	assert.Contains(t, string(serde), "<h1 id=\"serde\">Serde</h1>")

	tokio, err := os.ReadFile(filepath.Join(out, "skills", "tokio.html"))
	require.NoError(t, err)
	assert.Contains(t, string(tokio), `href="../serde.html"`, "links resolve relative to the artifact")
	assert.Contains(t, string(tokio), "Serialization.", "embeds splice dependency content")
}

func TestExecuteServesFromCache(t *testing.T) {
	ctx := context.Background()
	fileCache, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	engine, _ := newTestEngine(t, WithCache(fileCache))

	c := buildCorpus(t, map[string]string{"serde": "Serialization."})
	_, err = engine.Sync(ctx, c)
	require.NoError(t, err)

	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)
	result, err := engine.Execute(ctx, c, plan, ExecuteOptions{OutDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rendered)
	assert.Zero(t, result.FromCache)

	// Force a second run: content unchanged, so the artifact comes back
	// from the cache instead of a fresh render.
	plan, err = engine.Plan(ctx, c, PlanOptions{Force: true})
	require.NoError(t, err)
	result, err = engine.Execute(ctx, c, plan, ExecuteOptions{OutDir: t.TempDir()})
	require.NoError(t, err)
	assert.Zero(t, result.Rendered)
	assert.Equal(t, 1, result.FromCache)
}

func TestExecuteNoCacheSkipsProbes(t *testing.T) {
	ctx := context.Background()
	fileCache, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	engine, _ := newTestEngine(t, WithCache(fileCache))

	c := buildCorpus(t, map[string]string{"serde": "Serialization."})
	_, err = engine.Sync(ctx, c)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		plan, err := engine.Plan(ctx, c, PlanOptions{Force: true})
		require.NoError(t, err)
		result, err := engine.Execute(ctx, c, plan, ExecuteOptions{
			OutDir:  t.TempDir(),
			NoCache: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Rendered, "run %d", i)
		assert.Zero(t, result.FromCache, "run %d", i)
	}
}

// markRenderedFailStore fails MarkRendered for one slug, simulating a
// document-level failure mid-run.
type markRenderedFailStore struct {
	*store.MemoryStore
	failSlug string
}

func (s *markRenderedFailStore) MarkRendered(ctx context.Context, slug, hash string) error {
	if slug == s.failSlug {
		return fmt.Errorf("store unavailable")
	}
	return s.MemoryStore.MarkRendered(ctx, slug, hash)
}

func TestExecuteFailurePoisonsDependents(t *testing.T) {
	ctx := context.Background()
	st := &markRenderedFailStore{MemoryStore: store.NewMemoryStore(), failSlug: "serde"}
	engine := NewEngine(st, WithWorkers(2))

	c := buildCorpus(t, map[string]string{
		"serde":  "Serialization.",
		"tokio":  "Runtime built on [[serde]].",
		"axum":   "Web framework on [[tokio]].",
		"anyhow": "Unrelated error crate.",
	})
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)
	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)

	result, err := engine.Execute(ctx, c, plan, ExecuteOptions{OutDir: t.TempDir()})
	require.NoError(t, err, "document failures do not fail the run")

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Skipped, "tokio and axum sit downstream of the failure")
	assert.Equal(t, 1, result.Rendered, "anyhow is unaffected")
	require.Contains(t, result.Errors, "serde")
	assert.True(t, strings.Contains(result.Errors["serde"].Error(), "store unavailable"))
}

// slowMarkStore stalls MarkRendered per slug and records completion order.
type slowMarkStore struct {
	*store.MemoryStore
	delays map[string]time.Duration

	mu    sync.Mutex
	order []string
}

func (s *slowMarkStore) MarkRendered(ctx context.Context, slug, hash string) error {
	time.Sleep(s.delays[slug])
	s.mu.Lock()
	s.order = append(s.order, slug)
	s.mu.Unlock()
	return s.MemoryStore.MarkRendered(ctx, slug, hash)
}

func TestExecuteLayerBarrier(t *testing.T) {
	ctx := context.Background()
	// Upstream documents finish slowly. If a dependent could start before
	// its layer's barrier, it would complete first and show up early in
	// the recorded order.
	st := &slowMarkStore{
		MemoryStore: store.NewMemoryStore(),
		delays: map[string]time.Duration{
			"serde": 40 * time.Millisecond,
			"tokio": 20 * time.Millisecond,
		},
	}
	engine := NewEngine(st, WithWorkers(4))

	c := buildCorpus(t, map[string]string{
		"serde": "Serialization.",
		"tokio": "Runtime built on [[serde]].",
		"axum":  "Web framework on [[tokio]].",
	})
	_, err := engine.Sync(ctx, c)
	require.NoError(t, err)
	plan, err := engine.Plan(ctx, c, PlanOptions{})
	require.NoError(t, err)

	result, err := engine.Execute(ctx, c, plan, ExecuteOptions{OutDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rendered)
	assert.Equal(t, []string{"serde", "tokio", "axum"}, st.order,
		"no document may finish before its dependencies")
}

// cancelingStore cancels the run context the first time a document
// completes, simulating an interrupt mid-run.
type cancelingStore struct {
	*store.MemoryStore
	cancel context.CancelFunc
}

func (s *cancelingStore) MarkRendered(ctx context.Context, slug, hash string) error {
	s.cancel()
	return s.MemoryStore.MarkRendered(ctx, slug, hash)
}

func TestExecuteCancellationStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := &cancelingStore{MemoryStore: store.NewMemoryStore(), cancel: cancel}
	engine := NewEngine(st, WithWorkers(2))

	c := buildCorpus(t, map[string]string{
		"serde": "Serialization.",
		"tokio": "Runtime built on [[serde]].",
	})
	_, err := engine.Sync(context.Background(), c)
	require.NoError(t, err)
	plan, err := engine.Plan(context.Background(), c, PlanOptions{})
	require.NoError(t, err)

	outDir := t.TempDir()
	result, err := engine.Execute(ctx, c, plan, ExecuteOptions{OutDir: outDir})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, result.Rendered, "only the first layer ran")
	_, statErr := os.Stat(filepath.Join(outDir, "tokio.html"))
	assert.ErrorIs(t, statErr, os.ErrNotExist, "later layers must not render after cancellation")
}

func TestExecuteRequiresOutDir(t *testing.T) {
	engine, _ := newTestEngine(t)
	c := buildCorpus(t, map[string]string{"serde": "x"})
	plan := &Plan{}

	_, err := engine.Execute(context.Background(), c, plan, ExecuteOptions{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeArtifact, errors.GetCode(err))
}

func TestBuildGraphEdgesPointDependencyToDependent(t *testing.T) {
	c := buildCorpus(t, map[string]string{
		"serde": "Serialization.",
		"tokio": "Runtime built on [[serde]].",
	})

	g, missing, err := BuildGraph(c)
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Equal(t, []string{"serde"}, g.Sources())
	assert.Equal(t, []string{"tokio"}, g.Dependents("serde"))
}
