package compose

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loomkit/loom/pkg/cache"
	"github.com/loomkit/loom/pkg/corpus"
	"github.com/loomkit/loom/pkg/errors"
	"github.com/loomkit/loom/pkg/observability"
	"github.com/loomkit/loom/pkg/render"
)

// ExecuteOptions tunes run execution.
type ExecuteOptions struct {
	// OutDir is the artifact output directory. Required.
	OutDir string

	// NoCache disables render cache probes and writes for this run.
	NoCache bool

	// CacheTTL bounds the lifetime of cache entries written by this run.
	// Zero means no expiration.
	CacheTTL time.Duration
}

// Result summarizes an executed run.
type Result struct {
	RunID     uuid.UUID        // unique run identifier
	Rendered  int              // documents rendered fresh
	FromCache int              // documents served from the render cache
	Skipped   int              // documents skipped because a dependency failed
	Failed    int              // documents that failed to render
	Layers    int              // layers executed
	Elapsed   time.Duration    // wall time
	Errors    map[string]error // per-slug render errors
}

// Execute renders the plan's layers in order, writing artifacts to
// opts.OutDir. Documents within a layer render concurrently, bounded by
// the engine's worker count; a layer completes before the next starts.
//
// A document whose render fails poisons its transitive dependents: they
// are counted as skipped and their artifacts are left untouched. Execute
// only returns an error for run-level failures (bad options, cancelled
// context); per-document failures land in Result.Errors.
func (e *Engine) Execute(ctx context.Context, c *corpus.Corpus, plan *Plan, opts ExecuteOptions) (*Result, error) {
	if opts.OutDir == "" {
		return nil, errors.New(errors.ErrCodeArtifact, "output directory not set")
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeArtifact, err, "creating output directory")
	}

	start := time.Now()
	result := &Result{
		RunID:  uuid.New(),
		Layers: len(plan.Layers),
		Errors: make(map[string]error),
	}

	composite := compositeHashes(c, plan)
	resolver := expandAll(c, plan)
	keyOpts := e.artifactKeyOpts()

	run := &runState{
		engine:    e,
		corpus:    c,
		plan:      plan,
		opts:      opts,
		result:    result,
		composite: composite,
		resolver:  resolver,
		keyOpts:   keyOpts,
		poisoned:  make(map[string]bool),
	}

	for i, layer := range plan.Layers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		layerStart := time.Now()
		observability.Engine().OnLayerStart(ctx, i, len(layer))

		run.executeLayer(ctx, layer)

		observability.Engine().OnLayerComplete(ctx, i, time.Since(layerStart), nil)
	}

	result.Elapsed = time.Since(start)
	e.logger.Info("run complete",
		"run", result.RunID,
		"rendered", result.Rendered,
		"cached", result.FromCache,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"layers", result.Layers,
		"duration", result.Elapsed)

	return result, ctx.Err()
}

func (e *Engine) artifactKeyOpts() cache.ArtifactKeyOpts {
	ropts := e.renderer.Options()
	return cache.ArtifactKeyOpts{
		Format:     "html",
		Extensions: ropts.Extensions,
		UnsafeHTML: ropts.UnsafeHTML,
		HardWraps:  ropts.HardWraps,
	}
}

// runState carries the shared mutable state of one Execute call.
// mu guards result and poisoned; everything else is read-only after setup.
type runState struct {
	engine    *Engine
	corpus    *corpus.Corpus
	plan      *Plan
	opts      ExecuteOptions
	result    *Result
	composite map[string]string
	resolver  *bodyResolver
	keyOpts   cache.ArtifactKeyOpts

	mu       sync.Mutex
	poisoned map[string]bool
}

// executeLayer renders one layer on a bounded worker pool and waits for
// the layer barrier.
func (r *runState) executeLayer(ctx context.Context, layer []string) {
	sem := make(chan struct{}, r.engine.workers)
	var wg sync.WaitGroup

	for _, slug := range layer {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(slug string) {
			defer wg.Done()
			defer func() { <-sem }()
			r.renderDocument(ctx, slug)
		}(slug)
	}

	wg.Wait()
}

func (r *runState) renderDocument(ctx context.Context, slug string) {
	r.mu.Lock()
	skip := r.poisoned[slug]
	if skip {
		r.result.Skipped++
	}
	r.mu.Unlock()
	if skip {
		return
	}

	start := time.Now()
	observability.Engine().OnDocumentStart(ctx, slug)

	fromCache, err := r.renderOne(ctx, slug)

	r.mu.Lock()
	switch {
	case err != nil:
		r.result.Failed++
		r.result.Errors[slug] = err
		for descendant := range r.plan.Graph.Descendants(slug) {
			r.poisoned[descendant] = true
		}
	case fromCache:
		r.result.FromCache++
	default:
		r.result.Rendered++
	}
	r.mu.Unlock()

	observability.Engine().OnDocumentComplete(ctx, slug, fromCache, time.Since(start), err)
}

// renderOne produces a single artifact, probing the render cache first.
// It reports whether the artifact came from the cache.
func (r *runState) renderOne(ctx context.Context, slug string) (bool, error) {
	doc, ok := r.corpus.Document(slug)
	if !ok {
		return false, errors.New(errors.ErrCodeRender, "document %s not in corpus", slug)
	}

	e := r.engine
	key := e.keyer.ArtifactKey(r.composite[slug], r.keyOpts)

	if !r.opts.NoCache {
		if artifact, hit, err := e.cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "artifact")
			if err := r.writeArtifact(slug, artifact); err != nil {
				return true, err
			}
			if err := e.store.MarkRendered(ctx, slug, doc.ContentHash); err != nil {
				return true, errors.Wrap(errors.ErrCodeStoreQuery, err, "marking %s rendered", slug)
			}
			return true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	body, err := e.renderer.Render(r.resolver.mustBody(slug))
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeRender, err, "rendering %s", slug)
	}
	artifact := render.Page(documentTitle(doc), body)

	if !r.opts.NoCache {
		if err := e.cache.Set(ctx, key, artifact, r.opts.CacheTTL); err != nil {
			e.logger.Warn("cache write failed", "slug", slug, "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "artifact", len(artifact))
		}
	}

	if err := r.writeArtifact(slug, artifact); err != nil {
		return false, err
	}
	if err := e.store.MarkRendered(ctx, slug, doc.ContentHash); err != nil {
		return false, errors.Wrap(errors.ErrCodeStoreQuery, err, "marking %s rendered", slug)
	}
	return false, nil
}

func (r *runState) writeArtifact(slug string, artifact []byte) error {
	if err := errors.ValidateSlug(slug); err != nil {
		return err
	}
	path := filepath.Join(r.opts.OutDir, filepath.FromSlash(render.ArtifactPath(slug)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeArtifact, err, "creating artifact directory for %s", slug)
	}
	if err := os.WriteFile(path, artifact, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeArtifact, err, "writing artifact for %s", slug)
	}
	return nil
}

// compositeHashes computes the merkle-style composite hash of every
// document: its own content hash mixed with the composite hashes of its
// dependencies. Walking the full topological layers guarantees dependency
// hashes exist before they are mixed in.
func compositeHashes(c *corpus.Corpus, plan *Plan) map[string]string {
	composite := make(map[string]string, c.Len())
	for _, layer := range plan.Graph.Layers() {
		for _, slug := range layer {
			doc, ok := c.Document(slug)
			if !ok {
				continue
			}
			deps := make(map[string]string)
			for _, dep := range plan.Graph.Dependencies(slug) {
				deps[dep] = composite[dep]
			}
			composite[slug] = corpus.CompositeHash(doc.ContentHash, deps)
		}
	}
	return composite
}

// bodyResolver serves expanded markdown bodies and display titles during
// reference expansion. Bodies are fully populated before rendering starts,
// so concurrent reads need no locking.
type bodyResolver struct {
	bodies map[string][]byte
	titles map[string]string
}

var _ render.Resolver = (*bodyResolver)(nil)

func (r *bodyResolver) Body(slug string) ([]byte, bool) {
	body, ok := r.bodies[slug]
	return body, ok
}

func (r *bodyResolver) Title(slug string) string { return r.titles[slug] }

func (r *bodyResolver) mustBody(slug string) []byte { return r.bodies[slug] }

// expandAll resolves references in every document in topological order,
// so embeds splice already-expanded dependency content.
func expandAll(c *corpus.Corpus, plan *Plan) *bodyResolver {
	resolver := &bodyResolver{
		bodies: make(map[string][]byte, c.Len()),
		titles: make(map[string]string, c.Len()),
	}
	for slug, doc := range c.Documents {
		resolver.titles[slug] = documentTitle(doc)
	}
	for _, layer := range plan.Graph.Layers() {
		for _, slug := range layer {
			doc, ok := c.Document(slug)
			if !ok {
				continue
			}
			resolver.bodies[slug] = render.Expand(doc, resolver)
		}
	}
	return resolver
}
