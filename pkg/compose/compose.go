// Package compose implements the composition engine for loom.
//
// This package implements the complete scan → plan → execute pipeline that
// can be used by CLI and server components. By centralizing this logic, we
// ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// A run consists of three stages:
//
//  1. Sync: push the scanned corpus into the composition store, replacing
//     document records and dependency edges and pruning deleted documents.
//  2. Plan: build the dependency graph, determine the dirty set (documents
//     whose content hash moved past their last rendered hash, plus all of
//     their transitive dependents), and group the dirty set into
//     topological layers.
//  3. Execute: render the dirty layers in order. Documents within a layer
//     are independent and render concurrently on a bounded worker pool.
//     Each document is probed in the render cache by its composite hash
//     before rendering.
//
// Each stage can be run independently or as part of the complete run.
//
// # Usage
//
// Create an Engine and run the stages:
//
//	engine := compose.NewEngine(store,
//	    compose.WithCache(renderCache),
//	    compose.WithWorkers(8),
//	    compose.WithLogger(logger))
//
//	if _, err := engine.Sync(ctx, corpus); err != nil {
//	    log.Fatal(err)
//	}
//	plan, err := engine.Plan(ctx, corpus, compose.PlanOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := engine.Execute(ctx, corpus, plan, compose.ExecuteOptions{
//	    OutDir: "dist",
//	})
package compose

import (
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/loomkit/loom/pkg/cache"
	"github.com/loomkit/loom/pkg/render"
	"github.com/loomkit/loom/pkg/store"
)

// DefaultCacheTTL is the default render cache entry lifetime.
// Composite-hash keys self-invalidate on content changes, so the TTL only
// bounds growth from keys that will never be probed again.
const DefaultCacheTTL = 0 // no expiration

// Engine coordinates the composition stages against a store, a render
// cache, and a markdown renderer.
//
// The Engine is stateless except for its collaborators - it doesn't store
// run results. Multiple goroutines can safely share one Engine.
type Engine struct {
	store    store.Store
	cache    cache.Cache
	keyer    cache.Keyer
	renderer *render.Markdown
	workers  int
	logger   *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache sets the render cache. The default is a NullCache.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithKeyer sets the cache key generator. The default is the standard keyer.
func WithKeyer(k cache.Keyer) Option {
	return func(e *Engine) {
		if k != nil {
			e.keyer = k
		}
	}
}

// WithRenderer sets the markdown renderer. The default renders with the
// standard extension set.
func WithRenderer(r *render.Markdown) Option {
	return func(e *Engine) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithWorkers bounds per-layer render concurrency.
// Values below one fall back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine bound to a composition store.
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		cache:    cache.NewNullCache(),
		keyer:    cache.NewDefaultKeyer(),
		renderer: render.NewMarkdown(render.Options{}),
		workers:  runtime.GOMAXPROCS(0),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers returns the configured per-layer concurrency bound.
func (e *Engine) Workers() int { return e.workers }
