// Package pkg provides the core libraries for the loom composition engine.
//
// # Overview
//
// Loom manages a corpus of markdown documents (skill files, knowledge-base
// notes) connected by embed and link references. It records the resulting
// dependency graph in a composition store, tracks staleness through content
// hashes, and re-renders only what changed, layer by topological layer.
// The pkg directory is organized into these areas:
//
//  1. [corpus] - Document model (frontmatter, reference extraction, hashing)
//  2. [dag] - Dependency graph (validation, cycle detection, Kahn layering)
//  3. [store] - Composition store (SurrealDB and in-memory backends)
//  4. [compose] - Orchestration (sync → plan → execute)
//  5. [render] - Markdown rendering (goldmark) and graph export (DOT/SVG)
//  6. [cache] - Render cache (file, Redis, and null backends)
//
// # Architecture
//
// The typical data flow through loom:
//
//	Corpus directory (*.md)
//	         ↓
//	    [corpus] package (parse frontmatter, hash content, extract refs)
//	         ↓
//	    [store] package (document records + depends_on edges)
//	         ↓
//	    [compose] package (dirty set → layers → parallel render)
//	         ↓
//	    HTML artifacts + render cache
//
// # Quick Start
//
// Scan a corpus and render everything stale:
//
//	loader := corpus.NewLoader(corpus.LoaderOptions{Root: "."})
//	c, _ := loader.Load(ctx)
//
//	engine := compose.NewEngine(store.NewMemoryStore(),
//	    compose.WithWorkers(8))
//
//	_, _ = engine.Sync(ctx, c)
//	plan, _ := engine.Plan(ctx, c, compose.PlanOptions{})
//	result, _ := engine.Execute(ctx, c, plan, compose.ExecuteOptions{OutDir: "build"})
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/compose/...  # Specific package
//
// [corpus]: https://pkg.go.dev/github.com/loomkit/loom/pkg/corpus
// [dag]: https://pkg.go.dev/github.com/loomkit/loom/pkg/dag
// [store]: https://pkg.go.dev/github.com/loomkit/loom/pkg/store
// [compose]: https://pkg.go.dev/github.com/loomkit/loom/pkg/compose
// [render]: https://pkg.go.dev/github.com/loomkit/loom/pkg/render
// [cache]: https://pkg.go.dev/github.com/loomkit/loom/pkg/cache
package pkg
