package compose

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loomkit/loom/pkg/corpus"
	"github.com/loomkit/loom/pkg/dag"
	"github.com/loomkit/loom/pkg/errors"
	"github.com/loomkit/loom/pkg/observability"
	"github.com/loomkit/loom/pkg/store"
)

// MissingRef is a reference whose target is not in the corpus.
type MissingRef struct {
	Source string // referring document slug
	Target string // unresolved slug
}

// Plan is the work a run would perform.
type Plan struct {
	// Graph is the full dependency graph of the corpus.
	Graph *dag.Graph

	// Dirty marks the documents that need rendering: those whose content
	// hash differs from their last rendered hash, documents the store has
	// never seen, and all transitive dependents of either.
	Dirty map[string]bool

	// Layers groups the dirty documents into topological layers. Rendering
	// layers in order guarantees every document's dependencies rendered
	// first. Drafts are excluded, and all-clean layers are dropped.
	Layers [][]string

	// Depths maps each entry of Layers to its index in the full-graph
	// layering, so displayed layer numbers stay stable when clean layers
	// are dropped.
	Depths []int

	// Missing lists references to slugs absent from the corpus.
	Missing []MissingRef
}

// DirtyCount returns the number of documents scheduled for rendering.
func (p *Plan) DirtyCount() int {
	n := 0
	for _, layer := range p.Layers {
		n += len(layer)
	}
	return n
}

// BuildGraph constructs the dependency graph of a corpus.
// Edges point from dependency to dependent. References to unknown slugs
// become MissingRef entries rather than edges.
func BuildGraph(c *corpus.Corpus) (*dag.Graph, []MissingRef, error) {
	g := dag.New()
	var missing []MissingRef

	slugs := c.Slugs()
	sort.Strings(slugs)

	for _, slug := range slugs {
		doc := c.Documents[slug]
		node := dag.Node{ID: slug, Meta: dag.Metadata{
			"title": documentTitle(doc),
			"path":  doc.Path,
		}}
		if err := g.AddNode(node); err != nil {
			return nil, nil, fmt.Errorf("adding node %s: %w", slug, err)
		}
	}

	for _, slug := range slugs {
		doc := c.Documents[slug]
		for _, dep := range doc.Dependencies() {
			if _, ok := c.Document(dep); !ok {
				missing = append(missing, MissingRef{Source: slug, Target: dep})
				continue
			}
			if err := g.AddEdge(dag.Edge{From: dep, To: slug}); err != nil {
				return nil, nil, fmt.Errorf("adding edge %s -> %s: %w", dep, slug, err)
			}
		}
	}

	return g, missing, nil
}

// PlanOptions tunes plan computation.
type PlanOptions struct {
	// Force schedules every non-draft document regardless of hashes.
	Force bool

	// IncludeDrafts schedules draft documents too.
	IncludeDrafts bool
}

// Plan computes the work a run would perform: the dependency graph, the
// dirty set, and the dirty documents grouped into topological layers.
//
// Returns an error with code ErrCodeCycle if the corpus contains a
// dependency cycle; the message names the documents on the cycle.
func (e *Engine) Plan(ctx context.Context, c *corpus.Corpus, opts PlanOptions) (*Plan, error) {
	start := time.Now()
	observability.Engine().OnPlanStart(ctx, c.Len())

	plan, err := e.plan(ctx, c, opts)

	dirty, layers := 0, 0
	if plan != nil {
		dirty = plan.DirtyCount()
		layers = len(plan.Layers)
	}
	observability.Engine().OnPlanComplete(ctx, dirty, layers, time.Since(start), err)
	return plan, err
}

func (e *Engine) plan(ctx context.Context, c *corpus.Corpus, opts PlanOptions) (*Plan, error) {
	g, missing, err := BuildGraph(c)
	if err != nil {
		return nil, err
	}

	if err := g.Validate(); err != nil {
		if cycle := g.FindCycle(); cycle != nil {
			return nil, errors.New(errors.ErrCodeCycle,
				"dependency cycle: %s", strings.Join(cycle, " -> "))
		}
		return nil, errors.Wrap(errors.ErrCodeCycle, err, "validating dependency graph")
	}

	records, err := e.store.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading store records: %w", err)
	}
	bySlug := make(map[string]store.DocumentRecord, len(records))
	for _, rec := range records {
		bySlug[rec.Slug] = rec
	}

	dirty := make(map[string]bool)
	for slug, doc := range c.Documents {
		rec, known := bySlug[slug]
		switch {
		case opts.Force:
			dirty[slug] = true
		case !known:
			dirty[slug] = true
		case rec.ContentHash != doc.ContentHash:
			// file changed since the last sync
			dirty[slug] = true
		case rec.Dirty():
			dirty[slug] = true
		}
	}

	// Staleness propagates downstream: anything that depends on a dirty
	// document, directly or transitively, re-renders too.
	for slug := range copyDirty(dirty) {
		for descendant := range g.Descendants(slug) {
			dirty[descendant] = true
		}
	}

	var layers [][]string
	var depths []int
	for depth, layer := range g.Layers() {
		var scheduled []string
		for _, slug := range layer {
			if !dirty[slug] {
				continue
			}
			if doc, ok := c.Document(slug); ok && doc.FrontMatter.Draft && !opts.IncludeDrafts {
				continue
			}
			scheduled = append(scheduled, slug)
		}
		if len(scheduled) > 0 {
			layers = append(layers, scheduled)
			depths = append(depths, depth)
		}
	}

	return &Plan{Graph: g, Dirty: dirty, Layers: layers, Depths: depths, Missing: missing}, nil
}

func copyDirty(dirty map[string]bool) map[string]bool {
	out := make(map[string]bool, len(dirty))
	for k, v := range dirty {
		out[k] = v
	}
	return out
}

func documentTitle(doc *corpus.Document) string {
	if doc.FrontMatter.Title != "" {
		return doc.FrontMatter.Title
	}
	if doc.FrontMatter.Name != "" {
		return doc.FrontMatter.Name
	}
	return doc.Slug
}
