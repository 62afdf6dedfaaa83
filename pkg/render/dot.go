package render

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/loomkit/loom/pkg/dag"
	"github.com/loomkit/loom/pkg/errors"
)

// ToDOT serializes the dependency graph in Graphviz DOT format.
// Edges point from dependency to dependent, so rendering order flows
// top to bottom. Output is deterministic for a given graph.
func ToDOT(g *dag.Graph) string {
	var b strings.Builder
	b.WriteString("digraph corpus {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\"];\n")

	ids := make([]string, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if node, ok := g.Node(id); ok {
			if title, ok := node.Meta["title"].(string); ok && title != "" {
				fmt.Fprintf(&b, "  %q [label=%q];\n", id, title)
				continue
			}
		}
		fmt.Fprintf(&b, "  %q;\n", id)
	}

	b.WriteString("\n")
	for _, id := range ids {
		dependents := append([]string(nil), g.Dependents(id)...)
		sort.Strings(dependents)
		for _, dep := range dependents {
			fmt.Fprintf(&b, "  %q -> %q;\n", id, dep)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderSVG renders the dependency graph to SVG via Graphviz.
func RenderSVG(ctx context.Context, g *dag.Graph) ([]byte, error) {
	dot := ToDOT(g)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "initializing graphviz")
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "parsing DOT output")
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "rendering SVG")
	}
	return buf.Bytes(), nil
}
