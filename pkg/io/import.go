package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/loomkit/loom/pkg/dag"
)

// ReadJSON decodes a JSON graph from r into a dependency graph.
//
// The input must be a JSON object with "nodes" and "edges" arrays:
//
//	{
//	  "nodes": [{"id": "serde"}, {"id": "tokio"}],
//	  "edges": [{"from": "serde", "to": "tokio"}]
//	}
//
// Each node must have an "id" field; "meta" is an optional object with
// arbitrary key-value pairs. Each edge must have "from" and "to" fields
// that reference node IDs.
//
// ReadJSON returns an error if:
//   - The JSON is malformed or invalid
//   - A node has a duplicate or empty ID
//   - An edge references an unknown node ID
//
// Errors are wrapped with context describing which node or edge caused
// the problem. Use errors.Is to check for specific graph errors.
//
// The returned graph is independent of r and can be modified safely after
// ReadJSON returns. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*dag.Graph, error) {
	var data graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	g := dag.New()
	for _, n := range data.Nodes {
		if err := g.AddNode(dag.Node{ID: n.ID, Meta: n.Meta}); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, e := range data.Edges {
		if err := g.AddEdge(dag.Edge{From: e.From, To: e.To}); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.From, e.To, err)
		}
	}

	return g, nil
}

// ImportJSON reads a JSON file at path and returns the decoded graph.
//
// ImportJSON opens the file, decodes it using [ReadJSON], and closes the
// file. Errors wrap the underlying cause with the file path for context.
func ImportJSON(path string) (*dag.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
