package dag

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with
	// the same ID already exists in the graph. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From
	// node does not exist in the graph.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is returned by [Graph.Validate] when a cycle is
	// detected. Documents cannot embed or link each other circularly.
	// Cycles are detected using depth-first search with white/gray/black
	// coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes.
// It is commonly used to carry document metadata (title, path, hash) into
// graph exports. Metadata maps are never nil - they are automatically
// initialized to empty maps when needed.
type Metadata map[string]any

// Node represents a document in the dependency graph.
//
// The zero value is not usable - ID must be set before adding to a Graph.
type Node struct {
	ID   string   // Unique identifier (document slug)
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge represents a directed connection from a dependency to a dependent:
// From must be rendered before To.
type Edge struct {
	From string // dependency slug
	To   string // dependent slug
}

// Graph is a directed acyclic graph of documents keyed by slug.
//
// The zero value is not usable - use New to create a valid Graph instance.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string // dependency -> dependent IDs
	incoming map[string][]string // dependent -> dependency IDs
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
// Returns ErrInvalidNodeID if the node ID is empty, or ErrDuplicateNodeID
// if a node with the same ID already exists. The node's Meta field is
// automatically initialized to an empty map if nil.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	node := &n
	g.nodes[node.ID] = node
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Returns ErrUnknownSourceNode if the From node doesn't exist, or
// ErrUnknownTargetNode if the To node doesn't exist. Duplicate edges
// between the same pair are ignored.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(g.outgoing[e.From], e.To) {
		return nil
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
	g.incoming[e.To] = append(g.incoming[e.To], e.From)
	return nil
}

// Nodes returns all nodes in the graph.
// The order is not guaranteed. The returned slice contains pointers to
// the actual node structs, so modifications affect the graph.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// Edges returns a copy of all edges in the graph in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node returns the node with the given ID and true, or nil and false if
// not found.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Dependents returns the IDs of nodes that depend on this node.
// Returns nil if the node has no dependents or doesn't exist. The returned
// slice should not be modified - use it as a read-only view.
func (g *Graph) Dependents(id string) []string { return g.outgoing[id] }

// Dependencies returns the IDs of nodes this node depends on.
// Returns nil if the node has no dependencies or doesn't exist. The
// returned slice should not be modified - use it as a read-only view.
func (g *Graph) Dependencies(id string) []string { return g.incoming[id] }

// InDegree returns the number of dependencies of the node.
// Returns 0 if the node doesn't exist.
func (g *Graph) InDegree(id string) int { return len(g.incoming[id]) }

// OutDegree returns the number of dependents of the node.
// Returns 0 if the node doesn't exist.
func (g *Graph) OutDegree(id string) int { return len(g.outgoing[id]) }

// Sources returns the IDs of nodes with no dependencies, sorted.
// These render first. Returns nil for an empty graph.
func (g *Graph) Sources() []string {
	var sources []string
	for id := range g.nodes {
		if len(g.incoming[id]) == 0 {
			sources = append(sources, id)
		}
	}
	slices.Sort(sources)
	return sources
}

// Sinks returns the IDs of nodes with no dependents, sorted.
// Nothing depends on these. Returns nil for an empty graph.
func (g *Graph) Sinks() []string {
	var sinks []string
	for id := range g.nodes {
		if len(g.outgoing[id]) == 0 {
			sinks = append(sinks, id)
		}
	}
	slices.Sort(sinks)
	return sinks
}

// Descendants returns all transitive dependents of the node, not including
// the node itself. This is the set that goes stale when the node changes,
// and the set that is skipped when the node fails to render.
// Returns an empty set for an unknown node.
func (g *Graph) Descendants(id string) map[string]bool {
	desc := make(map[string]bool)
	stack := slices.Clone(g.outgoing[id])
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if desc[curr] {
			continue
		}
		desc[curr] = true
		stack = append(stack, g.outgoing[curr]...)
	}
	return desc
}

// Validate checks graph integrity and returns nil if valid.
// Returns ErrGraphHasCycle if a cycle is detected. Use this before
// planning a render run.
//
// Cycle detection runs in O(N+E) time using depth-first search.
func (g *Graph) Validate() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, dep := range g.outgoing[id] {
			switch color[dep] {
			case white:
				dfs(dep)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for id := range g.nodes {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// FindCycle returns one concrete cycle path (first node repeated at the
// end) for error messages, or nil if the graph is acyclic. Node iteration
// is sorted so the reported cycle is deterministic.
func (g *Graph) FindCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var path []string
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		path = append(path, id)

		deps := slices.Clone(g.outgoing[id])
		slices.Sort(deps)
		for _, dep := range deps {
			switch color[dep] {
			case white:
				if dfs(dep) {
					return true
				}
			case gray:
				// Close the loop: slice the path from the first
				// occurrence of dep and append dep again.
				start := slices.Index(path, dep)
				cycle = append(slices.Clone(path[start:]), dep)
				return true
			}
		}

		color[id] = black
		path = path[:len(path)-1]
		return false
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if color[id] == white && dfs(id) {
			return cycle
		}
	}
	return nil
}
