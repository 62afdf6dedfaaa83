package dag

import "slices"

// Layers groups nodes into topological layers using Kahn's algorithm.
//
// Layer 0 contains nodes with no dependencies; every other node lands at
// one plus the maximum layer of its dependencies. Rendering layers in order
// guarantees a document never renders before everything it depends on,
// while documents within a layer are independent and can render in
// parallel. IDs within a layer are sorted for determinism.
//
// Layers assumes the graph is acyclic; run [Graph.Validate] first. Nodes
// caught in a cycle never reach zero in-degree and are silently omitted.
//
// Time complexity is O(V + E).
func (g *Graph) Layers() [][]string {
	inDegree := make(map[string]int, len(g.nodes))
	depth := make(map[string]int, len(g.nodes))
	queue := make([]string, 0, len(g.nodes))

	for id := range g.nodes {
		degree := g.InDegree(id)
		inDegree[id] = degree
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	maxDepth := -1
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		if depth[curr] > maxDepth {
			maxDepth = depth[curr]
		}

		for _, dep := range g.outgoing[curr] {
			if d := depth[curr] + 1; d > depth[dep] {
				depth[dep] = d
			}
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if maxDepth < 0 {
		return nil
	}

	layers := make([][]string, maxDepth+1)
	for id := range g.nodes {
		if inDegree[id] > 0 {
			continue // unreachable due to a cycle
		}
		d := depth[id]
		layers[d] = append(layers[d], id)
	}
	for _, layer := range layers {
		slices.Sort(layer)
	}
	return layers
}

// Depth returns the topological depth of a node, or -1 if the node does
// not exist. Depth is the index of the node's layer in [Graph.Layers].
func (g *Graph) Depth(id string) int {
	if _, ok := g.nodes[id]; !ok {
		return -1
	}
	for i, layer := range g.Layers() {
		if slices.Contains(layer, id) {
			return i
		}
	}
	return -1
}
