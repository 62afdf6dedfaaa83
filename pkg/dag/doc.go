// Package dag provides the document dependency graph used by the
// composition engine.
//
// Nodes are documents keyed by slug. An edge points from a dependency to
// its dependent: if document A embeds or links document B, the graph holds
// the edge B -> A. Sources are therefore documents with no dependencies,
// and [Graph.Layers] (Kahn's algorithm) yields batches that can be rendered
// in parallel once all earlier layers have finished.
//
// The graph must be acyclic. [Graph.Validate] detects cycles and
// [Graph.FindCycle] reports one concrete cycle path for error messages.
package dag
