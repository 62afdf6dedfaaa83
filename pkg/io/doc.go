// Package io provides JSON import and export for dependency graphs.
//
// # Overview
//
// This package serializes the corpus dependency graph to and from a simple
// JSON format. The format is designed for:
//
//   - Inspection of the graph with external tooling (jq, d3, etc.)
//   - Integration with tools that produce or consume graph data
//   - Round-trip preservation: export, transform, and re-import identically
//
// # JSON Format
//
// The format has two required top-level arrays:
//
//	{
//	  "nodes": [
//	    {"id": "serde", "meta": {"title": "Serde"}},
//	    {"id": "tokio"}
//	  ],
//	  "edges": [
//	    {"from": "serde", "to": "tokio"}
//	  ]
//	}
//
// Each node requires an "id" (the document slug); "meta" is an optional
// object for document metadata such as title and path. Each edge points
// from a dependency to a dependent: "from" must render before "to".
//
// # Usage
//
// Use [ImportJSON] to read a graph from a file path, or [ReadJSON] to read
// from any io.Reader. [ExportJSON] and [WriteJSON] are their counterparts
// for output.
package io
