// Package render turns corpus documents into HTML artifacts and exports
// the dependency graph for visualization.
//
// [Markdown] wraps goldmark with a named extension registry. Before
// markdown conversion, [Expand] resolves wiki-style references: embeds
// (![[slug]]) splice dependency content in place, links ([[slug]]) become
// relative hyperlinks to the dependency's artifact.
//
// [ToDOT] and [RenderSVG] export the dependency graph via Graphviz for
// the `loom graph` command.
package render
