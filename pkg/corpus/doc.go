// Package corpus models a directory of markdown documents with YAML
// frontmatter and the references between them.
//
// A corpus is a set of skill files and knowledge-base notes. Each document
// carries frontmatter metadata (name, title, description, tags) and a
// markdown body. Documents reference each other with wiki-style links:
//
//	[[slug]]         link reference (dependency, rendered as a hyperlink)
//	[[slug|label]]   link reference with display label
//	![[slug]]        embed reference (dependency body spliced in before render)
//
// The [Loader] walks a corpus root, parses every markdown file, hashes its
// content with xxHash, and extracts references. The result feeds the
// composition store and the incremental render planner.
package corpus
