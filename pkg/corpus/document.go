package corpus

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrDuplicateSlug is returned by [Loader.Load] when two files resolve
	// to the same slug. Slugs double as store record IDs and artifact
	// filenames, so they must be unique across the corpus.
	ErrDuplicateSlug = errors.New("duplicate document slug")

	// ErrEmptyCorpus is returned by [Loader.Load] when the corpus root
	// contains no markdown files.
	ErrEmptyCorpus = errors.New("corpus contains no markdown files")
)

// RefKind distinguishes link references from embed references.
type RefKind int

const (
	// RefLink is a `[[slug]]` reference: the target is a dependency and is
	// rendered as a hyperlink to its artifact.
	RefLink RefKind = iota
	// RefEmbed is a `![[slug]]` reference: the target is a dependency and
	// its body is spliced into the referring document before rendering.
	RefEmbed
)

// Ref is a reference from one document to another.
type Ref struct {
	Target string  // slug of the referenced document
	Label  string  // optional display label ([[slug|label]])
	Kind   RefKind // link or embed
}

// FrontMatter holds the YAML metadata block of a document.
// The corpus convention catalogs documents by name, description, and tags;
// unrecognized keys are preserved in Custom.
type FrontMatter struct {
	Name        string         // canonical document name (slug source)
	Title       string         // display title
	Description string         // one-line summary
	Tags        []string       // catalog tags
	Draft       bool           // drafts are scanned but never rendered
	Custom      map[string]any // passthrough for unrecognized keys
}

// Document is a single markdown file in the corpus.
type Document struct {
	Slug        string      // unique identifier, derived from Name or Path
	Path        string      // corpus-relative file path
	FrontMatter FrontMatter // parsed metadata
	Body        []byte      // markdown body without the frontmatter block
	ContentHash string      // xxHash of the raw file content, hex encoded
	Refs        []Ref       // outgoing references, in order of appearance
	Modified    time.Time   // file modification time
}

// Dependencies returns the deduplicated slugs this document depends on.
// Both link and embed references create dependencies. Order follows first
// appearance in the body.
func (d *Document) Dependencies() []string {
	seen := make(map[string]struct{}, len(d.Refs))
	var deps []string
	for _, r := range d.Refs {
		if _, ok := seen[r.Target]; ok {
			continue
		}
		seen[r.Target] = struct{}{}
		deps = append(deps, r.Target)
	}
	return deps
}

// Embeds returns the deduplicated slugs of embed references only.
func (d *Document) Embeds() []string {
	seen := make(map[string]struct{})
	var embeds []string
	for _, r := range d.Refs {
		if r.Kind != RefEmbed {
			continue
		}
		if _, ok := seen[r.Target]; ok {
			continue
		}
		seen[r.Target] = struct{}{}
		embeds = append(embeds, r.Target)
	}
	return embeds
}

// Corpus is the loaded document set, keyed by slug.
type Corpus struct {
	Root      string               // absolute corpus root
	Documents map[string]*Document // slug -> document
}

// Slugs returns all document slugs. The order is not guaranteed.
func (c *Corpus) Slugs() []string {
	slugs := make([]string, 0, len(c.Documents))
	for slug := range c.Documents {
		slugs = append(slugs, slug)
	}
	return slugs
}

// Document returns the document with the given slug and true,
// or nil and false if not found.
func (c *Corpus) Document(slug string) (*Document, bool) {
	d, ok := c.Documents[slug]
	return d, ok
}

// Len returns the number of documents in the corpus.
func (c *Corpus) Len() int { return len(c.Documents) }

// SlugFromPath derives a document slug from a corpus-relative path.
// The extension is dropped, path separators are kept as namespace
// separators, and each segment is lowercased with spaces and underscores
// collapsed to dashes: "Skills/Error_Handling.md" -> "skills/error-handling".
func SlugFromPath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimSuffix(path, filepath.Ext(path))

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = slugify(seg)
	}
	return strings.Join(segments, "/")
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := true // trim leading dashes
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
