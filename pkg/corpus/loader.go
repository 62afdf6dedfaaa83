package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoaderOptions configures corpus scanning.
type LoaderOptions struct {
	// Root is the corpus root directory. Defaults to ".".
	Root string

	// SkillsDir is a dot-directory that is scanned despite the general
	// rule of skipping hidden directories (e.g. ".claude/skills").
	// Empty disables the exception.
	SkillsDir string

	// IncludeDrafts loads documents marked draft: true in frontmatter.
	// Drafts are excluded by default.
	IncludeDrafts bool
}

// Loader scans a directory tree of markdown files into a [Corpus].
type Loader struct {
	opts LoaderOptions
}

// NewLoader creates a loader for the given options.
func NewLoader(opts LoaderOptions) *Loader {
	if opts.Root == "" {
		opts.Root = "."
	}
	return &Loader{opts: opts}
}

// Load walks the corpus root and parses every markdown file.
// Hidden directories are skipped except the configured skills directory.
// Returns ErrDuplicateSlug if two files resolve to the same slug and
// ErrEmptyCorpus if no markdown files are found.
func (l *Loader) Load(ctx context.Context) (*Corpus, error) {
	root, err := filepath.Abs(l.opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus root: %w", err)
	}

	c := &Corpus{
		Root:      root,
		Documents: make(map[string]*Document),
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if l.skipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		if l.skipFile(rel) {
			return nil
		}

		doc, err := l.loadFile(path, rel)
		if err != nil {
			return fmt.Errorf("load %s: %w", rel, err)
		}

		if doc.FrontMatter.Draft && !l.opts.IncludeDrafts {
			return nil
		}

		if existing, ok := c.Documents[doc.Slug]; ok {
			return fmt.Errorf("%w: %q used by both %s and %s",
				ErrDuplicateSlug, doc.Slug, existing.Path, doc.Path)
		}
		c.Documents[doc.Slug] = doc
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if len(c.Documents) == 0 {
		return nil, ErrEmptyCorpus
	}

	return c, nil
}

// skipDir reports whether a corpus-relative directory should be skipped.
// Any directory under a dot-prefixed segment is skipped unless it lies on
// the path to the skills dir or inside it. The on-the-path case keeps the
// walk descending through e.g. ".claude" to reach ".claude/skills" without
// admitting siblings like ".claude/other".
func (l *Loader) skipDir(rel string) bool {
	if rel == "." || !hiddenPath(rel) {
		return false
	}

	if l.opts.SkillsDir == "" {
		return true
	}

	skills := filepath.ToSlash(l.opts.SkillsDir)
	relSlash := filepath.ToSlash(rel)
	return !within(skills, relSlash) && !within(relSlash, skills)
}

// skipFile reports whether a file under a dot-prefixed directory should be
// skipped. Unlike skipDir, ancestors of the skills dir do not qualify: a
// loose file in ".claude" is hidden even when ".claude/skills" is scanned.
func (l *Loader) skipFile(rel string) bool {
	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir == "." || !hiddenPath(dir) {
		return false
	}
	if l.opts.SkillsDir == "" {
		return true
	}
	return !within(dir, filepath.ToSlash(l.opts.SkillsDir))
}

// hiddenPath reports whether any segment of the slash path starts with a dot.
func hiddenPath(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// within reports whether p equals root or is a descendant of it.
func within(p, root string) bool {
	return p == root || strings.HasPrefix(p, root+"/")
}

func (l *Loader) loadFile(path, rel string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		return nil, err
	}

	slug := SlugFromPath(rel)
	if fm.Name != "" {
		slug = normalizeTarget(fm.Name)
	}

	return &Document{
		Slug:        slug,
		Path:        filepath.ToSlash(rel),
		FrontMatter: fm,
		Body:        body,
		ContentHash: HashContent(source),
		Refs:        ExtractRefs(body),
		Modified:    info.ModTime(),
	}, nil
}
