package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Options configures markdown rendering. Every field participates in the
// render cache key, so changing options invalidates cached artifacts.
type Options struct {
	// Extensions names the goldmark extensions to enable.
	// Empty enables the default set (gfm, linkify, tasklist).
	Extensions []string

	// HardWraps renders single newlines as <br>.
	HardWraps bool

	// UnsafeHTML passes raw HTML through to the output. Skill files are
	// trusted local content, so this defaults on in the CLI config.
	UnsafeHTML bool
}

// Markdown renders markdown to HTML using the goldmark engine.
// The renderer is stateless after construction and safe for concurrent
// use, which is what lets layers render in parallel on one instance.
type Markdown struct {
	opts   Options
	engine goldmark.Markdown
}

// NewMarkdown constructs a renderer with auto heading IDs and the
// configured extensions.
func NewMarkdown(opts Options) *Markdown {
	return &Markdown{
		opts:   opts,
		engine: newEngine(opts),
	}
}

// Options returns the options the renderer was built with.
func (m *Markdown) Options() Options { return m.opts }

// Render converts a markdown body to HTML.
func (m *Markdown) Render(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.engine.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

// newEngine builds a goldmark.Markdown from the supplied options.
// Unsupported extension names are ignored.
func newEngine(opts Options) goldmark.Markdown {
	parserOptions := []parser.Option{
		parser.WithAutoHeadingID(),
	}

	var rendererOptions []renderer.Option
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if opts.UnsafeHTML {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parserOptions...),
	}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}
	if exts := collectExtensions(opts.Extensions); len(exts) > 0 {
		engineOptions = append(engineOptions, goldmark.WithExtensions(exts...))
	}

	return goldmark.New(engineOptions...)
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{
			extension.GFM,
			extension.Linkify,
			extension.TaskList,
		}
	}

	var extenders []goldmark.Extender
	seen := map[string]struct{}{}

	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		extenders = append(extenders, ext)
		seen[key] = struct{}{}
	}

	return extenders
}
