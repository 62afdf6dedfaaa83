package corpus

import (
	"bytes"
	"fmt"

	"github.com/adrg/frontmatter"
)

// frontMatterEnvelope is the YAML shape of a document's metadata block.
// Unrecognized keys land in Custom via the inline tag.
type frontMatterEnvelope struct {
	Name        string         `yaml:"name"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Tags        []string       `yaml:"tags"`
	Draft       bool           `yaml:"draft"`
	Custom      map[string]any `yaml:",inline"`
}

// ParseFrontMatter extracts metadata and the markdown body from source
// bytes. Files without a frontmatter block yield empty metadata and the
// full source as body.
func ParseFrontMatter(source []byte) (FrontMatter, []byte, error) {
	var env frontMatterEnvelope

	body, err := frontmatter.Parse(bytes.NewReader(source), &env)
	if err != nil {
		return FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	if env.Custom == nil {
		env.Custom = map[string]any{}
	}

	return FrontMatter{
		Name:        env.Name,
		Title:       env.Title,
		Description: env.Description,
		Tags:        append([]string(nil), env.Tags...),
		Draft:       env.Draft,
		Custom:      env.Custom,
	}, body, nil
}
