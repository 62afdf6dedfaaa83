package render

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/loomkit/loom/pkg/corpus"
)

// refPattern mirrors the corpus reference syntax: [[target]],
// [[target|label]], and the embed form ![[target]].
var refPattern = regexp.MustCompile(`(!)?\[\[([^\[\]|]+)(?:\|([^\[\]]+))?\]\]`)

// Resolver supplies dependency content during expansion.
// Bodies returns the already-expanded markdown body of a dependency;
// the engine guarantees dependencies expanded before their dependents
// because layers execute in topological order.
type Resolver interface {
	Body(slug string) ([]byte, bool)
	Title(slug string) string
}

// Expand resolves wiki-style references in a document body.
//
//   - Embeds (![[slug]]) are replaced with the dependency's expanded body.
//   - Links ([[slug]] / [[slug|label]]) become markdown links to the
//     dependency's artifact, relative to the referring document.
//   - References to unknown slugs are left as plain text labels so a
//     broken corpus still renders readably.
//
// References inside fenced code blocks and inline code spans are left
// untouched, matching [corpus.ExtractRefs].
func Expand(doc *corpus.Document, resolver Resolver) []byte {
	var out strings.Builder
	inFence := false

	lines := strings.Split(string(doc.Body), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		fenceToggle := strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
		if fenceToggle || inFence {
			out.WriteString(line)
			if fenceToggle {
				inFence = !inFence
			}
			if i < len(lines)-1 {
				out.WriteByte('\n')
			}
			continue
		}

		out.WriteString(expandLine(line, doc.Slug, resolver))
		if i < len(lines)-1 {
			out.WriteByte('\n')
		}
	}

	return []byte(out.String())
}

func expandLine(line, fromSlug string, resolver Resolver) string {
	return replaceOutsideInlineCode(line, func(segment string) string {
		return refPattern.ReplaceAllStringFunc(segment, func(match string) string {
			m := refPattern.FindStringSubmatch(match)
			target := normalizeTarget(m[2])
			label := strings.TrimSpace(m[3])

			if m[1] == "!" {
				if body, ok := resolver.Body(target); ok {
					return string(body)
				}
				return fmt.Sprintf("*(missing embed: %s)*", target)
			}

			if label == "" {
				label = resolver.Title(target)
			}
			if label == "" {
				label = target
			}

			if _, ok := resolver.Body(target); !ok {
				return label
			}
			return fmt.Sprintf("[%s](%s)", label, ArtifactLink(fromSlug, target))
		})
	})
}

// replaceOutsideInlineCode applies fn to the parts of a line that are not
// inside backtick code spans.
func replaceOutsideInlineCode(line string, fn func(string) string) string {
	parts := strings.Split(line, "`")
	for i := range parts {
		if i%2 == 0 { // outside a code span
			parts[i] = fn(parts[i])
		}
	}
	return strings.Join(parts, "`")
}

func normalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	target = strings.TrimSuffix(target, ".md")
	return corpus.SlugFromPath(target + ".md")
}

// ArtifactPath returns the output-relative artifact path of a document.
func ArtifactPath(slug string) string {
	return slug + ".html"
}

// ArtifactLink computes a relative link from one document's artifact to
// another's, honoring namespace directories in slugs.
func ArtifactLink(fromSlug, toSlug string) string {
	fromDir := path.Dir(ArtifactPath(fromSlug))
	rel, err := filepathRel(fromDir, ArtifactPath(toSlug))
	if err != nil {
		return "/" + ArtifactPath(toSlug)
	}
	return rel
}

// filepathRel is path.Rel for slash-separated paths. The standard library
// only ships filepath.Rel, which is OS-separator dependent; artifact links
// always use forward slashes.
func filepathRel(base, target string) (string, error) {
	if base == "." {
		return target, nil
	}

	baseParts := strings.Split(base, "/")
	targetParts := strings.Split(target, "/")

	common := 0
	for common < len(baseParts) && common < len(targetParts)-1 &&
		baseParts[common] == targetParts[common] {
		common++
	}

	var rel []string
	for i := common; i < len(baseParts); i++ {
		rel = append(rel, "..")
	}
	rel = append(rel, targetParts[common:]...)
	return path.Join(rel...), nil
}
