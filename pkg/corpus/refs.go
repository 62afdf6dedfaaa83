package corpus

import (
	"regexp"
	"strings"
)

// refPattern matches wiki-style references: [[target]], [[target|label]],
// and the embed form ![[target]].
var refPattern = regexp.MustCompile(`(!)?\[\[([^\[\]|]+)(?:\|([^\[\]]+))?\]\]`)

// inlineCodePattern matches inline code spans so references inside
// backticks are not treated as dependencies.
var inlineCodePattern = regexp.MustCompile("`[^`]*`")

// ExtractRefs scans a markdown body for wiki-style references.
// References inside fenced code blocks and inline code spans are ignored.
// Targets are normalized to slug form; the order of appearance is preserved
// and duplicates are kept (callers dedupe via [Document.Dependencies]).
func ExtractRefs(body []byte) []Ref {
	var refs []Ref
	inFence := false

	for _, line := range strings.Split(string(body), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		line = inlineCodePattern.ReplaceAllString(line, "")

		for _, m := range refPattern.FindAllStringSubmatch(line, -1) {
			target := normalizeTarget(m[2])
			if target == "" {
				continue
			}
			kind := RefLink
			if m[1] == "!" {
				kind = RefEmbed
			}
			refs = append(refs, Ref{
				Target: target,
				Label:  strings.TrimSpace(m[3]),
				Kind:   kind,
			})
		}
	}

	return refs
}

// normalizeTarget converts a reference target to slug form, keeping
// slash-separated namespace segments.
func normalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	target = strings.TrimSuffix(target, ".md")

	segments := strings.Split(target, "/")
	out := segments[:0]
	for _, seg := range segments {
		if s := slugify(seg); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}
