package corpus

import (
	"reflect"
	"testing"
)

func TestExtractRefs(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []Ref
	}{
		{
			name: "plain link",
			body: "See [[thiserror]] for details.",
			want: []Ref{{Target: "thiserror", Kind: RefLink}},
		},
		{
			name: "link with label",
			body: "See [[error-handling|the error guide]].",
			want: []Ref{{Target: "error-handling", Label: "the error guide", Kind: RefLink}},
		},
		{
			name: "embed",
			body: "![[shared-intro]]\n\nMore text.",
			want: []Ref{{Target: "shared-intro", Kind: RefEmbed}},
		},
		{
			name: "namespaced target",
			body: "Read [[skills/Syntax Highlighting]].",
			want: []Ref{{Target: "skills/syntax-highlighting", Kind: RefLink}},
		},
		{
			name: "md extension stripped",
			body: "Read [[xxhash.md]].",
			want: []Ref{{Target: "xxhash", Kind: RefLink}},
		},
		{
			name: "multiple on one line",
			body: "Both [[a]] and ![[b]] matter.",
			want: []Ref{
				{Target: "a", Kind: RefLink},
				{Target: "b", Kind: RefEmbed},
			},
		},
		{
			name: "ignored inside fenced code",
			body: "```\n[[not-a-ref]]\n```\n[[real-ref]]",
			want: []Ref{{Target: "real-ref", Kind: RefLink}},
		},
		{
			name: "ignored inside tilde fence",
			body: "~~~markdown\n![[nope]]\n~~~\n",
			want: nil,
		},
		{
			name: "ignored inside inline code",
			body: "Use `[[slug]]` syntax to link, like [[mdast]].",
			want: []Ref{{Target: "mdast", Kind: RefLink}},
		},
		{
			name: "empty target ignored",
			body: "Broken [[   ]] reference.",
			want: nil,
		},
		{
			name: "no refs",
			body: "Just prose with [regular](https://example.com) links.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRefs([]byte(tt.body))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractRefs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDocumentDependencies(t *testing.T) {
	doc := &Document{
		Refs: []Ref{
			{Target: "a", Kind: RefLink},
			{Target: "b", Kind: RefEmbed},
			{Target: "a", Kind: RefEmbed}, // duplicate target
			{Target: "c", Kind: RefLink},
		},
	}

	deps := doc.Dependencies()
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("Dependencies() = %v, want %v", deps, want)
	}

	embeds := doc.Embeds()
	wantEmbeds := []string{"b", "a"}
	if !reflect.DeepEqual(embeds, wantEmbeds) {
		t.Errorf("Embeds() = %v, want %v", embeds, wantEmbeds)
	}
}

func TestSlugFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"thiserror.md", "thiserror"},
		{"Skills/Error_Handling.md", "skills/error-handling"},
		{"kb/SurrealDB Notes.md", "kb/surrealdb-notes"},
		{"a/b/C D.md", "a/b/c-d"},
	}

	for _, tt := range tests {
		if got := SlugFromPath(tt.path); got != tt.want {
			t.Errorf("SlugFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
