package corpus

import (
	"strings"
	"testing"
)

func TestParseFrontMatter(t *testing.T) {
	source := []byte(`---
name: error-handling
title: Error Handling in Rust
description: thiserror vs anyhow comparison
tags: [rust, errors]
audience: coding-assistant
---
# Error Handling

Body content here.
`)

	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		t.Fatalf("ParseFrontMatter error: %v", err)
	}

	if fm.Name != "error-handling" {
		t.Errorf("Name = %q", fm.Name)
	}
	if fm.Title != "Error Handling in Rust" {
		t.Errorf("Title = %q", fm.Title)
	}
	if fm.Description != "thiserror vs anyhow comparison" {
		t.Errorf("Description = %q", fm.Description)
	}
	if len(fm.Tags) != 2 || fm.Tags[0] != "rust" || fm.Tags[1] != "errors" {
		t.Errorf("Tags = %v", fm.Tags)
	}
	if fm.Custom["audience"] != "coding-assistant" {
		t.Errorf("Custom[audience] = %v", fm.Custom["audience"])
	}
	if fm.Draft {
		t.Error("Draft should default to false")
	}

	if !strings.HasPrefix(string(body), "# Error Handling") {
		t.Errorf("body should start after frontmatter, got %q", string(body[:20]))
	}
}

func TestParseFrontMatterMissing(t *testing.T) {
	source := []byte("# Just Markdown\n\nNo metadata block.\n")

	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		t.Fatalf("ParseFrontMatter error: %v", err)
	}

	if fm.Name != "" || fm.Title != "" || len(fm.Tags) != 0 {
		t.Errorf("expected empty frontmatter, got %+v", fm)
	}
	if string(body) != string(source) {
		t.Error("body should equal full source when frontmatter is absent")
	}
}

func TestParseFrontMatterDraft(t *testing.T) {
	source := []byte("---\ndraft: true\n---\nwip\n")

	fm, _, err := ParseFrontMatter(source)
	if err != nil {
		t.Fatalf("ParseFrontMatter error: %v", err)
	}
	if !fm.Draft {
		t.Error("Draft = false, want true")
	}
}
