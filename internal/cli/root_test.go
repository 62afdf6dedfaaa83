package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	var buf bytes.Buffer
	return New(newLogger(&buf, log.ErrorLevel))
}

func TestRootCommand(t *testing.T) {
	root := newTestCLI(t).RootCommand()

	if root.Use != "loom" {
		t.Errorf("Use = %q, want loom", root.Use)
	}

	want := map[string]bool{
		"scan": false, "render": false, "status": false,
		"graph": false, "cache": false, "serve": false, "completion": false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

// writeTestCorpus lays out a small corpus plus a loom.toml pointing at it.
func writeTestCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"serde.md": `---
name: serde
title: Serde
---
# Serde

Serialization framework.
`,
		"tokio.md": `---
name: tokio
---
Runtime notes, see [[serde]].
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := `
[corpus]
root = "` + dir + `"

[store]
backend = "memory"

[cache]
backend = "none"

[render]
output_dir = "` + filepath.Join(dir, "build") + `"
`
	cfgPath := filepath.Join(dir, "loom.toml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestRenderCommandEndToEnd(t *testing.T) {
	cfgPath := writeTestCorpus(t)

	c := newTestCLI(t)
	root := c.RootCommand()
	root.SetArgs([]string{"render", "--config", cfgPath})

	if err := root.Execute(); err != nil {
		t.Fatalf("render: %v", err)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"serde.html", "tokio.html"} {
		artifact := filepath.Join(cfg.Render.OutputDir, name)
		if _, err := os.Stat(artifact); err != nil {
			t.Errorf("artifact %s not written: %v", name, err)
		}
	}
}

func TestGraphCommandDOT(t *testing.T) {
	cfgPath := writeTestCorpus(t)
	outPath := filepath.Join(t.TempDir(), "graph.dot")

	root := newTestCLI(t).RootCommand()
	root.SetArgs([]string{"graph", "--config", cfgPath, "--format", "dot", "--out", outPath})

	if err := root.Execute(); err != nil {
		t.Fatalf("graph: %v", err)
	}

	dot, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(dot, []byte(`"serde" -> "tokio"`)) {
		t.Errorf("DOT output missing edge:\n%s", dot)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 * 1024 * 1024, "3.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
