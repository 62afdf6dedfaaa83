package dag

import (
	"errors"
	"reflect"
	"testing"
)

// buildGraph constructs a graph from an adjacency list of
// dependency -> dependents.
func buildGraph(t *testing.T, adj map[string][]string) *Graph {
	t.Helper()
	g := New()

	seen := map[string]bool{}
	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		if err := g.AddNode(Node{ID: id}); err != nil {
			t.Fatalf("AddNode(%q): %v", id, err)
		}
	}
	for from, tos := range adj {
		add(from)
		for _, to := range tos {
			add(to)
		}
	}
	for from, tos := range adj {
		for _, to := range tos {
			if err := g.AddEdge(Edge{From: from, To: to}); err != nil {
				t.Fatalf("AddEdge(%q->%q): %v", from, to, err)
			}
		}
	}
	return g
}

func TestAddNode(t *testing.T) {
	g := New()

	if err := g.AddNode(Node{ID: "a"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode(Node{ID: ""}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("empty ID error = %v, want ErrInvalidNodeID", err)
	}
	if err := g.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("duplicate ID error = %v, want ErrDuplicateNodeID", err)
	}

	n, ok := g.Node("a")
	if !ok {
		t.Fatal("Node(a) not found")
	}
	if n.Meta == nil {
		t.Error("Meta should be initialized")
	}
}

func TestAddEdge(t *testing.T) {
	g := New()
	_ = g.AddNode(Node{ID: "a"})
	_ = g.AddNode(Node{ID: "b"})

	if err := g.AddEdge(Edge{From: "x", To: "b"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("unknown source error = %v", err)
	}
	if err := g.AddEdge(Edge{From: "a", To: "x"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("unknown target error = %v", err)
	}

	if err := g.AddEdge(Edge{From: "a", To: "b"}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	// Duplicate edges collapse
	if err := g.AddEdge(Edge{From: "a", To: "b"}); err != nil {
		t.Fatalf("AddEdge duplicate: %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}

	if deps := g.Dependencies("b"); len(deps) != 1 || deps[0] != "a" {
		t.Errorf("Dependencies(b) = %v", deps)
	}
	if dependents := g.Dependents("a"); len(dependents) != 1 || dependents[0] != "b" {
		t.Errorf("Dependents(a) = %v", dependents)
	}
}

func TestSourcesSinks(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"base":  {"mid1", "mid2"},
		"mid1":  {"top"},
		"mid2":  {"top"},
		"lone":  nil,
		"other": {"mid2"},
	})

	if got := g.Sources(); !reflect.DeepEqual(got, []string{"base", "lone", "other"}) {
		t.Errorf("Sources() = %v", got)
	}
	if got := g.Sinks(); !reflect.DeepEqual(got, []string{"lone", "top"}) {
		t.Errorf("Sinks() = %v", got)
	}
}

func TestDescendants(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"base": {"mid"},
		"mid":  {"top1", "top2"},
		"side": {"top2"},
	})

	desc := g.Descendants("base")
	want := map[string]bool{"mid": true, "top1": true, "top2": true}
	if !reflect.DeepEqual(desc, want) {
		t.Errorf("Descendants(base) = %v, want %v", desc, want)
	}

	if desc := g.Descendants("top1"); len(desc) != 0 {
		t.Errorf("Descendants(top1) = %v, want empty", desc)
	}
	if desc := g.Descendants("missing"); len(desc) != 0 {
		t.Errorf("Descendants(missing) = %v, want empty", desc)
	}
}

func TestValidate(t *testing.T) {
	acyclic := buildGraph(t, map[string][]string{
		"a": {"b", "c"},
		"b": {"c"},
	})
	if err := acyclic.Validate(); err != nil {
		t.Errorf("Validate(acyclic) = %v", err)
	}

	cyclic := buildGraph(t, map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	})
	if err := cyclic.Validate(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("Validate(cyclic) = %v, want ErrGraphHasCycle", err)
	}
}

func TestFindCycle(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"a"},
	})

	cycle := g.FindCycle()
	if len(cycle) != 4 {
		t.Fatalf("FindCycle() = %v, want 4 elements", cycle)
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("cycle should close on itself: %v", cycle)
	}

	// Every consecutive pair must be an actual edge
	for i := 0; i < len(cycle)-1; i++ {
		found := false
		for _, dep := range g.Dependents(cycle[i]) {
			if dep == cycle[i+1] {
				found = true
			}
		}
		if !found {
			t.Errorf("no edge %s -> %s in reported cycle %v", cycle[i], cycle[i+1], cycle)
		}
	}

	acyclic := buildGraph(t, map[string][]string{"a": {"b"}})
	if cycle := acyclic.FindCycle(); cycle != nil {
		t.Errorf("FindCycle(acyclic) = %v, want nil", cycle)
	}
}
