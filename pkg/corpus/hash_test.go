package corpus

import "testing"

func TestHashContent(t *testing.T) {
	h1 := HashContent([]byte("hello"))
	h2 := HashContent([]byte("hello"))
	if h1 != h2 {
		t.Error("HashContent should be deterministic")
	}

	h3 := HashContent([]byte("world"))
	if h1 == h3 {
		t.Error("different inputs should produce different hashes")
	}

	// xxHash produces a fixed-width 16 hex char digest
	if len(h1) != 16 {
		t.Errorf("hash length = %d, want 16", len(h1))
	}
}

func TestCompositeHash(t *testing.T) {
	own := HashContent([]byte("doc body"))

	// No dependencies: composite equals own hash
	if got := CompositeHash(own, nil); got != own {
		t.Errorf("CompositeHash with no deps = %q, want %q", got, own)
	}

	depsA := map[string]string{
		"intro": HashContent([]byte("intro v1")),
		"notes": HashContent([]byte("notes v1")),
	}
	h1 := CompositeHash(own, depsA)
	if h1 == own {
		t.Error("composite with deps should differ from own hash")
	}

	// Deterministic regardless of insertion order
	depsB := map[string]string{
		"notes": depsA["notes"],
		"intro": depsA["intro"],
	}
	if h2 := CompositeHash(own, depsB); h2 != h1 {
		t.Error("composite hash should be order independent")
	}

	// A dependency change flips the composite
	depsA["intro"] = HashContent([]byte("intro v2"))
	if h3 := CompositeHash(own, depsA); h3 == h1 {
		t.Error("dependency change should change composite hash")
	}
}
