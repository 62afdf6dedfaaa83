package corpus

import (
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// HashContent computes the xxHash of raw document content.
// Returns a fixed-width 16-character hex string. xxHash is not
// cryptographic; it is used purely for change detection.
func HashContent(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// CompositeHash mixes a document's own content hash with the composite
// hashes of its dependencies. Dependency hashes are sorted before mixing so
// the result is independent of map iteration order. A change anywhere in a
// document's dependency closure produces a different composite hash, which
// is what keys the render cache.
func CompositeHash(own string, deps map[string]string) string {
	if len(deps) == 0 {
		return own
	}

	keys := make([]string, 0, len(deps))
	for k := range deps {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	d := xxhash.New()
	_, _ = d.WriteString(own)
	for _, k := range keys {
		_, _ = d.WriteString(k)
		_, _ = d.WriteString(deps[k])
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
