package cache

// ScopedKeyer wraps a Keyer with a prefix for corpus isolation.
// This matters when several corpora share one cache backend (e.g. a
// Redis instance serving multiple documentation repositories).
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "corpus:skills:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ArtifactKey generates a prefixed key for a rendered document artifact.
func (k *ScopedKeyer) ArtifactKey(compositeHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(compositeHash, opts)
}
