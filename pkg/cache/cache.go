// Package cache provides the render cache used by the composition engine.
//
// Cache keys derive from a document's composite content hash plus the
// render options, so a change anywhere in a document's dependency closure
// (or in the render configuration) naturally misses the cache.
//
// Implementations:
//   - [FileCache]: hash-sharded files for CLI usage
//   - [RedisCache]: shared cache for multi-host setups
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"time"
)

// Cache is the interface for render cache backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ArtifactKeyOpts captures the render options that participate in cache
// keys. Two renders with different options must never share an artifact.
type ArtifactKeyOpts struct {
	Format     string   // output format, e.g. "html"
	Extensions []string // enabled markdown extensions
	UnsafeHTML bool     // raw HTML passthrough
	HardWraps  bool     // newline handling
}

// Keyer generates cache keys.
type Keyer interface {
	// ArtifactKey generates a key for a rendered document artifact.
	// compositeHash is the document's composite content hash (own content
	// mixed with all dependency hashes).
	ArtifactKey(compositeHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ArtifactKey generates a key of the form "artifact:<hash(payload)>".
func (k *DefaultKeyer) ArtifactKey(compositeHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", compositeHash, opts)
}
