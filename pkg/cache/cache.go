// Package cache provides the build cache used to skip redundant toolchain runs.
//
// The cache stores small JSON entries describing previously built font
// binaries, keyed by (source fingerprint, toolchain, build options). Backends:
//   - FileCache: on-disk cache for CLI usage (XDG cache directory)
//   - RedisCache: shared cache for CI fleets running many comparisons
//   - NullCache: caching disabled
//
// Keys are generated through the Keyer interface so that every component
// agrees on the key layout, and so tests can substitute deterministic keys.
package cache

import (
	"context"
	"time"
)

// TTL values for cached data. Build entries are long-lived because they are
// keyed by a content fingerprint: a stale entry is unreachable, not wrong.
const (
	// TTLBuild is how long build artifact entries are retained.
	TTLBuild = 30 * 24 * time.Hour

	// TTLCanonical is how long canonical table dumps are retained.
	TTLCanonical = 7 * 24 * time.Hour
)

// Cache is the interface for cache backends.
type Cache interface {
	// Get retrieves a value. The second return is true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// BuildKeyOpts are the build options that participate in the cache key.
// Two builds of the same source with different options must never share
// an artifact.
type BuildKeyOpts struct {
	ProductionNames bool
	KeepOverlaps    bool
}

// CanonicalKeyOpts are the canonicalization options that participate in
// the cache key for canonical table dumps.
type CanonicalKeyOpts struct {
	CompareMode string
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// BuildKey generates a key for a built font binary.
	// fingerprint is the content hash of the source project.
	BuildKey(fingerprint, toolchain string, opts BuildKeyOpts) string

	// CanonicalKey generates a key for a canonical table dump of a binary.
	// artifactHash is the content hash of the built font file.
	CanonicalKey(artifactHash string, opts CanonicalKeyOpts) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// BuildKey generates a key for a built font binary.
func (k *DefaultKeyer) BuildKey(fingerprint, toolchain string, opts BuildKeyOpts) string {
	return hashKey("build:"+toolchain, fingerprint, opts)
}

// CanonicalKey generates a key for a canonical table dump.
func (k *DefaultKeyer) CanonicalKey(artifactHash string, opts CanonicalKeyOpts) string {
	return hashKey("canonical", artifactHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
