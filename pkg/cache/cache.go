// Package cache provides caching for pipeline results (computed layouts
// and rendered artifacts).
//
// Layouts and renders are derived data: both are pure functions of the
// conversation tree shape plus options, which makes them safe to cache by
// content hash and cheap to invalidate (a structural change produces a new
// hash, stale entries simply age out via TTL).
//
// Backends:
//   - NullCache: caching disabled (testing, --no-cache)
//   - FileCache: directory of entry files for CLI usage
//   - RedisCache: shared cache for the serve mode
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry kind. Layouts are cheap to recompute, artifacts
// less so.
const (
	TTLLayout   = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is the interface all caching backends implement.
type Cache interface {
	// Get retrieves a value. The second return reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl stores without expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// LayoutKeyOpts are the inputs, besides the tree shape, that change a
// computed layout.
type LayoutKeyOpts struct {
	CenterX float64
	CenterY float64
}

// ArtifactKeyOpts are the inputs, besides the layout, that change a
// rendered artifact.
type ArtifactKeyOpts struct {
	Format        string
	ShowEdges     bool
	ShowSummaries bool
	Highlight     string
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// LayoutKey keys a computed layout by the tree-shape hash.
	LayoutKey(shapeHash string, opts LayoutKeyOpts) string

	// ArtifactKey keys a rendered artifact by the tree-shape hash.
	ArtifactKey(shapeHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes the key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// LayoutKey generates a key for layout caching.
func (k *DefaultKeyer) LayoutKey(shapeHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", shapeHash, opts)
}

// ArtifactKey generates a key for artifact caching.
func (k *DefaultKeyer) ArtifactKey(shapeHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", shapeHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix, giving separate namespaces to
// e.g. different serve-mode tenants sharing one Redis.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to all keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(shapeHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(shapeHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(shapeHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(shapeHash, opts)
}
