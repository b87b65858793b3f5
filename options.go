package blobpath

import (
	"go.uber.org/zap"
)

// Option configures an FS
type Option func(*FS)

// WithRegistry makes the FS dispatch through reg instead of a private
// registry.
func WithRegistry(reg *Registry) Option {
	return func(f *FS) {
		f.registry = reg
	}
}

// WithLogger sets the logger used for cache and walk diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(f *FS) {
		f.logger = logger
	}
}

// WithCache sets the local cache used by ToLocal.
func WithCache(c *Cache) Option {
	return func(f *FS) {
		f.cache = c
	}
}

// WithCacheRoot roots the local cache at dir.
func WithCacheRoot(dir string) Option {
	return func(f *FS) {
		f.cache.SetRoot(dir)
	}
}

// WithMetrics records backend calls and cache lookups in m.
func WithMetrics(m *Metrics) Option {
	return func(f *FS) {
		f.metrics = m
	}
}

// ============================================================================
// Operation Options
// ============================================================================

type mkdirOptions struct {
	parents bool
	existOK bool
}

// MkdirOption configures Mkdir
type MkdirOption func(*mkdirOptions)

// WithParents creates the bucket when making a key path inside a missing one.
func WithParents() MkdirOption {
	return func(o *mkdirOptions) {
		o.parents = true
	}
}

// WithExistOK suppresses ErrExist when the target already exists.
func WithExistOK() MkdirOption {
	return func(o *mkdirOptions) {
		o.existOK = true
	}
}

type touchOptions struct {
	exclusive bool
	noRefresh bool
}

// TouchOption configures Touch
type TouchOption func(*touchOptions)

// TouchExclusive makes Touch fail with ErrExist if the blob is present.
func TouchExclusive() TouchOption {
	return func(o *touchOptions) {
		o.exclusive = true
	}
}

// TouchNoRefresh leaves an existing blob's modification time alone.
func TouchNoRefresh() TouchOption {
	return func(o *touchOptions) {
		o.noRefresh = true
	}
}

type openOptions struct {
	compression Compression
	detect      bool
}

// OpenOption configures OpenRead and OpenWrite
type OpenOption func(*openOptions)

// WithoutCompression streams raw bytes regardless of the file extension.
func WithoutCompression() OpenOption {
	return func(o *openOptions) {
		o.compression = CompressionNone
		o.detect = false
	}
}

// WithCompression forces a codec regardless of the file extension.
func WithCompression(c Compression) OpenOption {
	return func(o *openOptions) {
		o.compression = c
		o.detect = false
	}
}
