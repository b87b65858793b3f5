package blobpath

import (
	"context"
	"sync"
)

// Global instance
var (
	defaultFS   *FS
	defaultMu   sync.Mutex
	defaultOnce sync.Once
	defaultErr  error
)

// Init initializes the global FS instance. Without a config it is loaded
// from the environment.
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		var f *FS
		f, defaultErr = NewFromConfig(cfg)
		if defaultErr != nil {
			return
		}
		defaultMu.Lock()
		defaultFS = f
		defaultMu.Unlock()
	})

	return defaultErr
}

// NewFromConfig creates an FS whose registry is configured from cfg.
func NewFromConfig(cfg *Config, opts ...Option) (*FS, error) {
	f := New(opts...)
	if cfg.CacheDir != "" {
		f.cache.SetRoot(cfg.CacheDir)
	}
	if err := cfg.Apply(f.registry); err != nil {
		return nil, err
	}
	return f, nil
}

// Default returns the global instance, initializing it on first use. If
// the environment config cannot be loaded a bare FS is used so the
// package-level helpers keep working.
func Default() *FS {
	defaultMu.Lock()
	f := defaultFS
	defaultMu.Unlock()
	if f != nil {
		return f
	}
	if err := Init(); err != nil {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		if defaultFS == nil {
			defaultFS = New()
		}
		return defaultFS
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultFS
}

// SetDefault replaces the global instance.
func SetDefault(f *FS) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultFS = f
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultFS = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// ============================================================================
// Package-level helpers on the global instance
// ============================================================================

// Register installs b for scheme in the global registry.
func Register(scheme string, b Backend) { Default().registry.Register(scheme, b) }

// Unregister drops scheme from the global registry.
func Unregister(scheme string) { Default().registry.Unregister(scheme) }

// GetBackend returns the global backend for scheme.
func GetBackend(scheme string) (Backend, error) { return Default().registry.Get(scheme) }

// SetClientParams sets constructor params for scheme in the global registry.
func SetClientParams(scheme string, params ClientParams) {
	Default().registry.SetClientParams(scheme, params)
}

// UseLocal routes every scheme of the global registry to a local-disk
// backend rooted at dir. An empty dir restores normal dispatch.
func UseLocal(dir string) error {
	if dir == "" {
		Default().registry.Override(nil)
		return nil
	}
	b, err := CreateDriver("fs", ClientParams{"root": dir})
	if err != nil {
		return err
	}
	Default().registry.Override(b)
	return nil
}

// UseCache sets the global cache root.
func UseCache(dir string) { Default().cache.SetRoot(dir) }

// CacheRoot returns the global cache root.
func CacheRoot() (string, error) { return Default().cache.Root() }

// ClearCache removes the global cache root.
func ClearCache() error { return Default().cache.Clear() }

// ToLocal materializes p through the global instance.
func ToLocal(ctx context.Context, p Path, recurse bool) (string, error) {
	return Default().ToLocal(ctx, p, recurse)
}
