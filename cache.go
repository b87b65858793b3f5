package blobpath

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// SidecarSuffix is appended to a cached file's name to form the record of
// the remote LastModified it was fetched with.
const SidecarSuffix = ".last_modified"

// ============================================================================
// Local Cache
// ============================================================================

// Cache materializes remote blobs as ordinary local files under a root
// directory, mirroring bucket/key. A cached file is reused only while its
// sidecar matches the remote blob's LastModified; local mtimes are never
// consulted.
//
// Disk writes are not locked. Two processes materializing the same blob
// may both download it; the last rename wins.
type Cache struct {
	mu       sync.Mutex
	root     string
	ownsRoot bool

	hits   atomic.Int64
	misses atomic.Int64
	bytes  atomic.Int64

	metrics *Metrics
	logger  *zap.Logger
	onHit   func(p Path)
	onMiss  func(p Path)
}

// CacheStatistics reports cache activity since the Cache was created.
type CacheStatistics struct {
	Hits   int64
	Misses int64
	Bytes  int64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheHitCallback sets a function called on each cache hit.
func WithCacheHitCallback(callback func(p Path)) CacheOption {
	return func(c *Cache) {
		c.onHit = callback
	}
}

// WithCacheMissCallback sets a function called before each download.
func WithCacheMissCallback(callback func(p Path)) CacheOption {
	return func(c *Cache) {
		c.onMiss = callback
	}
}

// NewCache creates a cache rooted at root. An empty root defers to a
// temporary directory created on first use.
func NewCache(root string, opts ...CacheOption) *Cache {
	c := &Cache{root: root, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRoot switches the cache root. Entries under the previous root are
// left where they are. An empty dir restores the temporary default.
func (c *Cache) SetRoot(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.root = dir
	c.ownsRoot = false
}

// Root returns the cache root, creating the temporary default if none was
// configured.
func (c *Cache) Root() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.root != "" {
		return c.root, nil
	}
	dir, err := os.MkdirTemp("", "blobpath-cache-")
	if err != nil {
		return "", err
	}
	c.root = dir
	c.ownsRoot = true
	return dir, nil
}

// Clear removes the cache root and everything under it.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.root == "" {
		return nil
	}
	clean, err := filepath.Abs(c.root)
	if err != nil {
		return err
	}
	if clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return NewPathError("clearcache", clean, ErrNotAllowed)
	}
	if err := os.RemoveAll(clean); err != nil {
		return NewPathError("clearcache", clean, err)
	}
	if c.ownsRoot {
		c.root = ""
		c.ownsRoot = false
	}
	return nil
}

// Stats returns hit, miss and download counters.
func (c *Cache) Stats() CacheStatistics {
	return CacheStatistics{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Bytes:  c.bytes.Load(),
	}
}

// LocalPath returns where p is materialized: root/bucket/key.
func (c *Cache) LocalPath(p Path) (string, error) {
	p, err := p.Resolve()
	if err != nil {
		return "", err
	}
	if p.IsRoot() {
		return "", NewPathError("localpath", p.String(), ErrNotAllowed)
	}
	root, err := c.Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, p.Bucket(), filepath.FromSlash(p.Key())), nil
}

// Materialize makes p available on local disk and returns its local path.
//
// A blob is downloaded only when its sidecar is missing or disagrees with
// the remote LastModified. A prefix or bucket requires recurse; every blob
// underneath is materialized independently and failures are collected in
// a *BatchError returned alongside the local directory.
func (c *Cache) Materialize(ctx context.Context, b Backend, p Path, recurse bool) (string, error) {
	p, err := p.Resolve()
	if err != nil {
		return "", err
	}
	local, err := c.LocalPath(p)
	if err != nil {
		return "", err
	}

	if !p.IsBucket() {
		st, err := b.Stat(ctx, p)
		if err == nil {
			return local, c.fetch(ctx, b, p, local, st)
		}
		if !IsNotExist(err) {
			return "", err
		}
		if !recurse {
			if _, ok, lerr := first(b.ListBlobs(ctx, p, "")); lerr == nil && ok {
				return "", NewPathError("materialize", p.String(), ErrIsDir)
			}
			return "", err
		}
	}

	bt := batch{op: "materialize " + p.DirString()}
	found := false
	for st, err := range b.ListBlobs(ctx, p, "") {
		if err != nil {
			return "", WrapPathErr("materialize", p.String(), err)
		}
		found = true
		child := p.child(st.Name)
		rel, err := localName("materialize", child, st.Name)
		if err != nil {
			c.logger.Warn("materialize skipped", zap.String("path", child.String()), zap.Error(err))
			bt.add(child.String(), err)
			continue
		}
		childLocal := filepath.Join(local, rel)
		stat := &st
		if st.LastModified == Unknown {
			if stat, err = b.Stat(ctx, child); err != nil {
				bt.add(child.String(), err)
				continue
			}
		}
		if err := c.fetch(ctx, b, child, childLocal, stat); err != nil {
			c.logger.Warn("materialize failed", zap.String("path", child.String()), zap.Error(err))
			bt.add(child.String(), err)
		}
	}
	if !found {
		return "", NewPathError("materialize", p.String(), ErrNotExist)
	}
	return local, bt.err()
}

// fetch downloads p into local unless the sidecar shows it is current.
func (c *Cache) fetch(ctx context.Context, b Backend, p Path, local string, st *BlobStat) error {
	sidecar := local + SidecarSuffix
	if st.LastModified != Unknown {
		if cached, ok := readSidecar(sidecar); ok && cached == st.LastModified {
			if info, err := os.Stat(local); err == nil && info.Mode().IsRegular() {
				c.hits.Add(1)
				c.metrics.cacheLookup(true)
				if c.onHit != nil {
					c.onHit(p)
				}
				c.logger.Debug("cache hit", zap.String("path", p.String()), zap.String("local", local))
				return nil
			}
		}
	}

	c.misses.Add(1)
	c.metrics.cacheLookup(false)
	if c.onMiss != nil {
		c.onMiss(p)
	}
	c.logger.Debug("cache miss", zap.String("path", p.String()), zap.Int64("last_modified", st.LastModified))

	dir := filepath.Dir(local)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewPathError("materialize", p.String(), err)
	}
	// Drop the old record first so an interrupted refresh never leaves a
	// matching sidecar next to stale content.
	if err := os.Remove(sidecar); err != nil && !errors.Is(err, os.ErrNotExist) {
		return NewPathError("materialize", p.String(), err)
	}

	rc, err := b.Get(ctx, p)
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(local)+".*.tmp")
	if err != nil {
		return NewPathError("materialize", p.String(), err)
	}
	n, err := io.Copy(tmp, rc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), local)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return NewPathError("materialize", p.String(), err)
	}
	c.bytes.Add(n)
	c.metrics.cacheBytes(n)

	if st.LastModified == Unknown {
		return nil
	}
	if err := os.WriteFile(sidecar, []byte(strconv.FormatInt(st.LastModified, 10)), 0o644); err != nil {
		return NewPathError("materialize", p.String(), err)
	}
	return nil
}

func readSidecar(name string) (int64, bool) {
	data, err := os.ReadFile(name)
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
