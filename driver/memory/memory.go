// Package memory provides an in-memory blobpath backend. It keeps every
// bucket in a map and is meant for tests and short-lived caches.
package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/blobpath"
)

// ErrStorageFull is returned when a write would exceed Config.MaxSize.
var ErrStorageFull = errors.New("memory storage limit exceeded")

// memoryBlob represents a blob stored in memory
type memoryBlob struct {
	content []byte
	modTime time.Time
}

// memoryBucket holds the blobs of one bucket keyed by their full key
type memoryBucket struct {
	created time.Time
	blobs   map[string]*memoryBlob
}

// Adapter provides an in-memory implementation of blobpath.Backend.
// Useful for testing and caching scenarios.
type Adapter struct {
	mu      sync.RWMutex
	buckets map[string]*memoryBucket
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size
	now     func() time.Time
}

// Config holds configuration for the memory adapter
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64 `mapstructure:"max_size" validate:"gte=0"`

	// Buckets are created up front.
	Buckets []string `mapstructure:"buckets"`

	// Clock overrides time.Now for modification times.
	Clock func() time.Time `mapstructure:"-"`
}

// New creates a new in-memory backend
func New(cfg ...Config) *Adapter {
	var c Config
	if len(cfg) > 0 {
		c = cfg[0]
	}
	now := c.Clock
	if now == nil {
		now = time.Now
	}

	a := &Adapter{
		buckets: make(map[string]*memoryBucket),
		maxSize: c.MaxSize,
		now:     now,
	}
	for _, name := range c.Buckets {
		a.buckets[name] = &memoryBucket{created: now(), blobs: make(map[string]*memoryBlob)}
	}
	return a
}

// SetClock replaces the clock used to stamp modification times.
func (a *Adapter) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// Size returns the total number of content bytes held.
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

func (a *Adapter) lookup(op string, p blobpath.Path) (*memoryBlob, error) {
	bkt, ok := a.buckets[p.Bucket()]
	if !ok {
		return nil, blobpath.NewPathError(op, p.String(), blobpath.ErrNotExist)
	}
	blob, ok := bkt.blobs[p.Key()]
	if !ok {
		return nil, blobpath.NewPathError(op, p.String(), blobpath.ErrNotExist)
	}
	return blob, nil
}

func (a *Adapter) stat(blob *memoryBlob) *blobpath.BlobStat {
	return &blobpath.BlobStat{
		Size:         int64(len(blob.content)),
		LastModified: blob.modTime.Unix(),
	}
}

// Stat implements blobpath.Backend
func (a *Adapter) Stat(ctx context.Context, p blobpath.Path) (*blobpath.BlobStat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	blob, err := a.lookup("stat", p)
	if err != nil {
		return nil, err
	}
	return a.stat(blob), nil
}

// ListBlobs implements blobpath.Backend. Blobs are yielded in key order
// from a snapshot taken when iteration starts.
func (a *Adapter) ListBlobs(ctx context.Context, dir blobpath.Path, filter string) iter.Seq2[blobpath.BlobStat, error] {
	return func(yield func(blobpath.BlobStat, error) bool) {
		select {
		case <-ctx.Done():
			yield(blobpath.BlobStat{}, ctx.Err())
			return
		default:
		}

		base := dir.Prefix()
		prefix := base + filter

		a.mu.RLock()
		var out []blobpath.BlobStat
		if bkt, ok := a.buckets[dir.Bucket()]; ok {
			for key, blob := range bkt.blobs {
				if !strings.HasPrefix(key, prefix) {
					continue
				}
				st := a.stat(blob)
				st.Name = strings.TrimPrefix(key, base)
				out = append(out, *st)
			}
		}
		a.mu.RUnlock()

		slices.SortFunc(out, func(x, y blobpath.BlobStat) int {
			return strings.Compare(x.Name, y.Name)
		})
		for _, st := range out {
			if !yield(st, nil) {
				return
			}
		}
	}
}

// Get implements blobpath.Backend
func (a *Adapter) Get(ctx context.Context, p blobpath.Path) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	blob, err := a.lookup("get", p)
	if err != nil {
		return nil, err
	}
	// Content slices are replaced, never mutated, so sharing is safe
	return io.NopCloser(bytes.NewReader(blob.content)), nil
}

// Put implements blobpath.Backend
func (a *Adapter) Put(ctx context.Context, p blobpath.Path, r io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if p.Key() == "" {
		return blobpath.NewPathError("put", p.String(), blobpath.ErrIsDir)
	}

	// Read content into memory
	data, err := io.ReadAll(r)
	if err != nil {
		return blobpath.NewPathError("put", p.String(), err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	bkt, ok := a.buckets[p.Bucket()]
	if !ok {
		return blobpath.NewPathError("put", p.String(), blobpath.ErrNotExist)
	}
	return a.store(bkt, p, data)
}

// store writes data under p's key. The caller holds a.mu.
func (a *Adapter) store(bkt *memoryBucket, p blobpath.Path, data []byte) error {
	newSize := a.size + int64(len(data))
	if existing, ok := bkt.blobs[p.Key()]; ok {
		newSize -= int64(len(existing.content))
	}

	// Check max size limit
	if a.maxSize > 0 && newSize > a.maxSize {
		return blobpath.NewPathError("put", p.String(), ErrStorageFull)
	}

	bkt.blobs[p.Key()] = &memoryBlob{content: data, modTime: a.now()}
	a.size = newSize
	return nil
}

// Delete implements blobpath.Backend
func (a *Adapter) Delete(ctx context.Context, p blobpath.Path) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	blob, err := a.lookup("delete", p)
	if err != nil {
		return err
	}
	a.size -= int64(len(blob.content))
	delete(a.buckets[p.Bucket()].blobs, p.Key())
	return nil
}

// Copy implements blobpath.Backend
func (a *Adapter) Copy(ctx context.Context, src, dst blobpath.Path) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	blob, err := a.lookup("copy", src)
	if err != nil {
		return err
	}
	bkt, ok := a.buckets[dst.Bucket()]
	if !ok {
		return blobpath.NewPathError("copy", dst.String(), blobpath.ErrNotExist)
	}
	return a.store(bkt, dst, blob.content)
}

// BucketExists implements blobpath.Backend
func (a *Adapter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.buckets[bucket]
	return ok, nil
}

// CreateBucket implements blobpath.Backend
func (a *Adapter) CreateBucket(ctx context.Context, bucket string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.buckets[bucket]; ok {
		return blobpath.NewPathError("createbucket", bucket, blobpath.ErrExist)
	}
	a.buckets[bucket] = &memoryBucket{created: a.now(), blobs: make(map[string]*memoryBlob)}
	return nil
}

// DeleteBucket implements blobpath.Backend. Any blobs left in the bucket
// are dropped with it.
func (a *Adapter) DeleteBucket(ctx context.Context, bucket string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	bkt, ok := a.buckets[bucket]
	if !ok {
		return blobpath.NewPathError("deletebucket", bucket, blobpath.ErrNotExist)
	}
	for _, blob := range bkt.blobs {
		a.size -= int64(len(blob.content))
	}
	delete(a.buckets, bucket)
	return nil
}

// ListBuckets implements blobpath.BucketLister
func (a *Adapter) ListBuckets(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		select {
		case <-ctx.Done():
			yield("", ctx.Err())
			return
		default:
		}

		a.mu.RLock()
		names := make([]string, 0, len(a.buckets))
		for name := range a.buckets {
			names = append(names, name)
		}
		a.mu.RUnlock()

		slices.Sort(names)
		for _, name := range names {
			if !yield(name, nil) {
				return
			}
		}
	}
}

// Touch implements blobpath.Toucher
func (a *Adapter) Touch(ctx context.Context, p blobpath.Path) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	blob, err := a.lookup("touch", p)
	if err != nil {
		return err
	}
	blob.modTime = a.now()
	return nil
}

// Clear removes every bucket and blob.
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buckets = make(map[string]*memoryBucket)
	a.size = 0
}

// Compile-time interface checks
var (
	_ blobpath.Backend      = (*Adapter)(nil)
	_ blobpath.BucketLister = (*Adapter)(nil)
	_ blobpath.Toucher      = (*Adapter)(nil)
)
