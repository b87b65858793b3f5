package blobpath

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"strings"

	"go.uber.org/zap"
)

// FS binds paths to backends and exposes path-like operations on them. It
// dispatches every Path through its Registry by scheme, so one FS serves
// all schemes at once.
//
// An FS is safe for concurrent use as long as its Registry is not mutated
// while operations are in flight.
type FS struct {
	registry *Registry
	cache    *Cache
	logger   *zap.Logger
	metrics  *Metrics
}

// New creates an FS with a private registry and a temporary cache root.
func New(opts ...Option) *FS {
	f := &FS{
		registry: NewRegistry(),
		cache:    NewCache(""),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	f.cache.logger = f.logger.Named("cache")
	if f.metrics != nil {
		f.cache.metrics = f.metrics
		f.registry.setMetrics(f.metrics)
	}
	return f
}

// Registry returns the registry the FS dispatches through.
func (f *FS) Registry() *Registry { return f.registry }

// Cache returns the local cache used by ToLocal.
func (f *FS) Cache() *Cache { return f.cache }

func (f *FS) backend(p Path) (Backend, error) {
	if p.Scheme() == "" {
		return nil, NewPathError("lookup", p.String(), ErrMalformedPath)
	}
	return f.registry.Get(p.Scheme())
}

// ============================================================================
// Queries
// ============================================================================

// Exists reports whether a blob, a non-empty prefix or a bucket exists at p.
func (f *FS) Exists(ctx context.Context, p Path) (bool, error) {
	b, err := f.backend(p)
	if err != nil {
		return false, err
	}
	return f.exists(ctx, b, p)
}

func (f *FS) exists(ctx context.Context, b Backend, p Path) (bool, error) {
	switch {
	case p.IsRoot():
		return true, nil
	case p.IsBucket():
		return b.BucketExists(ctx, p.Bucket())
	}
	if _, err := b.Stat(ctx, p); err == nil {
		return true, nil
	} else if !IsNotExist(err) {
		return false, err
	}
	return f.hasBlobs(ctx, b, p)
}

func (f *FS) hasBlobs(ctx context.Context, b Backend, dir Path) (bool, error) {
	_, ok, err := first(b.ListBlobs(ctx, dir, ""))
	return ok, err
}

// IsDir reports whether p is a bucket root or a prefix with blobs under it
// that is not itself a blob.
func (f *FS) IsDir(ctx context.Context, p Path) (bool, error) {
	b, err := f.backend(p)
	if err != nil {
		return false, err
	}
	switch {
	case p.IsRoot():
		return true, nil
	case p.IsBucket():
		return b.BucketExists(ctx, p.Bucket())
	}
	if _, err := b.Stat(ctx, p); err == nil {
		return false, nil
	} else if !IsNotExist(err) {
		return false, err
	}
	return f.hasBlobs(ctx, b, p)
}

// IsFile reports whether a blob exists exactly at p.
func (f *FS) IsFile(ctx context.Context, p Path) (bool, error) {
	if p.IsRoot() || p.IsBucket() {
		return false, nil
	}
	b, err := f.backend(p)
	if err != nil {
		return false, err
	}
	if _, err := b.Stat(ctx, p); err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Stat returns the metadata of the blob at p.
func (f *FS) Stat(ctx context.Context, p Path) (*BlobStat, error) {
	if p.IsRoot() || p.IsBucket() {
		return nil, NewPathError("stat", p.String(), ErrIsDir)
	}
	b, err := f.backend(p)
	if err != nil {
		return nil, err
	}
	return b.Stat(ctx, p)
}

// Owner returns the owner the backend records for p. Backends that do not
// track ownership yield ErrNotSupported.
func (f *FS) Owner(ctx context.Context, p Path) (string, error) {
	st, err := f.Stat(ctx, p)
	if err != nil {
		return "", err
	}
	if st.Owner == "" {
		return "", NewPathError("owner", p.String(), ErrNotSupported)
	}
	return st.Owner, nil
}

// SameFile reports whether a and b resolve to the same existing blob.
func (f *FS) SameFile(ctx context.Context, a, b Path) (bool, error) {
	ra, err := a.Resolve()
	if err != nil {
		return false, err
	}
	rb, err := b.Resolve()
	if err != nil {
		return false, err
	}
	for _, p := range []Path{ra, rb} {
		if ok, err := f.Exists(ctx, p); err != nil {
			return false, err
		} else if !ok {
			return false, NewPathError("samefile", p.String(), ErrNotExist)
		}
	}
	return ra == rb, nil
}

// ============================================================================
// Directory-like operations
// ============================================================================

// Mkdir creates the bucket for a bucket-root path. For a key path it is a
// no-op, since prefixes only exist through the blobs under them; with
// WithParents the enclosing bucket is created when missing. An existing
// target fails with ErrExist unless WithExistOK is given.
func (f *FS) Mkdir(ctx context.Context, p Path, opts ...MkdirOption) error {
	var o mkdirOptions
	for _, opt := range opts {
		opt(&o)
	}
	if p.IsRoot() {
		return NewPathError("mkdir", p.String(), ErrNotAllowed)
	}
	b, err := f.backend(p)
	if err != nil {
		return err
	}

	if p.IsBucket() {
		ok, err := b.BucketExists(ctx, p.Bucket())
		if err != nil {
			return err
		}
		if ok {
			if o.existOK {
				return nil
			}
			return NewPathError("mkdir", p.String(), ErrExist)
		}
		if err := b.CreateBucket(ctx, p.Bucket()); err != nil {
			if IsExist(err) && o.existOK {
				return nil
			}
			return err
		}
		return nil
	}

	ok, err := f.exists(ctx, b, p)
	if err != nil {
		return err
	}
	if ok && !o.existOK {
		return NewPathError("mkdir", p.String(), ErrExist)
	}
	if !o.parents {
		return nil
	}
	ok, err = b.BucketExists(ctx, p.Bucket())
	if err != nil || ok {
		return err
	}
	if err := b.CreateBucket(ctx, p.Bucket()); err != nil && !IsExist(err) {
		return err
	}
	return nil
}

// Rmdir removes an empty bucket. A prefix with blobs under it fails with
// ErrNotEmpty, a blob with ErrNotDir, and a key prefix with nothing under
// it with ErrNotExist.
func (f *FS) Rmdir(ctx context.Context, p Path) error {
	if p.IsRoot() {
		return NewPathError("rmdir", p.String(), ErrNotAllowed)
	}
	b, err := f.backend(p)
	if err != nil {
		return err
	}
	if !p.IsBucket() {
		if _, err := b.Stat(ctx, p); err == nil {
			return NewPathError("rmdir", p.String(), ErrNotDir)
		} else if !IsNotExist(err) {
			return err
		}
	}
	nonEmpty, err := f.hasBlobs(ctx, b, p)
	if err != nil {
		return err
	}
	if nonEmpty {
		return NewPathError("rmdir", p.String(), ErrNotEmpty)
	}
	if !p.IsBucket() {
		return NewPathError("rmdir", p.String(), ErrNotExist)
	}
	return b.DeleteBucket(ctx, p.Bucket())
}

// DirEntry is one immediate child produced by ScanDir.
type DirEntry struct {
	Path Path
	Dir  bool

	// Stat is the listing metadata of a blob child; zero for directories.
	Stat BlobStat
}

// ScanDir yields the immediate children of p: blobs directly under it and
// one entry per sub-prefix. Children are derived from the flat listing,
// which backends return in lexical key order, so every sub-prefix forms a
// contiguous run and is reported once. On a scheme root the buckets are
// listed instead.
func (f *FS) ScanDir(ctx context.Context, p Path) iter.Seq2[DirEntry, error] {
	b, err := f.backend(p)
	if err != nil {
		return ErrSeq[DirEntry](err)
	}
	if p.IsRoot() {
		return func(yield func(DirEntry, error) bool) {
			for bp, err := range f.listBuckets(ctx, b, p.Scheme()) {
				if !yield(DirEntry{Path: bp, Dir: true}, err) || err != nil {
					return
				}
			}
		}
	}
	return func(yield func(DirEntry, error) bool) {
		var last string
		for st, err := range b.ListBlobs(ctx, p, "") {
			if err != nil {
				yield(DirEntry{}, err)
				return
			}
			name, _, isDir := strings.Cut(st.Name, "/")
			if name == "" {
				continue
			}
			if !isDir {
				st.Name = name
				if !yield(DirEntry{Path: p.child(name), Stat: st}, nil) {
					return
				}
				continue
			}
			if name == last {
				continue
			}
			last = name
			if !yield(DirEntry{Path: p.child(name), Dir: true}, nil) {
				return
			}
		}
	}
}

// IterDir is ScanDir reduced to paths.
func (f *FS) IterDir(ctx context.Context, p Path) iter.Seq2[Path, error] {
	return func(yield func(Path, error) bool) {
		for e, err := range f.ScanDir(ctx, p) {
			if !yield(e.Path, err) || err != nil {
				return
			}
		}
	}
}

// List yields every blob under p with names relative to p.
func (f *FS) List(ctx context.Context, p Path) iter.Seq2[BlobStat, error] {
	b, err := f.backend(p)
	if err != nil {
		return ErrSeq[BlobStat](err)
	}
	if p.IsRoot() {
		return ErrSeq[BlobStat](NewPathError("list", p.String(), ErrNotSupported))
	}
	return b.ListBlobs(ctx, p, "")
}

// ListBuckets yields the bucket roots of scheme.
func (f *FS) ListBuckets(ctx context.Context, scheme string) iter.Seq2[Path, error] {
	b, err := f.registry.Get(scheme)
	if err != nil {
		return ErrSeq[Path](err)
	}
	return f.listBuckets(ctx, b, scheme)
}

func (f *FS) listBuckets(ctx context.Context, b Backend, scheme string) iter.Seq2[Path, error] {
	bl, ok := b.(BucketLister)
	if !ok {
		return ErrSeq[Path](NewPathError("listbuckets", scheme+"://", ErrNotSupported))
	}
	return func(yield func(Path, error) bool) {
		for name, err := range bl.ListBuckets(ctx) {
			if err != nil {
				yield(Path{}, err)
				return
			}
			if !yield(Path{scheme: scheme, bucket: name}, nil) {
				return
			}
		}
	}
}

// ============================================================================
// Blob operations
// ============================================================================

// Touch creates an empty blob at p if none exists. An existing blob gets
// its modification time refreshed unless TouchNoRefresh is given; with
// TouchExclusive it fails with ErrExist instead.
func (f *FS) Touch(ctx context.Context, p Path, opts ...TouchOption) error {
	var o touchOptions
	for _, opt := range opts {
		opt(&o)
	}
	if p.IsRoot() || p.IsBucket() {
		return NewPathError("touch", p.String(), ErrIsDir)
	}
	b, err := f.backend(p)
	if err != nil {
		return err
	}

	_, err = b.Stat(ctx, p)
	switch {
	case IsNotExist(err):
		return b.Put(ctx, p, bytes.NewReader(nil))
	case err != nil:
		return err
	case o.exclusive:
		return NewPathError("touch", p.String(), ErrExist)
	case o.noRefresh:
		return nil
	}

	if t, ok := b.(Toucher); ok {
		err := t.Touch(ctx, p)
		if !errors.Is(err, ErrNotSupported) {
			return err
		}
	}
	return f.rewrite(ctx, b, p)
}

// rewrite re-puts a blob's own content so the backend stamps a new
// modification time. The content is spooled locally first because some
// backends truncate the target before the source is fully read.
func (f *FS) rewrite(ctx context.Context, b Backend, p Path) error {
	rc, err := b.Get(ctx, p)
	if err != nil {
		return err
	}
	defer rc.Close()

	spool, err := os.CreateTemp("", "blobpath-touch-*")
	if err != nil {
		return NewPathError("touch", p.String(), err)
	}
	defer os.Remove(spool.Name())
	defer spool.Close()

	if _, err := io.Copy(spool, rc); err != nil {
		return NewPathError("touch", p.String(), err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return NewPathError("touch", p.String(), err)
	}
	return b.Put(ctx, p, spool)
}

// Unlink removes the blob at p. A prefix fails with ErrIsDir.
func (f *FS) Unlink(ctx context.Context, p Path) error {
	if p.IsRoot() || p.IsBucket() {
		return NewPathError("unlink", p.String(), ErrIsDir)
	}
	b, err := f.backend(p)
	if err != nil {
		return err
	}
	err = b.Delete(ctx, p)
	if IsNotExist(err) {
		if dir, lerr := f.hasBlobs(ctx, b, p); lerr == nil && dir {
			return NewPathError("unlink", p.String(), ErrIsDir)
		}
	}
	return err
}

// ReadBytes returns the content of the blob at p.
func (f *FS) ReadBytes(ctx context.Context, p Path, opts ...OpenOption) ([]byte, error) {
	rc, err := f.OpenRead(ctx, p, opts...)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ReadText returns the content of the blob at p as a string.
func (f *FS) ReadText(ctx context.Context, p Path, opts ...OpenOption) (string, error) {
	data, err := f.ReadBytes(ctx, p, opts...)
	return string(data), err
}

// WriteBytes replaces the blob at p with data.
func (f *FS) WriteBytes(ctx context.Context, p Path, data []byte, opts ...OpenOption) error {
	w, err := f.OpenWrite(ctx, p, opts...)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		abortWriter(w)
		return err
	}
	return w.Close()
}

// WriteText replaces the blob at p with s.
func (f *FS) WriteText(ctx context.Context, p Path, s string, opts ...OpenOption) error {
	return f.WriteBytes(ctx, p, []byte(s), opts...)
}

// ToLocal makes p available on local disk through the cache and returns
// the local path. Prefixes and buckets require recurse.
func (f *FS) ToLocal(ctx context.Context, p Path, recurse bool) (string, error) {
	b, err := f.backend(p)
	if err != nil {
		return "", err
	}
	return f.cache.Materialize(ctx, b, p, recurse)
}
