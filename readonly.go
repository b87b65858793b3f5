package blobpath

import (
	"context"
	"errors"
	"io"
	"iter"
)

// ErrReadOnly is returned when a write operation is attempted on a read-only backend.
var ErrReadOnly = errors.New("backend is read-only")

// ============================================================================
// ReadOnly Decorator
// ============================================================================

// ReadOnly wraps a Backend and rejects every mutating call with ErrReadOnly.
// It is installed automatically when a scheme's client params carry
// read_only: true.
//
// Example:
//
//	reg.Register("s3", blobpath.NewReadOnly(s3Backend))
//	err := fs.Unlink(ctx, blobpath.MustParse("s3://bucket/report.csv"))
//	// errors.Is(err, blobpath.ErrReadOnly) == true
type ReadOnly struct {
	next Backend
	opts ReadOnlyOptions
}

// ReadOnlyOptions configures the ReadOnly decorator.
type ReadOnlyOptions struct {
	// AllowCreateBucket permits bucket creation even in read-only mode.
	AllowCreateBucket bool

	// AllowDelete permits blob deletion in read-only mode.
	AllowDelete bool
}

// ReadOnlyOption is a functional option for configuring ReadOnly.
type ReadOnlyOption func(*ReadOnlyOptions)

// WithAllowCreateBucket allows bucket creation in read-only mode.
func WithAllowCreateBucket(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.AllowCreateBucket = allow
	}
}

// WithAllowDelete allows blob deletion in read-only mode.
func WithAllowDelete(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.AllowDelete = allow
	}
}

// NewReadOnly wraps b so that all writes fail.
func NewReadOnly(b Backend, options ...ReadOnlyOption) *ReadOnly {
	r := &ReadOnly{next: b}
	for _, opt := range options {
		opt(&r.opts)
	}
	return r
}

// Unwrap returns the decorated backend.
func (r *ReadOnly) Unwrap() Backend { return r.next }

func denied(op, path string) error {
	return &PathError{Op: op, Path: path, Err: ErrReadOnly}
}

func (r *ReadOnly) Stat(ctx context.Context, p Path) (*BlobStat, error) {
	return r.next.Stat(ctx, p)
}

func (r *ReadOnly) ListBlobs(ctx context.Context, dir Path, filter string) iter.Seq2[BlobStat, error] {
	return r.next.ListBlobs(ctx, dir, filter)
}

func (r *ReadOnly) Get(ctx context.Context, p Path) (io.ReadCloser, error) {
	return r.next.Get(ctx, p)
}

func (r *ReadOnly) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return r.next.BucketExists(ctx, bucket)
}

func (r *ReadOnly) Put(_ context.Context, p Path, _ io.Reader) error {
	return denied("put", p.String())
}

func (r *ReadOnly) Delete(ctx context.Context, p Path) error {
	if r.opts.AllowDelete {
		return r.next.Delete(ctx, p)
	}
	return denied("delete", p.String())
}

func (r *ReadOnly) Copy(_ context.Context, _, dst Path) error {
	return denied("copy", dst.String())
}

func (r *ReadOnly) CreateBucket(ctx context.Context, bucket string) error {
	if r.opts.AllowCreateBucket {
		return r.next.CreateBucket(ctx, bucket)
	}
	return denied("createbucket", bucket)
}

func (r *ReadOnly) DeleteBucket(_ context.Context, bucket string) error {
	return denied("deletebucket", bucket)
}

// ListBuckets forwards to the wrapped backend when it can list buckets.
func (r *ReadOnly) ListBuckets(ctx context.Context) iter.Seq2[string, error] {
	if bl, ok := r.next.(BucketLister); ok {
		return bl.ListBuckets(ctx)
	}
	return ErrSeq[string](ErrNotSupported)
}

func (r *ReadOnly) Touch(_ context.Context, p Path) error {
	return denied("touch", p.String())
}

var (
	_ Backend      = (*ReadOnly)(nil)
	_ BucketLister = (*ReadOnly)(nil)
	_ Toucher      = (*ReadOnly)(nil)
)
