package blobpath

import (
	"context"
	"io"
	"iter"
	"time"
)

// Instrumented decorates a Backend with per-operation counters and latency
// histograms labelled by scheme.
type Instrumented struct {
	scheme  string
	next    Backend
	metrics *Metrics
}

// Instrument wraps b so every call is recorded in m.
func Instrument(scheme string, b Backend, m *Metrics) *Instrumented {
	return &Instrumented{scheme: scheme, next: b, metrics: m}
}

// Unwrap returns the decorated backend.
func (i *Instrumented) Unwrap() Backend { return i.next }

func (i *Instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case IsNotExist(err):
		result = "not_found"
	default:
		result = "error"
	}
	i.metrics.BackendOpsTotal.WithLabelValues(i.scheme, op, result).Inc()
	i.metrics.BackendOpDuration.WithLabelValues(i.scheme, op).Observe(time.Since(start).Seconds())
}

func (i *Instrumented) Stat(ctx context.Context, p Path) (_ *BlobStat, err error) {
	defer func(start time.Time) { i.observe("stat", start, err) }(time.Now())
	return i.next.Stat(ctx, p)
}

// ListBlobs records one observation when the sequence finishes or stops.
func (i *Instrumented) ListBlobs(ctx context.Context, dir Path, filter string) iter.Seq2[BlobStat, error] {
	return func(yield func(BlobStat, error) bool) {
		start := time.Now()
		var lastErr error
		defer func() { i.observe("list", start, lastErr) }()
		for st, err := range i.next.ListBlobs(ctx, dir, filter) {
			if err != nil {
				lastErr = err
			}
			if !yield(st, err) {
				return
			}
		}
	}
}

func (i *Instrumented) Get(ctx context.Context, p Path) (_ io.ReadCloser, err error) {
	defer func(start time.Time) { i.observe("get", start, err) }(time.Now())
	return i.next.Get(ctx, p)
}

func (i *Instrumented) Put(ctx context.Context, p Path, r io.Reader) (err error) {
	defer func(start time.Time) { i.observe("put", start, err) }(time.Now())
	return i.next.Put(ctx, p, r)
}

func (i *Instrumented) Delete(ctx context.Context, p Path) (err error) {
	defer func(start time.Time) { i.observe("delete", start, err) }(time.Now())
	return i.next.Delete(ctx, p)
}

func (i *Instrumented) Copy(ctx context.Context, src, dst Path) (err error) {
	defer func(start time.Time) { i.observe("copy", start, err) }(time.Now())
	return i.next.Copy(ctx, src, dst)
}

func (i *Instrumented) BucketExists(ctx context.Context, bucket string) (_ bool, err error) {
	defer func(start time.Time) { i.observe("bucket_exists", start, err) }(time.Now())
	return i.next.BucketExists(ctx, bucket)
}

func (i *Instrumented) CreateBucket(ctx context.Context, bucket string) (err error) {
	defer func(start time.Time) { i.observe("create_bucket", start, err) }(time.Now())
	return i.next.CreateBucket(ctx, bucket)
}

func (i *Instrumented) DeleteBucket(ctx context.Context, bucket string) (err error) {
	defer func(start time.Time) { i.observe("delete_bucket", start, err) }(time.Now())
	return i.next.DeleteBucket(ctx, bucket)
}

// ListBuckets forwards to the wrapped backend when it can list buckets.
func (i *Instrumented) ListBuckets(ctx context.Context) iter.Seq2[string, error] {
	bl, ok := i.next.(BucketLister)
	if !ok {
		return ErrSeq[string](ErrNotSupported)
	}
	return bl.ListBuckets(ctx)
}

// Touch forwards to the wrapped backend when it can refresh timestamps in
// place; otherwise it reports ErrNotSupported.
func (i *Instrumented) Touch(ctx context.Context, p Path) (err error) {
	t, ok := i.next.(Toucher)
	if !ok {
		return ErrNotSupported
	}
	defer func(start time.Time) { i.observe("touch", start, err) }(time.Now())
	return t.Touch(ctx, p)
}

var (
	_ Backend      = (*Instrumented)(nil)
	_ BucketLister = (*Instrumented)(nil)
	_ Toucher      = (*Instrumented)(nil)
)
