package blobpath

import (
	"context"
	"io"
	"iter"
	"time"
)

// Unknown marks a BlobStat field the backend could not report.
const Unknown = -1

// BlobStat is a snapshot of one blob's metadata. It is produced fresh on
// every Stat or listing call and never cached.
type BlobStat struct {
	// Name is set by listings and is relative to the listed prefix.
	Name string

	// Size in bytes, or Unknown.
	Size int64

	// LastModified in whole seconds since the Unix epoch, or Unknown.
	LastModified int64

	// Owner is empty when the backend does not track ownership.
	Owner string
}

// ModTime returns LastModified as a time.Time, or the zero time when unknown.
func (s BlobStat) ModTime() time.Time {
	if s.LastModified == Unknown {
		return time.Time{}
	}
	return time.Unix(s.LastModified, 0)
}

// EpochSeconds converts a backend timestamp to the BlobStat representation.
func EpochSeconds(t time.Time) int64 {
	if t.IsZero() {
		return Unknown
	}
	return t.Unix()
}

// ============================================================================
// Backend Interface
// ============================================================================

// Backend is the contract every storage driver implements. Paths passed in
// always carry a bucket; the scheme is informational.
//
// Implementations translate provider "not found" conditions into errors
// wrapping ErrNotExist and propagate every other provider error unchanged.
type Backend interface {
	// Stat returns metadata for the blob at p.
	Stat(ctx context.Context, p Path) (*BlobStat, error)

	// ListBlobs yields every blob whose key starts with dir.Prefix()+filter,
	// in the backend's listing order. Names are relative to dir.Prefix().
	// A missing bucket or prefix yields an empty sequence. After yielding
	// an error the sequence stops. The S3, GCS, Azure and MinIO drivers
	// stream pages as they are consumed; the local, memory and SFTP drivers
	// snapshot the matching keys first so they can yield them sorted.
	ListBlobs(ctx context.Context, dir Path, filter string) iter.Seq2[BlobStat, error]

	// Get opens the blob for reading.
	Get(ctx context.Context, p Path) (io.ReadCloser, error)

	// Put creates or overwrites the blob at p.
	Put(ctx context.Context, p Path, r io.Reader) error

	// Delete removes the blob at p.
	Delete(ctx context.Context, p Path) error

	// Copy copies src to dst within the backend.
	Copy(ctx context.Context, src, dst Path) error

	BucketExists(ctx context.Context, bucket string) (bool, error)

	// CreateBucket fails with ErrExist when the bucket is already present.
	CreateBucket(ctx context.Context, bucket string) error

	// DeleteBucket fails with ErrNotExist when the bucket is absent.
	DeleteBucket(ctx context.Context, bucket string) error
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================

// BucketLister is implemented by backends that can enumerate their buckets.
type BucketLister interface {
	ListBuckets(ctx context.Context) iter.Seq2[string, error]
}

// Toucher is implemented by backends that can refresh a blob's modification
// time without rewriting its content.
type Toucher interface {
	Touch(ctx context.Context, p Path) error
}

// Collect drains a sequence into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// first returns the first element of seq, if any.
func first[T any](seq iter.Seq2[T, error]) (v T, ok bool, err error) {
	for v, err := range seq {
		if err != nil {
			return v, false, err
		}
		return v, true, nil
	}
	return v, false, nil
}

// ErrSeq returns a sequence that yields err once.
func ErrSeq[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// checkContext reports a cancelled context before any I/O is attempted.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
