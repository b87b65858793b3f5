// Package minio implements the minio:// scheme on MinIO and other
// S3-compatible servers through minio-go.
package minio

import (
	"context"
	"io"
	"iter"
	"strings"

	"github.com/gobeaver/blobpath"
	"github.com/minio/minio-go/v7"
)

// Adapter implements blobpath.Backend for MinIO and S3-compatible storage.
type Adapter struct {
	client *minio.Client
	region string
}

// New creates a new MinIO backend. region is used for new buckets and may
// be empty.
func New(client *minio.Client, region string) *Adapter {
	return &Adapter{
		client: client,
		region: region,
	}
}

func objectStat(info minio.ObjectInfo) blobpath.BlobStat {
	st := blobpath.BlobStat{
		Size:         info.Size,
		LastModified: blobpath.EpochSeconds(info.LastModified),
		Owner:        info.Owner.DisplayName,
	}
	if st.Size < 0 {
		st.Size = blobpath.Unknown
	}
	return st
}

// Stat implements blobpath.Backend
func (a *Adapter) Stat(ctx context.Context, p blobpath.Path) (*blobpath.BlobStat, error) {
	info, err := a.client.StatObject(ctx, p.Bucket(), p.Key(), minio.StatObjectOptions{})
	if err != nil {
		return nil, mapMinioError("stat", p.String(), err)
	}
	st := objectStat(info)
	return &st, nil
}

// ListBlobs implements blobpath.Backend
func (a *Adapter) ListBlobs(ctx context.Context, dir blobpath.Path, filter string) iter.Seq2[blobpath.BlobStat, error] {
	return func(yield func(blobpath.BlobStat, error) bool) {
		// Cancelling stops the listing goroutine when the caller breaks early
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		base := dir.Prefix()
		for obj := range a.client.ListObjects(ctx, dir.Bucket(), minio.ListObjectsOptions{
			Prefix:    base + filter,
			Recursive: true,
		}) {
			if obj.Err != nil {
				err := mapMinioError("list", dir.String(), obj.Err)
				if blobpath.IsNotExist(err) {
					return
				}
				yield(blobpath.BlobStat{}, err)
				return
			}
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			st := objectStat(obj)
			st.Name = strings.TrimPrefix(obj.Key, base)
			if !yield(st, nil) {
				return
			}
		}
	}
}

// Get implements blobpath.Backend. The object is stat'ed up front because
// minio-go defers the request until the first read.
func (a *Adapter) Get(ctx context.Context, p blobpath.Path) (io.ReadCloser, error) {
	obj, err := a.client.GetObject(ctx, p.Bucket(), p.Key(), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError("get", p.String(), err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapMinioError("get", p.String(), err)
	}
	return obj, nil
}

// Put implements blobpath.Backend
func (a *Adapter) Put(ctx context.Context, p blobpath.Path, r io.Reader) error {
	size := int64(-1)
	if s, ok := r.(io.Seeker); ok {
		if pos, err := s.Seek(0, io.SeekCurrent); err == nil {
			if end, err := s.Seek(0, io.SeekEnd); err == nil {
				size = end - pos
			}
			s.Seek(pos, io.SeekStart)
		}
	}

	_, err := a.client.PutObject(ctx, p.Bucket(), p.Key(), r, size, minio.PutObjectOptions{
		ContentType: blobpath.ContentType(p),
	})
	if err != nil {
		return mapMinioError("put", p.String(), err)
	}
	return nil
}

// Delete implements blobpath.Backend. RemoveObject succeeds for missing
// keys, so existence is checked first.
func (a *Adapter) Delete(ctx context.Context, p blobpath.Path) error {
	if _, err := a.Stat(ctx, p); err != nil {
		return blobpath.WrapPathErr("delete", p.String(), err)
	}
	if err := a.client.RemoveObject(ctx, p.Bucket(), p.Key(), minio.RemoveObjectOptions{}); err != nil {
		return mapMinioError("delete", p.String(), err)
	}
	return nil
}

// Copy implements blobpath.Backend using a server-side copy
func (a *Adapter) Copy(ctx context.Context, src, dst blobpath.Path) error {
	_, err := a.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: dst.Bucket(), Object: dst.Key()},
		minio.CopySrcOptions{Bucket: src.Bucket(), Object: src.Key()},
	)
	if err != nil {
		return mapMinioError("copy", src.String(), err)
	}
	return nil
}

// BucketExists implements blobpath.Backend
func (a *Adapter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := a.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, mapMinioError("bucketexists", bucket, err)
	}
	return ok, nil
}

// CreateBucket implements blobpath.Backend
func (a *Adapter) CreateBucket(ctx context.Context, bucket string) error {
	err := a.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: a.region})
	if err != nil {
		return mapMinioError("createbucket", bucket, err)
	}
	return nil
}

// DeleteBucket implements blobpath.Backend
func (a *Adapter) DeleteBucket(ctx context.Context, bucket string) error {
	if err := a.client.RemoveBucket(ctx, bucket); err != nil {
		return mapMinioError("deletebucket", bucket, err)
	}
	return nil
}

// ListBuckets implements blobpath.BucketLister
func (a *Adapter) ListBuckets(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		buckets, err := a.client.ListBuckets(ctx)
		if err != nil {
			yield("", mapMinioError("listbuckets", "minio://", err))
			return
		}
		for _, b := range buckets {
			if !yield(b.Name, nil) {
				return
			}
		}
	}
}

// mapMinioError maps MinIO error responses to blobpath errors
func mapMinioError(op, path string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return blobpath.WrapPathErr(op, path, blobpath.ErrNotExist)
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return blobpath.WrapPathErr(op, path, blobpath.ErrExist)
	case "BucketNotEmpty":
		return blobpath.WrapPathErr(op, path, blobpath.ErrNotEmpty)
	}
	return blobpath.WrapPathErr(op, path, err)
}

// Compile-time interface checks
var (
	_ blobpath.Backend      = (*Adapter)(nil)
	_ blobpath.BucketLister = (*Adapter)(nil)
)
