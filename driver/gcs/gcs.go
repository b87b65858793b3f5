// Package gcs implements the gs:// scheme on Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/gobeaver/blobpath"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// Adapter provides a Google Cloud Storage implementation of blobpath.Backend
type Adapter struct {
	client    *storage.Client
	projectID string
}

// AdapterOption is a function that configures GCS Adapter
type AdapterOption func(*Adapter)

// WithProjectID sets the project that owns created and listed buckets
func WithProjectID(projectID string) AdapterOption {
	return func(a *Adapter) {
		a.projectID = projectID
	}
}

// New creates a new GCS backend
func New(client *storage.Client, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
	}

	// Apply options
	for _, option := range options {
		option(adapter)
	}

	return adapter
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func (a *Adapter) object(p blobpath.Path) *storage.ObjectHandle {
	return a.client.Bucket(p.Bucket()).Object(p.Key())
}

func blobStat(attrs *storage.ObjectAttrs) blobpath.BlobStat {
	return blobpath.BlobStat{
		Size:         attrs.Size,
		LastModified: blobpath.EpochSeconds(attrs.Updated),
		Owner:        attrs.Owner,
	}
}

// Stat implements blobpath.Backend
func (a *Adapter) Stat(ctx context.Context, p blobpath.Path) (*blobpath.BlobStat, error) {
	attrs, err := a.object(p).Attrs(ctx)
	if err != nil {
		return nil, mapGCSError("stat", p.String(), err)
	}
	st := blobStat(attrs)
	return &st, nil
}

// ListBlobs implements blobpath.Backend
func (a *Adapter) ListBlobs(ctx context.Context, dir blobpath.Path, filter string) iter.Seq2[blobpath.BlobStat, error] {
	return func(yield func(blobpath.BlobStat, error) bool) {
		base := dir.Prefix()
		it := a.client.Bucket(dir.Bucket()).Objects(ctx, &storage.Query{
			Prefix: base + filter,
		})

		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				if errors.Is(err, storage.ErrBucketNotExist) {
					return
				}
				yield(blobpath.BlobStat{}, mapGCSError("list", dir.String(), err))
				return
			}
			// Skip directory markers
			if strings.HasSuffix(attrs.Name, "/") {
				continue
			}
			st := blobStat(attrs)
			st.Name = strings.TrimPrefix(attrs.Name, base)
			if !yield(st, nil) {
				return
			}
		}
	}
}

// Get implements blobpath.Backend
func (a *Adapter) Get(ctx context.Context, p blobpath.Path) (io.ReadCloser, error) {
	reader, err := a.object(p).NewReader(ctx)
	if err != nil {
		return nil, mapGCSError("get", p.String(), err)
	}
	return reader, nil
}

// Put implements blobpath.Backend. The upload is committed when the
// writer closes; a failed copy aborts it.
func (a *Adapter) Put(ctx context.Context, p blobpath.Path, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := a.object(p).NewWriter(ctx)
	writer.ContentType = blobpath.ContentType(p)

	if _, err := io.Copy(writer, r); err != nil {
		cancel()
		writer.Close()
		return mapGCSError("put", p.String(), err)
	}
	if err := writer.Close(); err != nil {
		return mapGCSError("put", p.String(), err)
	}
	return nil
}

// Delete implements blobpath.Backend
func (a *Adapter) Delete(ctx context.Context, p blobpath.Path) error {
	if err := a.object(p).Delete(ctx); err != nil {
		return mapGCSError("delete", p.String(), err)
	}
	return nil
}

// Copy implements blobpath.Backend using a server-side rewrite
func (a *Adapter) Copy(ctx context.Context, src, dst blobpath.Path) error {
	if _, err := a.object(dst).CopierFrom(a.object(src)).Run(ctx); err != nil {
		return mapGCSError("copy", src.String(), err)
	}
	return nil
}

// BucketExists implements blobpath.Backend
func (a *Adapter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := a.client.Bucket(bucket).Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		return false, nil
	}
	if err != nil {
		return false, mapGCSError("bucketexists", bucket, err)
	}
	return true, nil
}

// CreateBucket implements blobpath.Backend
func (a *Adapter) CreateBucket(ctx context.Context, bucket string) error {
	if err := a.client.Bucket(bucket).Create(ctx, a.projectID, nil); err != nil {
		return mapGCSError("createbucket", bucket, err)
	}
	return nil
}

// DeleteBucket implements blobpath.Backend
func (a *Adapter) DeleteBucket(ctx context.Context, bucket string) error {
	if err := a.client.Bucket(bucket).Delete(ctx); err != nil {
		return mapGCSError("deletebucket", bucket, err)
	}
	return nil
}

// ListBuckets implements blobpath.BucketLister. It needs a project ID.
func (a *Adapter) ListBuckets(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if a.projectID == "" {
			yield("", blobpath.NewPathError("listbuckets", "gs://", blobpath.ErrNotSupported))
			return
		}
		it := a.client.Buckets(ctx, a.projectID)
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield("", mapGCSError("listbuckets", "gs://", err))
				return
			}
			if !yield(attrs.Name, nil) {
				return
			}
		}
	}
}

// mapGCSError maps GCS errors to blobpath errors
func mapGCSError(op, path string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return blobpath.WrapPathErr(op, path, blobpath.ErrNotExist)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch gErr.Code {
		case http.StatusNotFound:
			return blobpath.WrapPathErr(op, path, blobpath.ErrNotExist)
		case http.StatusConflict:
			if op == "deletebucket" {
				return blobpath.WrapPathErr(op, path, blobpath.ErrNotEmpty)
			}
			return blobpath.WrapPathErr(op, path, blobpath.ErrExist)
		}
	}

	return blobpath.WrapPathErr(op, path, err)
}

// Compile-time interface checks
var (
	_ blobpath.Backend      = (*Adapter)(nil)
	_ blobpath.BucketLister = (*Adapter)(nil)
	_ io.Closer             = (*Adapter)(nil)
)
