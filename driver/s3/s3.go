// Package s3 implements the s3:// scheme on Amazon S3 and S3-compatible
// object stores through aws-sdk-go-v2.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gobeaver/blobpath"
)

// Adapter provides an S3 implementation of blobpath.Backend
type Adapter struct {
	client *s3.Client
	region string
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithRegion sets the region used as location constraint for new buckets
func WithRegion(region string) AdapterOption {
	return func(a *Adapter) {
		a.region = region
	}
}

// New creates a new S3 backend
func New(client *s3.Client, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
	}

	// Apply options
	for _, option := range options {
		option(adapter)
	}

	return adapter
}

// Client returns the underlying S3 client.
func (a *Adapter) Client() *s3.Client { return a.client }

// Stat implements blobpath.Backend
func (a *Adapter) Stat(ctx context.Context, p blobpath.Path) (*blobpath.BlobStat, error) {
	result, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.Bucket()),
		Key:    aws.String(p.Key()),
	})
	if err != nil {
		return nil, mapS3Error("stat", p.String(), err)
	}

	st := &blobpath.BlobStat{
		Size:         blobpath.Unknown,
		LastModified: blobpath.Unknown,
	}
	if result.ContentLength != nil {
		st.Size = *result.ContentLength
	}
	if result.LastModified != nil {
		st.LastModified = result.LastModified.Unix()
	}
	return st, nil
}

// ListBlobs implements blobpath.Backend using ListObjectsV2 pages. S3
// returns keys in ascending UTF-8 order.
func (a *Adapter) ListBlobs(ctx context.Context, dir blobpath.Path, filter string) iter.Seq2[blobpath.BlobStat, error] {
	return func(yield func(blobpath.BlobStat, error) bool) {
		base := dir.Prefix()
		paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(dir.Bucket()),
			Prefix: aws.String(base + filter),
		})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				var nsb *types.NoSuchBucket
				if errors.As(err, &nsb) {
					return
				}
				yield(blobpath.BlobStat{}, mapS3Error("list", dir.String(), err))
				return
			}

			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				// Zero-byte "folder" markers created by consoles
				if strings.HasSuffix(key, "/") {
					continue
				}
				st := blobpath.BlobStat{
					Name:         strings.TrimPrefix(key, base),
					Size:         blobpath.Unknown,
					LastModified: blobpath.Unknown,
				}
				if obj.Size != nil {
					st.Size = *obj.Size
				}
				if obj.LastModified != nil {
					st.LastModified = obj.LastModified.Unix()
				}
				if obj.Owner != nil {
					st.Owner = aws.ToString(obj.Owner.DisplayName)
				}
				if !yield(st, nil) {
					return
				}
			}
		}
	}
}

// Get implements blobpath.Backend
func (a *Adapter) Get(ctx context.Context, p blobpath.Path) (io.ReadCloser, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Bucket()),
		Key:    aws.String(p.Key()),
	})
	if err != nil {
		return nil, mapS3Error("get", p.String(), err)
	}
	return result.Body, nil
}

// Put implements blobpath.Backend
func (a *Adapter) Put(ctx context.Context, p blobpath.Path, content io.Reader) error {
	// Try to get content length and create a seekable body for streaming
	var body io.Reader
	var contentLength int64 = -1

	switch r := content.(type) {
	case *bytes.Reader:
		contentLength = int64(r.Len())
		body = r
	case *bytes.Buffer:
		contentLength = int64(r.Len())
		body = r
	case *strings.Reader:
		contentLength = int64(r.Len())
		body = r
	case *os.File:
		if info, err := r.Stat(); err == nil {
			pos, _ := r.Seek(0, io.SeekCurrent)
			contentLength = info.Size() - pos
		}
		body = r
	case io.ReadSeeker:
		// Generic seeker - try to determine size
		pos, err := r.Seek(0, io.SeekCurrent)
		if err == nil {
			end, err := r.Seek(0, io.SeekEnd)
			if err == nil {
				contentLength = end - pos
				r.Seek(pos, io.SeekStart) // Reset to original position
			}
		}
		body = r
	default:
		// Fallback: buffer for unknown readers (required for S3 PutObject)
		data, err := io.ReadAll(content)
		if err != nil {
			return blobpath.NewPathError("put", p.String(), err)
		}
		contentLength = int64(len(data))
		body = bytes.NewReader(data)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.Bucket()),
		Key:         aws.String(p.Key()),
		Body:        body,
		ContentType: aws.String(blobpath.ContentType(p)),
	}
	if contentLength >= 0 {
		input.ContentLength = aws.Int64(contentLength)
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return mapS3Error("put", p.String(), err)
	}
	return nil
}

// Delete implements blobpath.Backend. S3 deletes are idempotent, so the
// object is checked first to report missing keys.
func (a *Adapter) Delete(ctx context.Context, p blobpath.Path) error {
	if _, err := a.Stat(ctx, p); err != nil {
		return blobpath.WrapPathErr("delete", p.String(), err)
	}
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.Bucket()),
		Key:    aws.String(p.Key()),
	})
	if err != nil {
		return mapS3Error("delete", p.String(), err)
	}
	return nil
}

// Copy implements blobpath.Backend using S3's native CopyObject API
func (a *Adapter) Copy(ctx context.Context, src, dst blobpath.Path) error {
	_, err := a.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dst.Bucket()),
		CopySource: aws.String(copySource(src)),
		Key:        aws.String(dst.Key()),
	})
	if err != nil {
		return mapS3Error("copy", src.String(), err)
	}
	return nil
}

// copySource renders src in the URL-encoded "bucket/key" form CopyObject
// requires.
func copySource(src blobpath.Path) string {
	key := strings.ReplaceAll(url.PathEscape(src.Key()), "%2F", "/")
	return src.Bucket() + "/" + key
}

// BucketExists implements blobpath.Backend
func (a *Adapter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		if blobpath.IsNotExist(mapS3Error("bucketexists", bucket, err)) {
			return false, nil
		}
		return false, mapS3Error("bucketexists", bucket, err)
	}
	return true, nil
}

// CreateBucket implements blobpath.Backend
func (a *Adapter) CreateBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}
	// us-east-1 rejects an explicit location constraint
	if a.region != "" && a.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(a.region),
		}
	}

	if _, err := a.client.CreateBucket(ctx, input); err != nil {
		var exists *types.BucketAlreadyExists
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &exists) || errors.As(err, &owned) {
			return blobpath.NewPathError("createbucket", bucket, blobpath.ErrExist)
		}
		return mapS3Error("createbucket", bucket, err)
	}
	return nil
}

// DeleteBucket implements blobpath.Backend. S3 only deletes empty buckets.
func (a *Adapter) DeleteBucket(ctx context.Context, bucket string) error {
	_, err := a.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		if apiErrorCode(err) == "BucketNotEmpty" {
			return blobpath.NewPathError("deletebucket", bucket, blobpath.ErrNotEmpty)
		}
		return mapS3Error("deletebucket", bucket, err)
	}
	return nil
}

// ListBuckets implements blobpath.BucketLister
func (a *Adapter) ListBuckets(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		result, err := a.client.ListBuckets(ctx, &s3.ListBucketsInput{})
		if err != nil {
			yield("", mapS3Error("listbuckets", "s3://", err))
			return
		}
		for _, b := range result.Buckets {
			if !yield(aws.ToString(b.Name), nil) {
				return
			}
		}
	}
}

// mapS3Error maps S3 errors to blobpath errors
func mapS3Error(op, path string, err error) error {
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	var notFound *types.NotFound

	if errors.As(err, &nsk) || errors.As(err, &nsb) || errors.As(err, &notFound) {
		return blobpath.WrapPathErr(op, path, blobpath.ErrNotExist)
	}
	switch apiErrorCode(err) {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return blobpath.WrapPathErr(op, path, blobpath.ErrNotExist)
	}

	return blobpath.WrapPathErr(op, path, err)
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// Compile-time interface checks
var (
	_ blobpath.Backend      = (*Adapter)(nil)
	_ blobpath.BucketLister = (*Adapter)(nil)
)
