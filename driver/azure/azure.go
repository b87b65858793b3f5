// Package azure implements the azure:// scheme on Azure Blob Storage. The
// bucket of a path is the container name.
package azure

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/gobeaver/blobpath"
)

// Adapter provides an Azure Blob Storage implementation of blobpath.Backend
type Adapter struct {
	client *azblob.Client
}

// New creates a new Azure Blob Storage backend
func New(client *azblob.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) blobClient(p blobpath.Path) *blob.Client {
	return a.client.ServiceClient().NewContainerClient(p.Bucket()).NewBlobClient(p.Key())
}

// Stat implements blobpath.Backend
func (a *Adapter) Stat(ctx context.Context, p blobpath.Path) (*blobpath.BlobStat, error) {
	props, err := a.blobClient(p).GetProperties(ctx, nil)
	if err != nil {
		return nil, mapAzureError("stat", p.String(), err)
	}

	st := &blobpath.BlobStat{
		Size:         blobpath.Unknown,
		LastModified: blobpath.Unknown,
	}
	if props.ContentLength != nil {
		st.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		st.LastModified = props.LastModified.Unix()
	}
	return st, nil
}

// ListBlobs implements blobpath.Backend using flat listing pages
func (a *Adapter) ListBlobs(ctx context.Context, dir blobpath.Path, filter string) iter.Seq2[blobpath.BlobStat, error] {
	return func(yield func(blobpath.BlobStat, error) bool) {
		base := dir.Prefix()
		prefix := base + filter
		pager := a.client.NewListBlobsFlatPager(dir.Bucket(), &azblob.ListBlobsFlatOptions{
			Prefix: &prefix,
		})

		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				if bloberror.HasCode(err, bloberror.ContainerNotFound) {
					return
				}
				yield(blobpath.BlobStat{}, mapAzureError("list", dir.String(), err))
				return
			}

			for _, item := range page.Segment.BlobItems {
				if item.Name == nil || strings.HasSuffix(*item.Name, "/") {
					continue
				}
				st := blobpath.BlobStat{
					Name:         strings.TrimPrefix(*item.Name, base),
					Size:         blobpath.Unknown,
					LastModified: blobpath.Unknown,
				}
				if props := item.Properties; props != nil {
					if props.ContentLength != nil {
						st.Size = *props.ContentLength
					}
					if props.LastModified != nil {
						st.LastModified = props.LastModified.Unix()
					}
					if props.Owner != nil {
						st.Owner = *props.Owner
					}
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
	resp, err := a.client.DownloadStream(ctx, p.Bucket(), p.Key(), nil)
	if err != nil {
		return nil, mapAzureError("get", p.String(), err)
	}
	return resp.Body, nil
}

// Put implements blobpath.Backend
func (a *Adapter) Put(ctx context.Context, p blobpath.Path, r io.Reader) error {
	contentType := blobpath.ContentType(p)
	_, err := a.client.UploadStream(ctx, p.Bucket(), p.Key(), r, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	})
	if err != nil {
		return mapAzureError("put", p.String(), err)
	}
	return nil
}

// Delete implements blobpath.Backend
func (a *Adapter) Delete(ctx context.Context, p blobpath.Path) error {
	if _, err := a.client.DeleteBlob(ctx, p.Bucket(), p.Key(), nil); err != nil {
		return mapAzureError("delete", p.String(), err)
	}
	return nil
}

// Copy implements blobpath.Backend by streaming the source into the
// destination. Server-side copies need a SAS-signed source URL, which
// token credentials cannot produce.
func (a *Adapter) Copy(ctx context.Context, src, dst blobpath.Path) error {
	rc, err := a.Get(ctx, src)
	if err != nil {
		return blobpath.WrapPathErr("copy", src.String(), err)
	}
	defer rc.Close()

	if err := a.Put(ctx, dst, rc); err != nil {
		return blobpath.WrapPathErr("copy", dst.String(), err)
	}
	return nil
}

// BucketExists implements blobpath.Backend
func (a *Adapter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := a.client.ServiceClient().NewContainerClient(bucket).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, mapAzureError("bucketexists", bucket, err)
	}
	return true, nil
}

// CreateBucket implements blobpath.Backend
func (a *Adapter) CreateBucket(ctx context.Context, bucket string) error {
	if _, err := a.client.CreateContainer(ctx, bucket, nil); err != nil {
		return mapAzureError("createbucket", bucket, err)
	}
	return nil
}

// DeleteBucket implements blobpath.Backend
func (a *Adapter) DeleteBucket(ctx context.Context, bucket string) error {
	if _, err := a.client.DeleteContainer(ctx, bucket, nil); err != nil {
		return mapAzureError("deletebucket", bucket, err)
	}
	return nil
}

// ListBuckets implements blobpath.BucketLister
func (a *Adapter) ListBuckets(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		pager := a.client.NewListContainersPager(nil)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield("", mapAzureError("listbuckets", "azure://", err))
				return
			}
			for _, item := range page.ContainerItems {
				if item.Name == nil {
					continue
				}
				if !yield(*item.Name, nil) {
					return
				}
			}
		}
	}
}

// mapAzureError maps Azure errors to blobpath errors
func mapAzureError(op, path string, err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ContainerBeingDeleted):
		return blobpath.WrapPathErr(op, path, blobpath.ErrNotExist)
	case bloberror.HasCode(err, bloberror.ContainerAlreadyExists, bloberror.BlobAlreadyExists):
		return blobpath.WrapPathErr(op, path, blobpath.ErrExist)
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return blobpath.WrapPathErr(op, path, blobpath.ErrNotExist)
	}

	return blobpath.WrapPathErr(op, path, err)
}

// Compile-time interface checks
var (
	_ blobpath.Backend      = (*Adapter)(nil)
	_ blobpath.BucketLister = (*Adapter)(nil)
)
