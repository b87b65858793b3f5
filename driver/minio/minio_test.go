package minio

import (
	"errors"
	"testing"

	"github.com/gobeaver/blobpath"
	"github.com/minio/minio-go/v7"
)

func TestMapMinioError(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"NoSuchKey", blobpath.ErrNotExist},
		{"NoSuchBucket", blobpath.ErrNotExist},
		{"BucketAlreadyOwnedByYou", blobpath.ErrExist},
		{"BucketNotEmpty", blobpath.ErrNotEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := mapMinioError("stat", "minio://bucket/key", minio.ErrorResponse{Code: tt.code})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("AccessDenied", func(t *testing.T) {
		err := mapMinioError("stat", "minio://bucket/key", minio.ErrorResponse{Code: "AccessDenied"})
		if errors.Is(err, blobpath.ErrNotExist) {
			t.Errorf("expected provider error, got %v", err)
		}
	})
}

func TestRegisteredDriver(t *testing.T) {
	b, err := blobpath.CreateDriver("minio", blobpath.ClientParams{
		"endpoint":          "localhost:9000",
		"access_key_id":     "minioadmin",
		"secret_access_key": "minioadmin",
	})
	if err != nil {
		t.Fatalf("CreateDriver failed: %v", err)
	}
	if _, ok := b.(*Adapter); !ok {
		t.Fatalf("expected *Adapter, got %T", b)
	}

	if _, err := blobpath.CreateDriver("minio", blobpath.ClientParams{"endpoint": "http://not a host"}); err == nil {
		t.Error("expected validation error for a malformed endpoint")
	}
}
