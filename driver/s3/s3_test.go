package s3

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gobeaver/blobpath"
)

func TestMapS3Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notExist bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"no such bucket", &types.NoSuchBucket{}, true},
		{"head not found", &types.NotFound{}, true},
		{"generic api code", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapS3Error("stat", "s3://bucket/key", tt.err)
			if got := errors.Is(err, blobpath.ErrNotExist); got != tt.notExist {
				t.Errorf("expected ErrNotExist=%v, got %v (%v)", tt.notExist, got, err)
			}
			var pe *blobpath.PathError
			if !errors.As(err, &pe) || pe.Op != "stat" {
				t.Errorf("expected a PathError for op stat, got %v", err)
			}
		})
	}
}

func TestCopySource(t *testing.T) {
	p := blobpath.MustParse("s3://bucket/dir/with space/ä.txt")
	got := copySource(p)
	want := "bucket/dir/with%20space/%C3%A4.txt"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRegisteredDriver(t *testing.T) {
	t.Run("builds with static credentials", func(t *testing.T) {
		b, err := blobpath.CreateDriver("s3", blobpath.ClientParams{
			"region":            "eu-west-1",
			"endpoint":          "http://localhost:9000",
			"access_key_id":     "key",
			"secret_access_key": "secret",
			"force_path_style":  "true",
		})
		if err != nil {
			t.Fatalf("CreateDriver failed: %v", err)
		}
		a, ok := b.(*Adapter)
		if !ok {
			t.Fatalf("expected *Adapter, got %T", b)
		}
		if a.region != "eu-west-1" {
			t.Errorf("expected region eu-west-1, got %q", a.region)
		}
		if !a.Client().Options().UsePathStyle {
			t.Error("expected path-style addressing")
		}
	})

	t.Run("rejects half credentials", func(t *testing.T) {
		_, err := blobpath.CreateDriver("s3", blobpath.ClientParams{"access_key_id": "key"})
		if err == nil {
			t.Error("expected validation error without secret_access_key")
		}
	})
}
