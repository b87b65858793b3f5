// Package backendtest holds the behavioral checks every blobpath.Backend
// must pass. Driver packages run it from their own tests.
package backendtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/gobeaver/blobpath"
)

// Factory returns a fresh, empty backend for one subtest.
type Factory func(t *testing.T) blobpath.Backend

const bucket = "conformance"

// Run exercises the Backend contract against backends built by newBackend.
func Run(t *testing.T, scheme string, newBackend Factory) {
	ctx := context.Background()

	path := func(t *testing.T, key ...string) blobpath.Path {
		t.Helper()
		p, err := blobpath.NewPath(scheme, bucket, key...)
		if err != nil {
			t.Fatalf("NewPath failed: %v", err)
		}
		return p
	}

	setup := func(t *testing.T) blobpath.Backend {
		t.Helper()
		b := newBackend(t)
		if err := b.CreateBucket(ctx, bucket); err != nil {
			t.Fatalf("CreateBucket failed: %v", err)
		}
		return b
	}

	put := func(t *testing.T, b blobpath.Backend, content string, key ...string) {
		t.Helper()
		if err := b.Put(ctx, path(t, key...), bytes.NewBufferString(content)); err != nil {
			t.Fatalf("Put %v failed: %v", key, err)
		}
	}

	t.Run("Buckets", func(t *testing.T) {
		b := newBackend(t)

		exists, err := b.BucketExists(ctx, bucket)
		if err != nil {
			t.Fatalf("BucketExists failed: %v", err)
		}
		if exists {
			t.Fatal("Bucket should not exist yet")
		}

		if err := b.CreateBucket(ctx, bucket); err != nil {
			t.Fatalf("CreateBucket failed: %v", err)
		}
		if exists, _ := b.BucketExists(ctx, bucket); !exists {
			t.Error("Bucket should exist after CreateBucket")
		}

		err = b.CreateBucket(ctx, bucket)
		if !errors.Is(err, blobpath.ErrExist) {
			t.Errorf("Expected ErrExist on second CreateBucket, got %v", err)
		}

		if err := b.DeleteBucket(ctx, bucket); err != nil {
			t.Fatalf("DeleteBucket failed: %v", err)
		}
		if exists, _ := b.BucketExists(ctx, bucket); exists {
			t.Error("Bucket should not exist after DeleteBucket")
		}

		err = b.DeleteBucket(ctx, bucket)
		if !errors.Is(err, blobpath.ErrNotExist) {
			t.Errorf("Expected ErrNotExist deleting missing bucket, got %v", err)
		}
	})

	t.Run("PutGetStat", func(t *testing.T) {
		b := setup(t)
		put(t, b, "hello world", "dir", "file.txt")

		st, err := b.Stat(ctx, path(t, "dir", "file.txt"))
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if st.Size != 11 {
			t.Errorf("Expected size 11, got %d", st.Size)
		}
		if st.LastModified == blobpath.Unknown || st.LastModified <= 0 {
			t.Errorf("Expected a last modified time, got %d", st.LastModified)
		}

		rc, err := b.Get(ctx, path(t, "dir", "file.txt"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if string(data) != "hello world" {
			t.Errorf("Expected 'hello world', got %q", data)
		}

		put(t, b, "replaced", "dir", "file.txt")
		st, err = b.Stat(ctx, path(t, "dir", "file.txt"))
		if err != nil {
			t.Fatalf("Stat after overwrite failed: %v", err)
		}
		if st.Size != 8 {
			t.Errorf("Expected size 8 after overwrite, got %d", st.Size)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		b := setup(t)
		missing := path(t, "nope.txt")

		if _, err := b.Stat(ctx, missing); !errors.Is(err, blobpath.ErrNotExist) {
			t.Errorf("Stat: expected ErrNotExist, got %v", err)
		}
		if _, err := b.Get(ctx, missing); !errors.Is(err, blobpath.ErrNotExist) {
			t.Errorf("Get: expected ErrNotExist, got %v", err)
		}
		if err := b.Delete(ctx, missing); !errors.Is(err, blobpath.ErrNotExist) {
			t.Errorf("Delete: expected ErrNotExist, got %v", err)
		}
		if err := b.Copy(ctx, missing, path(t, "copy.txt")); !errors.Is(err, blobpath.ErrNotExist) {
			t.Errorf("Copy: expected ErrNotExist, got %v", err)
		}

		put(t, b, "x", "dir", "file.txt")
		if _, err := b.Stat(ctx, path(t, "dir")); !errors.Is(err, blobpath.ErrNotExist) {
			t.Errorf("Stat on prefix: expected ErrNotExist, got %v", err)
		}
	})

	t.Run("PutMissingBucket", func(t *testing.T) {
		b := newBackend(t)
		err := b.Put(ctx, path(t, "file.txt"), bytes.NewBufferString("x"))
		if !errors.Is(err, blobpath.ErrNotExist) {
			t.Errorf("Expected ErrNotExist writing into a missing bucket, got %v", err)
		}
	})

	t.Run("ListBlobs", func(t *testing.T) {
		b := setup(t)
		put(t, b, "a", "dir", "a.txt")
		put(t, b, "b", "dir", "b.txt")
		put(t, b, "c", "dir", "sub", "c.txt")
		put(t, b, "d", "other.txt")

		names := func(t *testing.T, dir blobpath.Path, filter string) []string {
			t.Helper()
			stats, err := blobpath.Collect(b.ListBlobs(ctx, dir, filter))
			if err != nil {
				t.Fatalf("ListBlobs(%s, %q) failed: %v", dir, filter, err)
			}
			out := make([]string, 0, len(stats))
			for _, st := range stats {
				out = append(out, st.Name)
			}
			return out
		}

		tests := []struct {
			name   string
			dir    blobpath.Path
			filter string
			want   []string
		}{
			{"prefix", path(t, "dir"), "", []string{"a.txt", "b.txt", "sub/c.txt"}},
			{"filter", path(t, "dir"), "a", []string{"a.txt"}},
			{"nested filter", path(t, "dir"), "sub/", []string{"sub/c.txt"}},
			{"bucket root", path(t), "", []string{"dir/a.txt", "dir/b.txt", "dir/sub/c.txt", "other.txt"}},
			{"missing prefix", path(t, "nothing"), "", []string{}},
			{"blob is not a prefix", path(t, "other.txt"), "", []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := names(t, tt.dir, tt.filter)
				slices.Sort(got)
				if !slices.Equal(got, tt.want) {
					t.Errorf("Expected %v, got %v", tt.want, got)
				}
			})
		}

		t.Run("sizes", func(t *testing.T) {
			stats, err := blobpath.Collect(b.ListBlobs(ctx, path(t, "dir"), "sub"))
			if err != nil {
				t.Fatalf("ListBlobs failed: %v", err)
			}
			if len(stats) != 1 || stats[0].Size != 1 {
				t.Errorf("Expected one blob of size 1, got %+v", stats)
			}
		})

		t.Run("missing bucket", func(t *testing.T) {
			p, _ := blobpath.NewPath(scheme, "no-such-bucket")
			stats, err := blobpath.Collect(b.ListBlobs(ctx, p, ""))
			if err != nil {
				t.Fatalf("Expected empty listing for missing bucket, got error %v", err)
			}
			if len(stats) != 0 {
				t.Errorf("Expected no blobs, got %d", len(stats))
			}
		})
	})

	t.Run("DeleteAndCopy", func(t *testing.T) {
		b := setup(t)
		put(t, b, "payload", "src.txt")

		if err := b.Copy(ctx, path(t, "src.txt"), path(t, "nested", "dst.txt")); err != nil {
			t.Fatalf("Copy failed: %v", err)
		}
		for _, key := range [][]string{{"src.txt"}, {"nested", "dst.txt"}} {
			st, err := b.Stat(ctx, path(t, key...))
			if err != nil {
				t.Fatalf("Stat %v after copy failed: %v", key, err)
			}
			if st.Size != 7 {
				t.Errorf("Expected size 7 for %v, got %d", key, st.Size)
			}
		}

		if err := b.Delete(ctx, path(t, "src.txt")); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := b.Stat(ctx, path(t, "src.txt")); !errors.Is(err, blobpath.ErrNotExist) {
			t.Errorf("Expected ErrNotExist after delete, got %v", err)
		}

		if err := b.Delete(ctx, path(t, "nested", "dst.txt")); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		stats, err := blobpath.Collect(b.ListBlobs(ctx, path(t, "nested"), ""))
		if err != nil || len(stats) != 0 {
			t.Errorf("Expected empty prefix after delete, got %v, %v", stats, err)
		}
	})

	t.Run("CancelledContext", func(t *testing.T) {
		b := setup(t)
		put(t, b, "x", "file.txt")

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := b.Stat(cctx, path(t, "file.txt")); err == nil {
			t.Error("Expected an error from Stat with a cancelled context")
		}
	})

	t.Run("ListBuckets", func(t *testing.T) {
		b := setup(t)
		lister, ok := b.(blobpath.BucketLister)
		if !ok {
			t.Skip("backend does not list buckets")
		}
		buckets, err := blobpath.Collect(lister.ListBuckets(ctx))
		if err != nil {
			t.Fatalf("ListBuckets failed: %v", err)
		}
		if !slices.Contains(buckets, bucket) {
			t.Errorf("Expected %q in %v", bucket, buckets)
		}
	})

	t.Run("Touch", func(t *testing.T) {
		b := setup(t)
		toucher, ok := b.(blobpath.Toucher)
		if !ok {
			t.Skip("backend does not touch")
		}
		put(t, b, "keep", "file.txt")
		if err := toucher.Touch(ctx, path(t, "file.txt")); err != nil {
			t.Fatalf("Touch failed: %v", err)
		}
		st, err := b.Stat(ctx, path(t, "file.txt"))
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if st.Size != 4 {
			t.Errorf("Touch changed content size to %d", st.Size)
		}
		if err := toucher.Touch(ctx, path(t, "missing.txt")); !errors.Is(err, blobpath.ErrNotExist) {
			t.Errorf("Expected ErrNotExist touching a missing blob, got %v", err)
		}
	})
}
