package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gobeaver/blobpath"
	"github.com/gobeaver/blobpath/internal/backendtest"
)

func TestConformance(t *testing.T) {
	backendtest.Run(t, "mem", func(t *testing.T) blobpath.Backend {
		return New()
	})
}

func TestNew(t *testing.T) {
	t.Run("creates adapter with default config", func(t *testing.T) {
		a := New()
		if a == nil {
			t.Fatal("expected adapter to be created")
		}
		if a.maxSize != 0 {
			t.Errorf("expected maxSize=0, got %d", a.maxSize)
		}
	})

	t.Run("creates adapter with max size", func(t *testing.T) {
		a := New(Config{MaxSize: 1024})
		if a.maxSize != 1024 {
			t.Errorf("expected maxSize=1024, got %d", a.maxSize)
		}
	})

	t.Run("creates initial buckets", func(t *testing.T) {
		a := New(Config{Buckets: []string{"one", "two"}})
		for _, name := range []string{"one", "two"} {
			exists, err := a.BucketExists(context.Background(), name)
			if err != nil || !exists {
				t.Errorf("expected bucket %q to exist, got %v, %v", name, exists, err)
			}
		}
	})
}

func TestPut(t *testing.T) {
	ctx := context.Background()
	p := blobpath.MustParse("mem://bucket/test.txt")

	t.Run("tracks size", func(t *testing.T) {
		a := New(Config{Buckets: []string{"bucket"}})
		content := "hello world"

		if err := a.Put(ctx, p, strings.NewReader(content)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Size() != int64(len(content)) {
			t.Errorf("expected size=%d, got %d", len(content), a.Size())
		}

		if err := a.Put(ctx, p, strings.NewReader("hi")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Size() != 2 {
			t.Errorf("expected size=2 after overwrite, got %d", a.Size())
		}

		if err := a.Delete(ctx, p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Size() != 0 {
			t.Errorf("expected size=0 after delete, got %d", a.Size())
		}
	})

	t.Run("respects max size limit", func(t *testing.T) {
		a := New(Config{MaxSize: 10, Buckets: []string{"bucket"}})

		err := a.Put(ctx, p, strings.NewReader("this is too large"))
		if !errors.Is(err, ErrStorageFull) {
			t.Fatalf("expected ErrStorageFull, got %v", err)
		}
	})

	t.Run("rejects bucket root", func(t *testing.T) {
		a := New(Config{Buckets: []string{"bucket"}})

		err := a.Put(ctx, p.BucketPath(), strings.NewReader("x"))
		if !errors.Is(err, blobpath.ErrIsDir) {
			t.Errorf("expected ErrIsDir, got %v", err)
		}
	})

	t.Run("content is isolated from later writes", func(t *testing.T) {
		a := New(Config{Buckets: []string{"bucket"}})
		if err := a.Put(ctx, p, strings.NewReader("first")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rc, err := a.Get(ctx, p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rc.Close()

		if err := a.Put(ctx, p, strings.NewReader("second")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, _ := io.ReadAll(rc)
		if string(data) != "first" {
			t.Errorf("expected open reader to keep 'first', got %q", data)
		}
	})
}

func TestClock(t *testing.T) {
	ctx := context.Background()
	p := blobpath.MustParse("mem://bucket/clock.txt")

	now := time.Unix(1_700_000_000, 0)
	a := New(Config{Buckets: []string{"bucket"}, Clock: func() time.Time { return now }})

	if err := a.Put(ctx, p, strings.NewReader("tick")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, err := a.Stat(ctx, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.LastModified != now.Unix() {
		t.Errorf("expected LastModified=%d, got %d", now.Unix(), st.LastModified)
	}

	now = now.Add(90 * time.Second)
	if err := a.Touch(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ = a.Stat(ctx, p)
	if st.LastModified != now.Unix() {
		t.Errorf("expected touched LastModified=%d, got %d", now.Unix(), st.LastModified)
	}
}

func TestDeleteBucketDropsBlobs(t *testing.T) {
	ctx := context.Background()
	a := New(Config{Buckets: []string{"bucket"}})
	if err := a.Put(ctx, blobpath.MustParse("mem://bucket/a"), strings.NewReader("abc")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.DeleteBucket(ctx, "bucket"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Size() != 0 {
		t.Errorf("expected size=0, got %d", a.Size())
	}
}

func TestRegisteredDriver(t *testing.T) {
	b, err := blobpath.CreateDriver("mem", blobpath.ClientParams{
		"max_size": "64",
		"buckets":  "alpha,beta",
	})
	if err != nil {
		t.Fatalf("CreateDriver failed: %v", err)
	}
	a, ok := b.(*Adapter)
	if !ok {
		t.Fatalf("expected *Adapter, got %T", b)
	}
	if a.maxSize != 64 {
		t.Errorf("expected maxSize=64, got %d", a.maxSize)
	}
	if exists, _ := a.BucketExists(context.Background(), "beta"); !exists {
		t.Error("expected bucket beta to exist")
	}

	t.Run("read only", func(t *testing.T) {
		b, err := blobpath.CreateDriver("mem", blobpath.ClientParams{
			"buckets":               []string{"alpha"},
			blobpath.ReadOnlyParam: true,
		})
		if err != nil {
			t.Fatalf("CreateDriver failed: %v", err)
		}
		err = b.Put(context.Background(), blobpath.MustParse("mem://alpha/x"), strings.NewReader("x"))
		if !errors.Is(err, blobpath.ErrReadOnly) {
			t.Errorf("expected ErrReadOnly, got %v", err)
		}
	})

	t.Run("invalid params", func(t *testing.T) {
		_, err := blobpath.CreateDriver("mem", blobpath.ClientParams{"max_size": -1})
		if err == nil {
			t.Error("expected validation error for negative max_size")
		}
	})
}
