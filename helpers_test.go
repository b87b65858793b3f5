package blobpath_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/gobeaver/blobpath"
	"github.com/gobeaver/blobpath/driver/memory"
)

var ctx = context.Background()

// fixture is an FS backed by an in-memory store with a controllable clock.
type fixture struct {
	fs  *blobpath.FS
	mem *memory.Adapter
	now time.Time
}

func newFixture(t testing.TB, opts ...blobpath.Option) *fixture {
	t.Helper()
	fx := &fixture{now: time.Unix(1_700_000_000, 0)}
	fx.mem = memory.New(memory.Config{
		Buckets: []string{"bucket"},
		Clock:   func() time.Time { return fx.now },
	})
	opts = append([]blobpath.Option{blobpath.WithCacheRoot(t.TempDir())}, opts...)
	fx.fs = blobpath.New(opts...)
	fx.fs.Registry().Register("mem", fx.mem)
	return fx
}

// advance moves the store's clock forward.
func (fx *fixture) advance(d time.Duration) { fx.now = fx.now.Add(d) }

// put writes raw content straight into the store.
func (fx *fixture) put(t testing.TB, keys ...string) {
	t.Helper()
	for _, key := range keys {
		p := blobpath.MustParse("mem://bucket/" + key)
		if err := fx.mem.Put(ctx, p, strings.NewReader("content of "+key)); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}
}

func mustExist(t *testing.T, fs *blobpath.FS, s string, want bool) {
	t.Helper()
	ok, err := fs.Exists(ctx, blobpath.MustParse(s))
	if err != nil {
		t.Fatalf("Exists(%s) error = %v", s, err)
	}
	if ok != want {
		t.Errorf("Exists(%s) = %v, want %v", s, ok, want)
	}
}

func collectPaths(t *testing.T, seq iter.Seq2[blobpath.Path, error]) []string {
	t.Helper()
	var out []string
	for p, err := range seq {
		if err != nil {
			t.Fatalf("iteration failed: %v", err)
		}
		out = append(out, p.String())
	}
	return out
}

// countingBackend counts Get calls and can fail, truncate or hide
// modification times.
type countingBackend struct {
	blobpath.Backend
	gets        atomic.Int64
	failKey     string
	breakKey    string
	unknownTime bool
}

var errInjected = errors.New("injected failure")

func (c *countingBackend) Get(ctx context.Context, p blobpath.Path) (io.ReadCloser, error) {
	c.gets.Add(1)
	if c.failKey != "" && p.Key() == c.failKey {
		return nil, errInjected
	}
	rc, err := c.Backend.Get(ctx, p)
	if err != nil || c.breakKey == "" || p.Key() != c.breakKey {
		return rc, err
	}
	// The stream fails after the first four bytes.
	return struct {
		io.Reader
		io.Closer
	}{io.MultiReader(io.LimitReader(rc, 4), iotest.ErrReader(errInjected)), rc}, nil
}

func (c *countingBackend) Stat(ctx context.Context, p blobpath.Path) (*blobpath.BlobStat, error) {
	st, err := c.Backend.Stat(ctx, p)
	if err == nil && c.unknownTime {
		st.LastModified = blobpath.Unknown
	}
	return st, err
}
