package blobpath_test

import (
	"testing"

	"github.com/gobeaver/blobpath"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := blobpath.NewMetrics(prometheus.NewRegistry())
	fx := newFixture(t, blobpath.WithMetrics(m))
	fx.put(t, "a.txt", "dir/b.txt")

	if _, err := fx.fs.Stat(ctx, blobpath.MustParse("mem://bucket/a.txt")); err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if _, err := fx.fs.Stat(ctx, blobpath.MustParse("mem://bucket/missing")); !blobpath.IsNotExist(err) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if _, err := blobpath.Collect(fx.fs.List(ctx, blobpath.MustParse("mem://bucket/dir"))); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	tests := []struct {
		op, result string
		want       float64
	}{
		{"stat", "ok", 1},
		{"stat", "not_found", 1},
		{"list", "ok", 1},
		{"put", "ok", 0},
	}
	for _, tt := range tests {
		t.Run(tt.op+"_"+tt.result, func(t *testing.T) {
			got := testutil.ToFloat64(m.BackendOpsTotal.WithLabelValues("mem", tt.op, tt.result))
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("cache lookups", func(t *testing.T) {
		p := blobpath.MustParse("mem://bucket/a.txt")
		for range 2 {
			if _, err := fx.fs.ToLocal(ctx, p, false); err != nil {
				t.Fatalf("ToLocal failed: %v", err)
			}
		}
		if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")); got != 1 {
			t.Errorf("expected 1 hit, got %v", got)
		}
		if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")); got != 1 {
			t.Errorf("expected 1 miss, got %v", got)
		}
		if got := testutil.ToFloat64(m.CacheBytesTotal); got != float64(len("content of a.txt")) {
			t.Errorf("unexpected downloaded bytes %v", got)
		}
	})

	t.Run("touch stays in place", func(t *testing.T) {
		if err := fx.fs.Touch(ctx, blobpath.MustParse("mem://bucket/a.txt")); err != nil {
			t.Fatalf("Touch failed: %v", err)
		}
		if got := testutil.ToFloat64(m.BackendOpsTotal.WithLabelValues("mem", "touch", "ok")); got != 1 {
			t.Errorf("expected one touch, got %v", got)
		}
		if got := testutil.ToFloat64(m.BackendOpsTotal.WithLabelValues("mem", "put", "ok")); got != 0 {
			t.Errorf("expected no rewrite, got %v puts", got)
		}
	})
}
