package blobpath_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/gobeaver/blobpath"
)

func TestFluid(t *testing.T) {
	fs := blobpath.New()

	tests := []struct {
		in     string
		remote bool
		want   string
	}{
		{"mem://bucket/key", true, "mem://bucket/key"},
		{"s3://bucket/", true, "s3://bucket/"},
		{"/tmp/data/file.txt", false, filepath.Clean("/tmp/data/file.txt")},
		{"file:///tmp/data/", false, filepath.Clean("/tmp/data")},
		{"relative/dir/../file", false, filepath.Clean("relative/file")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			fp, err := blobpath.Fluid(fs, tt.in)
			if err != nil {
				t.Fatalf("Fluid failed: %v", err)
			}
			if fp.IsRemote() != tt.remote {
				t.Errorf("IsRemote = %v, want %v", fp.IsRemote(), tt.remote)
			}
			if fp.String() != tt.want {
				t.Errorf("String = %q, want %q", fp.String(), tt.want)
			}
		})
	}

	if _, err := blobpath.Fluid(fs, "s3:///key"); !errors.Is(err, blobpath.ErrMalformedPath) {
		t.Errorf("expected ErrMalformedPath, got %v", err)
	}
}

func TestLocalPath(t *testing.T) {
	dir := blobpath.LocalPath(t.TempDir())

	f, err := dir.Join("sub", "file.txt")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	w, err := f.OpenWrite(ctx)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	w.Write([]byte("local"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if ok, _ := f.IsFile(ctx); !ok {
		t.Error("expected a file")
	}
	if ok, _ := dir.IsDir(ctx); !ok {
		t.Error("expected a directory")
	}
	st, err := f.Stat(ctx)
	if err != nil || st.Size != 5 {
		t.Errorf("Stat = %+v, %v", st, err)
	}
	if _, err := dir.Stat(ctx); !errors.Is(err, blobpath.ErrIsDir) {
		t.Errorf("Stat on directory: expected ErrIsDir, got %v", err)
	}

	var names []string
	for name, err := range dir.Walk(ctx) {
		if err != nil {
			t.Fatalf("Walk failed: %v", err)
		}
		names = append(names, name)
	}
	if !slices.Equal(names, []string{"sub/file.txt"}) {
		t.Errorf("Walk = %v", names)
	}

	if err := dir.Unlink(ctx); !errors.Is(err, blobpath.ErrIsDir) {
		t.Errorf("Unlink on directory: expected ErrIsDir, got %v", err)
	}
	if err := f.Unlink(ctx); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}
	if ok, _ := f.Exists(ctx); ok {
		t.Error("expected file to be gone")
	}
	if err := f.Unlink(ctx); !blobpath.IsNotExist(err) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	nested, _ := dir.Join("a", "b")
	if err := nested.MkdirAll(ctx); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if info, err := os.Stat(nested.String()); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be a directory", nested)
	}

	t.Run("join outside", func(t *testing.T) {
		for _, elems := range [][]string{{"..", "x"}, {"a", "../../x"}, {"/abs/../.."}} {
			if _, err := dir.Join(elems...); !errors.Is(err, blobpath.ErrResolution) {
				t.Errorf("Join(%q): expected ErrResolution, got %v", elems, err)
			}
		}
		if p, err := dir.Join("a/../b"); err != nil || p.String() != filepath.Join(dir.String(), "b") {
			t.Errorf("Join(a/../b) = %v, %v", p, err)
		}
	})

	t.Run("abort keeps the old file", func(t *testing.T) {
		g, _ := dir.Join("kept.txt")
		if err := os.WriteFile(g.String(), []byte("ORIGINAL GOOD DATA"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		w, err := g.OpenWrite(ctx)
		if err != nil {
			t.Fatalf("OpenWrite failed: %v", err)
		}
		w.Write([]byte("trunc"))
		if err := w.(blobpath.Aborter).Abort(); err != nil {
			t.Fatalf("Abort failed: %v", err)
		}
		data, err := os.ReadFile(g.String())
		if err != nil || string(data) != "ORIGINAL GOOD DATA" {
			t.Errorf("file changed to %q, %v", data, err)
		}
		matches, _ := filepath.Glob(filepath.Join(dir.String(), ".kept.txt.*"))
		if len(matches) != 0 {
			t.Errorf("temp files left behind: %v", matches)
		}
	})
}

func TestRemotePath(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "dir/a", "dir/b/c")

	fp, err := blobpath.Fluid(fx.fs, "mem://bucket/dir")
	if err != nil {
		t.Fatalf("Fluid failed: %v", err)
	}
	if ok, _ := fp.IsDir(ctx); !ok {
		t.Error("expected a prefix")
	}

	var names []string
	for name, err := range fp.Walk(ctx) {
		if err != nil {
			t.Fatalf("Walk failed: %v", err)
		}
		names = append(names, name)
	}
	if !slices.Equal(names, []string{"a", "b/c"}) {
		t.Errorf("Walk = %v", names)
	}

	t.Run("mkdir all creates the bucket", func(t *testing.T) {
		fp, _ := blobpath.Fluid(fx.fs, "mem://made/deep/key")
		if err := fp.MkdirAll(ctx); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		mustExist(t, fx.fs, "mem://made/", true)
	})

	rp := fx.fs.Remote(blobpath.MustParse("mem://bucket/dir/a"))
	if ok, _ := rp.IsFile(ctx); !ok {
		t.Error("expected a blob")
	}
}
