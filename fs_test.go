package blobpath_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gobeaver/blobpath"
)

func TestQueries(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "dir/file.txt", "top.txt")

	tests := []struct {
		path   string
		exists bool
		isDir  bool
		isFile bool
	}{
		{"mem://bucket/dir/file.txt", true, false, true},
		{"mem://bucket/dir", true, true, false},
		{"mem://bucket/dir/", true, true, false},
		{"mem://bucket/", true, true, false},
		{"mem://bucket/missing", false, false, false},
		{"mem://bucket/di", false, false, false},
		{"mem://nobucket/", false, false, false},
		{"mem://", true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p := blobpath.MustParse(tt.path)
			if got, err := fx.fs.Exists(ctx, p); err != nil || got != tt.exists {
				t.Errorf("Exists = %v, %v; want %v", got, err, tt.exists)
			}
			if got, err := fx.fs.IsDir(ctx, p); err != nil || got != tt.isDir {
				t.Errorf("IsDir = %v, %v; want %v", got, err, tt.isDir)
			}
			if got, err := fx.fs.IsFile(ctx, p); err != nil || got != tt.isFile {
				t.Errorf("IsFile = %v, %v; want %v", got, err, tt.isFile)
			}
		})
	}
}

func TestStatAndOwner(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "a.txt")

	st, err := fx.fs.Stat(ctx, blobpath.MustParse("mem://bucket/a.txt"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if st.Size != int64(len("content of a.txt")) {
		t.Errorf("unexpected size %d", st.Size)
	}
	if st.LastModified != fx.now.Unix() {
		t.Errorf("expected LastModified %d, got %d", fx.now.Unix(), st.LastModified)
	}

	if _, err := fx.fs.Stat(ctx, blobpath.MustParse("mem://bucket/")); !errors.Is(err, blobpath.ErrIsDir) {
		t.Errorf("Stat on bucket: expected ErrIsDir, got %v", err)
	}
	if _, err := fx.fs.Stat(ctx, blobpath.MustParse("mem://bucket/missing")); !blobpath.IsNotExist(err) {
		t.Errorf("Stat on missing: expected ErrNotExist, got %v", err)
	}
	if _, err := fx.fs.Owner(ctx, blobpath.MustParse("mem://bucket/a.txt")); !errors.Is(err, blobpath.ErrNotSupported) {
		t.Errorf("Owner: expected ErrNotSupported, got %v", err)
	}
}

func TestTouch(t *testing.T) {
	fx := newFixture(t)
	p := blobpath.MustParse("mem://bucket/new/blob")

	if err := fx.fs.Touch(ctx, p); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	mustExist(t, fx.fs, p.String(), true)

	st, _ := fx.fs.Stat(ctx, p)
	if st.Size != 0 {
		t.Errorf("expected an empty blob, got %d bytes", st.Size)
	}

	t.Run("refreshes modification time", func(t *testing.T) {
		fx.advance(time.Minute)
		if err := fx.fs.Touch(ctx, p); err != nil {
			t.Fatalf("Touch failed: %v", err)
		}
		st, _ := fx.fs.Stat(ctx, p)
		if st.LastModified != fx.now.Unix() {
			t.Errorf("expected LastModified %d, got %d", fx.now.Unix(), st.LastModified)
		}
	})

	t.Run("no refresh", func(t *testing.T) {
		before, _ := fx.fs.Stat(ctx, p)
		fx.advance(time.Minute)
		if err := fx.fs.Touch(ctx, p, blobpath.TouchNoRefresh()); err != nil {
			t.Fatalf("Touch failed: %v", err)
		}
		after, _ := fx.fs.Stat(ctx, p)
		if after.LastModified != before.LastModified {
			t.Errorf("expected LastModified to stay %d, got %d", before.LastModified, after.LastModified)
		}
	})

	t.Run("exclusive", func(t *testing.T) {
		if err := fx.fs.Touch(ctx, p, blobpath.TouchExclusive()); !blobpath.IsExist(err) {
			t.Errorf("expected ErrExist, got %v", err)
		}
	})

	t.Run("refresh without toucher rewrites content", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "kept")
		fx.fs.Registry().Register("mem", &countingBackend{Backend: fx.mem})

		p := blobpath.MustParse("mem://bucket/kept")
		fx.advance(time.Hour)
		if err := fx.fs.Touch(ctx, p); err != nil {
			t.Fatalf("Touch failed: %v", err)
		}
		text, err := fx.fs.ReadText(ctx, p)
		if err != nil || text != "content of kept" {
			t.Errorf("expected content to survive, got %q, %v", text, err)
		}
		st, _ := fx.fs.Stat(ctx, p)
		if st.LastModified != fx.now.Unix() {
			t.Errorf("expected LastModified %d, got %d", fx.now.Unix(), st.LastModified)
		}
	})

	t.Run("bucket root", func(t *testing.T) {
		if err := fx.fs.Touch(ctx, blobpath.MustParse("mem://bucket/")); !errors.Is(err, blobpath.ErrIsDir) {
			t.Errorf("expected ErrIsDir, got %v", err)
		}
	})
}

func TestUnlink(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "a.txt", "dir/b.txt")

	if err := fx.fs.Unlink(ctx, blobpath.MustParse("mem://bucket/a.txt")); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}
	mustExist(t, fx.fs, "mem://bucket/a.txt", false)

	if err := fx.fs.Unlink(ctx, blobpath.MustParse("mem://bucket/a.txt")); !blobpath.IsNotExist(err) {
		t.Errorf("second Unlink: expected ErrNotExist, got %v", err)
	}
	if err := fx.fs.Unlink(ctx, blobpath.MustParse("mem://bucket/dir")); !errors.Is(err, blobpath.ErrIsDir) {
		t.Errorf("Unlink on prefix: expected ErrIsDir, got %v", err)
	}
}

func TestMkdir(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "existing")

	t.Run("creates bucket", func(t *testing.T) {
		p := blobpath.MustParse("mem://fresh/")
		if err := fx.fs.Mkdir(ctx, p); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
		mustExist(t, fx.fs, "mem://fresh/", true)

		if err := fx.fs.Mkdir(ctx, p); !blobpath.IsExist(err) {
			t.Errorf("expected ErrExist on second Mkdir, got %v", err)
		}
		if err := fx.fs.Mkdir(ctx, p, blobpath.WithExistOK()); err != nil {
			t.Errorf("expected exist_ok to succeed, got %v", err)
		}
	})

	t.Run("key path is a no-op", func(t *testing.T) {
		p := blobpath.MustParse("mem://bucket/some/dir")
		if err := fx.fs.Mkdir(ctx, p); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
		mustExist(t, fx.fs, p.String(), false)
	})

	t.Run("existing blob", func(t *testing.T) {
		p := blobpath.MustParse("mem://bucket/existing")
		if err := fx.fs.Mkdir(ctx, p); !blobpath.IsExist(err) {
			t.Errorf("expected ErrExist, got %v", err)
		}
		if err := fx.fs.Mkdir(ctx, p, blobpath.WithExistOK()); err != nil {
			t.Errorf("expected exist_ok to succeed, got %v", err)
		}
	})

	t.Run("parents creates bucket", func(t *testing.T) {
		p := blobpath.MustParse("mem://other/a/b")
		if err := fx.fs.Mkdir(ctx, p, blobpath.WithParents()); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
		mustExist(t, fx.fs, "mem://other/", true)
	})

	t.Run("scheme root", func(t *testing.T) {
		if err := fx.fs.Mkdir(ctx, blobpath.MustParse("mem://")); !errors.Is(err, blobpath.ErrNotAllowed) {
			t.Errorf("expected ErrNotAllowed, got %v", err)
		}
	})
}

func TestRmdir(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "dir/a", "blob")

	tests := []struct {
		name string
		path string
		want error
	}{
		{"non-empty prefix", "mem://bucket/dir", blobpath.ErrNotEmpty},
		{"non-empty bucket", "mem://bucket/", blobpath.ErrNotEmpty},
		{"blob", "mem://bucket/blob", blobpath.ErrNotDir},
		{"missing prefix", "mem://bucket/nothing", blobpath.ErrNotExist},
		{"missing bucket", "mem://nobucket/", blobpath.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fx.fs.Rmdir(ctx, blobpath.MustParse(tt.path))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("empty bucket", func(t *testing.T) {
		p := blobpath.MustParse("mem://empty/")
		if err := fx.fs.Mkdir(ctx, p); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
		if err := fx.fs.Rmdir(ctx, p); err != nil {
			t.Fatalf("Rmdir failed: %v", err)
		}
		mustExist(t, fx.fs, p.String(), false)
	})
}

func TestRename(t *testing.T) {
	t.Run("blob", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "a.txt")

		src := blobpath.MustParse("mem://bucket/a.txt")
		dst := blobpath.MustParse("mem://bucket/b.txt")
		if err := fx.fs.Rename(ctx, src, dst); err != nil {
			t.Fatalf("Rename failed: %v", err)
		}
		mustExist(t, fx.fs, src.String(), false)
		if text, _ := fx.fs.ReadText(ctx, dst); text != "content of a.txt" {
			t.Errorf("unexpected content %q", text)
		}
	})

	t.Run("prefix", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "src/a", "src/sub/b", "srcx/c")

		err := fx.fs.Rename(ctx, blobpath.MustParse("mem://bucket/src"), blobpath.MustParse("mem://bucket/dst"))
		if err != nil {
			t.Fatalf("Rename failed: %v", err)
		}
		mustExist(t, fx.fs, "mem://bucket/src", false)
		mustExist(t, fx.fs, "mem://bucket/dst/a", true)
		mustExist(t, fx.fs, "mem://bucket/dst/sub/b", true)
		mustExist(t, fx.fs, "mem://bucket/srcx/c", true)
	})

	t.Run("refuses existing destination", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "a", "b")

		err := fx.fs.Rename(ctx, blobpath.MustParse("mem://bucket/a"), blobpath.MustParse("mem://bucket/b"))
		if !blobpath.IsExist(err) {
			t.Errorf("expected ErrExist, got %v", err)
		}
	})

	t.Run("replace overwrites", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "a", "b")

		if err := fx.fs.Replace(ctx, blobpath.MustParse("mem://bucket/a"), blobpath.MustParse("mem://bucket/b")); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		if text, _ := fx.fs.ReadText(ctx, blobpath.MustParse("mem://bucket/b")); text != "content of a" {
			t.Errorf("unexpected content %q", text)
		}
	})

	t.Run("missing source", func(t *testing.T) {
		fx := newFixture(t)
		err := fx.fs.Rename(ctx, blobpath.MustParse("mem://bucket/none"), blobpath.MustParse("mem://bucket/x"))
		if !blobpath.IsNotExist(err) {
			t.Errorf("expected ErrNotExist, got %v", err)
		}
	})

	t.Run("cross scheme", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "a")
		err := fx.fs.Rename(ctx, blobpath.MustParse("mem://bucket/a"), blobpath.MustParse("gs://bucket/a"))
		if !errors.Is(err, blobpath.ErrCrossScheme) {
			t.Errorf("expected ErrCrossScheme, got %v", err)
		}
	})

	t.Run("destination inside source", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "dir/a")
		err := fx.fs.Rename(ctx, blobpath.MustParse("mem://bucket/dir"), blobpath.MustParse("mem://bucket/dir/inner"))
		if !errors.Is(err, blobpath.ErrNotAllowed) {
			t.Errorf("expected ErrNotAllowed, got %v", err)
		}
	})

	t.Run("failures are collected", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "src/a", "src/b", "src/c")
		cb := &failingCopy{Backend: fx.mem, failKey: "src/b"}
		fx.fs.Registry().Register("mem", cb)

		err := fx.fs.Rename(ctx, blobpath.MustParse("mem://bucket/src"), blobpath.MustParse("mem://bucket/dst"))
		var batchErr *blobpath.BatchError
		if !errors.As(err, &batchErr) {
			t.Fatalf("expected *BatchError, got %v", err)
		}
		if len(batchErr.Failures) != 1 || !errors.Is(err, errInjected) {
			t.Errorf("expected one injected failure, got %v", batchErr.Failures)
		}
		mustExist(t, fx.fs, "mem://bucket/dst/a", true)
		mustExist(t, fx.fs, "mem://bucket/dst/c", true)
		mustExist(t, fx.fs, "mem://bucket/src/b", true)
	})
}

func TestCopy(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "src/a", "src/b/c")

	if err := fx.fs.Copy(ctx, blobpath.MustParse("mem://bucket/src"), blobpath.MustParse("mem://bucket/copy")); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	for _, p := range []string{"mem://bucket/src/a", "mem://bucket/src/b/c", "mem://bucket/copy/a", "mem://bucket/copy/b/c"} {
		mustExist(t, fx.fs, p, true)
	}

	t.Run("blob into bucket root", func(t *testing.T) {
		if err := fx.fs.Mkdir(ctx, blobpath.MustParse("mem://target/")); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
		if err := fx.fs.Copy(ctx, blobpath.MustParse("mem://bucket/src/a"), blobpath.MustParse("mem://target/")); err != nil {
			t.Fatalf("Copy failed: %v", err)
		}
		mustExist(t, fx.fs, "mem://target/a", true)
	})
}

func TestRemoveAll(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "dir/a", "dir/b/c", "dirx", "keep")

	if err := fx.fs.RemoveAll(ctx, blobpath.MustParse("mem://bucket/dir")); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	mustExist(t, fx.fs, "mem://bucket/dir", false)
	mustExist(t, fx.fs, "mem://bucket/dirx", true)

	if err := fx.fs.RemoveAll(ctx, blobpath.MustParse("mem://bucket/dir")); !blobpath.IsNotExist(err) {
		t.Errorf("expected ErrNotExist on second RemoveAll, got %v", err)
	}

	t.Run("single blob", func(t *testing.T) {
		if err := fx.fs.RemoveAll(ctx, blobpath.MustParse("mem://bucket/dirx")); err != nil {
			t.Fatalf("RemoveAll failed: %v", err)
		}
		mustExist(t, fx.fs, "mem://bucket/dirx", false)
	})

	t.Run("bucket root", func(t *testing.T) {
		if err := fx.fs.RemoveAll(ctx, blobpath.MustParse("mem://bucket/")); err != nil {
			t.Fatalf("RemoveAll failed: %v", err)
		}
		mustExist(t, fx.fs, "mem://bucket/", false)
	})

	t.Run("partial failure", func(t *testing.T) {
		tests := []struct {
			name   string
			target string
			failed string
			kept   []string
			gone   []string
		}{
			{
				name:   "prefix",
				target: "mem://bucket/dir",
				failed: "mem://bucket/dir/b",
				kept:   []string{"mem://bucket/dir/b", "mem://bucket/other"},
				gone:   []string{"mem://bucket/dir/a", "mem://bucket/dir/c/d"},
			},
			{
				name:   "bucket root",
				target: "mem://bucket/",
				failed: "mem://bucket/dir/b",
				kept:   []string{"mem://bucket/", "mem://bucket/dir/b"},
				gone:   []string{"mem://bucket/dir/a", "mem://bucket/dir/c/d", "mem://bucket/other"},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				fx := newFixture(t)
				fx.put(t, "dir/a", "dir/b", "dir/c/d", "other")
				fd := &failingDelete{Backend: fx.mem, failKey: "dir/b"}
				fx.fs.Registry().Register("mem", fd)

				err := fx.fs.RemoveAll(ctx, blobpath.MustParse(tt.target))
				var batchErr *blobpath.BatchError
				if !errors.As(err, &batchErr) {
					t.Fatalf("expected *BatchError, got %v", err)
				}
				if len(batchErr.Failures) != 1 || batchErr.Failures[0].Path != tt.failed {
					t.Errorf("unexpected failures %v", batchErr.Failures)
				}
				if !errors.Is(err, errInjected) {
					t.Errorf("expected injected failure in %v", err)
				}
				if fd.bucketDeletes != 0 {
					t.Errorf("DeleteBucket called %d times", fd.bucketDeletes)
				}
				for _, s := range tt.kept {
					mustExist(t, fx.fs, s, true)
				}
				for _, s := range tt.gone {
					mustExist(t, fx.fs, s, false)
				}
			})
		}
	})
}

func TestScanDir(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "a.txt", "dir-x/y", "dir/b", "dir/c/d", "dir2/e")

	var got []string
	for e, err := range fx.fs.ScanDir(ctx, blobpath.MustParse("mem://bucket/")) {
		if err != nil {
			t.Fatalf("ScanDir failed: %v", err)
		}
		name := e.Path.Name()
		if e.Dir {
			name += "/"
		}
		got = append(got, name)
	}
	want := []string{"a.txt", "dir-x/", "dir/", "dir2/"}
	if !slices.Equal(got, want) {
		t.Errorf("ScanDir = %v, want %v", got, want)
	}

	paths := collectPaths(t, fx.fs.IterDir(ctx, blobpath.MustParse("mem://bucket/dir")))
	if !slices.Equal(paths, []string{"mem://bucket/dir/b", "mem://bucket/dir/c"}) {
		t.Errorf("IterDir = %v", paths)
	}

	t.Run("scheme root lists buckets", func(t *testing.T) {
		if err := fx.fs.Mkdir(ctx, blobpath.MustParse("mem://another/")); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
		got := collectPaths(t, fx.fs.IterDir(ctx, blobpath.MustParse("mem://")))
		if !slices.Equal(got, []string{"mem://another/", "mem://bucket/"}) {
			t.Errorf("IterDir(mem://) = %v", got)
		}
		buckets := collectPaths(t, fx.fs.ListBuckets(ctx, "mem"))
		if !slices.Equal(buckets, got) {
			t.Errorf("ListBuckets = %v, want %v", buckets, got)
		}
	})
}

func TestSameFile(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "a/b")

	same, err := fx.fs.SameFile(ctx, blobpath.MustParse("mem://bucket/a/b"), blobpath.MustParse("mem://bucket/a/x/../b"))
	if err != nil || !same {
		t.Errorf("expected same file, got %v, %v", same, err)
	}
	if _, err := fx.fs.SameFile(ctx, blobpath.MustParse("mem://bucket/a/b"), blobpath.MustParse("mem://bucket/none")); !blobpath.IsNotExist(err) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestGlob(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "logs/2024/a.json", "logs/2024/b.txt", "logs/2025/c.json", "logs/app-1.log", "readme.md")
	root := blobpath.MustParse("mem://bucket/")

	tests := []struct {
		name    string
		pattern string
		recurse bool
		want    []string
	}{
		{"one level", "logs/*/*.json", false, []string{"mem://bucket/logs/2024/a.json", "mem://bucket/logs/2025/c.json"}},
		{"literal lead", "logs/app-*", false, []string{"mem://bucket/logs/app-1.log"}},
		{"double star", "logs/**", false, []string{"mem://bucket/logs/2024/a.json", "mem://bucket/logs/2024/b.txt", "mem://bucket/logs/2025/c.json", "mem://bucket/logs/app-1.log"}},
		{"recursive", "*.json", true, []string{"mem://bucket/logs/2024/a.json", "mem://bucket/logs/2025/c.json"}},
		{"no wildcard", "readme.md", false, []string{"mem://bucket/readme.md"}},
		{"no wildcard prefix", "logs/2024", false, []string{"mem://bucket/logs/2024"}},
		{"no match", "nothing/*", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			glob := fx.fs.Glob
			if tt.recurse {
				glob = fx.fs.RGlob
			}
			seq, err := glob(ctx, root, tt.pattern)
			if err != nil {
				t.Fatalf("Glob failed: %v", err)
			}
			if got := collectPaths(t, seq); !slices.Equal(got, tt.want) {
				t.Errorf("Glob(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}

	t.Run("bad pattern", func(t *testing.T) {
		if _, err := fx.fs.Glob(ctx, root, "logs/[a"); !errors.Is(err, blobpath.ErrBadPattern) {
			t.Errorf("expected ErrBadPattern, got %v", err)
		}
	})

	t.Run("early stop", func(t *testing.T) {
		seq, _ := fx.fs.RGlob(ctx, root, "*")
		n := 0
		for range seq {
			n++
			break
		}
		if n != 1 {
			t.Errorf("expected to stop after one result, got %d", n)
		}
	})
}

func TestTextAndBytes(t *testing.T) {
	fx := newFixture(t)
	p := blobpath.MustParse("mem://bucket/notes.txt")

	if err := fx.fs.WriteText(ctx, p, "hello"); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	data, err := fx.fs.ReadBytes(ctx, p)
	if err != nil || string(data) != "hello" {
		t.Errorf("ReadBytes = %q, %v", data, err)
	}

	if err := fx.fs.WriteBytes(ctx, blobpath.MustParse("mem://nobucket/x"), []byte("x")); !blobpath.IsNotExist(err) {
		t.Errorf("write into missing bucket: expected ErrNotExist, got %v", err)
	}
}

func TestMissingDriver(t *testing.T) {
	fs := blobpath.New()
	_, err := fs.Exists(ctx, blobpath.MustParse("s3://bucket/key"))

	var missing *blobpath.MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingDependencyError, got %v", err)
	}
	if !strings.HasSuffix(missing.Package, "/driver/s3") {
		t.Errorf("expected the s3 driver package, got %q", missing.Package)
	}
	if !errors.Is(err, blobpath.ErrMissingDependency) {
		t.Error("expected errors.Is ErrMissingDependency")
	}
}

// failingCopy fails Copy for one key.
type failingCopy struct {
	blobpath.Backend
	failKey string
}

func (f *failingCopy) Copy(ctx context.Context, src, dst blobpath.Path) error {
	if src.Key() == f.failKey {
		return errInjected
	}
	return f.Backend.Copy(ctx, src, dst)
}

// failingDelete fails Delete for one key and counts DeleteBucket calls.
type failingDelete struct {
	blobpath.Backend
	failKey       string
	bucketDeletes int
}

func (f *failingDelete) Delete(ctx context.Context, p blobpath.Path) error {
	if p.Key() == f.failKey {
		return errInjected
	}
	return f.Backend.Delete(ctx, p)
}

func (f *failingDelete) DeleteBucket(ctx context.Context, bucket string) error {
	f.bucketDeletes++
	return f.Backend.DeleteBucket(ctx, bucket)
}
