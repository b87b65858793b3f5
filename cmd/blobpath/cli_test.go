package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gobeaver/blobpath"
)

// run executes the CLI with every scheme served from root.
func run(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--local-root", root}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	return string(data)
}

func newStore(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "bucket"), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestCp(t *testing.T) {
	root := newStore(t)
	local := t.TempDir()
	src := filepath.Join(local, "data.txt")
	writeFile(t, src, "payload")

	t.Run("local file into remote prefix", func(t *testing.T) {
		out, err := run(t, root, "cp", "-v", src, "s3://bucket/in/")
		if err != nil {
			t.Fatalf("cp failed: %v", err)
		}
		if got := readFile(t, filepath.Join(root, "bucket", "in", "data.txt")); got != "payload" {
			t.Errorf("expected payload, got %q", got)
		}
		if !strings.Contains(out, "-> s3://bucket/in/data.txt") {
			t.Errorf("unexpected verbose output %q", out)
		}
	})

	t.Run("within one scheme", func(t *testing.T) {
		if _, err := run(t, root, "cp", "s3://bucket/in/data.txt", "s3://bucket/copy.txt"); err != nil {
			t.Fatalf("cp failed: %v", err)
		}
		if got := readFile(t, filepath.Join(root, "bucket", "copy.txt")); got != "payload" {
			t.Errorf("expected payload, got %q", got)
		}
	})

	t.Run("prefix requires recursive", func(t *testing.T) {
		if _, err := run(t, root, "cp", "s3://bucket/in", local); err == nil {
			t.Error("expected an error without -r")
		}
	})

	t.Run("remote prefix to local", func(t *testing.T) {
		writeFile(t, filepath.Join(root, "bucket", "in", "sub", "more.txt"), "more")
		dst := filepath.Join(local, "download")
		if _, err := run(t, root, "cp", "-r", "s3://bucket/in", dst); err != nil {
			t.Fatalf("cp -r failed: %v", err)
		}
		if got := readFile(t, filepath.Join(dst, "sub", "more.txt")); got != "more" {
			t.Errorf("expected more, got %q", got)
		}
		if got := readFile(t, filepath.Join(dst, "data.txt")); got != "payload" {
			t.Errorf("expected payload, got %q", got)
		}
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := run(t, root, "cp", "s3://bucket/nope", local)
		if !blobpath.IsNotExist(err) {
			t.Errorf("expected ErrNotExist, got %v", err)
		}
	})
}

func TestMv(t *testing.T) {
	root := newStore(t)
	writeFile(t, filepath.Join(root, "bucket", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "bucket", "b.txt"), "old")

	if _, err := run(t, root, "mv", "gs://bucket/a.txt", "gs://bucket/b.txt"); err != nil {
		t.Fatalf("mv failed: %v", err)
	}
	if got := readFile(t, filepath.Join(root, "bucket", "b.txt")); got != "a" {
		t.Errorf("expected destination to be replaced, got %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "bucket", "a.txt")); !os.IsNotExist(err) {
		t.Errorf("expected source to be gone, got %v", err)
	}

	t.Run("remote to local", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "moved.txt")
		if _, err := run(t, root, "mv", "gs://bucket/b.txt", dst); err != nil {
			t.Fatalf("mv failed: %v", err)
		}
		if got := readFile(t, dst); got != "a" {
			t.Errorf("expected a, got %q", got)
		}
		if _, err := os.Stat(filepath.Join(root, "bucket", "b.txt")); !os.IsNotExist(err) {
			t.Errorf("expected source to be gone, got %v", err)
		}
	})
}

func TestRm(t *testing.T) {
	root := newStore(t)
	writeFile(t, filepath.Join(root, "bucket", "tree", "a"), "a")
	writeFile(t, filepath.Join(root, "bucket", "tree", "b", "c"), "c")
	writeFile(t, filepath.Join(root, "bucket", "single"), "x")

	if _, err := run(t, root, "rm", "s3://bucket/tree"); err == nil {
		t.Error("expected an error without -r")
	}

	out, err := run(t, root, "rm", "-r", "-v", "s3://bucket/tree", "s3://bucket/single")
	if err != nil {
		t.Fatalf("rm failed: %v", err)
	}
	if out != "removed s3://bucket/tree\nremoved s3://bucket/single\n" {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(filepath.Join(root, "bucket", "single")); !os.IsNotExist(err) {
		t.Errorf("expected blob to be gone, got %v", err)
	}

	if _, err := run(t, root, "rm", "s3://bucket/single"); !errors.Is(err, blobpath.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestLs(t *testing.T) {
	root := newStore(t)
	writeFile(t, filepath.Join(root, "bucket", "dir", "x"), "x")
	writeFile(t, filepath.Join(root, "bucket", "file.txt"), "hello")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"prefix", []string{"ls", "s3://bucket/"}, "s3://bucket/dir/\ns3://bucket/file.txt\n"},
		{"scheme root", []string{"ls", "s3://"}, "s3://bucket/\n"},
		{"single blob", []string{"ls", "s3://bucket/dir/x"}, "s3://bucket/dir/x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, root, tt.args...)
			if err != nil {
				t.Fatalf("ls failed: %v", err)
			}
			if out != tt.want {
				t.Errorf("expected %q, got %q", tt.want, out)
			}
		})
	}

	t.Run("long", func(t *testing.T) {
		out, err := run(t, root, "ls", "-l", "s3://bucket/")
		if err != nil {
			t.Fatalf("ls failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %q", out)
		}
		if f := strings.Fields(lines[0]); f[0] != "-" || f[2] != "s3://bucket/dir/" {
			t.Errorf("unexpected directory line %q", lines[0])
		}
		if f := strings.Fields(lines[1]); f[0] != "5" || f[2] != "s3://bucket/file.txt" {
			t.Errorf("unexpected blob line %q", lines[1])
		}
	})

	t.Run("missing prefix", func(t *testing.T) {
		if _, err := run(t, root, "ls", "s3://bucket/none"); !blobpath.IsNotExist(err) {
			t.Errorf("expected ErrNotExist, got %v", err)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	name := filepath.Join(t.TempDir(), "blobpath.yaml")
	writeFile(t, name, `
log_level: debug
cache_dir: /tmp/blobpath-cache
clients:
  s3:
    region: eu-west-1
`)
	t.Setenv("BLOBPATH_LOCAL_ROOT", "/srv/blobs")
	t.Setenv("BLOBPATH_CLIENTS__MEM__MAX_SIZE", "64")

	cfg, err := loadConfig(name)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "console" {
		t.Errorf("unexpected logging config %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.CacheDir != "/tmp/blobpath-cache" || cfg.LocalRoot != "/srv/blobs" {
		t.Errorf("unexpected dirs %q, %q", cfg.CacheDir, cfg.LocalRoot)
	}
	if cfg.Clients["s3"]["region"] != "eu-west-1" {
		t.Errorf("expected s3 region from file, got %v", cfg.Clients["s3"])
	}
	if cfg.Clients["mem"]["max_size"] != "64" {
		t.Errorf("expected mem max_size from environment, got %v", cfg.Clients["mem"])
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected an error for a missing config file")
		}
	})
}
