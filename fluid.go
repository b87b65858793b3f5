package blobpath

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

const localScheme = "file"

// FluidPath is the capability set shared by remote blob paths and plain
// local paths, so tools like the CLI can move bytes between the two
// without caring which side is which.
type FluidPath interface {
	String() string
	IsRemote() bool
	Join(elem ...string) (FluidPath, error)
	Exists(ctx context.Context) (bool, error)
	IsDir(ctx context.Context) (bool, error)
	IsFile(ctx context.Context) (bool, error)
	Stat(ctx context.Context) (*BlobStat, error)

	// MkdirAll makes sure files can be written beneath the path. Remote
	// prefixes need no entity, so only a missing bucket is created.
	MkdirAll(ctx context.Context) error

	// OpenRead and OpenWrite move raw bytes; no codec is applied.
	OpenRead(ctx context.Context) (io.ReadCloser, error)
	OpenWrite(ctx context.Context) (io.WriteCloser, error)

	// Unlink removes a single file or blob.
	Unlink(ctx context.Context) error

	// Walk yields the slash-separated names of every file beneath a
	// directory or prefix, relative to it.
	Walk(ctx context.Context) iter.Seq2[string, error]
}

// Fluid parses s as a remote path when it carries a scheme other than
// file://, and as a LocalPath otherwise. Remote paths are bound to fsys.
func Fluid(fsys *FS, s string) (FluidPath, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if ok && !strings.EqualFold(scheme, localScheme) {
		p, err := Parse(s)
		if err != nil {
			return nil, err
		}
		return &RemotePath{fs: fsys, path: p}, nil
	}
	if ok {
		s = rest
	}
	if s == "" {
		return nil, NewPathError("fluid", s, ErrMalformedPath)
	}
	return LocalPath(filepath.Clean(s)), nil
}

// ============================================================================
// RemotePath
// ============================================================================

// RemotePath is a Path bound to the FS that serves it.
type RemotePath struct {
	fs   *FS
	path Path
}

// Remote binds p to f.
func (f *FS) Remote(p Path) *RemotePath {
	return &RemotePath{fs: f, path: p}
}

func (r *RemotePath) Path() Path     { return r.path }
func (r *RemotePath) String() string { return r.path.String() }
func (r *RemotePath) IsRemote() bool { return true }

func (r *RemotePath) Join(elem ...string) (FluidPath, error) {
	p, err := r.path.Join(elem...)
	if err != nil {
		return nil, err
	}
	return &RemotePath{fs: r.fs, path: p}, nil
}

func (r *RemotePath) Exists(ctx context.Context) (bool, error) {
	return r.fs.Exists(ctx, r.path)
}

func (r *RemotePath) IsDir(ctx context.Context) (bool, error) {
	return r.fs.IsDir(ctx, r.path)
}

func (r *RemotePath) IsFile(ctx context.Context) (bool, error) {
	return r.fs.IsFile(ctx, r.path)
}

func (r *RemotePath) Stat(ctx context.Context) (*BlobStat, error) {
	return r.fs.Stat(ctx, r.path)
}

func (r *RemotePath) MkdirAll(ctx context.Context) error {
	if r.path.IsBucket() {
		return r.fs.Mkdir(ctx, r.path, WithExistOK())
	}
	return r.fs.Mkdir(ctx, r.path, WithParents(), WithExistOK())
}

func (r *RemotePath) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	return r.fs.OpenRead(ctx, r.path, WithoutCompression())
}

func (r *RemotePath) OpenWrite(ctx context.Context) (io.WriteCloser, error) {
	return r.fs.OpenWrite(ctx, r.path, WithoutCompression())
}

func (r *RemotePath) Unlink(ctx context.Context) error {
	return r.fs.Unlink(ctx, r.path)
}

func (r *RemotePath) Walk(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for st, err := range r.fs.List(ctx, r.path) {
			if !yield(st.Name, err) || err != nil {
				return
			}
		}
	}
}

// ============================================================================
// LocalPath
// ============================================================================

// LocalPath is a path on the local file system.
type LocalPath string

func (l LocalPath) String() string { return string(l) }
func (l LocalPath) IsRemote() bool { return false }

// Join fails with ErrResolution when the joined elements would leave l.
func (l LocalPath) Join(elem ...string) (FluidPath, error) {
	rel := filepath.Join(elem...)
	if rel == "" {
		return l, nil
	}
	if !filepath.IsLocal(rel) {
		return nil, NewPathError("join", filepath.Join(string(l), rel), ErrResolution)
	}
	return LocalPath(filepath.Join(string(l), rel)), nil
}

func (l LocalPath) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(string(l))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (l LocalPath) IsDir(_ context.Context) (bool, error) {
	info, err := os.Stat(string(l))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (l LocalPath) IsFile(_ context.Context) (bool, error) {
	info, err := os.Stat(string(l))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (l LocalPath) MkdirAll(_ context.Context) error {
	return localErr("mkdir", l, os.MkdirAll(string(l), 0o755))
}

func (l LocalPath) Stat(_ context.Context) (*BlobStat, error) {
	info, err := os.Stat(string(l))
	if err != nil {
		return nil, localErr("stat", l, err)
	}
	if info.IsDir() {
		return nil, NewPathError("stat", string(l), ErrIsDir)
	}
	return &BlobStat{
		Name:         info.Name(),
		Size:         info.Size(),
		LastModified: EpochSeconds(info.ModTime()),
	}, nil
}

func (l LocalPath) OpenRead(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(string(l))
	if err != nil {
		return nil, localErr("open", l, err)
	}
	return f, nil
}

func (l LocalPath) OpenWrite(_ context.Context) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(string(l)), 0o755); err != nil {
		return nil, localErr("open", l, err)
	}
	f, err := os.CreateTemp(filepath.Dir(string(l)), "."+filepath.Base(string(l))+".*.tmp")
	if err != nil {
		return nil, localErr("open", l, err)
	}
	return &localWriter{File: f, target: l}, nil
}

// localWriter writes next to its target and renames into place on Close,
// so an aborted or failed write leaves the existing file untouched.
type localWriter struct {
	*os.File
	target LocalPath
	done   bool
}

func (w *localWriter) Close() error {
	if w.done {
		return os.ErrClosed
	}
	w.done = true
	err := w.File.Chmod(0o644)
	if cerr := w.File.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(w.File.Name(), string(w.target))
	}
	if err != nil {
		_ = os.Remove(w.File.Name())
		return localErr("write", w.target, err)
	}
	return nil
}

func (w *localWriter) Abort() error {
	if w.done {
		return os.ErrClosed
	}
	w.done = true
	w.File.Close()
	return os.Remove(w.File.Name())
}

func (l LocalPath) Unlink(_ context.Context) error {
	info, err := os.Stat(string(l))
	if err != nil {
		return localErr("unlink", l, err)
	}
	if info.IsDir() {
		return NewPathError("unlink", string(l), ErrIsDir)
	}
	return localErr("unlink", l, os.Remove(string(l)))
}

func (l LocalPath) Walk(_ context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		root := string(l)
		err := filepath.WalkDir(root, func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, name)
			if err != nil {
				return err
			}
			if !yield(filepath.ToSlash(rel), nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield("", localErr("walk", l, err))
		}
	}
}

// localName turns a slash-separated listing name into a relative file
// path. Names that would land outside the directory they are joined to,
// such as keys holding "..", fail with ErrResolution.
func localName(op string, p fmt.Stringer, name string) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", NewPathError(op, p.String(), ErrResolution)
	}
	return rel, nil
}

func localErr(op string, l LocalPath, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return NewPathError(op, string(l), ErrNotExist)
	}
	return NewPathError(op, string(l), err)
}

var (
	_ FluidPath = (*RemotePath)(nil)
	_ FluidPath = LocalPath("")
)
