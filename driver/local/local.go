// Package local implements the fs:// scheme on a directory of the local
// file system. Each bucket is a top-level directory under the root and each
// key a relative file path inside it.
package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gobeaver/blobpath"
)

// Adapter provides a local filesystem implementation of blobpath.Backend
type Adapter struct {
	root string
}

// Config holds configuration for the local adapter
type Config struct {
	// Root is the directory holding one subdirectory per bucket.
	Root string `mapstructure:"root" validate:"required"`
}

// New creates a new local filesystem adapter
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Ensure the root directory exists
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// Root returns the absolute root directory.
func (a *Adapter) Root() string { return a.root }

// bucketDir returns the directory backing bucket.
func (a *Adapter) bucketDir(op, bucket string) (string, error) {
	dir := filepath.Join(a.root, bucket)
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || !isPathUnderRoot(a.root, dir) || dir == a.root {
		return "", blobpath.NewPathError(op, bucket, blobpath.ErrNotAllowed)
	}
	return dir, nil
}

// fullPath returns the file backing p.
func (a *Adapter) fullPath(op string, p blobpath.Path) (string, error) {
	dir, err := a.bucketDir(op, p.Bucket())
	if err != nil {
		return "", err
	}
	full := filepath.Join(dir, filepath.FromSlash(p.Key()))

	// Check if the path is under the bucket
	if !isPathUnderRoot(dir, full) {
		return "", blobpath.NewPathError(op, p.String(), blobpath.ErrNotAllowed)
	}
	return full, nil
}

// statFile returns the info of the regular file behind p. Directories are
// prefixes, not blobs, and report ErrNotExist.
func (a *Adapter) statFile(op string, p blobpath.Path) (string, os.FileInfo, error) {
	full, err := a.fullPath(op, p)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", nil, mapError(op, p, err)
	}
	if info.IsDir() {
		return "", nil, blobpath.NewPathError(op, p.String(), blobpath.ErrNotExist)
	}
	return full, info, nil
}

func blobStat(info os.FileInfo) *blobpath.BlobStat {
	return &blobpath.BlobStat{
		Size:         info.Size(),
		LastModified: info.ModTime().Unix(),
		Owner:        fileOwner(info),
	}
}

// Stat implements blobpath.Backend
func (a *Adapter) Stat(ctx context.Context, p blobpath.Path) (*blobpath.BlobStat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// Continue
	}

	_, info, err := a.statFile("stat", p)
	if err != nil {
		return nil, err
	}
	return blobStat(info), nil
}

// ListBlobs implements blobpath.Backend. The walk starts at the deepest
// directory named by the listing prefix and results are sorted by key.
func (a *Adapter) ListBlobs(ctx context.Context, dir blobpath.Path, filter string) iter.Seq2[blobpath.BlobStat, error] {
	return func(yield func(blobpath.BlobStat, error) bool) {
		select {
		case <-ctx.Done():
			yield(blobpath.BlobStat{}, ctx.Err())
			return
		default:
		}

		bucketDir, err := a.bucketDir("list", dir.Bucket())
		if err != nil {
			yield(blobpath.BlobStat{}, err)
			return
		}

		base := dir.Prefix()
		prefix := base + filter
		start := bucketDir
		if i := strings.LastIndexByte(prefix, '/'); i >= 0 {
			start = filepath.Join(bucketDir, filepath.FromSlash(prefix[:i]))
		}
		if !isPathUnderRoot(bucketDir, start) {
			yield(blobpath.BlobStat{}, blobpath.NewPathError("list", dir.String(), blobpath.ErrNotAllowed))
			return
		}

		var out []blobpath.BlobStat
		err = filepath.WalkDir(start, func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
					return nil
				}
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(bucketDir, name)
			if err != nil {
				return err
			}
			key := filepath.ToSlash(rel)
			if d.IsDir() {
				// Skip subtrees that cannot hold a matching key
				if name != start && !strings.HasPrefix(key+"/", prefix) && !strings.HasPrefix(prefix, key+"/") {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasPrefix(key, prefix) || !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			st := blobStat(info)
			st.Name = strings.TrimPrefix(key, base)
			out = append(out, *st)
			return nil
		})
		if err != nil {
			yield(blobpath.BlobStat{}, blobpath.NewPathError("list", dir.String(), err))
			return
		}

		slices.SortFunc(out, func(x, y blobpath.BlobStat) int {
			return strings.Compare(x.Name, y.Name)
		})
		for _, st := range out {
			if !yield(st, nil) {
				return
			}
		}
	}
}

// Get implements blobpath.Backend
func (a *Adapter) Get(ctx context.Context, p blobpath.Path) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// Continue
	}

	full, _, err := a.statFile("get", p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, mapError("get", p, err)
	}
	return f, nil
}

// Put implements blobpath.Backend. The bucket directory must exist;
// intermediate key directories are created as needed.
func (a *Adapter) Put(ctx context.Context, p blobpath.Path, r io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Continue
	}

	if p.Key() == "" {
		return blobpath.NewPathError("put", p.String(), blobpath.ErrIsDir)
	}
	full, err := a.fullPath("put", p)
	if err != nil {
		return err
	}
	if err := a.requireBucket("put", p); err != nil {
		return err
	}
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return blobpath.NewPathError("put", p.String(), blobpath.ErrIsDir)
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return blobpath.NewPathError("put", p.String(), err)
	}

	f, err := os.Create(full)
	if err != nil {
		return blobpath.NewPathError("put", p.String(), err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return blobpath.NewPathError("put", p.String(), err)
	}
	return blobpath.WrapPathErr("put", p.String(), f.Close())
}

func (a *Adapter) requireBucket(op string, p blobpath.Path) error {
	dir, err := a.bucketDir(op, p.Bucket())
	if err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return blobpath.NewPathError(op, p.String(), blobpath.ErrNotExist)
	}
	return nil
}

// Delete implements blobpath.Backend. Directories left empty by the
// removal are pruned up to the bucket directory.
func (a *Adapter) Delete(ctx context.Context, p blobpath.Path) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Continue
	}

	full, _, err := a.statFile("delete", p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return mapError("delete", p, err)
	}

	bucketDir, _ := a.bucketDir("delete", p.Bucket())
	for dir := filepath.Dir(full); dir != bucketDir && isPathUnderRoot(bucketDir, dir); dir = filepath.Dir(dir) {
		// Remove fails on a non-empty directory, which ends the pruning
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// Copy implements blobpath.Backend
func (a *Adapter) Copy(ctx context.Context, src, dst blobpath.Path) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	srcPath, srcInfo, err := a.statFile("copy", src)
	if err != nil {
		return err
	}
	dstPath, err := a.fullPath("copy", dst)
	if err != nil {
		return err
	}
	if srcPath == dstPath {
		return nil
	}

	// Open source file
	srcFile, err := os.Open(srcPath)
	if err != nil {
		return mapError("copy", src, err)
	}
	defer srcFile.Close()

	if err := a.Put(ctx, dst, srcFile); err != nil {
		return err
	}

	if err := os.Chmod(dstPath, srcInfo.Mode().Perm()); err != nil {
		return mapError("copy", dst, err)
	}
	return nil
}

// BucketExists implements blobpath.Backend
func (a *Adapter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	dir, err := a.bucketDir("bucketexists", bucket)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, blobpath.NewPathError("bucketexists", bucket, err)
	}
	return info.IsDir(), nil
}

// CreateBucket implements blobpath.Backend
func (a *Adapter) CreateBucket(ctx context.Context, bucket string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dir, err := a.bucketDir("createbucket", bucket)
	if err != nil {
		return err
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return blobpath.NewPathError("createbucket", bucket, blobpath.ErrExist)
		}
		return blobpath.NewPathError("createbucket", bucket, err)
	}
	return nil
}

// DeleteBucket implements blobpath.Backend. The bucket directory is removed
// with everything in it.
func (a *Adapter) DeleteBucket(ctx context.Context, bucket string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	exists, err := a.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return blobpath.NewPathError("deletebucket", bucket, blobpath.ErrNotExist)
	}
	dir, _ := a.bucketDir("deletebucket", bucket)
	return blobpath.WrapPathErr("deletebucket", bucket, os.RemoveAll(dir))
}

// ListBuckets implements blobpath.BucketLister
func (a *Adapter) ListBuckets(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		select {
		case <-ctx.Done():
			yield("", ctx.Err())
			return
		default:
		}

		entries, err := os.ReadDir(a.root)
		if err != nil {
			yield("", blobpath.NewPathError("listbuckets", a.root, err))
			return
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if !yield(e.Name(), nil) {
				return
			}
		}
	}
}

// Touch implements blobpath.Toucher
func (a *Adapter) Touch(ctx context.Context, p blobpath.Path) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	full, _, err := a.statFile("touch", p)
	if err != nil {
		return err
	}
	now := time.Now()
	return blobpath.WrapPathErr("touch", p.String(), os.Chtimes(full, now, now))
}

// isPathUnderRoot checks if a path is under a given root directory
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// mapError translates file system errors for p.
func mapError(op string, p blobpath.Path, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return blobpath.NewPathError(op, p.String(), blobpath.ErrNotExist)
	case errors.Is(err, syscall.ENOTDIR):
		// A key segment names an existing file
		return blobpath.NewPathError(op, p.String(), blobpath.ErrNotExist)
	default:
		return blobpath.NewPathError(op, p.String(), err)
	}
}

// Compile-time interface checks
var (
	_ blobpath.Backend      = (*Adapter)(nil)
	_ blobpath.BucketLister = (*Adapter)(nil)
	_ blobpath.Toucher      = (*Adapter)(nil)
)
