package blobpath

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Rename moves the blob or prefix at src to dst. Blobs are copied and then
// deleted one at a time; a prefix rename is not atomic and an interruption
// leaves blobs split between both locations. Rename refuses to overwrite
// anything already at dst; use Replace for that.
//
// Both paths must share a scheme. Per-blob failures do not stop the walk
// and are returned together as a *BatchError.
func (f *FS) Rename(ctx context.Context, src, dst Path) error {
	return f.move(ctx, "rename", src, dst, false)
}

// Replace is Rename that overwrites existing blobs at dst.
func (f *FS) Replace(ctx context.Context, src, dst Path) error {
	return f.move(ctx, "replace", src, dst, true)
}

// Copy copies the blob or every blob under the prefix at src to dst,
// overwriting existing blobs. Both paths must share a scheme.
func (f *FS) Copy(ctx context.Context, src, dst Path) error {
	b, src, dst, err := f.pair(ctx, "copy", src, dst)
	if err != nil {
		return err
	}
	return f.walk(ctx, b, "copy", src, dst, false)
}

// RemoveAll deletes the blob at p or every blob under the prefix p. On a
// bucket root the emptied bucket is deleted as well. A path with nothing
// at it fails with ErrNotExist.
func (f *FS) RemoveAll(ctx context.Context, p Path) error {
	if p.IsRoot() {
		return NewPathError("removeall", p.String(), ErrNotAllowed)
	}
	p, err := p.Resolve()
	if err != nil {
		return err
	}
	b, err := f.backend(p)
	if err != nil {
		return err
	}

	if !p.IsBucket() {
		err := b.Delete(ctx, p)
		if err == nil || !IsNotExist(err) {
			return err
		}
	}

	bt := batch{op: "removeall " + p.DirString()}
	found := false
	for st, err := range b.ListBlobs(ctx, p, "") {
		if err != nil {
			return WrapPathErr("removeall", p.String(), err)
		}
		found = true
		child := p.child(st.Name)
		f.logger.Debug("delete", zap.String("path", child.String()))
		if err := b.Delete(ctx, child); err != nil {
			f.logger.Warn("delete failed", zap.String("path", child.String()), zap.Error(err))
			bt.add(child.String(), err)
		}
	}
	if err := bt.err(); err != nil {
		return err
	}
	if p.IsBucket() {
		return b.DeleteBucket(ctx, p.Bucket())
	}
	if !found {
		return NewPathError("removeall", p.String(), ErrNotExist)
	}
	return nil
}

func (f *FS) move(ctx context.Context, op string, src, dst Path, overwrite bool) error {
	b, src, dst, err := f.pair(ctx, op, src, dst)
	if err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	if !overwrite {
		taken, err := f.exists(ctx, b, dst)
		if err != nil {
			return err
		}
		if taken && !dst.IsBucket() {
			return NewPathError(op, dst.String(), ErrExist)
		}
	}
	return f.walk(ctx, b, op, src, dst, true)
}

// pair resolves src and dst and checks they can be walked together.
func (f *FS) pair(ctx context.Context, op string, src, dst Path) (Backend, Path, Path, error) {
	if src.Scheme() != dst.Scheme() {
		return nil, src, dst, NewPathError(op, src.String(), fmt.Errorf("%w: %s -> %s", ErrCrossScheme, src, dst))
	}
	src, err := src.Resolve()
	if err != nil {
		return nil, src, dst, err
	}
	dst, err = dst.Resolve()
	if err != nil {
		return nil, src, dst, err
	}
	if src.IsRoot() || dst.IsRoot() {
		return nil, src, dst, NewPathError(op, src.String(), ErrNotAllowed)
	}
	if src != dst && dst.Within(src) && !src.IsBucket() {
		if ok, _ := f.IsFile(ctx, src); !ok {
			return nil, src, dst, NewPathError(op, dst.String(), fmt.Errorf("%w: destination inside source", ErrNotAllowed))
		}
	}
	if src.IsBucket() && dst.Within(src) {
		return nil, src, dst, NewPathError(op, dst.String(), fmt.Errorf("%w: destination inside source", ErrNotAllowed))
	}
	b, err := f.backend(src)
	return b, src, dst, err
}

// walk copies src to dst, deleting each source blob after its copy when
// remove is set. A blob at src is handled directly; otherwise every blob
// under the prefix is rewritten by substituting the prefix.
func (f *FS) walk(ctx context.Context, b Backend, op string, src, dst Path, remove bool) error {
	if !src.IsBucket() {
		if _, err := b.Stat(ctx, src); err == nil {
			if dst.IsBucket() {
				dst = dst.child(src.Name())
			}
			if err := b.Copy(ctx, src, dst); err != nil {
				return err
			}
			if remove {
				return b.Delete(ctx, src)
			}
			return nil
		} else if !IsNotExist(err) {
			return err
		}
	}

	bt := batch{op: op + " " + src.DirString()}
	found := false
	for st, err := range b.ListBlobs(ctx, src, "") {
		if err != nil {
			return WrapPathErr(op, src.String(), err)
		}
		found = true
		from := src.child(st.Name)
		to := dst.child(st.Name)
		f.logger.Debug(op, zap.String("from", from.String()), zap.String("to", to.String()))
		if err := b.Copy(ctx, from, to); err != nil {
			f.logger.Warn(op+" failed", zap.String("path", from.String()), zap.Error(err))
			bt.add(from.String(), err)
			continue
		}
		if !remove {
			continue
		}
		if err := b.Delete(ctx, from); err != nil {
			f.logger.Warn(op+" failed", zap.String("path", from.String()), zap.Error(err))
			bt.add(from.String(), err)
		}
	}
	if !found {
		return NewPathError(op, src.String(), ErrNotExist)
	}
	return bt.err()
}
