package blobpath

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression names a stream codec.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// CompressionFor infers the codec from a file name's extension.
func CompressionFor(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".gz"), strings.HasSuffix(name, ".gzip"):
		return CompressionGzip
	case strings.HasSuffix(name, ".zst"), strings.HasSuffix(name, ".zstd"):
		return CompressionZstd
	case strings.HasSuffix(name, ".lz4"):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

func resolveOpenOptions(p Path, opts []OpenOption) openOptions {
	o := openOptions{detect: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.detect {
		o.compression = CompressionFor(p.Name())
	}
	return o
}

// ============================================================================
// Reading
// ============================================================================

// OpenRead opens the blob at p for streaming reads, decompressing according
// to its extension unless told otherwise.
func (f *FS) OpenRead(ctx context.Context, p Path, opts ...OpenOption) (io.ReadCloser, error) {
	b, err := f.backend(p)
	if err != nil {
		return nil, err
	}
	rc, err := b.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	o := resolveOpenOptions(p, opts)
	r, err := decompress(rc, o.compression)
	if err != nil {
		rc.Close()
		return nil, NewPathError("open", p.String(), err)
	}
	return r, nil
}

type decodingReader struct {
	io.Reader
	closers []func() error
}

func (d *decodingReader) Close() error {
	var errs []error
	for _, c := range d.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func decompress(rc io.ReadCloser, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone, "":
		return rc, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			return nil, err
		}
		return &decodingReader{Reader: zr, closers: []func() error{zr.Close, rc.Close}}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(rc)
		if err != nil {
			return nil, err
		}
		return &decodingReader{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			rc.Close,
		}}, nil
	case CompressionLZ4:
		return &decodingReader{Reader: lz4.NewReader(rc), closers: []func() error{rc.Close}}, nil
	default:
		return nil, fmt.Errorf("%w: compression %q", ErrNotSupported, c)
	}
}

// ============================================================================
// Writing
// ============================================================================

// OpenWrite returns a writer for the blob at p. Content is spooled to a
// local temporary file and uploaded with a single Put when the writer is
// closed; nothing is visible remotely before Close returns. The writer
// implements Aborter to give up without touching the destination.
func (f *FS) OpenWrite(ctx context.Context, p Path, opts ...OpenOption) (io.WriteCloser, error) {
	if p.IsRoot() || p.IsBucket() {
		return nil, NewPathError("open", p.String(), ErrIsDir)
	}
	b, err := f.backend(p)
	if err != nil {
		return nil, err
	}
	spool, err := os.CreateTemp("", "blobpath-upload-*")
	if err != nil {
		return nil, NewPathError("open", p.String(), err)
	}
	w := &blobWriter{ctx: ctx, backend: b, path: p, spool: spool, w: spool}

	o := resolveOpenOptions(p, opts)
	switch o.compression {
	case CompressionNone, "":
	case CompressionGzip:
		zw := gzip.NewWriter(spool)
		w.w, w.enc = zw, zw
	case CompressionZstd:
		zw, err := zstd.NewWriter(spool)
		if err != nil {
			w.discard()
			return nil, NewPathError("open", p.String(), err)
		}
		w.w, w.enc = zw, zw
	case CompressionLZ4:
		zw := lz4.NewWriter(spool)
		w.w, w.enc = zw, zw
	default:
		w.discard()
		return nil, NewPathError("open", p.String(), fmt.Errorf("%w: compression %q", ErrNotSupported, o.compression))
	}
	return w, nil
}

// Aborter is implemented by the writers of OpenWrite and
// FluidPath.OpenWrite. Abort ends the write without committing it.
type Aborter interface {
	Abort() error
}

// abortWriter ends w without committing when it supports that.
func abortWriter(w io.WriteCloser) {
	if a, ok := w.(Aborter); ok {
		_ = a.Abort()
		return
	}
	_ = w.Close()
}

type blobWriter struct {
	ctx     context.Context
	backend Backend
	path    Path
	spool   *os.File
	w       io.Writer
	enc     io.Closer
	closed  bool
}

func (w *blobWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.w.Write(p)
}

// Close flushes the codec and uploads the spooled content.
func (w *blobWriter) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	defer w.discard()

	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			return NewPathError("write", w.path.String(), err)
		}
	}
	if _, err := w.spool.Seek(0, io.SeekStart); err != nil {
		return NewPathError("write", w.path.String(), err)
	}
	return w.backend.Put(w.ctx, w.path, w.spool)
}

// Abort drops everything written so far. Nothing is uploaded and the blob
// at the destination keeps its previous content.
func (w *blobWriter) Abort() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	if w.enc != nil {
		_ = w.enc.Close()
	}
	w.discard()
	return nil
}

func (w *blobWriter) discard() {
	w.spool.Close()
	os.Remove(w.spool.Name())
}
