package blobpath

import (
	"context"
	"io"
)

// ProgressFunc is called as bytes are copied. total is Unknown when the
// source size could not be determined.
type ProgressFunc func(transferred, total int64)

// TransferOptions configures Transfer and TransferTree
type TransferOptions struct {
	// Progress reports bytes copied for the file in flight.
	Progress ProgressFunc

	// ReportEvery is the minimum number of bytes between progress calls.
	// The final call is always made. Zero reports every read.
	ReportEvery int64

	// OnFile is called by TransferTree after each file has been copied.
	OnFile func(src, dst FluidPath, n int64)
}

// Transfer streams the raw bytes of the file or blob at src to dst. It
// works across schemes and between local and remote paths; within one
// scheme FS.Copy is cheaper because backends can copy server side.
func Transfer(ctx context.Context, src, dst FluidPath, opts TransferOptions) (int64, error) {
	st, err := src.Stat(ctx)
	if err != nil {
		return 0, err
	}

	rc, err := src.OpenRead(ctx)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	w, err := dst.OpenWrite(ctx)
	if err != nil {
		return 0, err
	}

	var r io.Reader = rc
	if opts.Progress != nil {
		r = &progressReader{
			reader:        rc,
			progress:      opts.Progress,
			size:          st.Size,
			reportingStep: opts.ReportEvery,
		}
	}

	n, err := io.Copy(w, r)
	if err != nil {
		abortWriter(w)
		return n, WrapPathErr("transfer", dst.String(), err)
	}
	return n, WrapPathErr("transfer", dst.String(), w.Close())
}

// TransferTree copies every file beneath the directory or prefix src to
// the same relative name under dst. Names that would leave dst fail with
// ErrResolution. Failures do not stop the walk and are returned together
// as a *BatchError.
func TransferTree(ctx context.Context, src, dst FluidPath, opts TransferOptions) error {
	bt := batch{op: "transfer " + src.String()}
	found := false
	for name, err := range src.Walk(ctx) {
		if err != nil {
			return err
		}
		found = true
		if _, err := localName("transfer", src, name); err != nil {
			bt.add(src.String()+"/"+name, err)
			continue
		}
		from, err := src.Join(name)
		if err != nil {
			bt.add(name, err)
			continue
		}
		to, err := dst.Join(name)
		if err != nil {
			bt.add(name, err)
			continue
		}
		n, err := Transfer(ctx, from, to, opts)
		if err != nil {
			bt.add(from.String(), err)
			continue
		}
		if opts.OnFile != nil {
			opts.OnFile(from, to, n)
		}
	}
	if !found {
		return NewPathError("transfer", src.String(), ErrNotExist)
	}
	return bt.err()
}

// progressReader is a reader that reports progress
type progressReader struct {
	reader        io.Reader
	progress      ProgressFunc
	size          int64
	bytesRead     int64
	lastReported  int64
	reportingStep int64
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.bytesRead += int64(n)
	}
	// Report once enough bytes accumulated, and always at the end
	if (n > 0 && r.bytesRead-r.lastReported >= r.reportingStep) ||
		(err == io.EOF && r.lastReported != r.bytesRead) {
		r.progress(r.bytesRead, r.size)
		r.lastReported = r.bytesRead
	}
	return n, err
}
