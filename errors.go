package blobpath

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrNotExist          = errors.New("blob does not exist")
	ErrExist             = errors.New("blob already exists")
	ErrNotEmpty          = errors.New("directory not empty")
	ErrNotDir            = errors.New("not a directory")
	ErrIsDir             = errors.New("is a directory")
	ErrMalformedPath     = errors.New("malformed path")
	ErrResolution        = errors.New("path escapes bucket root")
	ErrBadPattern        = errors.New("syntax error in pattern")
	ErrUnknownScheme     = errors.New("unknown scheme")
	ErrMissingDependency = errors.New("backend package not linked")
	ErrCrossScheme       = errors.New("paths belong to different schemes")
	ErrNotAllowed        = errors.New("operation not allowed")
	ErrNotSupported      = errors.New("operation not supported")
)

// PathError records an error and the operation and path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// NewPathError wraps err with the operation and path that caused it.
func NewPathError(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}

// WrapPathErr is like NewPathError but returns nil for a nil err and leaves
// an existing *PathError untouched.
func WrapPathErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	return &PathError{Op: op, Path: path, Err: err}
}

// MissingDependencyError is returned when a scheme is known but the driver
// package implementing it was not linked into the binary.
type MissingDependencyError struct {
	Scheme  string
	Package string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("scheme %q requires package %s: add `import _ %q`", e.Scheme, e.Package, e.Package)
}

func (e *MissingDependencyError) Unwrap() error {
	return ErrMissingDependency
}

// ItemError is a single failure inside a multi-blob operation.
type ItemError struct {
	Path string
	Err  error
}

func (e ItemError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// BatchError aggregates the per-item failures of a multi-blob operation
// (prefix rename, recursive delete, recursive materialize). Processing
// continues past individual failures; the BatchError is returned once the
// whole batch has been attempted.
type BatchError struct {
	Op       string
	Failures []ItemError
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d item(s) failed", e.Op, len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("\n\t")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes every item failure to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// batch collects item failures for a single multi-blob operation.
type batch struct {
	op       string
	failures []ItemError
}

func (b *batch) add(path string, err error) {
	b.failures = append(b.failures, ItemError{Path: path, Err: err})
}

func (b *batch) err() error {
	if len(b.failures) == 0 {
		return nil
	}
	return &BatchError{Op: b.op, Failures: b.failures}
}

// IsNotExist reports whether an error indicates that a blob, prefix or
// bucket does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether an error indicates that a blob or bucket
// already exists
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsNotEmpty reports whether an error indicates a non-empty prefix or bucket
func IsNotEmpty(err error) bool {
	return errors.Is(err, ErrNotEmpty)
}
