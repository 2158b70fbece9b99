// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package vmerr classifies errors produced by vmasfs's buffer, node,
// archive, and tree packages so that the FUSE adapter (lib/fuseops)
// can map them to the right negative errno without those packages
// importing syscall themselves.
package vmerr

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind classifies an error for programmatic handling. The FUSE adapter
// is the only place that converts a Kind to a [syscall.Errno] — every
// other package returns a *Error and stays testable without syscall
// plumbing.
type Kind string

const (
	// NotFound indicates a path lookup found no node. Surfaced as
	// ENOENT.
	NotFound Kind = "not_found"

	// WrongKind indicates an operation expected a file but found a
	// directory, or vice versa. Surfaced as EISDIR, ENOTDIR, or EINVAL
	// depending on the call site.
	WrongKind Kind = "wrong_kind"

	// Exists indicates a create-like operation targeted a path that
	// already has a node. Surfaced as EEXIST.
	Exists Kind = "exists"

	// NotEmpty indicates rmdir targeted a directory with children.
	// Surfaced as ENOTEMPTY.
	NotEmpty Kind = "not_empty"

	// BadArgument indicates malformed input: an empty new path for
	// rename, an empty resulting path, or similar caller error.
	// Surfaced as EINVAL or EACCES depending on the call site.
	BadArgument Kind = "bad_argument"

	// OutOfMemory indicates a buffer or archive allocation failed.
	// Surfaced as ENOMEM.
	OutOfMemory Kind = "out_of_memory"

	// IoError indicates a codec or underlying I/O failure. Surfaced
	// as EIO.
	IoError Kind = "io_error"

	// Unsupported indicates an operation this filesystem does not
	// implement, such as extended attributes. Surfaced as ENOTSUP.
	Unsupported Kind = "unsupported"
)

// Error is a categorized error carrying the Kind the FUSE adapter
// needs to pick an errno, plus the path involved and an optional
// wrapped cause.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// Error returns a human-readable message. The Kind does not appear in
// the text — callers that need it read Kind directly.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Path != "" {
			return fmt.Sprintf("%s: %v", e.Path, e.Err)
		}
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return string(e.Kind)
}

// Unwrap returns the wrapped cause, allowing errors.Is and errors.As
// to walk the chain through the Error wrapper.
func (e *Error) Unwrap() error { return e.Err }

// Errno maps Kind to the negative syscall.Errno this filesystem
// reports for it.
func (e *Error) Errno() syscall.Errno {
	switch e.Kind {
	case NotFound:
		return syscall.ENOENT
	case WrongKind:
		return syscall.EINVAL
	case Exists:
		return syscall.EEXIST
	case NotEmpty:
		return syscall.ENOTEMPTY
	case BadArgument:
		return syscall.EINVAL
	case OutOfMemory:
		return syscall.ENOMEM
	case IoError:
		return syscall.EIO
	case Unsupported:
		return syscall.ENOTSUP
	default:
		return syscall.EIO
	}
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// NotFoundf constructs a NotFound error for path.
func NotFoundf(path string) *Error {
	return newError(NotFound, path, nil)
}

// WrongKindf constructs a WrongKind error for path, wrapping an error
// formatted from format and args.
func WrongKindf(path string, format string, args ...any) *Error {
	return newError(WrongKind, path, fmt.Errorf(format, args...))
}

// Existsf constructs an Exists error for path.
func Existsf(path string) *Error {
	return newError(Exists, path, nil)
}

// NotEmptyf constructs a NotEmpty error for path.
func NotEmptyf(path string) *Error {
	return newError(NotEmpty, path, nil)
}

// BadArgumentf constructs a BadArgument error for path.
func BadArgumentf(path string, format string, args ...any) *Error {
	return newError(BadArgument, path, fmt.Errorf(format, args...))
}

// OutOfMemoryf constructs an OutOfMemory error for path, wrapping err.
func OutOfMemoryf(path string, err error) *Error {
	return newError(OutOfMemory, path, err)
}

// IoErrorf constructs an IoError for path, wrapping err.
func IoErrorf(path string, err error) *Error {
	return newError(IoError, path, err)
}

// Unsupportedf constructs an Unsupported error for path.
func Unsupportedf(path string) *Error {
	return newError(Unsupported, path, nil)
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind == kind
	}
	return false
}

// Errno maps any error to a negative-worthy [syscall.Errno]: a *Error
// maps via its Kind; any other non-nil error maps to EIO; nil maps to
// 0 (success).
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Errno()
	}
	return syscall.EIO
}
