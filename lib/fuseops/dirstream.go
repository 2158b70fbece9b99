// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuseops

import (
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// dirStream implements gofuse.DirStream over a pre-built slice of
// entries. The go-fuse bridge synthesizes "." and ".." itself, so
// Readdir only ever supplies a directory's direct children here.
type dirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (d *dirStream) HasNext() bool {
	return d.index < len(d.entries)
}

func (d *dirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if d.index >= len(d.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	e := d.entries[d.index]
	d.index++
	return e, 0
}

func (d *dirStream) Close() {}
