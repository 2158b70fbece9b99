// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"io"
	"io/fs"
)

// Entry describes one enumerated archive member. Mode, ownership, and
// timestamps are not carried here — they live in the per-entry Extra
// blob (see lib/archive/extra), because the archive format itself only
// guarantees a name and a directory/file distinction.
type Entry struct {
	// Index addresses this entry for Open/Replace/Remove/Rename/
	// SetExtra. Stable for the lifetime of the Archive value; not
	// guaranteed to survive a reload from disk.
	Index int64

	// Name is the entry's path within the archive, '/'-separated.
	// Directory entries end in '/'.
	Name string

	// IsDir reports whether this entry represents a directory.
	IsDir bool

	// Size is the entry's uncompressed body length in bytes. Zero for
	// directory entries.
	Size int64

	// Extra is the raw metadata blob previously written via Add,
	// Replace, AddDir, or SetExtra — decoded with
	// lib/archive/extra.Decode. Nil for entries that predate vmasfs
	// management (a plain ZIP opened for the first time).
	Extra []byte
}

// BodyFunc is a pull-style body supplier: it is called at most once,
// when the codec is ready to stream the entry's contents, and the
// returned ReadCloser must remain valid until Close is called on it.
type BodyFunc func() (io.ReadCloser, error)

// Archive is the Archive Handle described by the filesystem's data
// model: an externally owned ZIP archive whose entries are addressed
// by a stable-during-this-session index.
//
// Archive is not safe for concurrent use.
type Archive interface {
	// Entries returns every entry currently in the archive. The order
	// is not defined.
	Entries() []Entry

	// Open returns a reader over the entry's decompressed body and its
	// length in bytes. The caller must Close the reader.
	Open(index int64) (io.ReadCloser, int64, error)

	// Add registers a new entry. body is invoked when the archive is
	// next committed via Close.
	Add(name string, mode fs.FileMode, extra []byte, body BodyFunc) (index int64, err error)

	// Replace re-registers the body of an existing entry, keeping its
	// index and name.
	Replace(index int64, extra []byte, body BodyFunc) error

	// AddDir registers a new directory entry with no body.
	AddDir(name string, mode fs.FileMode, extra []byte) (index int64, err error)

	// Remove deletes an entry.
	Remove(index int64) error

	// Rename changes an entry's name in place, keeping its index and
	// body.
	Rename(index int64, newName string) error

	// SetExtra overwrites an entry's metadata blob without touching
	// its body.
	SetExtra(index int64, extra []byte) error

	// Close commits every pending Add/Replace/Remove/Rename/SetExtra
	// to the backing store and releases the archive. No entry method
	// may be called after Close.
	Close() error
}

// VerifyPassword attempts to read the first non-directory entry's
// body, returning whether it decoded successfully. It is the
// equivalent of the original implementation's try_passwd: a password
// check performed by actually reading a sample of the archive, since
// the codec only rejects a wrong password once it tries to decrypt.
// An archive with no regular entries at all (only directories, or
// empty) trivially verifies true — there is nothing to decrypt.
func VerifyPassword(a Archive) bool {
	for _, e := range a.Entries() {
		if e.IsDir {
			continue
		}
		rc, _, err := a.Open(e.Index)
		if err != nil {
			return false
		}
		rc.Close()
		return true
	}
	return true
}
