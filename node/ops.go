// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/vmasfs/vmasfs/buffer"
	"github.com/vmasfs/vmasfs/lib/vmerr"
)

var errNotOpen = errors.New("node: operation requires the node to be open")

// EntryOpener opens the body of the archive entry at index for
// reading, along with its uncompressed length. The tree package
// supplies an implementation bound to the concrete archive, which
// carries the password it was opened with.
type EntryOpener func(index int64) (io.ReadCloser, int64, error)

// Open increments the node's open count. The first opener of a CLOSED
// node allocates its buffer and reads the entry body through open.
// NEW, CHANGED, and already-OPENED nodes already have a buffer, so
// subsequent opens just increment the count.
//
// Open never allocates a buffer for a directory.
func (n *Node) Open(open EntryOpener, chunkSize int) error {
	if n.kind == Directory {
		return vmerr.WrongKindf(n.fullPath, "open: %s is a directory", n.fullPath)
	}

	if n.openCount == 0 && n.state == Closed {
		body, length, err := open(n.index)
		if err != nil {
			return vmerr.IoErrorf(n.fullPath, err)
		}
		defer body.Close()

		buf, err := buffer.NewFromReader(body, length, chunkSize)
		if err != nil {
			return vmerr.IoErrorf(n.fullPath, err)
		}
		n.buf = buf
		n.closedSize = 0
		n.state = Opened
	}

	n.openCount++
	return nil
}

// Read copies up to len(dst) bytes starting at offset from the node's
// buffer. It requires the node to be open; Read on a node with no
// buffer returns 0.
func (n *Node) Read(dst []byte, offset int64) int {
	if n.buf == nil {
		return 0
	}
	return n.buf.Read(dst, offset)
}

// Write copies src into the node's buffer at offset, growing it as
// needed, and transitions an OPENED node to CHANGED. It requires the
// node to be open.
func (n *Node) Write(src []byte, offset int64) (int, error) {
	if n.buf == nil {
		return 0, vmerr.IoErrorf(n.fullPath, errNotOpen)
	}
	written := n.buf.Write(src, offset)
	if n.state == Opened {
		n.state = Changed
	}
	n.mtime = n.clock.Now()
	return written, nil
}

// Close decrements the open count. On the last close of a node in
// state OPENED, the buffer is dropped and the node returns to CLOSED.
// A node in state CHANGED or NEW retains its buffer until Save commits
// it — closing early would lose the pending write.
func (n *Node) Close() error {
	if n.openCount > 0 {
		n.openCount--
	}
	if n.openCount == 0 && n.state == Opened {
		if n.buf != nil {
			n.closedSize = n.buf.Len()
		}
		n.buf = nil
		n.state = Closed
	}
	return nil
}

// Truncate resizes the node's buffer to newLen, zero-filling any
// extension. It requires the node to be open and transitions an OPENED
// node to CHANGED, matching Write.
func (n *Node) Truncate(newLen int64) error {
	if n.buf == nil {
		return vmerr.IoErrorf(n.fullPath, errNotOpen)
	}
	n.buf.Truncate(newLen)
	if n.state == Opened {
		n.state = Changed
	}
	n.mtime = n.clock.Now()
	return nil
}

// Rename updates the node's stored path and recomputes its short name,
// without touching its parent link — the tree package handles
// reparenting separately.
func (n *Node) Rename(newPath string) {
	n.fullPath = newPath
	n.recomputeName()
}

// Chmod sets the node's mode bits, preserving the type bits (the type
// bit — ModeDir/ModeSymlink — is immutable after construction).
func (n *Node) Chmod(mode uint32) {
	n.mode = (n.mode & fs.ModeType) | (fs.FileMode(mode) &^ fs.ModeType)
	n.metadataChanged = true
}

// SetUID sets the node's owning user ID.
func (n *Node) SetUID(uid uint32) {
	n.uid = uid
	n.metadataChanged = true
}

// SetGID sets the node's owning group ID.
func (n *Node) SetGID(gid uint32) {
	n.gid = gid
	n.metadataChanged = true
}

// SetTimes sets the node's access and modification times.
func (n *Node) SetTimes(atime, mtime time.Time) {
	n.atime = atime
	n.mtime = mtime
	n.metadataChanged = true
}

// SetCTime sets the node's change time.
func (n *Node) SetCTime(ctime time.Time) {
	n.ctime = ctime
	n.metadataChanged = true
}
