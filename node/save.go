// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"io"

	"github.com/vmasfs/vmasfs/lib/vmerr"
)

// EntryAdder registers a new archive entry backed by the pull-style
// body callback, returning the index it was assigned.
type EntryAdder func(name string, meta Metadata, body func() (io.ReadCloser, error)) (index int64, err error)

// EntryReplacer re-registers the body of an existing archive entry.
type EntryReplacer func(index int64, name string, meta Metadata, body func() (io.ReadCloser, error)) error

// MetadataWriter writes a node's metadata to the archive entry at
// index, without touching its body.
type MetadataWriter func(index int64, meta Metadata) error

// Save writes a CHANGED or NEW file or symlink node's buffer back to
// the archive: NEW nodes are added as a fresh entry, CHANGED nodes
// replace the body at their existing index. Directories are never
// saved here — the tree package handles directory persistence during
// its save walk. Save does not touch metadataChanged; the caller
// writes metadata separately via SaveMetadata.
//
// add/replace register a pull-style body callback that the archive
// codec may not invoke until it actually commits (e.g. at
// archive.Close, when a ZIP writer pulls every pending lazy body). The
// node's buffer must stay alive until that happens, so Save leaves it
// in place and only updates closedSize/state here; the caller must
// call ReleaseBuffer once the commit that consumed the body has
// actually succeeded — never before.
func (n *Node) Save(add EntryAdder, replace EntryReplacer) error {
	if n.kind == Directory || !n.IsChanged() {
		return nil
	}

	meta := n.metadata()
	body := func() (io.ReadCloser, error) { return n.buf.Reader(), nil }

	switch n.state {
	case New:
		index, err := add(n.fullPath, meta, body)
		if err != nil {
			return vmerr.IoErrorf(n.fullPath, err)
		}
		n.index = index
	case Changed:
		if err := replace(n.index, n.fullPath, meta, body); err != nil {
			return vmerr.IoErrorf(n.fullPath, err)
		}
	}

	n.closedSize = n.buf.Len()
	n.state = Closed
	return nil
}

// ReleaseBuffer drops a node's buffer. Call only after the archive
// commit that pulled the node's body (if any) has actually completed —
// calling it right after Save, before the body callback Save
// registered has been read by the codec, loses the write it staged.
// A no-op if the node has no buffer.
func (n *Node) ReleaseBuffer() {
	n.buf = nil
}

// SaveMetadata writes the node's mode, ownership, timestamps, and
// optional creation time to the archive entry identified by its index.
// It is a no-op for the root, which has no archive entry.
func (n *Node) SaveMetadata(write MetadataWriter) error {
	if n.index == RootSentinel {
		return nil
	}
	if err := write(n.index, n.metadata()); err != nil {
		return vmerr.IoErrorf(n.fullPath, err)
	}
	n.metadataChanged = false
	return nil
}

func (n *Node) metadata() Metadata {
	return Metadata{
		Mode:       n.mode,
		UID:        n.uid,
		GID:        n.gid,
		MTime:      n.mtime,
		ATime:      n.atime,
		CTime:      n.ctime,
		CreTime:    n.cretime,
		HasCreTime: n.hasCreTime,
	}
}
