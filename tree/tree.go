// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"io"
	"io/fs"

	"github.com/vmasfs/vmasfs/lib/archive"
	"github.com/vmasfs/vmasfs/lib/archive/extra"
	"github.com/vmasfs/vmasfs/lib/clock"
	"github.com/vmasfs/vmasfs/lib/vmerr"
	"github.com/vmasfs/vmasfs/node"
)

// Tree is the mounted filesystem's path-indexed node map, backed by
// one Archive for its lifetime.
//
// Tree is not safe for concurrent use; vmasfs dispatches every
// filesystem operation on a single thread.
type Tree struct {
	archive   archive.Archive
	root      *node.Node
	byPath    map[string]*node.Node
	chunkSize int
	clock     clock.Clock

	// defaultUID/defaultGID are applied to archive entries that carry
	// no vmasfs metadata blob (a plain ZIP opened for the first time),
	// matching the construction variant's documented default of "the
	// invoking user's" ownership.
	defaultUID, defaultGID uint32
}

// New creates an empty Tree over a (so far unbuilt) Archive. Call
// Build to populate it from the archive's existing entries.
func New(a archive.Archive, c clock.Clock, chunkSize int, defaultUID, defaultGID uint32) *Tree {
	root := node.NewRoot(c)
	return &Tree{
		archive:    a,
		root:       root,
		byPath:     map[string]*node.Node{"": root},
		chunkSize:  chunkSize,
		clock:      c,
		defaultUID: defaultUID,
		defaultGID: defaultGID,
	}
}

// Root returns the synthesized root node.
func (t *Tree) Root() *node.Node { return t.root }

// ChunkSize returns the chunk size new file buffers are allocated
// with.
func (t *Tree) ChunkSize() int { return t.chunkSize }

// Find looks up a node by its canonical path.
func (t *Tree) Find(path string) (*node.Node, bool) {
	n, ok := t.byPath[path]
	return n, ok
}

// NodeCount returns the number of nodes currently in the tree,
// including the root. Used by the vnode adapter's statfs report
// (spec's f_files is this minus one).
func (t *Tree) NodeCount() int { return len(t.byPath) }

// DefaultOwner returns the ownership applied to archive entries that
// carry no vmasfs metadata blob, and used as a fallback when a FUSE
// caller's credentials are unavailable.
func (t *Tree) DefaultOwner() (uid, gid uint32) { return t.defaultUID, t.defaultGID }

// Opener returns the EntryOpener bound to this tree's archive, for
// callers invoking node.Open.
func (t *Tree) Opener() node.EntryOpener {
	return func(index int64) (io.ReadCloser, int64, error) {
		return t.archive.Open(index)
	}
}

func (t *Tree) defaultMetadata(isDir bool) node.Metadata {
	mode := fs.FileMode(0o644)
	if isDir {
		mode = fs.ModeDir | 0o755
	}
	return node.Metadata{Mode: mode, UID: t.defaultUID, GID: t.defaultGID}
}

// Build populates the tree from the archive's current entries,
// remapping absolute and parent-relative names the way the original
// implementation's build_tree/convertFileName do, and synthesizing any
// missing intermediate directories.
func (t *Tree) Build(readOnly bool) error {
	entries := t.archive.Entries()

	needPrefix := false
	if readOnly {
		for _, e := range entries {
			if needsPrefix(e.Name) {
				needPrefix = true
				break
			}
		}
	}

	created := make([]*node.Node, 0, len(entries))
	for _, e := range entries {
		cname, err := convertFileName(e.Name, readOnly, needPrefix)
		if err != nil {
			return err
		}
		if _, exists := t.byPath[cname]; exists {
			return vmerr.BadArgumentf(cname, "duplicate file name: %s", cname)
		}

		meta, ok := extra.Decode(e.Extra)
		if !ok {
			meta = t.defaultMetadata(e.IsDir)
		}

		n := node.NewFromEntry(cname, e.Index, e.IsDir, e.Size, meta, t.clock)
		t.byPath[cname] = n
		created = append(created, n)
	}

	for _, n := range created {
		if err := t.connectNodeToTree(n); err != nil {
			return err
		}
	}
	return nil
}

// connectNodeToTree attaches n to its parent, synthesizing and
// recursively connecting any missing intermediate directory.
func (t *Tree) connectNodeToTree(n *node.Node) error {
	parentPath := node.ParentPath(n.Path())
	parent, ok := t.byPath[parentPath]
	if !ok {
		parent = node.NewIntermediateDir(parentPath, t.clock)
		t.byPath[parentPath] = parent
		if err := t.connectNodeToTree(parent); err != nil {
			return err
		}
	} else if !parent.IsDir() {
		return vmerr.BadArgumentf(n.Path(), "bad archive structure: %s is not a directory", parentPath)
	}
	parent.AppendChild(n)
	return nil
}

func needsPrefix(name string) bool {
	return (len(name) > 0 && name[0] == '/') || (len(name) >= 3 && name[:3] == "../")
}
