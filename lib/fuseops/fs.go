// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuseops

import (
	gofuse "github.com/hanwen/go-fuse/v2/fs"

	"github.com/vmasfs/vmasfs/node"
	"github.com/vmasfs/vmasfs/tree"
)

// FS binds a Tree to the go-fuse inode model. It is not safe for
// concurrent use; the mount is always established with
// fuse.MountOptions.SingleThreaded set, matching spec §5's
// single-threaded dispatch model.
type FS struct {
	tr         *tree.Tree
	readOnly   bool
	archiveDir string

	vnodes  map[*node.Node]*vnode
	nextIno uint64
}

// New creates an adapter over tr. archiveDir is the directory
// containing the archive file, consulted by Statfs for host free
// space.
func New(tr *tree.Tree, readOnly bool, archiveDir string) *FS {
	return &FS{
		tr:         tr,
		readOnly:   readOnly,
		archiveDir: archiveDir,
		vnodes:     make(map[*node.Node]*vnode),
	}
}

// Root returns the InodeEmbedder to pass to gofuse.Mount.
func (f *FS) Root() gofuse.InodeEmbedder {
	return f.vnodeFor(f.tr.Root())
}

// vnodeFor returns the vnode bound to n, creating and caching one on
// first access so repeated lookups (and a rename, which preserves the
// underlying *node.Node) reuse the same go-fuse inode number.
func (f *FS) vnodeFor(n *node.Node) *vnode {
	if v, ok := f.vnodes[n]; ok {
		return v
	}
	f.nextIno++
	v := &vnode{fs: f, n: n, ino: f.nextIno}
	f.vnodes[n] = v
	return v
}

// forget drops n's cached vnode after it has been removed from the
// tree, so a later path reusing the same name does not resurrect a
// stale pairing.
func (f *FS) forget(n *node.Node) {
	delete(f.vnodes, n)
}
