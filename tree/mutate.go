// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"io/fs"
	"strings"

	"github.com/vmasfs/vmasfs/lib/vmerr"
	"github.com/vmasfs/vmasfs/node"
)

// insert attaches a freshly constructed node to its (already present)
// parent directory and adds it to the path index.
func (t *Tree) insert(n *node.Node) error {
	if _, exists := t.byPath[n.Path()]; exists {
		return vmerr.Existsf(n.Path())
	}
	parentPath := node.ParentPath(n.Path())
	parent, ok := t.byPath[parentPath]
	if !ok {
		return vmerr.NotFoundf(parentPath)
	}
	parent.AppendChild(n)
	parent.SetCTime(n.CTime())
	t.byPath[n.Path()] = n
	return nil
}

// CreateFile creates a new, empty regular file and attaches it to its
// parent directory, which must already exist.
func (t *Tree) CreateFile(path string, uid, gid uint32, mode fs.FileMode) (*node.Node, error) {
	n := node.NewFile(path, uid, gid, mode, t.chunkSize, t.clock)
	if err := t.insert(n); err != nil {
		return nil, err
	}
	return n, nil
}

// CreateSymlink creates a new symlink and attaches it to its parent
// directory, which must already exist. The link target is written
// through node.Write/node.Open, the same as a regular file's body.
func (t *Tree) CreateSymlink(path string, uid, gid uint32) (*node.Node, error) {
	n := node.NewSymlink(path, uid, gid, t.chunkSize, t.clock)
	if err := t.insert(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Mkdir adds a directory entry to the archive immediately (so it has
// a real index to rename or remove before the next save) and attaches
// the resulting node to its parent directory, which must already
// exist.
func (t *Tree) Mkdir(path string, uid, gid uint32, mode fs.FileMode) (*node.Node, error) {
	index, err := t.archive.AddDir(path, fs.ModeDir|mode.Perm(), nil)
	if err != nil {
		return nil, vmerr.IoErrorf(path, err)
	}
	n := node.NewDirectory(path, index, uid, gid, mode, t.clock)
	if err := t.insert(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Remove detaches n from its parent and the path index, and deletes
// its archive entry if it has one. n must not be the root.
func (t *Tree) Remove(n *node.Node) error {
	parent := n.Parent()
	if parent == nil {
		return vmerr.BadArgumentf(n.Path(), "cannot remove the root")
	}
	parent.DetachChild(n)
	parent.SetCTime(t.clock.Now())
	delete(t.byPath, n.Path())

	if n.Index() >= 0 {
		if err := t.archive.Remove(n.Index()); err != nil {
			return vmerr.IoErrorf(n.Path(), err)
		}
	}
	return nil
}

// renameNode remaps a node's path-index entry and, when reparent is
// true, moves it to its new parent (found by the new path) and
// updates both the old and new parent's change time if they differ.
// It never touches the archive; callers are responsible for renaming
// the underlying entry first, exactly mirroring the original
// implementation's split between its node-bookkeeping renameNode and
// its FUSE-level rename handler.
func (t *Tree) renameNode(n *node.Node, newPath string, reparent bool) error {
	parent1 := n.Parent()
	var parent2 *node.Node

	if reparent {
		parent1.DetachChild(n)
	}

	delete(t.byPath, n.Path())
	n.Rename(newPath)
	t.byPath[n.Path()] = n

	if reparent {
		newParentPath := node.ParentPath(n.Path())
		p, ok := t.byPath[newParentPath]
		if !ok {
			return vmerr.NotFoundf(newParentPath)
		}
		parent2 = p
		parent2.AppendChild(n)
	}

	if reparent && parent1 != parent2 {
		now := t.clock.Now()
		parent1.SetCTime(now)
		parent2.SetCTime(now)
	}
	return nil
}

// RenamePath moves the node at oldPath to newPath, recursively
// renaming every descendant when it is a directory. If a node already
// exists at newPath, it is removed first, matching POSIX rename's
// replace-destination semantics.
//
// oldPath and newPath must already follow the tree's canonical
// convention (directories end in '/'); RenamePath normalizes newPath's
// trailing slash from the renamed node's own kind as a safety net.
func (t *Tree) RenamePath(oldPath, newPath string) error {
	n, ok := t.byPath[oldPath]
	if !ok {
		return vmerr.NotFoundf(oldPath)
	}
	if n.Parent() == nil {
		return vmerr.BadArgumentf(oldPath, "cannot rename the root")
	}

	if existing, ok := t.byPath[newPath]; ok && existing != n {
		if err := t.Remove(existing); err != nil {
			return err
		}
	}

	newName := newPath
	if n.IsDir() && !strings.HasSuffix(newName, "/") {
		newName += "/"
	}

	if n.IsDir() {
		oldPrefixLen := len(oldPath)
		queue := []*node.Node{n}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			children := append([]*node.Node(nil), cur.Children()...)
			for _, child := range children {
				queue = append(queue, child)

				suffix := child.Path()[oldPrefixLen:]
				childNewName := newName + suffix

				if child.Index() >= 0 {
					if err := t.archive.Rename(child.Index(), childNewName); err != nil {
						return vmerr.IoErrorf(child.Path(), err)
					}
				}
				if err := t.renameNode(child, childNewName, false); err != nil {
					return err
				}
			}
		}
	}

	if n.Index() >= 0 {
		if err := t.archive.Rename(n.Index(), newName); err != nil {
			return vmerr.IoErrorf(oldPath, err)
		}
	}
	return t.renameNode(n, newName, true)
}
