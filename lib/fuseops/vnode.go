// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuseops

import (
	"context"
	"io/fs"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/vmasfs/vmasfs/node"
)

// vnode is the InodeEmbedder bound to exactly one tree node.
type vnode struct {
	gofuse.Inode

	fs  *FS
	n   *node.Node
	ino uint64
}

var (
	_ gofuse.InodeEmbedder     = (*vnode)(nil)
	_ gofuse.NodeLookuper      = (*vnode)(nil)
	_ gofuse.NodeGetattrer     = (*vnode)(nil)
	_ gofuse.NodeSetattrer     = (*vnode)(nil)
	_ gofuse.NodeReaddirer     = (*vnode)(nil)
	_ gofuse.NodeOpendirer     = (*vnode)(nil)
	_ gofuse.NodeReleasedirer  = (*vnode)(nil)
	_ gofuse.NodeOpener        = (*vnode)(nil)
	_ gofuse.NodeCreater       = (*vnode)(nil)
	_ gofuse.NodeReader        = (*vnode)(nil)
	_ gofuse.NodeWriter        = (*vnode)(nil)
	_ gofuse.NodeReleaser      = (*vnode)(nil)
	_ gofuse.NodeFlusher       = (*vnode)(nil)
	_ gofuse.NodeFsyncer       = (*vnode)(nil)
	_ gofuse.NodeUnlinker      = (*vnode)(nil)
	_ gofuse.NodeRmdirer       = (*vnode)(nil)
	_ gofuse.NodeMkdirer       = (*vnode)(nil)
	_ gofuse.NodeRenamer       = (*vnode)(nil)
	_ gofuse.NodeSymlinker     = (*vnode)(nil)
	_ gofuse.NodeReadlinker    = (*vnode)(nil)
	_ gofuse.NodeStatfser      = (*vnode)(nil)
	_ gofuse.NodeAccesser      = (*vnode)(nil)
	_ gofuse.NodeGetxattrer    = (*vnode)(nil)
	_ gofuse.NodeSetxattrer    = (*vnode)(nil)
	_ gofuse.NodeRemovexattrer = (*vnode)(nil)
	_ gofuse.NodeListxattrer   = (*vnode)(nil)
)

// findChild returns v's direct child named name, or nil.
func (v *vnode) findChild(name string) *node.Node {
	for _, c := range v.n.Children() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// childPath builds the canonical path a new or looked-up child of v
// would have. v's own path already ends in '/' for every directory
// except the root, whose path is "", so simple concatenation needs no
// separator logic.
func (v *vnode) childPath(name string, isDir bool) string {
	p := v.n.Path() + name
	if isDir {
		p += "/"
	}
	return p
}

func (v *vnode) spawn(ctx context.Context, n *node.Node) *gofuse.Inode {
	cv := v.fs.vnodeFor(n)
	return v.NewInode(ctx, cv, gofuse.StableAttr{Mode: toSyscallMode(n.Mode()), Ino: cv.ino})
}

func (v *vnode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if !v.n.IsDir() {
		return nil, syscall.ENOTDIR
	}
	child := v.findChild(name)
	if child == nil {
		return nil, syscall.ENOENT
	}
	fillEntryOut(child, out)
	return v.spawn(ctx, child), 0
}

func (v *vnode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	fillAttr(v.n, &out.Attr)
	return 0
}

func (v *vnode) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if v.fs.readOnly {
		return syscall.EROFS
	}

	if mode, ok := in.GetMode(); ok {
		v.n.Chmod(mode)
	}
	if uid, ok := in.GetUID(); ok {
		v.n.SetUID(uid)
	}
	if gid, ok := in.GetGID(); ok {
		v.n.SetGID(gid)
	}
	if atime, ok := in.GetATime(); ok {
		v.n.SetTimes(atime, v.n.MTime())
	}
	if mtime, ok := in.GetMTime(); ok {
		v.n.SetTimes(v.n.ATime(), mtime)
	}

	if size, ok := in.GetSize(); ok {
		if v.n.IsDir() {
			return syscall.EISDIR
		}
		if err := v.truncateTo(int64(size)); err != nil {
			return errnoOf(err)
		}
	}

	fillAttr(v.n, &out.Attr)
	return 0
}

// truncateTo opens v.n if it is currently closed, truncates it, and
// closes it again on the way out, matching spec §4.4's
// "open→truncate→close" for the path-based (no-handle) truncate case.
func (v *vnode) truncateTo(size int64) error {
	opened := v.n.State() == node.Closed
	if opened {
		if err := v.n.Open(v.fs.tr.Opener(), v.fs.tr.ChunkSize()); err != nil {
			return err
		}
	}
	if err := v.n.Truncate(size); err != nil {
		return err
	}
	if opened {
		v.n.Close()
	}
	return nil
}

func (v *vnode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	if !v.n.IsDir() {
		return nil, syscall.ENOTDIR
	}
	children := v.n.Children()
	entries := make([]fuse.DirEntry, 0, len(children))
	for _, c := range children {
		entries = append(entries, fuse.DirEntry{
			Name: c.Name(),
			Mode: toSyscallMode(c.Mode()),
			Ino:  v.fs.vnodeFor(c).ino,
		})
	}
	return &dirStream{entries: entries}, 0
}

func (v *vnode) Opendir(ctx context.Context) syscall.Errno { return 0 }

func (v *vnode) Releasedir(ctx context.Context, releaseFlags uint32) {}

func (v *vnode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if v.n.IsDir() {
		return nil, 0, syscall.EISDIR
	}
	if v.fs.readOnly && flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	if err := v.n.Open(v.fs.tr.Opener(), v.fs.tr.ChunkSize()); err != nil {
		return nil, 0, errnoOf(err)
	}
	return v.n, 0, 0
}

func (v *vnode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	if v.fs.readOnly {
		return nil, nil, 0, syscall.EROFS
	}
	if name == "" {
		return nil, nil, 0, syscall.EACCES
	}
	if !v.n.IsDir() {
		return nil, nil, 0, syscall.ENOTDIR
	}
	if v.findChild(name) != nil {
		return nil, nil, 0, syscall.EEXIST
	}

	fallbackUID, fallbackGID := v.fs.tr.DefaultOwner()
	uid, gid := callerIDs(ctx, fallbackUID, fallbackGID)

	n, err := v.fs.tr.CreateFile(v.childPath(name, false), uid, gid, fs.FileMode(mode).Perm())
	if err != nil {
		return nil, nil, 0, errnoOf(err)
	}
	if err := n.Open(v.fs.tr.Opener(), v.fs.tr.ChunkSize()); err != nil {
		return nil, nil, 0, errnoOf(err)
	}

	fillEntryOut(n, out)
	return v.spawn(ctx, n), n, 0, 0
}

func (v *vnode) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n := v.handleNode(f)
	nr := n.Read(dest, off)
	return fuse.ReadResultData(dest[:nr]), 0
}

func (v *vnode) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	if v.fs.readOnly {
		return 0, syscall.EROFS
	}
	n := v.handleNode(f)
	written, err := n.Write(data, off)
	if err != nil {
		return 0, errnoOf(err)
	}
	return uint32(written), 0
}

func (v *vnode) Release(ctx context.Context, f gofuse.FileHandle) syscall.Errno {
	v.handleNode(f).Close()
	return 0
}

func (v *vnode) Flush(ctx context.Context, f gofuse.FileHandle) syscall.Errno { return 0 }

func (v *vnode) Fsync(ctx context.Context, f gofuse.FileHandle, flags uint32) syscall.Errno { return 0 }

// handleNode recovers the *node.Node a file handle carries. Every
// handle this adapter issues (Open, Create) is the node pointer
// itself; a nil or foreign handle falls back to the vnode's own node,
// which is always the same node for a non-hardlinked filesystem like
// this one.
func (v *vnode) handleNode(f gofuse.FileHandle) *node.Node {
	if n, ok := f.(*node.Node); ok {
		return n
	}
	return v.n
}

func (v *vnode) Unlink(ctx context.Context, name string) syscall.Errno {
	if v.fs.readOnly {
		return syscall.EROFS
	}
	child := v.findChild(name)
	if child == nil {
		return syscall.ENOENT
	}
	if child.IsDir() {
		return syscall.EISDIR
	}
	if err := v.fs.tr.Remove(child); err != nil {
		return errnoOf(err)
	}
	v.fs.forget(child)
	return 0
}

func (v *vnode) Rmdir(ctx context.Context, name string) syscall.Errno {
	if v.fs.readOnly {
		return syscall.EROFS
	}
	child := v.findChild(name)
	if child == nil {
		return syscall.ENOENT
	}
	if !child.IsDir() {
		return syscall.ENOTDIR
	}
	if len(child.Children()) > 0 {
		return syscall.ENOTEMPTY
	}
	if err := v.fs.tr.Remove(child); err != nil {
		return errnoOf(err)
	}
	v.fs.forget(child)
	return 0
}

func (v *vnode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if v.fs.readOnly {
		return nil, syscall.EROFS
	}
	if !v.n.IsDir() {
		return nil, syscall.ENOTDIR
	}
	if v.findChild(name) != nil {
		return nil, syscall.EEXIST
	}

	fallbackUID, fallbackGID := v.fs.tr.DefaultOwner()
	uid, gid := callerIDs(ctx, fallbackUID, fallbackGID)

	n, err := v.fs.tr.Mkdir(v.childPath(name, true), uid, gid, fs.FileMode(mode).Perm())
	if err != nil {
		return nil, errnoOf(err)
	}
	fillEntryOut(n, out)
	return v.spawn(ctx, n), 0
}

func (v *vnode) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if v.fs.readOnly {
		return syscall.EROFS
	}
	child := v.findChild(name)
	if child == nil {
		return syscall.ENOENT
	}
	np, ok := newParent.(*vnode)
	if !ok {
		return syscall.EINVAL
	}
	newPath := np.childPath(newName, child.IsDir())
	if err := v.fs.tr.RenamePath(child.Path(), newPath); err != nil {
		return errnoOf(err)
	}
	return 0
}

func (v *vnode) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if v.fs.readOnly {
		return nil, syscall.EROFS
	}
	if name == "" {
		return nil, syscall.EACCES
	}
	if v.findChild(name) != nil {
		return nil, syscall.EEXIST
	}

	fallbackUID, fallbackGID := v.fs.tr.DefaultOwner()
	uid, gid := callerIDs(ctx, fallbackUID, fallbackGID)

	n, err := v.fs.tr.CreateSymlink(v.childPath(name, false), uid, gid)
	if err != nil {
		return nil, errnoOf(err)
	}
	if err := n.Open(v.fs.tr.Opener(), v.fs.tr.ChunkSize()); err != nil {
		return nil, errnoOf(err)
	}
	if _, err := n.Write([]byte(target), 0); err != nil {
		n.Close()
		return nil, errnoOf(err)
	}
	n.Close()

	fillEntryOut(n, out)
	return v.spawn(ctx, n), 0
}

func (v *vnode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	if v.n.Kind() != node.Symlink {
		return nil, syscall.EINVAL
	}
	if err := v.n.Open(v.fs.tr.Opener(), v.fs.tr.ChunkSize()); err != nil {
		return nil, errnoOf(err)
	}
	defer v.n.Close()

	buf := make([]byte, v.n.Size())
	nr := v.n.Read(buf, 0)
	return buf[:nr], 0
}

func (v *vnode) Access(ctx context.Context, mask uint32) syscall.Errno { return 0 }

func (v *vnode) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	return 0, syscall.ENOTSUP
}

func (v *vnode) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	return syscall.ENOTSUP
}

func (v *vnode) Removexattr(ctx context.Context, attr string) syscall.Errno {
	return syscall.ENOTSUP
}

func (v *vnode) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	return 0, syscall.ENOTSUP
}
