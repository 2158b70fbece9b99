// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuseops

import (
	"bytes"
	"context"
	"io/fs"
	"syscall"
	"testing"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/vmasfs/vmasfs/lib/archive/extra"
	"github.com/vmasfs/vmasfs/lib/clock"
	"github.com/vmasfs/vmasfs/lib/testzip"
	"github.com/vmasfs/vmasfs/node"
	"github.com/vmasfs/vmasfs/tree"
)

const testChunkSize = 64

func testClock() clock.Clock {
	return clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func metaFor(mode fs.FileMode, c clock.Clock) node.Metadata {
	now := c.Now()
	return node.Metadata{Mode: mode, UID: 1000, GID: 1000, MTime: now, ATime: now, CTime: now}
}

// newTestFS builds an FS over a tree seeded with one directory and one
// file, backed by a testzip.Fake. readOnly controls the FS's own mount
// mode, independent of the tree's.
func newTestFS(t *testing.T, readOnly bool) (*FS, *tree.Tree) {
	t.Helper()
	fk := testzip.New()
	c := testClock()
	fk.Seed("dir/", true, fs.ModeDir|0o755, extra.Encode(metaFor(fs.ModeDir|0o755, c)), nil)
	fk.Seed("dir/file.txt", false, 0o644, extra.Encode(metaFor(0o644, c)), []byte("hello"))

	tr := tree.New(fk, c, testChunkSize, 1000, 1000)
	if err := tr.Build(false); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return New(tr, readOnly, t.TempDir()), tr
}

func lookupVnode(t *testing.T, fsys *FS, path string) *vnode {
	t.Helper()
	n, ok := fsys.tr.Find(path)
	if !ok {
		t.Fatalf("Find(%q): not found", path)
	}
	return fsys.vnodeFor(n)
}

func TestLookup(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	root := lookupVnode(t, fsys, "")

	var out fuse.EntryOut
	inode, errno := root.Lookup(context.Background(), "dir", &out)
	if errno != 0 {
		t.Fatalf("Lookup(dir) errno = %v", errno)
	}
	if inode == nil {
		t.Fatal("Lookup(dir) returned nil inode")
	}

	if _, errno := root.Lookup(context.Background(), "missing", &out); errno != syscall.ENOENT {
		t.Fatalf("Lookup(missing) errno = %v, want ENOENT", errno)
	}

	file := lookupVnode(t, fsys, "dir/file.txt")
	if _, errno := file.Lookup(context.Background(), "x", &out); errno != syscall.ENOTDIR {
		t.Fatalf("Lookup under a file errno = %v, want ENOTDIR", errno)
	}
}

func TestGetattr(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	v := lookupVnode(t, fsys, "dir/file.txt")

	var out fuse.AttrOut
	if errno := v.Getattr(context.Background(), nil, &out); errno != 0 {
		t.Fatalf("Getattr errno = %v", errno)
	}
	if out.Size != 5 {
		t.Errorf("Getattr Size = %d, want 5", out.Size)
	}
	if out.Mode&syscall.S_IFMT != syscall.S_IFREG {
		t.Errorf("Getattr Mode = %o, want a regular file", out.Mode)
	}
}

func TestSetattrChmodChownTimes(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	v := lookupVnode(t, fsys, "dir/file.txt")

	in := &fuse.SetAttrIn{}
	in.Valid = fuse.FATTR_MODE | fuse.FATTR_UID | fuse.FATTR_GID
	in.Mode = 0o600
	in.Uid = 42
	in.Gid = 43

	var out fuse.AttrOut
	if errno := v.Setattr(context.Background(), nil, in, &out); errno != 0 {
		t.Fatalf("Setattr errno = %v", errno)
	}
	if v.n.UID() != 42 || v.n.GID() != 43 {
		t.Errorf("UID/GID = %d/%d, want 42/43", v.n.UID(), v.n.GID())
	}
	if v.n.Mode().Perm() != 0o600 {
		t.Errorf("Mode = %o, want 0600", v.n.Mode().Perm())
	}
}

func TestSetattrTruncate(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	v := lookupVnode(t, fsys, "dir/file.txt")

	in := &fuse.SetAttrIn{}
	in.Valid = fuse.FATTR_SIZE
	in.Size = 2

	var out fuse.AttrOut
	if errno := v.Setattr(context.Background(), nil, in, &out); errno != 0 {
		t.Fatalf("Setattr errno = %v", errno)
	}
	if v.n.Size() != 2 {
		t.Errorf("Size after truncate = %d, want 2", v.n.Size())
	}
}

func TestSetattrTruncateDirectoryRejected(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	v := lookupVnode(t, fsys, "dir/")

	in := &fuse.SetAttrIn{}
	in.Valid = fuse.FATTR_SIZE
	in.Size = 0

	var out fuse.AttrOut
	if errno := v.Setattr(context.Background(), nil, in, &out); errno != syscall.EISDIR {
		t.Fatalf("Setattr(size) on a directory errno = %v, want EISDIR", errno)
	}
}

func TestSetattrReadOnlyRejected(t *testing.T) {
	fsys, _ := newTestFS(t, true)
	v := lookupVnode(t, fsys, "dir/file.txt")

	in := &fuse.SetAttrIn{}
	in.Valid = fuse.FATTR_MODE
	var out fuse.AttrOut
	if errno := v.Setattr(context.Background(), nil, in, &out); errno != syscall.EROFS {
		t.Fatalf("Setattr on read-only FS errno = %v, want EROFS", errno)
	}
}

func TestReaddir(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	v := lookupVnode(t, fsys, "dir/")

	stream, errno := v.Readdir(context.Background())
	if errno != 0 {
		t.Fatalf("Readdir errno = %v", errno)
	}
	var names []string
	for stream.HasNext() {
		e, errno := stream.Next()
		if errno != 0 {
			t.Fatalf("Next errno = %v", errno)
		}
		names = append(names, e.Name)
	}
	if len(names) != 1 || names[0] != "file.txt" {
		t.Fatalf("Readdir entries = %v, want [file.txt]", names)
	}

	file := lookupVnode(t, fsys, "dir/file.txt")
	if _, errno := file.Readdir(context.Background()); errno != syscall.ENOTDIR {
		t.Fatalf("Readdir on a file errno = %v, want ENOTDIR", errno)
	}
}

func TestOpenReadWriteRelease(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	v := lookupVnode(t, fsys, "dir/file.txt")

	fh, _, errno := v.Open(context.Background(), syscall.O_RDWR)
	if errno != 0 {
		t.Fatalf("Open errno = %v", errno)
	}

	dest := make([]byte, 5)
	if _, errno := v.Read(context.Background(), fh, dest, 0); errno != 0 {
		t.Fatalf("Read errno = %v", errno)
	}
	if !bytes.Equal(dest, []byte("hello")) {
		t.Fatalf("Read content = %q, want %q", dest, "hello")
	}

	written, errno := v.Write(context.Background(), fh, []byte("HELLO!"), 0)
	if errno != 0 {
		t.Fatalf("Write errno = %v", errno)
	}
	if written != 6 {
		t.Fatalf("Write n = %d, want 6", written)
	}

	if errno := v.Release(context.Background(), fh); errno != 0 {
		t.Fatalf("Release errno = %v", errno)
	}
	if v.n.State() != node.Changed {
		t.Errorf("node State after a write-then-release = %v, want Changed", v.n.State())
	}
}

func TestOpenDirectoryRejected(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	v := lookupVnode(t, fsys, "dir/")

	if _, _, errno := v.Open(context.Background(), syscall.O_RDONLY); errno != syscall.EISDIR {
		t.Fatalf("Open(dir) errno = %v, want EISDIR", errno)
	}
}

func TestOpenWriteOnReadOnlyFS(t *testing.T) {
	fsys, _ := newTestFS(t, true)
	v := lookupVnode(t, fsys, "dir/file.txt")

	if _, _, errno := v.Open(context.Background(), syscall.O_RDWR); errno != syscall.EROFS {
		t.Fatalf("Open(O_RDWR) on read-only FS errno = %v, want EROFS", errno)
	}
	if _, _, errno := v.Open(context.Background(), syscall.O_RDONLY); errno != 0 {
		t.Fatalf("Open(O_RDONLY) on read-only FS errno = %v, want success", errno)
	}
}

func TestCreate(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	root := lookupVnode(t, fsys, "")

	var out fuse.EntryOut
	_, fh, _, errno := root.Create(context.Background(), "new.txt", syscall.O_RDWR, 0o644, &out)
	if errno != 0 {
		t.Fatalf("Create errno = %v", errno)
	}
	if fh == nil {
		t.Fatal("Create returned nil handle")
	}
	if _, ok := fsys.tr.Find("new.txt"); !ok {
		t.Fatal("Create did not add the file to the tree")
	}

	if _, _, _, errno := root.Create(context.Background(), "new.txt", syscall.O_RDWR, 0o644, &out); errno != syscall.EEXIST {
		t.Fatalf("duplicate Create errno = %v, want EEXIST", errno)
	}
	if _, _, _, errno := root.Create(context.Background(), "", syscall.O_RDWR, 0o644, &out); errno != syscall.EACCES {
		t.Fatalf("Create empty name errno = %v, want EACCES", errno)
	}
}

func TestCreateReadOnlyRejected(t *testing.T) {
	fsys, _ := newTestFS(t, true)
	root := lookupVnode(t, fsys, "")

	var out fuse.EntryOut
	if _, _, _, errno := root.Create(context.Background(), "new.txt", syscall.O_RDWR, 0o644, &out); errno != syscall.EROFS {
		t.Fatalf("Create on read-only FS errno = %v, want EROFS", errno)
	}
}

func TestUnlink(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	root := lookupVnode(t, fsys, "")
	dir := lookupVnode(t, fsys, "dir/")

	if errno := root.Unlink(context.Background(), "dir"); errno != syscall.EISDIR {
		t.Fatalf("Unlink(dir) errno = %v, want EISDIR", errno)
	}
	if errno := dir.Unlink(context.Background(), "file.txt"); errno != 0 {
		t.Fatalf("Unlink(file.txt) errno = %v", errno)
	}
	if _, ok := fsys.tr.Find("dir/file.txt"); ok {
		t.Fatal("file.txt still present after Unlink")
	}
	if errno := dir.Unlink(context.Background(), "file.txt"); errno != syscall.ENOENT {
		t.Fatalf("second Unlink errno = %v, want ENOENT", errno)
	}
}

func TestRmdir(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	root := lookupVnode(t, fsys, "")

	if errno := root.Rmdir(context.Background(), "dir"); errno != syscall.ENOTEMPTY {
		t.Fatalf("Rmdir(non-empty) errno = %v, want ENOTEMPTY", errno)
	}

	dir := lookupVnode(t, fsys, "dir/")
	if errno := dir.Unlink(context.Background(), "file.txt"); errno != 0 {
		t.Fatalf("Unlink errno = %v", errno)
	}
	if errno := root.Rmdir(context.Background(), "dir"); errno != 0 {
		t.Fatalf("Rmdir(empty) errno = %v", errno)
	}
	if _, ok := fsys.tr.Find("dir/"); ok {
		t.Fatal("dir still present after Rmdir")
	}

	var out fuse.EntryOut
	root.Create(context.Background(), "plain.txt", syscall.O_RDWR, 0o644, &out)
	if errno := root.Rmdir(context.Background(), "plain.txt"); errno != syscall.ENOTDIR {
		t.Fatalf("Rmdir(non-dir) errno = %v, want ENOTDIR", errno)
	}
}

func TestMkdir(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	root := lookupVnode(t, fsys, "")

	var out fuse.EntryOut
	_, errno := root.Mkdir(context.Background(), "newdir", 0o755, &out)
	if errno != 0 {
		t.Fatalf("Mkdir errno = %v", errno)
	}
	n, ok := fsys.tr.Find("newdir/")
	if !ok || !n.IsDir() {
		t.Fatal("Mkdir did not create a directory at newdir/")
	}

	if _, errno := root.Mkdir(context.Background(), "newdir", 0o755, &out); errno != syscall.EEXIST {
		t.Fatalf("duplicate Mkdir errno = %v, want EEXIST", errno)
	}
}

func TestRename(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	root := lookupVnode(t, fsys, "")
	dir := lookupVnode(t, fsys, "dir/")

	errno := dir.Rename(context.Background(), "file.txt", root, "moved.txt", 0)
	if errno != 0 {
		t.Fatalf("Rename errno = %v", errno)
	}
	if _, ok := fsys.tr.Find("dir/file.txt"); ok {
		t.Fatal("file.txt still present at old path after Rename")
	}
	if _, ok := fsys.tr.Find("moved.txt"); !ok {
		t.Fatal("moved.txt missing after Rename")
	}

	if errno := dir.Rename(context.Background(), "missing", root, "x", 0); errno != syscall.ENOENT {
		t.Fatalf("Rename(missing) errno = %v, want ENOENT", errno)
	}
}

func TestSymlinkAndReadlink(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	root := lookupVnode(t, fsys, "")

	var out fuse.EntryOut
	inode, errno := root.Symlink(context.Background(), "dir/file.txt", "link", &out)
	if errno != 0 {
		t.Fatalf("Symlink errno = %v", errno)
	}
	v := inode.Operations().(*vnode)

	target, errno := v.Readlink(context.Background())
	if errno != 0 {
		t.Fatalf("Readlink errno = %v", errno)
	}
	if string(target) != "dir/file.txt" {
		t.Fatalf("Readlink = %q, want %q", target, "dir/file.txt")
	}

	file := lookupVnode(t, fsys, "dir/file.txt")
	if _, errno := file.Readlink(context.Background()); errno != syscall.EINVAL {
		t.Fatalf("Readlink on a non-symlink errno = %v, want EINVAL", errno)
	}
}

func TestAccessFlushFsyncOpendirReleasedirNoOps(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	v := lookupVnode(t, fsys, "dir/file.txt")
	ctx := context.Background()

	if errno := v.Access(ctx, 0); errno != 0 {
		t.Errorf("Access errno = %v", errno)
	}
	if errno := v.Flush(ctx, v.n); errno != 0 {
		t.Errorf("Flush errno = %v", errno)
	}
	if errno := v.Fsync(ctx, v.n, 0); errno != 0 {
		t.Errorf("Fsync errno = %v", errno)
	}
	if errno := v.Opendir(ctx); errno != 0 {
		t.Errorf("Opendir errno = %v", errno)
	}
	v.Releasedir(ctx, 0)
}

func TestXattrsUnsupported(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	v := lookupVnode(t, fsys, "dir/file.txt")
	ctx := context.Background()

	if _, errno := v.Getxattr(ctx, "user.x", nil); errno != syscall.ENOTSUP {
		t.Errorf("Getxattr errno = %v, want ENOTSUP", errno)
	}
	if errno := v.Setxattr(ctx, "user.x", nil, 0); errno != syscall.ENOTSUP {
		t.Errorf("Setxattr errno = %v, want ENOTSUP", errno)
	}
	if errno := v.Removexattr(ctx, "user.x"); errno != syscall.ENOTSUP {
		t.Errorf("Removexattr errno = %v, want ENOTSUP", errno)
	}
	if _, errno := v.Listxattr(ctx, nil); errno != syscall.ENOTSUP {
		t.Errorf("Listxattr errno = %v, want ENOTSUP", errno)
	}
}

func TestStatfs(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	root := lookupVnode(t, fsys, "")

	var out fuse.StatfsOut
	if errno := root.Statfs(context.Background(), &out); errno != 0 {
		t.Fatalf("Statfs errno = %v", errno)
	}
	if out.Files != uint64(fsys.tr.NodeCount()-1) {
		t.Errorf("Statfs Files = %d, want %d", out.Files, fsys.tr.NodeCount()-1)
	}
}

func TestVnodeForCachesByNodePointer(t *testing.T) {
	fsys, _ := newTestFS(t, false)
	n, _ := fsys.tr.Find("dir/file.txt")

	a := fsys.vnodeFor(n)
	b := fsys.vnodeFor(n)
	if a != b {
		t.Fatal("vnodeFor returned distinct vnodes for the same node pointer")
	}
}

func TestCallerIDsFallback(t *testing.T) {
	uid, gid := callerIDs(context.Background(), 7, 8)
	if uid != 7 || gid != 8 {
		t.Fatalf("callerIDs fallback = %d/%d, want 7/8", uid, gid)
	}
}
