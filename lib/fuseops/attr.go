// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuseops

import (
	"context"
	"io/fs"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/vmasfs/vmasfs/lib/vmerr"
	"github.com/vmasfs/vmasfs/node"
)

// toSyscallMode converts a node's fs.FileMode (type bits + permission
// bits) to the S_IF*-tagged mode FUSE's Attr.Mode expects.
func toSyscallMode(m fs.FileMode) uint32 {
	perm := uint32(m.Perm())
	switch {
	case m&fs.ModeDir != 0:
		return syscall.S_IFDIR | perm
	case m&fs.ModeSymlink != 0:
		return syscall.S_IFLNK | perm
	default:
		return syscall.S_IFREG | perm
	}
}

// fillAttr copies n's metadata into out, the shape shared by
// Getattr, Lookup's EntryOut, and Create/Mkdir/Symlink's EntryOut.
func fillAttr(n *node.Node, out *fuse.Attr) {
	out.Mode = toSyscallMode(n.Mode())
	out.Size = uint64(n.Size())
	out.Uid = n.UID()
	out.Gid = n.GID()
	out.Nlink = 1
	if n.IsDir() {
		out.Nlink = 2
	}
	out.Mtime = uint64(n.MTime().Unix())
	out.Mtimensec = uint32(n.MTime().Nanosecond())
	out.Atime = uint64(n.ATime().Unix())
	out.Atimensec = uint32(n.ATime().Nanosecond())
	out.Ctime = uint64(n.CTime().Unix())
	out.Ctimensec = uint32(n.CTime().Nanosecond())
}

func fillEntryOut(n *node.Node, out *fuse.EntryOut) {
	fillAttr(n, &out.Attr)
}

// errnoOf maps a *vmerr.Error (or any other error) to the negative
// errno the host expects. nil maps to success.
func errnoOf(err error) syscall.Errno {
	return vmerr.Errno(err)
}

// callerIDs resolves the uid/gid of the process that issued the
// current FUSE request, falling back to the tree's default owner
// when the host does not supply caller credentials (it always does
// for real mounts; the fallback only matters for direct adapter
// tests that construct a bare context.Background()).
func callerIDs(ctx context.Context, fallbackUID, fallbackGID uint32) (uid, gid uint32) {
	if caller, ok := fuse.FromContext(ctx); ok {
		return caller.Uid, caller.Gid
	}
	return fallbackUID, fallbackGID
}
