// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"io/fs"
	"strings"
	"time"

	"github.com/vmasfs/vmasfs/buffer"
	"github.com/vmasfs/vmasfs/lib/clock"
)

// Kind identifies the immutable category of a Node. Kind never changes
// after construction.
type Kind int

const (
	Regular Kind = iota
	Directory
	Symlink
)

func (k Kind) String() string {
	switch k {
	case Regular:
		return "regular"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// State is the node lifecycle state: a tagged variant over (kind,
// state), not a pair of independent boolean flags. CHANGED and NEW are
// kept distinct because saving takes a different codec action for
// each — NEW entries are added, CHANGED entries replace an existing
// index.
type State int

const (
	// Closed: exists in the archive (or is the root), no buffer.
	Closed State = iota
	// Opened: buffer populated from the archive, no pending writes.
	Opened
	// Changed: buffer diverges from the archive; must be written back.
	Changed
	// New: never existed in the archive; the buffer is authoritative.
	New
	// NewDir: a directory created since mount; persisted at save.
	NewDir
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opened:
		return "opened"
	case Changed:
		return "changed"
	case New:
		return "new"
	case NewDir:
		return "new_dir"
	default:
		return "unknown"
	}
}

// Sentinel archive indices for nodes that do not correspond to a real
// archive entry.
const (
	// RootSentinel marks the synthesized root pseudo-node.
	RootSentinel int64 = -1
	// NewSentinel marks a node created since mount, not yet assigned a
	// real archive index.
	NewSentinel int64 = -2
)

// Metadata is the per-entry record node.SaveMetadata writes to, and
// node construction reads from, the archive's extra fields. It is the
// domain type that lib/archive/extra's binary codec serializes.
type Metadata struct {
	Mode       fs.FileMode
	UID        uint32
	GID        uint32
	MTime      time.Time
	ATime      time.Time
	CTime      time.Time
	CreTime    time.Time
	HasCreTime bool
}

// Node is one entry in the filesystem tree: a file, directory, or
// symlink. Every non-root Node has a Parent that is a Directory whose
// Children slice contains it.
//
// Node is not safe for concurrent use; vmasfs dispatches every
// filesystem operation on a single thread.
type Node struct {
	fullPath string
	name     string // suffix view: the final path component
	kind     Kind

	index     int64
	openCount int
	state     State

	mode            fs.FileMode
	uid, gid        uint32
	mtime, atime    time.Time
	ctime           time.Time
	cretime         time.Time
	hasCreTime      bool
	metadataChanged bool

	// closedSize caches the size last reported by the archive (or the
	// buffer, just before it was dropped) for a node that currently has
	// no buffer. Size() falls back to it when buf is nil.
	closedSize int64

	buf *buffer.Buffer

	parent   *Node
	children []*Node

	clock clock.Clock
}

// recomputeName sets the name suffix view from fullPath: the bytes
// after the last '/' (ignoring a single trailing '/' for directories),
// or the whole path if it has no '/'.
func (n *Node) recomputeName() {
	p := strings.TrimSuffix(n.fullPath, "/")
	if idx := strings.LastIndexByte(p, '/'); idx >= 0 {
		n.name = p[idx+1:]
	} else {
		n.name = p
	}
}

// NewRoot creates the synthesized root pseudo-node: path "", a
// directory, never itself persisted as an archive entry.
func NewRoot(c clock.Clock) *Node {
	now := c.Now()
	n := &Node{
		fullPath: "",
		kind:     Directory,
		index:    RootSentinel,
		state:    Closed,
		mode:     fs.ModeDir | 0o755,
		mtime:    now,
		atime:    now,
		ctime:    now,
		clock:    c,
	}
	n.recomputeName()
	return n
}

// NewFromEntry creates a node for an existing archive entry. path is
// the already-normalized canonical path (trailing '/' preserved for
// directories); meta carries the metadata recovered from the entry's
// extra fields, or the caller's defaults (mode 0644 for files, 0755
// for dirs; uid/gid the invoking user's) when no extra record was
// present.
func NewFromEntry(path string, index int64, isDir bool, size int64, meta Metadata, c clock.Clock) *Node {
	kind := Regular
	switch {
	case isDir:
		kind = Directory
	case meta.Mode&fs.ModeSymlink != 0:
		kind = Symlink
	}

	n := &Node{
		fullPath:   path,
		kind:       kind,
		index:      index,
		state:      Closed,
		mode:       meta.Mode,
		uid:        meta.UID,
		gid:        meta.GID,
		mtime:      meta.MTime,
		atime:      meta.ATime,
		ctime:      meta.CTime,
		cretime:    meta.CreTime,
		hasCreTime: meta.HasCreTime,
		closedSize: size,
		clock:      c,
	}
	n.recomputeName()
	return n
}

// NewFile creates a new, empty regular file that has never existed in
// the archive. Its buffer is authoritative and starts empty; it is
// opened separately.
func NewFile(path string, uid, gid uint32, mode fs.FileMode, chunkSize int, c clock.Clock) *Node {
	now := c.Now()
	n := &Node{
		fullPath: path,
		kind:     Regular,
		index:    NewSentinel,
		state:    New,
		mode:     mode &^ fs.ModeType,
		uid:      uid,
		gid:      gid,
		mtime:    now,
		atime:    now,
		ctime:    now,
		buf:      buffer.New(chunkSize),
		clock:    c,
	}
	n.recomputeName()
	return n
}

// NewSymlink creates a new symlink node, mode S_IFLNK|0777, matching
// the original implementation's createSymlink.
func NewSymlink(path string, uid, gid uint32, chunkSize int, c clock.Clock) *Node {
	now := c.Now()
	n := &Node{
		fullPath: path,
		kind:     Symlink,
		index:    NewSentinel,
		state:    New,
		mode:     fs.ModeSymlink | 0o777,
		uid:      uid,
		gid:      gid,
		mtime:    now,
		atime:    now,
		ctime:    now,
		buf:      buffer.New(chunkSize),
		clock:    c,
	}
	n.recomputeName()
	return n
}

// NewDirectory creates a node for a directory entry the adapter just
// added to the archive (mkdir): its metadata is new and must be
// written at save, but the archive entry itself already exists at
// index.
func NewDirectory(path string, index int64, uid, gid uint32, mode fs.FileMode, c clock.Clock) *Node {
	now := c.Now()
	n := &Node{
		fullPath:        path,
		kind:             Directory,
		index:            index,
		state:            Changed,
		mode:             fs.ModeDir | (mode &^ fs.ModeType),
		uid:              uid,
		gid:              gid,
		mtime:            now,
		atime:            now,
		ctime:            now,
		metadataChanged:  true,
		clock:            c,
	}
	n.recomputeName()
	return n
}

// NewIntermediateDir creates a directory synthesized during tree build
// or insert to fill a missing parent. It has no real archive entry yet
// and is persisted at save by adding a directory entry.
func NewIntermediateDir(path string, c clock.Clock) *Node {
	now := c.Now()
	n := &Node{
		fullPath:        path,
		kind:            Directory,
		index:           NewSentinel,
		state:           NewDir,
		mode:            fs.ModeDir | 0o755,
		mtime:           now,
		atime:           now,
		ctime:           now,
		metadataChanged: true,
		clock:           c,
	}
	n.recomputeName()
	return n
}

// Path returns the node's full canonical path.
func (n *Node) Path() string { return n.fullPath }

// Name returns the node's short name: the suffix of Path after the
// last '/'.
func (n *Node) Name() string { return n.name }

// Kind returns the node's immutable kind.
func (n *Node) Kind() Kind { return n.kind }

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.kind == Directory }

// Index returns the node's archive entry index, or one of
// RootSentinel / NewSentinel.
func (n *Node) Index() int64 { return n.index }

// State returns the node's current lifecycle state.
func (n *Node) State() State { return n.state }

// IsChanged reports whether the node has pending writes that must be
// saved: state CHANGED or NEW.
func (n *Node) IsChanged() bool { return n.state == Changed || n.state == New }

// IsMetadataChanged reports whether metadata (mode, ownership, times)
// has been mutated since the last save.
func (n *Node) IsMetadataChanged() bool { return n.metadataChanged }

// IsTemporaryDir reports whether this is a directory created since
// mount that has not yet been persisted as a real archive entry.
func (n *Node) IsTemporaryDir() bool { return n.state == NewDir && n.index == NewSentinel }

// HasPendingBuffer reports whether this node just finished Save and
// still holds a buffer that ReleaseBuffer needs to drop once the
// archive commit that consumed its body has actually completed.
func (n *Node) HasPendingBuffer() bool { return n.state == Closed && n.buf != nil }

// SetIndex updates the node's archive index. Used after save assigns a
// new index to a NEW node, or after a temporary directory is persisted.
func (n *Node) SetIndex(index int64) { n.index = index }

// Mode returns the node's permission and type bits.
func (n *Node) Mode() fs.FileMode { return n.mode }

// UID returns the node's owning user ID.
func (n *Node) UID() uint32 { return n.uid }

// GID returns the node's owning group ID.
func (n *Node) GID() uint32 { return n.gid }

// MTime, ATime, CTime, CreTime return the node's timestamps. HasCreTime
// reports whether a creation time was recorded (it is optional).
func (n *Node) MTime() time.Time      { return n.mtime }
func (n *Node) ATime() time.Time      { return n.atime }
func (n *Node) CTime() time.Time      { return n.ctime }
func (n *Node) CreTime() time.Time    { return n.cretime }
func (n *Node) HasCreTime() bool      { return n.hasCreTime }

// Size returns the node's current logical size: the buffer's length
// when a buffer is present, else the size recorded from the archive
// (tracked by the caller via the node's metadata at construction —
// for a Closed node with no buffer, Size reports the cached closedSize
// field).
func (n *Node) Size() int64 {
	if n.buf != nil {
		return n.buf.Len()
	}
	return n.closedSize
}

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the directory's children in insertion order. It is
// nil for non-directories.
func (n *Node) Children() []*Node { return n.children }

// ParentPath returns the path of this node's parent, derived from
// fullPath the way the original implementation's getParentName does:
// the portion of fullPath before the final component.
func ParentPath(fullPath string) string {
	p := strings.TrimSuffix(fullPath, "/")
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return ""
	}
	return p[:idx+1]
}

// AppendChild adds child to this directory's child list and sets its
// parent pointer. The tree package is responsible for keeping this in
// sync with its own path→node map.
func (n *Node) AppendChild(child *Node) {
	n.children = append(n.children, child)
	child.parent = n
}

// DetachChild removes child from this directory's child list. It is a
// no-op if child is not present.
func (n *Node) DetachChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}
