// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuseops

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/vmasfs/vmasfs/tree"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory the filesystem is mounted at. It
	// must already exist.
	Mountpoint string

	// Tree is the filesystem data the mount serves.
	Tree *tree.Tree

	// ReadOnly rejects every mutating operation with EROFS and marks
	// the kernel mount read-only.
	ReadOnly bool

	// ArchiveDir is the directory containing the archive file,
	// consulted by statfs for host free-space reporting.
	ArchiveDir string

	// Foreground keeps the mount attached to the controlling
	// terminal; the caller is responsible for not forking when this
	// is set (cmd/vmasfs handles that).
	Foreground bool

	// Debug logs every FUSE request/response pair through go-fuse's
	// own debug logging.
	Debug bool

	// AllowOther permits other users (including root) to access the
	// mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// ExtraOptions is passed through verbatim to the host mount
	// (spec §6's `-o opt,...`).
	ExtraOptions []string

	// Logger receives diagnostic messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Mount mounts the vmasfs FUSE filesystem at Options.Mountpoint. The
// caller must call Unmount (or Server.Unmount) when done, and is
// responsible for calling Tree.Unmount to flush and close the
// archive afterward.
func Mount(opts Options) (*fuse.Server, error) {
	if opts.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if opts.Tree == nil {
		return nil, fmt.Errorf("tree is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}

	fsys := New(opts.Tree, opts.ReadOnly, opts.ArchiveDir)

	hostOptions := append([]string{}, opts.ExtraOptions...)
	if opts.ReadOnly {
		hostOptions = append(hostOptions, "ro")
	}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 1 * time.Second

	server, err := gofuse.Mount(opts.Mountpoint, fsys.Root(), &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:         "vmasfs",
			Name:           "vmasfs",
			AllowOther:     opts.AllowOther,
			Debug:          opts.Debug,
			SingleThreaded: true,
			Options:        hostOptions,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", opts.Mountpoint, err)
	}

	opts.Logger.Info("vmasfs mounted", "mountpoint", opts.Mountpoint, "read_only", opts.ReadOnly)
	return server, nil
}
