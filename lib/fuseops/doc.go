// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuseops is the vnode adapter: it translates
// github.com/hanwen/go-fuse/v2 callbacks into tree and node operations
// and maps the result back to a negative errno.
//
// One vnode wraps exactly one *node.Node for the lifetime of the
// mount; FS caches that pairing in vnodes so repeated lookups of the
// same tree node (including after a rename moves it) resolve to the
// same go-fuse inode, matching the tree's own node-identity-survives-
// rename invariant. FUSE file handles are the *node.Node pointer
// itself, reflecting spec §5's "an open-file handle is represented by
// a direct node reference".
package fuseops
