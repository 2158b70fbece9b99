// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package tree implements the filesystem data: a path-indexed map of
// nodes, built from an archive's entries at mount and written back to
// the archive at unmount.
//
// Canonical paths used as map keys never carry a leading '/' — the
// root is the empty string, directory paths end in '/', file and
// symlink paths don't. lib/fuseops is responsible for translating
// go-fuse's per-component callbacks into these canonical paths before
// calling into Tree; Tree itself never touches go-fuse.
//
// Tree is the one package that binds node's codec-shaped function
// parameters (node.EntryOpener, node.EntryAdder, ...) to a concrete
// lib/archive.Archive.
package tree
