// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package node implements the file node: the in-memory representation
// of one tree entry (regular file, directory, or symlink), its
// lifecycle state machine, and the metadata that gets written back to
// the archive at save time.
//
// A Node never talks to the archive codec directly. Operations that
// need the codec — opening an existing entry's body, saving a changed
// or new entry, writing metadata extras — take small function-typed
// parameters supplied by the tree package, which is the one place that
// knows about the concrete archive binding (lib/archive).
package node
