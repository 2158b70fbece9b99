// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive defines the Archive Handle: the interface the tree
// package uses to enumerate, read, add, replace, rename, and delete ZIP
// entries, independent of the concrete codec.
//
// [Open] returns a binding backed by github.com/Lemon4ksan/gozip. Most
// tree and lib/fuseops tests use lib/testzip's fake in-memory
// implementation instead, because gozip's own per-file metadata getters
// are not part of its documented public surface (see gozip_archive.go's
// comments); gozip_archive_test.go and one tree test run against gozip.
package archive
