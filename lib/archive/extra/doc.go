// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package extra encodes and decodes the per-entry metadata record
// (node.Metadata) that lib/archive carries through a ZIP entry's
// Comment field.
//
// The original libzip-based implementation stored this record in a
// real ZIP extra field; gozip's documented surface does not expose raw
// extra-field bytes, so this package's wire format is carried through
// the Comment field instead — see lib/archive/gozip_archive.go.
package extra
