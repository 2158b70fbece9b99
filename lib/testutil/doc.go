// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for vmasfs packages.
//
// [TempDir] creates a temporary directory and registers its removal
// with t.Cleanup, for tests that need a real on-disk path — writing a
// fixture ZIP file and reopening it, or exercising cmd/vmasfs's
// archive-path/mountpoint argument handling.
package testutil
