// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// TempDir creates a fresh temporary directory and removes it when the
// test completes. Unlike t.TempDir, the directory lives directly under
// os.TempDir() rather than under a per-test nested path, which keeps
// archive fixture paths short and predictable across subtests.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "vmasfs-test-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}
