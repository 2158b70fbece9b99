// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package archive_test

import (
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vmasfs/vmasfs/lib/archive"
	"github.com/vmasfs/vmasfs/lib/archive/extra"
	"github.com/vmasfs/vmasfs/node"
)

// These tests run against the real github.com/Lemon4ksan/gozip binding,
// not lib/testzip's fake: both defects they guard against are specific
// to gozip's own behavior (lazy body pulls, prefix-based Remove) and
// are invisible through the fake's eager, flat-map semantics.

func openFreshArchive(t *testing.T) archive.Archive {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	a, err := archive.Open(path, "")
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	return a
}

// TestSetExtraOnDirectoryPreservesChildren guards against gozip.Remove's
// prefix semantics: removing a directory entry by name also removes
// every entry whose name starts with that prefix, so naively
// recreating a directory to rewrite its Comment (SetExtra's only way
// to update metadata in place) would silently delete its contents.
func TestSetExtraOnDirectoryPreservesChildren(t *testing.T) {
	a := openFreshArchive(t)

	dirMeta := node.Metadata{Mode: fs.ModeDir | 0o755, MTime: time.Unix(1, 0)}
	dirIndex, err := a.AddDir("dir/", dirMeta.Mode, extra.Encode(dirMeta))
	if err != nil {
		t.Fatalf("AddDir(): %v", err)
	}

	fileMeta := node.Metadata{Mode: 0o644, MTime: time.Unix(2, 0)}
	_, err = a.Add("dir/file.txt", fileMeta.Mode, extra.Encode(fileMeta), func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("still here")), nil
	})
	if err != nil {
		t.Fatalf("Add(): %v", err)
	}

	subMeta := node.Metadata{Mode: fs.ModeDir | 0o755, MTime: time.Unix(3, 0)}
	_, err = a.AddDir("dir/sub/", subMeta.Mode, extra.Encode(subMeta))
	if err != nil {
		t.Fatalf("AddDir(dir/sub/): %v", err)
	}

	updatedDirMeta := node.Metadata{Mode: fs.ModeDir | 0o700, MTime: time.Unix(4, 0)}
	if err := a.SetExtra(dirIndex, extra.Encode(updatedDirMeta)); err != nil {
		t.Fatalf("SetExtra(dir/): %v", err)
	}

	names := map[string]archive.Entry{}
	for _, e := range a.Entries() {
		names[e.Name] = e
	}

	fileEntry, ok := names["dir/file.txt"]
	if !ok {
		t.Fatal("dir/file.txt was deleted by SetExtra on its parent directory")
	}
	if _, ok := names["dir/sub/"]; !ok {
		t.Fatal("dir/sub/ was deleted by SetExtra on its parent directory")
	}

	rc, _, err := a.Open(fileEntry.Index)
	if err != nil {
		t.Fatalf("Open(dir/file.txt) after SetExtra on parent: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "still here" {
		t.Errorf("dir/file.txt body after SetExtra on parent = %q, want %q", data, "still here")
	}

	dirEntry, ok := names["dir/"]
	if !ok {
		t.Fatal("dir/ itself is missing after SetExtra")
	}
	gotMeta, ok := extra.Decode(dirEntry.Extra)
	if !ok {
		t.Fatal("dir/'s metadata did not decode after SetExtra")
	}
	if gotMeta.Mode != updatedDirMeta.Mode {
		t.Errorf("dir/ mode after SetExtra = %o, want %o", gotMeta.Mode, updatedDirMeta.Mode)
	}
}

// TestAddThenCloseSurvivesLazyBodyPull guards against releasing a
// node's write buffer before the codec actually reads it: gozip.AddLazy
// only invokes the body callback when the archive is committed via
// WriteTo (inside Close), not when Add is called, so the body source
// backing the callback must stay alive until Close returns.
func TestAddThenCloseSurvivesLazyBodyPull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.zip")
	a, err := archive.Open(path, "")
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}

	meta := node.Metadata{Mode: 0o644}
	pulled := false
	_, err = a.Add("f.txt", meta.Mode, extra.Encode(meta), func() (io.ReadCloser, error) {
		pulled = true
		return io.NopCloser(strings.NewReader("payload")), nil
	})
	if err != nil {
		t.Fatalf("Add(): %v", err)
	}
	if pulled {
		t.Fatal("body callback was pulled by Add, want deferred to Close")
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	if !pulled {
		t.Fatal("body callback was never pulled by Close")
	}

	reopened, err := archive.Open(path, "")
	if err != nil {
		t.Fatalf("reopening committed archive: %v", err)
	}
	defer reopened.Close()

	var found bool
	for _, e := range reopened.Entries() {
		if e.Name != "f.txt" {
			continue
		}
		found = true
		rc, _, err := reopened.Open(e.Index)
		if err != nil {
			t.Fatalf("Open(f.txt) in reopened archive: %v", err)
		}
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		if string(data) != "payload" {
			t.Errorf("f.txt body after reopen = %q, want %q", data, "payload")
		}
	}
	if !found {
		t.Fatal("f.txt missing from the committed archive")
	}
}
