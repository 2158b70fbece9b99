// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package archive_test

import (
	"io"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/vmasfs/vmasfs/lib/archive"
	"github.com/vmasfs/vmasfs/lib/archive/extra"
	"github.com/vmasfs/vmasfs/lib/testzip"
	"github.com/vmasfs/vmasfs/node"
)

// These tests exercise the Archive interface contract against the
// in-memory fake, which is fine for the contract itself but eager and
// flat where gozip is lazy and prefix-matched — see
// gozip_archive_test.go for the behaviors that only show up against
// the real binding (lazy body pulls, SetExtra on a directory).

func TestAddThenOpenRoundTripsBody(t *testing.T) {
	var a archive.Archive = testzip.New()

	meta := node.Metadata{Mode: 0o644, UID: 1, GID: 1, MTime: time.Unix(1, 0)}
	index, err := a.Add("greeting.txt", 0o644, extra.Encode(meta), func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("hello")), nil
	})
	if err != nil {
		t.Fatalf("Add(): %v", err)
	}

	rc, length, err := a.Open(index)
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello" || length != 5 {
		t.Fatalf("Open() = %q, %d; want %q, 5", data, length, "hello")
	}
}

func TestEntriesReportsUncompressedSize(t *testing.T) {
	fake := testzip.New()
	fake.Seed("dir/", true, fs.ModeDir|0o755, nil, nil)
	fake.Seed("dir/file.txt", false, 0o644, nil, []byte("hello"))

	var a archive.Archive = fake
	var dirSize, fileSize int64 = -1, -1
	for _, e := range a.Entries() {
		if e.Name == "dir/" {
			dirSize = e.Size
		}
		if e.Name == "dir/file.txt" {
			fileSize = e.Size
		}
	}
	if dirSize != 0 {
		t.Errorf("directory Entry.Size = %d, want 0", dirSize)
	}
	if fileSize != 5 {
		t.Errorf("file Entry.Size = %d, want 5", fileSize)
	}
}

func TestEntriesSurfacesExtraBlob(t *testing.T) {
	var a archive.Archive = testzip.New()
	meta := node.Metadata{Mode: 0o600, UID: 7, GID: 7}

	_, err := a.Add("secret", 0o600, extra.Encode(meta), func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("")), nil
	})
	if err != nil {
		t.Fatalf("Add(): %v", err)
	}

	entries := a.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(Entries()) = %d, want 1", len(entries))
	}
	got, ok := extra.Decode(entries[0].Extra)
	if !ok {
		t.Fatal("Decode(Entries()[0].Extra) ok = false")
	}
	if got.UID != 7 || got.Mode != 0o600 {
		t.Errorf("decoded metadata = %+v, want UID 7, Mode 0600", got)
	}
}

func TestForeignEntryHasNoExtra(t *testing.T) {
	fake := testzip.New()
	fake.Seed("plain.txt", false, 0o644, nil, []byte("pre-existing"))

	var a archive.Archive = fake
	entries := a.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(Entries()) = %d, want 1", len(entries))
	}
	if _, ok := extra.Decode(entries[0].Extra); ok {
		t.Error("Decode() succeeded on a foreign entry with no vmasfs metadata blob")
	}
}

func TestReplacePreservesIndexAndName(t *testing.T) {
	var a archive.Archive = testzip.New()
	index, err := a.Add("f", 0o644, nil, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("v1")), nil
	})
	if err != nil {
		t.Fatalf("Add(): %v", err)
	}

	if err := a.Replace(index, nil, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("v2")), nil
	}); err != nil {
		t.Fatalf("Replace(): %v", err)
	}

	rc, _, err := a.Open(index)
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "v2" {
		t.Fatalf("Open() after Replace = %q, want %q", data, "v2")
	}

	names := map[string]bool{}
	for _, e := range a.Entries() {
		names[e.Name] = true
	}
	if !names["f"] {
		t.Error("entry name changed across Replace, want unchanged")
	}
}

func TestRenameUpdatesName(t *testing.T) {
	var a archive.Archive = testzip.New()
	index, _ := a.AddDir("olddir/", fs.ModeDir|0o755, nil)
	if err := a.Rename(index, "newdir/"); err != nil {
		t.Fatalf("Rename(): %v", err)
	}
	for _, e := range a.Entries() {
		if e.Index == index && e.Name != "newdir/" {
			t.Errorf("Name after Rename = %q, want newdir/", e.Name)
		}
	}
}

func TestRemoveDropsEntry(t *testing.T) {
	var a archive.Archive = testzip.New()
	index, _ := a.AddDir("gone/", fs.ModeDir|0o755, nil)
	if err := a.Remove(index); err != nil {
		t.Fatalf("Remove(): %v", err)
	}
	if len(a.Entries()) != 0 {
		t.Error("entry still present after Remove")
	}
}
