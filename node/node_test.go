// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"bytes"
	"io"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/vmasfs/vmasfs/lib/clock"
)

func testClock() clock.Clock {
	return clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestNewFileLifecycle(t *testing.T) {
	c := testClock()
	n := NewFile("/a", 1, 1, 0o644, 16, c)

	if n.State() != New {
		t.Fatalf("State() = %v, want New", n.State())
	}
	if !n.IsChanged() {
		t.Fatal("IsChanged() = false, want true for a NEW node")
	}

	if err := n.Open(nil, 16); err != nil {
		t.Fatalf("Open(): %v", err)
	}
	if _, err := n.Write([]byte("hello"), 0); err != nil {
		t.Fatalf("Write(): %v", err)
	}
	if n.State() != New {
		t.Fatalf("State() after write = %v, want still New", n.State())
	}

	got := make([]byte, 5)
	if n.Read(got, 0); string(got) != "hello" {
		t.Fatalf("Read() = %q, want %q", got, "hello")
	}

	if err := n.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	// A NEW node retains its buffer across close until save.
	if n.State() != New {
		t.Fatalf("State() after close = %v, want still New (buffer retained)", n.State())
	}
}

func TestOpenedToChangedOnWrite(t *testing.T) {
	c := testClock()
	data := "existing contents"
	n := NewFromEntry("/a", 3, false, int64(len(data)), Metadata{Mode: 0o644}, c)

	opener := func(index int64) (io.ReadCloser, int64, error) {
		return io.NopCloser(strings.NewReader(data)), int64(len(data)), nil
	}

	if err := n.Open(opener, 16); err != nil {
		t.Fatalf("Open(): %v", err)
	}
	if n.State() != Opened {
		t.Fatalf("State() = %v, want Opened", n.State())
	}

	if _, err := n.Write([]byte("X"), 0); err != nil {
		t.Fatalf("Write(): %v", err)
	}
	if n.State() != Changed {
		t.Fatalf("State() after write = %v, want Changed", n.State())
	}

	if err := n.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	if n.State() != Changed {
		t.Fatalf("State() after close = %v, want still Changed (buffer retained)", n.State())
	}
}

func TestOpenClosedNodeReleasesOnClose(t *testing.T) {
	c := testClock()
	data := "abc"
	n := NewFromEntry("/a", 3, false, int64(len(data)), Metadata{Mode: 0o644}, c)

	opener := func(index int64) (io.ReadCloser, int64, error) {
		return io.NopCloser(strings.NewReader(data)), int64(len(data)), nil
	}

	if err := n.Open(opener, 16); err != nil {
		t.Fatalf("Open(): %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	if n.State() != Closed {
		t.Fatalf("State() after close with no writes = %v, want Closed", n.State())
	}
	if n.Size() != int64(len(data)) {
		t.Fatalf("Size() after close = %d, want %d (cached from buffer)", n.Size(), len(data))
	}
}

func TestSaveNewNode(t *testing.T) {
	c := testClock()
	n := NewFile("/a", 1, 1, 0o644, 16, c)
	n.Open(nil, 16)
	n.Write([]byte("payload"), 0)
	n.Close()

	var savedName string
	var savedBody []byte
	add := func(name string, meta Metadata, body func() (io.ReadCloser, error)) (int64, error) {
		savedName = name
		rc, err := body()
		if err != nil {
			return 0, err
		}
		defer rc.Close()
		savedBody, _ = io.ReadAll(rc)
		return 42, nil
	}
	replace := func(index int64, name string, meta Metadata, body func() (io.ReadCloser, error)) error {
		t.Fatal("replace should not be called for a NEW node")
		return nil
	}

	if err := n.Save(add, replace); err != nil {
		t.Fatalf("Save(): %v", err)
	}
	if savedName != "/a" {
		t.Errorf("saved name = %q, want /a", savedName)
	}
	if !bytes.Equal(savedBody, []byte("payload")) {
		t.Errorf("saved body = %q, want %q", savedBody, "payload")
	}
	if n.Index() != 42 {
		t.Errorf("Index() after save = %d, want 42", n.Index())
	}
	if n.State() != Closed {
		t.Errorf("State() after save = %v, want Closed", n.State())
	}
	if !n.HasPendingBuffer() {
		t.Error("HasPendingBuffer() after Save = false, want true: the buffer must survive until the body callback is actually pulled")
	}
	n.ReleaseBuffer()
	if n.HasPendingBuffer() {
		t.Error("HasPendingBuffer() after ReleaseBuffer = true, want false")
	}
}

func TestSaveMetadataNoOpForRoot(t *testing.T) {
	c := testClock()
	root := NewRoot(c)
	called := false
	write := func(index int64, meta Metadata) error {
		called = true
		return nil
	}
	if err := root.SaveMetadata(write); err != nil {
		t.Fatalf("SaveMetadata(): %v", err)
	}
	if called {
		t.Error("SaveMetadata wrote for the root, want no-op")
	}
}

func TestIntermediateDirIsTemporary(t *testing.T) {
	c := testClock()
	n := NewIntermediateDir("/a/b/", c)
	if !n.IsTemporaryDir() {
		t.Error("IsTemporaryDir() = false, want true for a fresh intermediate dir")
	}
	if !n.IsMetadataChanged() {
		t.Error("IsMetadataChanged() = false, want true so Save actually persists it")
	}
	n.SetIndex(7)
	if n.IsTemporaryDir() {
		t.Error("IsTemporaryDir() = true after SetIndex, want false")
	}
}

func TestAppendDetachChild(t *testing.T) {
	c := testClock()
	parent := NewIntermediateDir("/a/", c)
	child := NewFile("/a/f", 0, 0, 0o644, 16, c)

	parent.AppendChild(child)
	if child.Parent() != parent {
		t.Fatal("child.Parent() not set after AppendChild")
	}
	if len(parent.Children()) != 1 || parent.Children()[0] != child {
		t.Fatal("parent.Children() does not contain child after AppendChild")
	}

	parent.DetachChild(child)
	if len(parent.Children()) != 0 {
		t.Fatal("parent.Children() not empty after DetachChild")
	}
}

func TestRenameUpdatesNameSuffix(t *testing.T) {
	c := testClock()
	n := NewFile("/a/old", 0, 0, 0o644, 16, c)
	n.Rename("/a/new")
	if n.Path() != "/a/new" {
		t.Errorf("Path() = %q, want /a/new", n.Path())
	}
	if n.Name() != "new" {
		t.Errorf("Name() = %q, want new", n.Name())
	}
}

func TestParentPath(t *testing.T) {
	cases := map[string]string{
		"/a/b/c": "/a/b/",
		"/a":     "/",
		"/a/":    "/",
		"a/b/":   "a/",
	}
	for path, want := range cases {
		if got := ParentPath(path); got != want {
			t.Errorf("ParentPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestChmodPreservesTypeBits(t *testing.T) {
	c := testClock()
	n := NewIntermediateDir("/a/", c)
	n.Chmod(0o700)
	if n.Mode()&fs.ModeDir == 0 {
		t.Error("Chmod cleared the directory type bit")
	}
	if n.Mode().Perm() != 0o700 {
		t.Errorf("Mode().Perm() = %o, want 0700", n.Mode().Perm())
	}
}
