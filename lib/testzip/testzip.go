// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package testzip provides a fake, in-memory implementation of
// lib/archive.Archive for tests in tree, lib/fuseops and lib/archive. It exists because
// github.com/Lemon4ksan/gozip's *File does not document a public
// metadata surface stable enough to drive deterministic unit tests
// against directly — see lib/archive/gozip_archive.go.
package testzip

import (
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/vmasfs/vmasfs/lib/archive"
)

// Fake is an in-memory Archive. The zero value is not usable; use New.
type Fake struct {
	nextIndex int64
	entries   map[int64]*fakeEntry
	closed    bool

	// Closes counts commits, for tests asserting Close was (or wasn't)
	// called.
	Closes int
}

type fakeEntry struct {
	name  string
	isDir bool
	mode  fs.FileMode
	extra []byte
	body  []byte
}

var _ archive.Archive = (*Fake)(nil)

// New returns an empty Fake archive.
func New() *Fake {
	return &Fake{entries: make(map[int64]*fakeEntry)}
}

// Seed pre-populates the archive with an entry, as if it had been
// loaded from disk, and returns its index. Use this to build fixtures
// for tree-build/mount tests.
func (f *Fake) Seed(name string, isDir bool, mode fs.FileMode, extra []byte, body []byte) int64 {
	index := f.nextIndex
	f.nextIndex++
	f.entries[index] = &fakeEntry{name: name, isDir: isDir, mode: mode, extra: extra, body: body}
	return index
}

// ModeOf returns the mode last set for the entry at index, for test
// assertions. Panics if index is unknown.
func (f *Fake) ModeOf(index int64) fs.FileMode {
	e, ok := f.entries[index]
	if !ok {
		panic(fmt.Sprintf("testzip: no entry at index %d", index))
	}
	return e.mode
}

// BodyOf returns the raw body last stored for the entry at index.
func (f *Fake) BodyOf(index int64) []byte {
	e, ok := f.entries[index]
	if !ok {
		panic(fmt.Sprintf("testzip: no entry at index %d", index))
	}
	return e.body
}

func (f *Fake) Entries() []archive.Entry {
	out := make([]archive.Entry, 0, len(f.entries))
	for index, e := range f.entries {
		out = append(out, archive.Entry{Index: index, Name: e.name, IsDir: e.isDir, Size: int64(len(e.body)), Extra: e.extra})
	}
	return out
}

func (f *Fake) Open(index int64) (io.ReadCloser, int64, error) {
	e, ok := f.entries[index]
	if !ok {
		return nil, 0, fmt.Errorf("testzip: no entry at index %d", index)
	}
	return io.NopCloser(strings.NewReader(string(e.body))), int64(len(e.body)), nil
}

func (f *Fake) Add(name string, mode fs.FileMode, extra []byte, body archive.BodyFunc) (int64, error) {
	data, err := readAll(body)
	if err != nil {
		return 0, err
	}
	index := f.nextIndex
	f.nextIndex++
	f.entries[index] = &fakeEntry{name: name, mode: mode, extra: extra, body: data}
	return index, nil
}

func (f *Fake) Replace(index int64, extra []byte, body archive.BodyFunc) error {
	e, ok := f.entries[index]
	if !ok {
		return fmt.Errorf("testzip: no entry at index %d", index)
	}
	data, err := readAll(body)
	if err != nil {
		return err
	}
	e.extra = extra
	e.body = data
	return nil
}

func (f *Fake) AddDir(name string, mode fs.FileMode, extra []byte) (int64, error) {
	index := f.nextIndex
	f.nextIndex++
	f.entries[index] = &fakeEntry{name: name, isDir: true, mode: mode, extra: extra}
	return index, nil
}

func (f *Fake) Remove(index int64) error {
	if _, ok := f.entries[index]; !ok {
		return fmt.Errorf("testzip: no entry at index %d", index)
	}
	delete(f.entries, index)
	return nil
}

func (f *Fake) Rename(index int64, newName string) error {
	e, ok := f.entries[index]
	if !ok {
		return fmt.Errorf("testzip: no entry at index %d", index)
	}
	e.name = newName
	return nil
}

func (f *Fake) SetExtra(index int64, extra []byte) error {
	e, ok := f.entries[index]
	if !ok {
		return fmt.Errorf("testzip: no entry at index %d", index)
	}
	e.extra = extra
	return nil
}

func (f *Fake) Close() error {
	f.closed = true
	f.Closes++
	return nil
}

func readAll(body archive.BodyFunc) ([]byte, error) {
	rc, err := body()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
