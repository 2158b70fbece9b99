// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"fmt"
	"io"
	"sort"

	"github.com/vmasfs/vmasfs/lib/archive/extra"
	"github.com/vmasfs/vmasfs/node"
)

func (t *Tree) entryAdder() node.EntryAdder {
	return func(name string, meta node.Metadata, body func() (io.ReadCloser, error)) (int64, error) {
		return t.archive.Add(name, meta.Mode, extra.Encode(meta), body)
	}
}

func (t *Tree) entryReplacer() node.EntryReplacer {
	return func(index int64, name string, meta node.Metadata, body func() (io.ReadCloser, error)) error {
		return t.archive.Replace(index, extra.Encode(meta), body)
	}
}

func (t *Tree) metadataWriter() node.MetadataWriter {
	return func(index int64, meta node.Metadata) error {
		return t.archive.SetExtra(index, extra.Encode(meta))
	}
}

// Save walks every node except the root, writing back changed file
// and symlink bodies and dirty metadata, and persisting directories
// created since mount. It never aborts on a per-node failure — it
// collects every error and continues, matching the original
// implementation's log-and-continue save loop.
//
// Save does not commit the archive to disk; call Close on the
// underlying Archive (or Unmount) afterward.
func (t *Tree) Save() []error {
	var errs []error

	for _, path := range t.sortedPaths() {
		n := t.byPath[path]
		if n == t.root {
			continue
		}

		saveMeta := n.IsMetadataChanged()
		if n.IsChanged() && !n.IsDir() {
			saveMeta = true
			if err := n.Save(t.entryAdder(), t.entryReplacer()); err != nil {
				saveMeta = false
				errs = append(errs, fmt.Errorf("saving %s: %w", path, err))
			}
		}

		if !saveMeta {
			continue
		}

		if n.IsTemporaryDir() {
			index, err := t.archive.AddDir(n.Path(), n.Mode(), nil)
			if err != nil {
				errs = append(errs, fmt.Errorf("saving directory %s: %w", path, err))
				continue
			}
			n.SetIndex(index)
		}

		if err := n.SaveMetadata(t.metadataWriter()); err != nil {
			errs = append(errs, fmt.Errorf("saving metadata for %s: %w", path, err))
		}
	}

	return errs
}

// Unmount saves every pending change and commits the archive. It
// returns every error encountered; a non-empty slice does not mean
// nothing was saved — only that some subset of nodes failed.
//
// A node's buffer backs the pull-style body callback Save registers
// with the archive, and some codecs (the real ZIP binding among them)
// do not pull that callback until the commit itself runs inside
// Close. Releasing a buffer any earlier would free the data out from
// under a commit that hasn't read it yet, so Unmount only calls
// releaseSavedBuffers after Close reports success.
func (t *Tree) Unmount() []error {
	errs := t.Save()
	if err := t.archive.Close(); err != nil {
		errs = append(errs, fmt.Errorf("committing archive: %w", err))
		return errs
	}
	t.releaseSavedBuffers()
	return errs
}

// releaseSavedBuffers drops the in-memory buffer of every node Save
// wrote a body for, now that the archive commit consuming those
// bodies has completed.
func (t *Tree) releaseSavedBuffers() {
	for _, n := range t.byPath {
		if n.HasPendingBuffer() {
			n.ReleaseBuffer()
		}
	}
}

// sortedPaths returns every path in byPath in a deterministic order.
// The original implementation's std::map iterates in sorted key
// order; Go's map does not, so Save sorts explicitly to keep runs
// reproducible (directory entries are content-independent of order,
// so this is cosmetic, not load-bearing for correctness).
func (t *Tree) sortedPaths() []string {
	paths := make([]string, 0, len(t.byPath))
	for path := range t.byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
