// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"strings"

	"github.com/vmasfs/vmasfs/lib/vmerr"
)

const (
	upPrefix   = "UP"
	curPrefix  = "CUR"
	rootPrefix = "ROOT"
)

// validateFileName rejects the two malformed shapes the original
// implementation rejects outright: the empty name, and any name
// containing a doubled slash.
func validateFileName(name string) error {
	if name == "" {
		return vmerr.BadArgumentf(name, "empty file name")
	}
	if strings.Contains(name, "//") {
		return vmerr.BadArgumentf(name, "bad file name (two slashes): %s", name)
	}
	return nil
}

// convertFileName remaps an archive entry's raw name into the tree's
// canonical form. In read-only mode, absolute paths and paths that
// climb above the archive root are given a synthetic ROOT/UP prefix
// (and everything else a CUR prefix) so they coexist in one flat tree
// without colliding; needPrefix is true only when the archive actually
// contains such a path. In read-write mode, absolute and
// parent-relative paths are rejected outright, since there is no
// filesystem root for them to climb out of.
//
// Path components "." and ".." are rejected everywhere they appear
// except as the parent-relative prefix handled above.
func convertFileName(name string, readOnly, needPrefix bool) (string, error) {
	if err := validateFileName(name); err != nil {
		return "", err
	}
	orig := name

	var converted strings.Builder
	parentRelative := false

	switch {
	case strings.HasPrefix(name, "/"):
		if !readOnly {
			return "", vmerr.BadArgumentf(orig, "absolute paths are not supported in read-write mode")
		}
		converted.WriteString(rootPrefix)
		name = name[1:]
	default:
		for strings.HasPrefix(name, "../") {
			if !readOnly {
				return "", vmerr.BadArgumentf(orig, "paths relative to parent directory are not supported in read-write mode")
			}
			converted.WriteString(upPrefix)
			name = name[3:]
			parentRelative = true
		}
		if needPrefix && !parentRelative {
			converted.WriteString(curPrefix)
		}
	}

	if needPrefix {
		converted.WriteByte('/')
	}
	if name == "" {
		return converted.String(), nil
	}

	start := name
	for start != "" {
		idx := strings.IndexByte(start[1:], '/')
		if idx < 0 {
			break
		}
		cur := idx + 1
		segment := start[:cur+1]
		if segment == "./" || segment == "../" {
			return "", vmerr.BadArgumentf(orig, "bad file name: %s", orig)
		}
		converted.WriteString(segment)
		start = start[cur+1:]
	}
	if start == "." || start == ".." {
		return "", vmerr.BadArgumentf(orig, "bad file name: %s", orig)
	}
	converted.WriteString(start)
	return converted.String(), nil
}
