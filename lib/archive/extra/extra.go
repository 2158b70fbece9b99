// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package extra

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"time"

	"github.com/vmasfs/vmasfs/node"
)

// magic and version tag the blob so Decode can tell a vmasfs-written
// record from an archive comment that just happens to be binary noise,
// and so a future format change doesn't get misread as the current one.
const (
	magic      byte = 0x76 // 'v'
	version    byte = 1
	recordSize      = 2 + 4 + 4 + 4 + (8+4)*4 + 1
)

// Encode serializes meta into the wire format stored in an entry's
// Comment field.
func Encode(meta node.Metadata) []byte {
	buf := make([]byte, 0, recordSize)
	buf = append(buf, magic, version)
	buf = appendUint32(buf, uint32(meta.Mode))
	buf = appendUint32(buf, meta.UID)
	buf = appendUint32(buf, meta.GID)
	buf = appendTime(buf, meta.MTime)
	buf = appendTime(buf, meta.ATime)
	buf = appendTime(buf, meta.CTime)
	buf = appendTime(buf, meta.CreTime)
	if meta.HasCreTime {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// Decode recovers a node.Metadata from a blob previously produced by
// Encode. ok is false for a nil/empty blob, a foreign comment that
// doesn't carry this format, or a truncated record — in every such
// case the caller falls back to the documented defaults rather than
// treating it as a fatal error.
func Decode(data []byte) (meta node.Metadata, ok bool) {
	if len(data) != recordSize || data[0] != magic || data[1] != version {
		return node.Metadata{}, false
	}
	r := bytes.NewReader(data[2:])

	var mode, uid, gid uint32
	if err := binary.Read(r, binary.LittleEndian, &mode); err != nil {
		return node.Metadata{}, false
	}
	if err := binary.Read(r, binary.LittleEndian, &uid); err != nil {
		return node.Metadata{}, false
	}
	if err := binary.Read(r, binary.LittleEndian, &gid); err != nil {
		return node.Metadata{}, false
	}

	mtime, err := readTime(r)
	if err != nil {
		return node.Metadata{}, false
	}
	atime, err := readTime(r)
	if err != nil {
		return node.Metadata{}, false
	}
	ctime, err := readTime(r)
	if err != nil {
		return node.Metadata{}, false
	}
	cretime, err := readTime(r)
	if err != nil {
		return node.Metadata{}, false
	}

	hasCreTime, err := r.ReadByte()
	if err != nil {
		return node.Metadata{}, false
	}

	return node.Metadata{
		Mode:       fs.FileMode(mode),
		UID:        uid,
		GID:        gid,
		MTime:      mtime,
		ATime:      atime,
		CTime:      ctime,
		CreTime:    cretime,
		HasCreTime: hasCreTime != 0,
	}, true
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendTime(buf []byte, t time.Time) []byte {
	var tmp [12]byte
	binary.LittleEndian.PutUint64(tmp[0:8], uint64(t.Unix()))
	binary.LittleEndian.PutUint32(tmp[8:12], uint32(t.Nanosecond()))
	return append(buf, tmp[:]...)
}

func readTime(r *bytes.Reader) (time.Time, error) {
	var sec uint64
	var nsec uint32
	if err := binary.Read(r, binary.LittleEndian, &sec); err != nil {
		return time.Time{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &nsec); err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(sec), int64(nsec)).UTC(), nil
}
