// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package put

import (
	"errors"
	"io/fs"

	"github.com/bureau-foundation/coffer/lib/record"
)

// fileInfo is the metadata stored in a directory entry. Times are
// Unix milliseconds; mode holds permission bits only.
type fileInfo struct {
	kind    record.Kind
	special string
	mtime   int64
	btime   int64
	mode    uint32
	uid     uint32
	gid     uint32
	size    int64
}

func (info fileInfo) apply(entry *record.Entry) {
	entry.Kind = info.kind
	entry.Flags |= record.FlagStated
	entry.Mtime = info.mtime
	entry.Btime = info.btime
	entry.Mode = info.mode
	entry.UID = info.uid
	entry.GID = info.gid
	if info.kind == record.KindFile {
		entry.Size = info.size
	}
}

func classify(mode fs.FileMode) (record.Kind, string) {
	switch {
	case mode.IsDir():
		return record.KindDirectory, ""
	case mode.IsRegular():
		return record.KindFile, ""
	case mode&fs.ModeSymlink != 0:
		return record.KindLink, ""
	case mode&fs.ModeNamedPipe != 0:
		return record.KindUnknown, "pipe"
	case mode&fs.ModeSocket != 0:
		return record.KindUnknown, "socket"
	case mode&fs.ModeDevice != 0:
		return record.KindUnknown, "device"
	default:
		return record.KindUnknown, "unknown"
	}
}

// sourceError is a failure to read the tree being backed up, as
// opposed to a failure to store it.
type sourceError struct {
	op   string
	path string
	err  error
}

func (e *sourceError) Error() string { return "put: " + e.op + " " + e.path + ": " + e.err.Error() }

func (e *sourceError) Unwrap() error { return e.err }

func readError(op, path string, err error) error {
	return &sourceError{op: op, path: path, err: err}
}

// skippable reports whether err means a nested path vanished or may
// not be read. Errors from the store never qualify, whatever they
// wrap.
func skippable(err error) bool {
	var source *sourceError
	if !errors.As(err, &source) {
		return false
	}
	return errors.Is(source.err, fs.ErrNotExist) || errors.Is(source.err, fs.ErrPermission)
}
