// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package put

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// stat reads metadata with statx, which also reports birth time.
func stat(path string, follow bool) (fileInfo, error) {
	flags := unix.AT_STATX_SYNC_AS_STAT
	if !follow {
		flags |= unix.AT_SYMLINK_NOFOLLOW
	}
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, flags, unix.STATX_BASIC_STATS|unix.STATX_BTIME, &stx); err != nil {
		return fileInfo{}, &fs.PathError{Op: "statx", Path: path, Err: err}
	}

	info := fileInfo{
		mtime: millis(stx.Mtime),
		mode:  uint32(stx.Mode) & 0o7777,
		uid:   stx.Uid,
		gid:   stx.Gid,
		size:  int64(stx.Size),
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		info.btime = millis(stx.Btime)
	}
	info.kind, info.special = classify(fileMode(uint32(stx.Mode)))
	return info, nil
}

func millis(ts unix.StatxTimestamp) int64 {
	return ts.Sec*1000 + int64(ts.Nsec)/1_000_000
}

func fileMode(mode uint32) fs.FileMode {
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return fs.ModeDir
	case unix.S_IFREG:
		return 0
	case unix.S_IFLNK:
		return fs.ModeSymlink
	case unix.S_IFIFO:
		return fs.ModeNamedPipe
	case unix.S_IFSOCK:
		return fs.ModeSocket
	case unix.S_IFBLK:
		return fs.ModeDevice
	case unix.S_IFCHR:
		return fs.ModeDevice | fs.ModeCharDevice
	default:
		return fs.ModeIrregular
	}
}
