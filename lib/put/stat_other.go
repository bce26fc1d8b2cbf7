// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package put

import "os"

// stat falls back to os.Stat where statx is missing. Birth time and
// ownership are not recorded.
func stat(path string, follow bool) (fileInfo, error) {
	lstat := os.Lstat
	if follow {
		lstat = os.Stat
	}
	fi, err := lstat(path)
	if err != nil {
		return fileInfo{}, err
	}
	info := fileInfo{
		mtime: fi.ModTime().UnixMilli(),
		mode:  uint32(fi.Mode().Perm()),
		size:  fi.Size(),
	}
	info.kind, info.special = classify(fi.Mode())
	return info, nil
}
