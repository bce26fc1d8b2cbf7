// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statcache is the local change cache that lets repeated
// backups skip unchanged files and objects already uploaded.
//
// The cache is a SQLite database per repository with two tables:
//
//	stats    path -> (mtime, mode, size, hash) of the last stored version
//	objects  backend paths known to exist in the repository
//
// A stats hit means the file has not changed since it was stored as
// hash, so its contents are neither read nor chunked. An objects hit
// means a blob write can skip the backend existence check.
//
// The cache is an optimization only. Every error is returned to the
// caller, which logs it and carries on without the cache. Stats rows
// are written in one transaction after a backup has fully succeeded,
// so a failed run leaves the cache as it was.
package statcache
