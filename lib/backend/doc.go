// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend is the durable path-keyed store a repository lives
// on.
//
// [Backend] is the single capability interface the rest of Coffer
// consumes: read, exclusive-create write, delete, prefix list, and
// existence test, plus a concurrency hint. Objects are written once
// and never modified, so Write fails with [ErrExists] rather than
// overwriting. Callers that treat existing content as success (the
// object codec, since paths are content hashes) check for that.
//
// The variants form a closed set selected by [Open]:
//
//   - [Local] stores each path as a file under a root directory,
//     publishing through a temp file and a hard link so readers
//     never observe partial objects.
//   - [Badger] stores paths as keys in a Badger LSM database, on
//     disk or in memory.
//   - [Memory] keeps everything in a map and counts writes. Tests
//     use it to assert which objects a run uploaded.
//
// Filesystem-shaped variants also implement [Directories], which
// repository initialization uses to lay out blobs/ fan-out
// directories ahead of time.
package backend
