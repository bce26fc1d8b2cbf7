// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package put backs up files and directory trees into a repository.
//
// A [Context] holds the state of one backup run: the worker pools,
// the running totals, and the cache rows waiting to be committed.
// [Context.PutDirectory] walks a tree breadth first, recording every
// directory it finds in a flat list of pending directories. Files and
// links are stored by tasks on the directory pool while the walk
// continues; each file is split into chunks that are uploaded on the
// file pool. Once every task has finished, directories are encoded
// from the last discovered to the first, so each child's hash and
// length is patched into its parent before the parent is hashed.
//
// Files whose mtime, mode, and size match the change cache are not
// read at all: the cached hash is reused.
//
// [Put] runs a whole backup: it stores each path, writes the snapshot
// object and its tag, and only then commits the change cache. Any
// error other than a nested path vanishing or being unreadable fails
// the run, and a failed run writes no tag and leaves the cache alone.
package put
