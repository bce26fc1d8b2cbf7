// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package restore reads backups back out of a repository: it lists
// snapshots, decodes snapshot, directory, and file objects, and
// recreates stored trees on disk.
//
// Every object is authenticated by the object codec as it is read,
// and file lengths are checked against the chunk lists, so a restore
// either reproduces the stored bytes or fails.
package restore
