// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package record encodes the plaintext of File, Directory, and
// Snapshot objects.
//
// All three are flat sequences of fixed-layout little-endian records
// closed by an 8-byte little-endian length:
//
//	File       [Chunk]...                  file length
//	Directory  [Entry]...                  total length of the subtree
//	Snapshot   SnapshotHeader [Entry]...   total length of the snapshot
//
// An [Entry] is a 74-byte header followed by the name; a [Chunk] is
// 44 bytes; a [SnapshotHeader] is 536 bytes with a NUL-padded name.
// Integer widths and byte order are part of the repository format
// and identical on every host.
package record
