// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blob

import "fmt"

// Type identifies how the plaintext of an object is interpreted.
// The value is stored in the object envelope and mixed into the
// object hash, so it is part of the on-disk format.
type Type int8

const (
	// Chunk is a content-defined slice of a file.
	Chunk Type = 0
	// File is a list of chunk records with a trailing file length.
	// Files made of exactly one chunk have no File object.
	File Type = 1
	// Directory is a list of entry records with a trailing length.
	Directory Type = 2
	// Snapshot is a snapshot header followed by top-level entries.
	Snapshot Type = 3
	// Link holds the target of a symbolic link.
	Link Type = 4
)

// Legacy type numbers written by older repositories. They are
// accepted on read and never produced.
const (
	legacyDirectory Type = 5
	legacySnapshot  Type = 6
)

// String returns the lowercase name of the type.
func (t Type) String() string {
	switch t {
	case Chunk:
		return "chunk"
	case File:
		return "file"
	case Directory:
		return "directory"
	case Snapshot:
		return "snapshot"
	case Link:
		return "link"
	default:
		return fmt.Sprintf("type(%d)", int8(t))
	}
}

// Valid reports whether t is a type current writers produce.
func (t Type) Valid() bool {
	return t >= Chunk && t <= Link
}

// Normalize maps a stored type number to its current equivalent.
// It returns false for numbers that no writer has ever produced.
// The returned type is the one objects of this kind are written as
// today; hashing with legacy numbers is the caller's concern.
func Normalize(stored int8) (Type, bool) {
	t := Type(stored)
	switch {
	case t.Valid():
		return t, true
	case t == legacyDirectory:
		return Directory, true
	case t == legacySnapshot:
		return Snapshot, true
	default:
		return 0, false
	}
}
