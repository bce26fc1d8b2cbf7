// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package blob defines the addressing scheme for repository objects.
//
// Every object in a repository is identified by a 32-byte BLAKE3
// keyed hash of its plaintext. The key is the repository salt with
// its last byte XORed with the object's [Type], so identical bytes
// stored as a chunk and as a directory never share an address.
//
// [Hasher] binds a salt and produces hashes for any type. [Path]
// maps a hash to its storage location under blobs/, with a
// two-level fan-out on the first hash byte.
//
// This package has no Coffer-internal dependencies.
package blob
