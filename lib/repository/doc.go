// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package repository creates and opens Coffer repositories.
//
// A repository is a backend holding:
//
//	repository          CBOR metadata: format version and a random ID
//	keys/<user>/full    passphrase-encrypted secret key
//	keys/<user>/write   passphrase-encrypted public key
//	blobs/<xx>/<hash>   encrypted objects
//	tags/<8 hex>        sealed snapshot hashes
//
// [Init] writes the metadata and the first user's key files into an
// empty backend. [Open] authenticates a user and assembles the pieces
// a session needs: the [keyring.KeyRing], an [object.Codec], and the
// change cache at statcache.DatabasePath(CacheDir, ID).
package repository
