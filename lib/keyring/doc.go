// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyring holds a repository's key pair and the access mode a
// password unlocked.
//
// Each user has up to two key files under keys/<user>/:
//
//	full   the X25519 secret key, protected by the full password
//	write  the X25519 public key only, protected by the write password
//
// Both are CBOR payloads encrypted with an age scrypt recipient.
// [KeyRing.Authenticate] tries the password against the full file,
// then the write file, and settles on a [Mode]:
//
//   - [Secure]: nothing unlocked. Only key management is possible.
//   - [WriteOnly]: the public key. Objects can be sealed and written
//     but never opened, so a compromised backup client cannot read
//     the repository.
//   - [Full]: both keys. Read and write.
//
// Authentication failure is a single [ErrAuthentication] no matter
// which files exist. Asking for a key the mode does not hold returns
// [ErrPermissionDenied]. [KeyRing.Lock] zeroes the secret key and
// drops back to Secure.
//
// The repository public key doubles as the hashing salt (see
// lib/blob), which is why write-only clients can still compute
// object addresses and deduplicate.
package keyring
