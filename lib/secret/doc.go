// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds key material and passwords in memory that the
// Go runtime never sees.
//
// A [Buffer] is an anonymous mmap region locked into RAM (mlock) and
// excluded from core dumps (MADV_DONTDUMP). Close zeroes the region
// before unlocking and unmapping it, so a repository secret key does
// not outlive the KeyRing that loaded it.
//
// Constructors:
//
//   - [New] allocates a zero-filled buffer
//   - [NewFromBytes] moves bytes into a buffer and zeroes the source
//   - [NewRandom] fills a buffer from crypto/rand
//   - [ReadFromPath] reads a password file (or stdin)
//
// [Buffer.Key] exposes a 32-byte buffer as the *[32]byte the NaCl
// APIs expect, pointing into the locked region.
//
// Depends on golang.org/x/sys/unix. No Coffer-internal dependencies.
package secret
