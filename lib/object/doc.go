// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package object stores and retrieves encrypted, hash-addressed
// repository objects.
//
// Every object is written with a fresh random stream key. The key is
// sealed to the repository public key, so a write-only client can
// store objects it will never be able to read. The stored bytes are:
//
//	version   int8     always 1
//	type      int8     blob.Type of the plaintext
//	key       80 B     sealed box of the 32-byte stream key
//	header    24 B     secretstream header
//	frames    ...      secretstream frames of at most 32 KiB plaintext
//
// Each frame is a one-byte encrypted tag, the ciphertext, and a
// 16-byte MAC. The last frame carries the FINAL tag; a stream that
// ends without it, or continues after it, is rejected. After
// decryption the plaintext is hashed again and must match the
// requested address, which also catches a swapped type byte.
//
// Objects are immutable and content addressed, so [Codec.WriteBlob]
// skips objects that already exist (consulting an optional
// [KnownIndex] before asking the backend) and treats a lost write
// race as success.
//
// Tags are separate small objects under tags/ holding the sealed
// hash of a snapshot, see [Codec.WriteTag] and [Codec.ListTags].
package object
