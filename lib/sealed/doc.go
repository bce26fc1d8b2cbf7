// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed wraps the two public-key and passphrase primitives
// a repository is built on.
//
// Repository keys are X25519 key pairs. [GenerateKeypair] creates
// one with the secret half in a [secret.Buffer]. [Seal] and [Open]
// are NaCl anonymous sealed boxes: anyone holding the public key can
// seal, only the secret key opens. Object keys and tag payloads are
// sealed this way, which is what lets a write-only client add data
// it cannot read back.
//
// Key files at rest are protected by a passphrase with age's scrypt
// recipient: [EncryptPassphrase] and [DecryptPassphrase]. A wrong
// passphrase is reported as [ErrWrongPassphrase] and nothing else,
// so callers can collapse it into a generic authentication failure.
//
// Depends on lib/secret, filippo.io/age, and golang.org/x/crypto.
package sealed
