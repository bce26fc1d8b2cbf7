// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// HashSize is the size of an object hash in bytes.
const HashSize = 32

// SaltSize is the size of a repository salt. The salt doubles as
// the BLAKE3 key, which must be exactly 32 bytes.
const SaltSize = 32

// Hash is a 32-byte BLAKE3 keyed digest addressing one object.
type Hash [HashSize]byte

// String returns the lowercase hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash, which never
// addresses a real object and marks unreadable directory entries.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(text string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return hash, fmt.Errorf("parsing object hash: %w", err)
	}
	if len(decoded) != HashSize {
		return hash, fmt.Errorf("object hash is %d bytes, want %d", len(decoded), HashSize)
	}
	copy(hash[:], decoded)
	return hash, nil
}

// Path returns the storage path of the object addressed by hash:
// blobs/<first byte as hex>/<full hash as hex>.
func Path(hash Hash) string {
	full := hash.String()
	return "blobs/" + full[:2] + "/" + full
}

// Hasher computes object hashes for one repository. A Hasher is
// immutable and safe for concurrent use.
type Hasher struct {
	salt [SaltSize]byte
}

// NewHasher returns a Hasher keyed by the given repository salt.
func NewHasher(salt [SaltSize]byte) *Hasher {
	return &Hasher{salt: salt}
}

// Salt returns the repository salt.
func (h *Hasher) Salt() [SaltSize]byte {
	return h.salt
}

// Sum returns the hash of data stored as an object of type t.
func (h *Hasher) Sum(t Type, data []byte) Hash {
	hasher := h.New(t)
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// New returns a streaming BLAKE3 hasher keyed for type t. Use it
// when the plaintext is assembled incrementally.
func (h *Hasher) New(t Type) *blake3.Hasher {
	key := h.salt
	key[SaltSize-1] ^= byte(t)

	// NewKeyed only fails for keys that are not 32 bytes long.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("blob: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}
