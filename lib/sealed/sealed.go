// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/bureau-foundation/coffer/lib/secret"
)

// KeySize is the size of X25519 public and secret keys.
const KeySize = 32

// Overhead is the number of bytes Seal adds to a message: an
// ephemeral public key followed by a Poly1305 tag.
const Overhead = box.AnonymousOverhead

// ErrUnseal is returned by Open when the box was not sealed to the
// given key pair or has been modified.
var ErrUnseal = errors.New("sealed: cannot open sealed box")

// Keypair is an X25519 key pair. The secret half lives in locked
// memory; Close releases it.
type Keypair struct {
	Public [KeySize]byte
	Secret *secret.Buffer
}

// Close zeroes and releases the secret key. Idempotent.
func (k *Keypair) Close() error {
	if k.Secret == nil {
		return nil
	}
	return k.Secret.Close()
}

// GenerateKeypair creates a new random X25519 key pair.
func GenerateKeypair() (*Keypair, error) {
	public, private, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: generating key pair: %w", err)
	}
	// NewFromBytes zeroes the heap copy of the secret key.
	secretKey, err := secret.NewFromBytes(private[:])
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting secret key: %w", err)
	}
	return &Keypair{Public: *public, Secret: secretKey}, nil
}

// PublicKey derives the public key for an X25519 secret key.
func PublicKey(secretKey *secret.Buffer) ([KeySize]byte, error) {
	var public [KeySize]byte
	if secretKey.Len() != KeySize {
		return public, fmt.Errorf("sealed: secret key is %d bytes, want %d", secretKey.Len(), KeySize)
	}
	derived, err := curve25519.X25519(secretKey.Bytes(), curve25519.Basepoint)
	if err != nil {
		return public, fmt.Errorf("sealed: deriving public key: %w", err)
	}
	copy(public[:], derived)
	return public, nil
}

// Seal encrypts message so that only the holder of the secret key
// matching recipient can read it. The result is len(message)+Overhead
// bytes, appended to out.
func Seal(out, message []byte, recipient *[KeySize]byte) ([]byte, error) {
	sealed, err := box.SealAnonymous(out, message, recipient, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: sealing: %w", err)
	}
	return sealed, nil
}

// Open decrypts a box produced by Seal, appending the message to out.
func Open(out, sealedBox []byte, public *[KeySize]byte, secretKey *secret.Buffer) ([]byte, error) {
	if len(sealedBox) < Overhead {
		return nil, ErrUnseal
	}
	message, ok := box.OpenAnonymous(out, sealedBox, public, secretKey.Key())
	if !ok {
		return nil, ErrUnseal
	}
	return message, nil
}
