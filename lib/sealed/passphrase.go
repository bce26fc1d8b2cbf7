// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/bureau-foundation/coffer/lib/secret"
)

// DefaultWorkFactor is the scrypt work factor (log2 of N) used for
// key files. Tests lower it through the caller's options.
const DefaultWorkFactor = 18

// ErrWrongPassphrase is returned by DecryptPassphrase when the
// passphrase does not unlock the file.
var ErrWrongPassphrase = errors.New("sealed: wrong passphrase")

// EncryptPassphrase encrypts plaintext with an age scrypt recipient
// derived from passphrase.
func EncryptPassphrase(plaintext []byte, passphrase *secret.Buffer, workFactor int) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(string(passphrase.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("sealed: creating scrypt recipient: %w", err)
	}
	if workFactor > 0 {
		recipient.SetWorkFactor(workFactor)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return nil, fmt.Errorf("sealed: creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealed: writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing encryption: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// DecryptPassphrase decrypts a file produced by EncryptPassphrase.
// The plaintext is returned in locked memory.
func DecryptPassphrase(ciphertext []byte, passphrase *secret.Buffer, maxWorkFactor int) (*secret.Buffer, error) {
	identity, err := age.NewScryptIdentity(string(passphrase.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("sealed: creating scrypt identity: %w", err)
	}
	if maxWorkFactor > 0 {
		identity.SetMaxWorkFactor(maxWorkFactor)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, ErrWrongPassphrase
		}
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("sealed: decrypted file is empty")
	}
	return secret.NewFromBytes(plaintext)
}
