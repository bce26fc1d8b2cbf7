// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/codec"
	"github.com/bureau-foundation/coffer/lib/sealed"
	"github.com/bureau-foundation/coffer/lib/secret"
)

const keyFileVersion = 1

const (
	kindFull  = "full"
	kindWrite = "write"
)

// keyFile is the decrypted content of keys/<user>/{full,write}.
type keyFile struct {
	Version int    `cbor:"version"`
	Kind    string `cbor:"kind"`
	Key     []byte `cbor:"key"`
}

func decodeKeyFile(payload *secret.Buffer, kind string) (*keyFile, error) {
	var file keyFile
	if err := codec.Unmarshal(payload.Bytes(), &file); err != nil {
		return nil, fmt.Errorf("decoding key file: %w", err)
	}
	if file.Version != keyFileVersion {
		secret.Zero(file.Key)
		return nil, fmt.Errorf("unsupported key file version %d", file.Version)
	}
	if file.Kind != kind || len(file.Key) != sealed.KeySize {
		secret.Zero(file.Key)
		return nil, fmt.Errorf("key file holds %q key of %d bytes, want %q", file.Kind, len(file.Key), kind)
	}
	return &file, nil
}

// UserKeys selects which key files CreateUser writes. A nil password
// skips that file.
type UserKeys struct {
	FullPassword  *secret.Buffer
	WritePassword *secret.Buffer
}

// CreateUser writes key files for username granting access to the
// given key pair. Existing files are never overwritten.
func (k *KeyRing) CreateUser(ctx context.Context, username string, keys *sealed.Keypair, passwords UserKeys) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if passwords.FullPassword == nil && passwords.WritePassword == nil {
		return fmt.Errorf("keyring: user %s needs at least one password", username)
	}

	if passwords.FullPassword != nil {
		secretKey := slices.Clone(keys.Secret.Bytes())
		err := k.writeKeyFile(ctx, fullKeyPath(username), keyFile{Version: keyFileVersion, Kind: kindFull, Key: secretKey}, passwords.FullPassword)
		secret.Zero(secretKey)
		if err != nil {
			return err
		}
	}
	if passwords.WritePassword != nil {
		err := k.writeKeyFile(ctx, writeKeyPath(username), keyFile{Version: keyFileVersion, Kind: kindWrite, Key: keys.Public[:]}, passwords.WritePassword)
		if err != nil {
			return err
		}
	}
	k.logger.Info("created user", "user", username,
		"full", passwords.FullPassword != nil,
		"write", passwords.WritePassword != nil)
	return nil
}

func (k *KeyRing) writeKeyFile(ctx context.Context, path string, file keyFile, password *secret.Buffer) error {
	plaintext, err := codec.Marshal(file)
	if err != nil {
		return fmt.Errorf("keyring: encoding key file: %w", err)
	}
	defer secret.Zero(plaintext)

	ciphertext, err := sealed.EncryptPassphrase(plaintext, password, k.workFactor)
	if err != nil {
		return fmt.Errorf("keyring: %w", err)
	}
	if _, err := backend.WriteBytes(ctx, k.store, path, ciphertext); err != nil {
		if errors.Is(err, backend.ErrExists) {
			return fmt.Errorf("keyring: %s already exists", path)
		}
		return fmt.Errorf("keyring: writing %s: %w", path, err)
	}
	return nil
}

// User describes the key files present for one user.
type User struct {
	Name  string
	Full  bool
	Write bool
}

// ListUsers returns every user with at least one key file, sorted
// by name.
func (k *KeyRing) ListUsers(ctx context.Context) ([]User, error) {
	users := make(map[string]*User)
	err := k.store.List(ctx, "keys/", func(path string) error {
		name, kind, ok := strings.Cut(strings.TrimPrefix(path, "keys/"), "/")
		if !ok {
			return nil
		}
		user := users[name]
		if user == nil {
			user = &User{Name: name}
			users[name] = user
		}
		switch kind {
		case kindFull:
			user.Full = true
		case kindWrite:
			user.Write = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("keyring: listing users: %w", err)
	}

	result := make([]User, 0, len(users))
	for _, user := range users {
		result = append(result, *user)
	}
	slices.SortFunc(result, func(a, b User) int { return strings.Compare(a.Name, b.Name) })
	return result, nil
}

// DeleteUser removes every key file of username. It requires Full
// mode and refuses to delete the authenticated user.
func (k *KeyRing) DeleteUser(ctx context.Context, username string) error {
	if k.Mode() != Full {
		return ErrPermissionDenied
	}
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if username == k.Username() {
		return fmt.Errorf("keyring: cannot delete the authenticated user %s", username)
	}

	deleted := 0
	for _, path := range []string{fullKeyPath(username), writeKeyPath(username)} {
		err := k.store.Delete(ctx, path)
		if errors.Is(err, backend.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("keyring: deleting %s: %w", path, err)
		}
		deleted++
	}
	if deleted == 0 {
		return fmt.Errorf("keyring: user %s does not exist", username)
	}
	k.logger.Info("deleted user", "user", username)
	return nil
}
