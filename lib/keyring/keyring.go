// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/sealed"
	"github.com/bureau-foundation/coffer/lib/secret"
)

var (
	// ErrAuthentication is returned when a password unlocks no key
	// file for the user.
	ErrAuthentication = errors.New("keyring: authentication failed")

	// ErrPermissionDenied is returned when the current mode does not
	// hold the requested key.
	ErrPermissionDenied = errors.New("keyring: permission denied")
)

// Mode is the access level a KeyRing holds.
type Mode int

const (
	Secure Mode = iota
	WriteOnly
	Full
)

func (m Mode) String() string {
	switch m {
	case Secure:
		return "secure"
	case WriteOnly:
		return "write-only"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// KeyStore is the part of a backend the KeyRing needs.
type KeyStore interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, produce backend.Producer) (int64, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string, visit func(string) error) error
}

// Options configures a KeyRing.
type Options struct {
	// WorkFactor is the scrypt work factor for new key files. Zero
	// means sealed.DefaultWorkFactor.
	WorkFactor int

	// MaxWorkFactor caps the work factor Authenticate accepts from
	// a key file. Zero means WorkFactor (or its default).
	MaxWorkFactor int

	Logger *slog.Logger
}

// KeyRing holds the keys unlocked for one repository session. It is
// safe for concurrent use, but Lock must not race with operations
// still using a key returned by SecretKey.
type KeyRing struct {
	store  KeyStore
	logger *slog.Logger

	workFactor    int
	maxWorkFactor int

	mu        sync.RWMutex
	mode      Mode
	username  string
	public    [sealed.KeySize]byte
	secretKey *secret.Buffer
}

// New returns a KeyRing in Secure mode reading key files from store.
func New(store KeyStore, options Options) *KeyRing {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workFactor := options.WorkFactor
	if workFactor <= 0 {
		workFactor = sealed.DefaultWorkFactor
	}
	maxWorkFactor := options.MaxWorkFactor
	if maxWorkFactor <= 0 {
		maxWorkFactor = workFactor
	}
	return &KeyRing{
		store:         store,
		logger:        logger,
		workFactor:    workFactor,
		maxWorkFactor: maxWorkFactor,
	}
}

// Authenticate unlocks the user's keys with password. Any keys held
// from a previous session are dropped first. The password buffer is
// borrowed, not closed.
func (k *KeyRing) Authenticate(ctx context.Context, username string, password *secret.Buffer) (Mode, error) {
	k.Lock()
	if err := ValidateUsername(username); err != nil {
		return Secure, ErrAuthentication
	}

	payload, err := k.unlock(ctx, fullKeyPath(username), password)
	if err != nil {
		return Secure, err
	}
	if payload != nil {
		defer payload.Close()
		return k.adoptFull(username, payload)
	}

	payload, err = k.unlock(ctx, writeKeyPath(username), password)
	if err != nil {
		return Secure, err
	}
	if payload != nil {
		defer payload.Close()
		return k.adoptWrite(username, payload)
	}

	k.logger.Info("authentication failed", "user", username)
	return Secure, ErrAuthentication
}

// unlock reads and decrypts one key file. It returns nil without an
// error when the file is missing or the password does not open it.
func (k *KeyRing) unlock(ctx context.Context, path string, password *secret.Buffer) (*secret.Buffer, error) {
	ciphertext, err := k.store.Read(ctx, path)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keyring: reading key file: %w", err)
	}
	payload, err := sealed.DecryptPassphrase(ciphertext, password, k.maxWorkFactor)
	if errors.Is(err, sealed.ErrWrongPassphrase) {
		return nil, nil
	}
	if err != nil {
		// A damaged file is indistinguishable from a wrong password
		// to the caller.
		k.logger.Warn("cannot decrypt key file", "path", path, "error", err)
		return nil, nil
	}
	return payload, nil
}

func (k *KeyRing) adoptFull(username string, payload *secret.Buffer) (Mode, error) {
	file, err := decodeKeyFile(payload, kindFull)
	if err != nil {
		k.logger.Warn("invalid full key file", "user", username, "error", err)
		return Secure, ErrAuthentication
	}
	secretKey, err := secret.NewFromBytes(file.Key)
	if err != nil {
		return Secure, fmt.Errorf("keyring: protecting secret key: %w", err)
	}
	public, err := sealed.PublicKey(secretKey)
	if err != nil {
		secretKey.Close()
		return Secure, fmt.Errorf("keyring: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.mode = Full
	k.username = username
	k.public = public
	k.secretKey = secretKey
	return Full, nil
}

func (k *KeyRing) adoptWrite(username string, payload *secret.Buffer) (Mode, error) {
	file, err := decodeKeyFile(payload, kindWrite)
	if err != nil {
		k.logger.Warn("invalid write key file", "user", username, "error", err)
		return Secure, ErrAuthentication
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.mode = WriteOnly
	k.username = username
	copy(k.public[:], file.Key)
	return WriteOnly, nil
}

// Lock zeroes and releases the secret key and returns to Secure.
func (k *KeyRing) Lock() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.secretKey != nil {
		if err := k.secretKey.Close(); err != nil {
			k.logger.Warn("releasing secret key", "error", err)
		}
		k.secretKey = nil
	}
	k.public = [sealed.KeySize]byte{}
	k.username = ""
	k.mode = Secure
}

// Mode returns the current access mode.
func (k *KeyRing) Mode() Mode {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.mode
}

// Username returns the authenticated user, or "" in Secure mode.
func (k *KeyRing) Username() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.username
}

// PublicKey returns the repository public key. It requires WriteOnly
// or Full mode.
func (k *KeyRing) PublicKey() ([sealed.KeySize]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.mode == Secure {
		return [sealed.KeySize]byte{}, ErrPermissionDenied
	}
	return k.public, nil
}

// SecretKey returns the repository secret key. It requires Full
// mode. The buffer stays owned by the KeyRing and is invalidated by
// Lock.
func (k *KeyRing) SecretKey() (*secret.Buffer, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.mode != Full {
		return nil, ErrPermissionDenied
	}
	return k.secretKey, nil
}

// Salt returns the repository hashing salt, which is the public key.
func (k *KeyRing) Salt() ([32]byte, error) {
	return k.PublicKey()
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,63}$`)

// ValidateUsername checks that username is usable as a key path
// element.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("keyring: invalid username %q", username)
	}
	return nil
}

func fullKeyPath(username string) string  { return "keys/" + username + "/full" }
func writeKeyPath(username string) string { return "keys/" + username + "/write" }
