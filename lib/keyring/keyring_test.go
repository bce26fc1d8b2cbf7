// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"context"
	"errors"
	"testing"

	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/sealed"
	"github.com/bureau-foundation/coffer/lib/secret"
)

const testWorkFactor = 10

func password(t *testing.T, text string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromBytes([]byte(text))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

// setup creates a repository key pair with user "alice" holding a
// full password and a write password.
func setup(t *testing.T) (*backend.Memory, *sealed.Keypair) {
	t.Helper()
	store := backend.NewMemory()
	keys, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	t.Cleanup(func() { keys.Close() })

	ring := New(store, Options{WorkFactor: testWorkFactor})
	err = ring.CreateUser(context.Background(), "alice", keys, UserKeys{
		FullPassword:  password(t, "full-secret"),
		WritePassword: password(t, "write-secret"),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return store, keys
}

func TestAuthenticateFull(t *testing.T) {
	store, keys := setup(t)
	ring := New(store, Options{WorkFactor: testWorkFactor})

	mode, err := ring.Authenticate(context.Background(), "alice", password(t, "full-secret"))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if mode != Full || ring.Mode() != Full {
		t.Fatalf("mode = %s, want full", mode)
	}

	public, err := ring.PublicKey()
	if err != nil || public != keys.Public {
		t.Errorf("PublicKey = (%x, %v), want %x", public, err, keys.Public)
	}
	secretKey, err := ring.SecretKey()
	if err != nil {
		t.Fatalf("SecretKey: %v", err)
	}
	if !secretKey.Equal(keys.Secret.Bytes()) {
		t.Error("SecretKey does not match generated key")
	}
	salt, err := ring.Salt()
	if err != nil || salt != keys.Public {
		t.Errorf("Salt = (%x, %v), want public key", salt, err)
	}
	if ring.Username() != "alice" {
		t.Errorf("Username = %q, want alice", ring.Username())
	}
}

func TestAuthenticateWriteOnly(t *testing.T) {
	store, keys := setup(t)
	ring := New(store, Options{WorkFactor: testWorkFactor})

	mode, err := ring.Authenticate(context.Background(), "alice", password(t, "write-secret"))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if mode != WriteOnly {
		t.Fatalf("mode = %s, want write-only", mode)
	}
	public, err := ring.PublicKey()
	if err != nil || public != keys.Public {
		t.Errorf("PublicKey = (%x, %v), want %x", public, err, keys.Public)
	}
	if _, err := ring.SecretKey(); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("SecretKey in write-only mode: err = %v, want ErrPermissionDenied", err)
	}
}

func TestAuthenticateFailure(t *testing.T) {
	store, _ := setup(t)
	ring := New(store, Options{WorkFactor: testWorkFactor})
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "guess"},
		{"unknown user", "mallory", "full-secret"},
		{"invalid username", "../alice", "full-secret"},
	}
	for _, test := range tests {
		mode, err := ring.Authenticate(ctx, test.username, password(t, test.password))
		if !errors.Is(err, ErrAuthentication) {
			t.Errorf("%s: err = %v, want ErrAuthentication", test.name, err)
		}
		if mode != Secure || ring.Mode() != Secure {
			t.Errorf("%s: mode = %s, want secure", test.name, mode)
		}
	}
}

func TestFailedAuthenticationDropsPreviousKeys(t *testing.T) {
	store, _ := setup(t)
	ring := New(store, Options{WorkFactor: testWorkFactor})
	ctx := context.Background()

	if _, err := ring.Authenticate(ctx, "alice", password(t, "full-secret")); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := ring.Authenticate(ctx, "alice", password(t, "wrong")); err == nil {
		t.Fatal("second Authenticate succeeded")
	}
	if _, err := ring.PublicKey(); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("PublicKey after failed authentication: err = %v, want ErrPermissionDenied", err)
	}
}

func TestLockZeroesSecretKey(t *testing.T) {
	store, _ := setup(t)
	ring := New(store, Options{WorkFactor: testWorkFactor})

	if _, err := ring.Authenticate(context.Background(), "alice", password(t, "full-secret")); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	secretKey, err := ring.SecretKey()
	if err != nil {
		t.Fatalf("SecretKey: %v", err)
	}

	ring.Lock()
	if !secretKey.Closed() {
		t.Error("secret key buffer still open after Lock")
	}
	if ring.Mode() != Secure {
		t.Errorf("mode after Lock = %s, want secure", ring.Mode())
	}
	if _, err := ring.PublicKey(); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("PublicKey after Lock: err = %v, want ErrPermissionDenied", err)
	}
	if _, err := ring.SecretKey(); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("SecretKey after Lock: err = %v, want ErrPermissionDenied", err)
	}
}

func TestCorruptKeyFileIsAuthenticationFailure(t *testing.T) {
	store, _ := setup(t)
	store.Corrupt("keys/alice/full", func(data []byte) []byte {
		data[len(data)-1] ^= 0xff
		return data
	})
	store.Corrupt("keys/alice/write", func(data []byte) []byte {
		return data[:len(data)/2]
	})

	ring := New(store, Options{WorkFactor: testWorkFactor})
	_, err := ring.Authenticate(context.Background(), "alice", password(t, "full-secret"))
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("err = %v, want ErrAuthentication", err)
	}
}

func TestUsers(t *testing.T) {
	store, keys := setup(t)
	ctx := context.Background()
	ring := New(store, Options{WorkFactor: testWorkFactor})

	err := ring.CreateUser(ctx, "backup-bot", keys, UserKeys{WritePassword: password(t, "bot")})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := ring.CreateUser(ctx, "backup-bot", keys, UserKeys{WritePassword: password(t, "again")}); err == nil {
		t.Error("CreateUser overwrote an existing key file")
	}

	users, err := ring.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	want := []User{{Name: "alice", Full: true, Write: true}, {Name: "backup-bot", Write: true}}
	if len(users) != len(want) {
		t.Fatalf("ListUsers = %+v, want %+v", users, want)
	}
	for index := range want {
		if users[index] != want[index] {
			t.Errorf("user %d = %+v, want %+v", index, users[index], want[index])
		}
	}

	if err := ring.DeleteUser(ctx, "backup-bot"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("DeleteUser in secure mode: err = %v, want ErrPermissionDenied", err)
	}
	if _, err := ring.Authenticate(ctx, "alice", password(t, "full-secret")); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := ring.DeleteUser(ctx, "alice"); err == nil {
		t.Error("DeleteUser removed the authenticated user")
	}
	if err := ring.DeleteUser(ctx, "backup-bot"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := ring.DeleteUser(ctx, "backup-bot"); err == nil {
		t.Error("DeleteUser of a missing user succeeded")
	}
}

// keyStore exposes only the KeyStore methods of a backend.
type keyStore struct {
	KeyStore
}

func TestCreateUserOnNarrowKeyStore(t *testing.T) {
	ctx := context.Background()
	memory := backend.NewMemory()
	keys, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	t.Cleanup(func() { keys.Close() })

	ring := New(keyStore{memory}, Options{WorkFactor: testWorkFactor})
	err = ring.CreateUser(ctx, "carol", keys, UserKeys{WritePassword: password(t, "carol-secret")})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if got := memory.Writes(); len(got) != 1 || got[0] != "keys/carol/write" {
		t.Errorf("writes = %v, want [keys/carol/write]", got)
	}

	mode, err := ring.Authenticate(ctx, "carol", password(t, "carol-secret"))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if mode != WriteOnly {
		t.Errorf("mode = %v, want WriteOnly", mode)
	}
}
