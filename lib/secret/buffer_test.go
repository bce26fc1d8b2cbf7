// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewZeroFilled(t *testing.T) {
	buffer, err := New(KeySize)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != KeySize {
		t.Errorf("Len = %d, want %d", buffer.Len(), KeySize)
	}
	for index, value := range buffer.Bytes() {
		if value != 0 {
			t.Fatalf("byte %d = %d, want 0", index, value)
		}
	}
}

func TestNewRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d) succeeded, want error", size)
		}
	}
}

func TestNewFromBytesZeroesSource(t *testing.T) {
	source := []byte("correct horse battery staple")
	want := string(source)

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if string(buffer.Bytes()) != want {
		t.Errorf("contents = %q, want %q", buffer.Bytes(), want)
	}
	if !bytes.Equal(source, make([]byte, len(source))) {
		t.Errorf("source not zeroed: %q", source)
	}
}

func TestNewRandom(t *testing.T) {
	first, err := NewRandom(KeySize)
	if err != nil {
		t.Fatalf("NewRandom: %v", err)
	}
	defer first.Close()
	second, err := NewRandom(KeySize)
	if err != nil {
		t.Fatalf("NewRandom: %v", err)
	}
	defer second.Close()

	if first.Equal(second.Bytes()) {
		t.Error("two random keys are equal")
	}
}

func TestKeyAliasesBuffer(t *testing.T) {
	buffer, err := New(KeySize)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buffer.Close()

	key := buffer.Key()
	key[0] = 0x42
	if buffer.Bytes()[0] != 0x42 {
		t.Error("Key does not alias the buffer contents")
	}
}

func TestCloseZeroesAndIsIdempotent(t *testing.T) {
	buffer, err := NewFromBytes([]byte("secret key material"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	view := buffer.Bytes()

	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !buffer.Closed() {
		t.Error("Closed = false after Close")
	}
	if buffer.Len() != 0 {
		t.Errorf("Len after Close = %d, want 0", buffer.Len())
	}
	// view points at unmapped memory now; only its length is safe.
	_ = len(view)

	defer func() {
		if recover() == nil {
			t.Error("Bytes after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestReadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "password")
	if err := os.WriteFile(path, []byte("  hunter2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath: %v", err)
	}
	defer buffer.Close()
	if string(buffer.Bytes()) != "hunter2" {
		t.Errorf("password = %q, want %q", buffer.Bytes(), "hunter2")
	}
}

func TestReadLineEmpty(t *testing.T) {
	if _, err := readLine(strings.NewReader("")); err == nil {
		t.Error("readLine on empty input succeeded")
	}
	if _, err := readLine(strings.NewReader("   \n")); err == nil {
		t.Error("readLine on blank line succeeded")
	}
}
