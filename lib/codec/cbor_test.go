// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type metadata struct {
	Version int      `cbor:"version"`
	ID      [32]byte `cbor:"id"`
	Labels  map[string]string
}

func TestMarshalDeterministic(t *testing.T) {
	value := metadata{
		Version: 1,
		Labels:  map[string]string{"zeta": "1", "alpha": "2", "mid": "3"},
	}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("Marshal not deterministic:\n%x\n%x", first, again)
		}
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type newer struct {
		Version int    `cbor:"version"`
		Extra   string `cbor:"extra"`
	}
	data, err := Marshal(newer{Version: 3, Extra: "added later"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded metadata
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Version != 3 {
		t.Errorf("Version = %d, want 3", decoded.Version)
	}
}

func TestUnmarshalRejectsDuplicateKeys(t *testing.T) {
	// {"version": 1, "version": 2}
	data := []byte{0xa2, 0x67, 'v', 'e', 'r', 's', 'i', 'o', 'n', 0x01, 0x67, 'v', 'e', 'r', 's', 'i', 'o', 'n', 0x02}
	var decoded metadata
	if err := Unmarshal(data, &decoded); err == nil {
		t.Error("Unmarshal accepted duplicate map keys")
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	var decoded metadata
	if err := Unmarshal([]byte{0xff, 0x00}, &decoded); err == nil {
		t.Error("Unmarshal accepted invalid CBOR")
	}
}
