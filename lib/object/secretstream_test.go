// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// Frames produced by libsodium 1.0.18 crypto_secretstream_xchacha20poly1305_push
// for key 00..1f and header 40..57, pushed in order on one stream. The
// second frame rekeys, so the last two pin the rekey derivation too.
var libsodiumFrames = []struct {
	message []byte
	tag     byte
	frame   string
}{
	{
		message: []byte("Arbitrary data to encrypt"),
		tag:     tagMessage,
		frame:   "0d82ea22807faac93b1343c7fd244e3634c990c3b0e88024f704c13204054ab87a7204b8b420d95078cb",
	},
	{
		message: sequenceBytes(100),
		tag:     tagRekey,
		frame: "68bbf605d9c5d60ddae6e7be60d58ab5f4c4cb2174e022d121b01ffb4519c292" +
			"deff4522ccb4ef274de49d152a900faae71a24fde34b86927152d4ddc4c92963" +
			"c297484ba297fd07792a35ce2c7cd22478f52847d6f55a973554c1200a8223a6" +
			"3f4f5ddf527aacc16910ec2c400aef7ab3e953bf35",
	},
	{
		message: []byte{},
		tag:     tagMessage,
		frame:   "d2748821ad041c4b6778d4c0bbc2ba129e",
	},
	{
		message: []byte("last"),
		tag:     tagFinal,
		frame:   "9887be920c56d0db0cad7b2a0774f215ddacae48d4",
	},
}

// sequenceBytes returns byte i = 7i+3 mod 256.
func sequenceBytes(size int) []byte {
	data := make([]byte, size)
	for index := range data {
		data[index] = byte(index*7 + 3)
	}
	return data
}

func knownStream(t *testing.T) *streamState {
	t.Helper()
	key := make([]byte, streamKeySize)
	for index := range key {
		key[index] = byte(index)
	}
	header := make([]byte, streamHeaderSize)
	for index := range header {
		header[index] = byte(0x40 + index)
	}
	state, err := newStreamState(key, header)
	if err != nil {
		t.Fatalf("newStreamState: %v", err)
	}
	return state
}

func TestPushMatchesLibsodium(t *testing.T) {
	state := knownStream(t)
	for index, vector := range libsodiumFrames {
		want, err := hex.DecodeString(vector.frame)
		if err != nil {
			t.Fatalf("frame %d: bad hex: %v", index, err)
		}
		got := state.push(nil, vector.message, vector.tag)
		if !bytes.Equal(got, want) {
			t.Fatalf("frame %d = %x, want %x", index, got, want)
		}
	}
}

func TestPullMatchesLibsodium(t *testing.T) {
	state := knownStream(t)
	for index, vector := range libsodiumFrames {
		frame, err := hex.DecodeString(vector.frame)
		if err != nil {
			t.Fatalf("frame %d: bad hex: %v", index, err)
		}
		plaintext, tag, err := state.pull(nil, frame)
		if err != nil {
			t.Fatalf("pull frame %d: %v", index, err)
		}
		if tag != vector.tag || !bytes.Equal(plaintext, vector.message) {
			t.Fatalf("frame %d = (%d, %x), want (%d, %x)", index, tag, plaintext, vector.tag, vector.message)
		}
	}
}
