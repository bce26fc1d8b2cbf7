// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/poly1305"
)

// The stream construction is libsodium's
// crypto_secretstream_xchacha20poly1305, byte for byte, so objects
// written by either implementation read back with the other.
const (
	streamKeySize    = 32
	streamHeaderSize = 24
	// streamOverhead is the encrypted tag byte plus the MAC.
	streamOverhead = 1 + poly1305.TagSize
)

// Stream tags carried by each frame.
const (
	tagMessage byte = 0x00
	tagPush    byte = 0x01
	tagRekey   byte = 0x02
	tagFinal   byte = tagPush | tagRekey
)

var errFrameAuthentication = errors.New("frame authentication failed")

const (
	counterSize = 4
	inonceSize  = 8
	blockSize   = 64
)

var zeroPad [16]byte

type streamState struct {
	key   [streamKeySize]byte
	nonce [counterSize + inonceSize]byte
}

func newStreamState(key, header []byte) (*streamState, error) {
	if len(key) != streamKeySize || len(header) != streamHeaderSize {
		return nil, fmt.Errorf("stream key/header of %d/%d bytes", len(key), len(header))
	}
	subkey, err := chacha20.HChaCha20(key, header[:16])
	if err != nil {
		return nil, err
	}
	state := &streamState{}
	copy(state.key[:], subkey)
	clear(subkey)
	state.resetCounter()
	copy(state.nonce[counterSize:], header[16:])
	return state, nil
}

func (s *streamState) resetCounter() {
	clear(s.nonce[:counterSize])
	s.nonce[0] = 1
}

func (s *streamState) cipher() *chacha20.Cipher {
	cipher, err := chacha20.NewUnauthenticatedCipher(s.key[:], s.nonce[:])
	if err != nil {
		// Key and nonce sizes are fixed by the state layout.
		panic("object: chacha20 initialization failed: " + err.Error())
	}
	return cipher
}

// mac computes the frame authenticator over the tag block and
// ciphertext, consuming keystream block 0 from cipher.
func macFrame(cipher *chacha20.Cipher, block *[blockSize]byte, ciphertext []byte) [poly1305.TagSize]byte {
	var polyKey [blockSize]byte
	cipher.XORKeyStream(polyKey[:], polyKey[:])
	mac := poly1305.New((*[32]byte)(polyKey[:32]))
	clear(polyKey[:])

	// No associated data: its length and padding are both zero.
	mac.Write(block[:])
	mac.Write(ciphertext)
	mac.Write(zeroPad[:(0x10-blockSize+len(ciphertext))&0xf])

	var lengths [16]byte
	binary.LittleEndian.PutUint64(lengths[0:8], 0)
	binary.LittleEndian.PutUint64(lengths[8:16], uint64(blockSize+len(ciphertext)))
	mac.Write(lengths[:])

	var sum [poly1305.TagSize]byte
	mac.Sum(sum[:0])
	return sum
}

// advance folds the MAC into the nonce, bumps the counter, and
// rekeys when asked to or when the counter wraps.
func (s *streamState) advance(mac []byte, tag byte) {
	for index := range inonceSize {
		s.nonce[counterSize+index] ^= mac[index]
	}
	counter := binary.LittleEndian.Uint32(s.nonce[:counterSize]) + 1
	binary.LittleEndian.PutUint32(s.nonce[:counterSize], counter)
	if tag&tagRekey != 0 || counter == 0 {
		s.rekey()
	}
}

func (s *streamState) rekey() {
	var material [streamKeySize + inonceSize]byte
	copy(material[:streamKeySize], s.key[:])
	copy(material[streamKeySize:], s.nonce[counterSize:])
	s.cipher().XORKeyStream(material[:], material[:])
	copy(s.key[:], material[:streamKeySize])
	copy(s.nonce[counterSize:], material[streamKeySize:])
	clear(material[:])
	s.resetCounter()
}

func (s *streamState) wipe() {
	clear(s.key[:])
	clear(s.nonce[:])
}

// push encrypts one frame and appends it to out.
func (s *streamState) push(out, message []byte, tag byte) []byte {
	cipher := s.cipher()

	// Block 0 is the Poly1305 key, taken inside macFrame. Compute the
	// tag block (keystream block 1) and ciphertext (block 2 onward)
	// with a second instance positioned past it.
	body := s.cipher()
	body.SetCounter(1)
	var block [blockSize]byte
	block[0] = tag
	body.XORKeyStream(block[:], block[:])

	start := len(out)
	out = append(out, block[0])
	out = append(out, message...)
	ciphertext := out[start+1:]
	body.XORKeyStream(ciphertext, ciphertext)

	mac := macFrame(cipher, &block, ciphertext)
	out = append(out, mac[:]...)
	s.advance(mac[:], tag)
	return out
}

// pull authenticates and decrypts one frame, appending the plaintext
// to out and returning the frame's tag.
func (s *streamState) pull(out, frame []byte) ([]byte, byte, error) {
	if len(frame) < streamOverhead {
		return out, 0, errFrameAuthentication
	}
	ciphertext := frame[1 : len(frame)-poly1305.TagSize]
	storedMAC := frame[len(frame)-poly1305.TagSize:]

	cipher := s.cipher()
	body := s.cipher()
	body.SetCounter(1)
	var block [blockSize]byte
	block[0] = frame[0]
	body.XORKeyStream(block[:], block[:])
	tag := block[0]
	block[0] = frame[0]

	mac := macFrame(cipher, &block, ciphertext)
	if subtle.ConstantTimeCompare(mac[:], storedMAC) != 1 {
		return out, 0, errFrameAuthentication
	}

	start := len(out)
	out = append(out, ciphertext...)
	body.XORKeyStream(out[start:], out[start:])
	s.advance(mac[:], tag)
	return out, tag, nil
}
