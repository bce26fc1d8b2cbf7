// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/sealed"
	"github.com/bureau-foundation/coffer/lib/secret"
)

// Envelope layout.
const (
	// Version is the object format version written by this package.
	Version = 1

	sealedKeySize = streamKeySize + sealed.Overhead
	envelopeSize  = 2 + sealedKeySize + streamHeaderSize

	// FrameSize is the maximum plaintext carried by one frame.
	FrameSize = 32 * 1024
)

// ErrCorruptObject is returned when a stored object fails any
// structural or cryptographic check.
var ErrCorruptObject = errors.New("object: corrupt object")

// Keys is the part of a KeyRing the codec needs.
type Keys interface {
	PublicKey() ([sealed.KeySize]byte, error)
	SecretKey() (*secret.Buffer, error)
}

// KnownIndex remembers which paths are already stored so writes can
// skip a backend round trip. Errors are logged and otherwise ignored.
type KnownIndex interface {
	Known(ctx context.Context, path string) (bool, error)
	MarkKnown(ctx context.Context, path string) error
}

// Options configures a Codec.
type Options struct {
	Backend backend.Backend
	Keys    Keys
	Hasher  *blob.Hasher

	// Known is optional.
	Known KnownIndex

	Logger *slog.Logger
}

// Codec encrypts objects into a backend and decrypts them back.
// It is safe for concurrent use.
type Codec struct {
	backend backend.Backend
	keys    Keys
	hasher  *blob.Hasher
	known   KnownIndex
	logger  *slog.Logger
}

// New returns a Codec.
func New(options Options) (*Codec, error) {
	if options.Backend == nil || options.Keys == nil || options.Hasher == nil {
		return nil, fmt.Errorf("object: Backend, Keys and Hasher are required")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Codec{
		backend: options.Backend,
		keys:    options.Keys,
		hasher:  options.Hasher,
		known:   options.Known,
		logger:  logger,
	}, nil
}

// Hasher returns the hasher objects are addressed with.
func (c *Codec) Hasher() *blob.Hasher { return c.hasher }

// Backend returns the backend objects are stored in.
func (c *Codec) Backend() backend.Backend { return c.backend }

// WriteBlob stores plaintext as an object of type t at the address
// hash and returns the number of bytes written to the backend, which
// is zero when the object already existed. The caller computes hash;
// WriteBlob does not check it.
func (c *Codec) WriteBlob(ctx context.Context, hash blob.Hash, t blob.Type, plaintext []byte) (int64, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("object: cannot write type %s", t)
	}
	public, err := c.keys.PublicKey()
	if err != nil {
		return 0, err
	}

	path := blob.Path(hash)
	if c.isKnown(ctx, path) {
		return 0, nil
	}
	exists, err := c.backend.Test(ctx, path)
	if err != nil {
		return 0, err
	}
	if exists {
		c.markKnown(ctx, path)
		return 0, nil
	}

	written, err := c.backend.Write(ctx, path, func(write func([]byte) error) error {
		return encrypt(write, &public, t, plaintext)
	})
	if errors.Is(err, backend.ErrExists) {
		// Another writer stored the same content first.
		c.markKnown(ctx, path)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	c.markKnown(ctx, path)
	return written, nil
}

func encrypt(write func([]byte) error, public *[sealed.KeySize]byte, t blob.Type, plaintext []byte) error {
	var streamKey [streamKeySize]byte
	defer clear(streamKey[:])
	if _, err := rand.Read(streamKey[:]); err != nil {
		return fmt.Errorf("object: generating stream key: %w", err)
	}

	envelope := make([]byte, 2, envelopeSize)
	envelope[0] = Version
	envelope[1] = byte(t)
	envelope, err := sealed.Seal(envelope, streamKey[:], public)
	if err != nil {
		return err
	}
	var header [streamHeaderSize]byte
	if _, err := rand.Read(header[:]); err != nil {
		return fmt.Errorf("object: generating stream header: %w", err)
	}
	envelope = append(envelope, header[:]...)

	state, err := newStreamState(streamKey[:], header[:])
	if err != nil {
		return err
	}
	defer state.wipe()
	if err := write(envelope); err != nil {
		return err
	}

	frame := make([]byte, 0, FrameSize+streamOverhead)
	for offset := 0; ; {
		end := min(offset+FrameSize, len(plaintext))
		fragment := plaintext[offset:end]
		final := len(fragment) < FrameSize
		tag := tagMessage
		if final {
			tag = tagFinal
		}
		frame = state.push(frame[:0], fragment, tag)
		if err := write(frame); err != nil {
			return err
		}
		if final {
			return nil
		}
		offset = end
	}
}

// ReadBlob reads, authenticates, and decrypts the object at hash. It
// requires the secret key.
func (c *Codec) ReadBlob(ctx context.Context, hash blob.Hash) (blob.Type, []byte, error) {
	secretKey, err := c.keys.SecretKey()
	if err != nil {
		return 0, nil, err
	}
	public, err := c.keys.PublicKey()
	if err != nil {
		return 0, nil, err
	}

	path := blob.Path(hash)
	raw, err := c.backend.Read(ctx, path)
	if err != nil {
		return 0, nil, err
	}

	stored, plaintext, err := decrypt(raw, &public, secretKey)
	if err != nil {
		return 0, nil, fmt.Errorf("%w %s: %w", ErrCorruptObject, hash, err)
	}
	t, ok := blob.Normalize(stored)
	if !ok {
		return 0, nil, fmt.Errorf("%w %s: unknown type %d", ErrCorruptObject, hash, stored)
	}
	// Legacy numbers are hashed as stored.
	if c.hasher.Sum(blob.Type(stored), plaintext) != hash {
		return 0, nil, fmt.Errorf("%w %s: content does not match address", ErrCorruptObject, hash)
	}
	return t, plaintext, nil
}

func decrypt(raw []byte, public *[sealed.KeySize]byte, secretKey *secret.Buffer) (int8, []byte, error) {
	if len(raw) < envelopeSize {
		return 0, nil, fmt.Errorf("truncated envelope (%d bytes)", len(raw))
	}
	if raw[0] != Version {
		return 0, nil, fmt.Errorf("unsupported version %d", raw[0])
	}
	stored := int8(raw[1])

	streamKey, err := sealed.Open(nil, raw[2:2+sealedKeySize], public, secretKey)
	if err != nil {
		return 0, nil, err
	}
	defer clear(streamKey)

	state, err := newStreamState(streamKey, raw[2+sealedKeySize:envelopeSize])
	if err != nil {
		return 0, nil, err
	}
	defer state.wipe()

	remaining := raw[envelopeSize:]
	plaintext := make([]byte, 0, len(remaining))
	for len(remaining) > 0 {
		frame := remaining[:min(len(remaining), FrameSize+streamOverhead)]
		remaining = remaining[len(frame):]

		var tag byte
		plaintext, tag, err = state.pull(plaintext, frame)
		if err != nil {
			return 0, nil, err
		}
		if tag == tagFinal {
			if len(remaining) > 0 {
				return 0, nil, fmt.Errorf("%d bytes after final frame", len(remaining))
			}
			return stored, plaintext, nil
		}
	}
	return 0, nil, fmt.Errorf("stream ends without a final frame")
}

func (c *Codec) isKnown(ctx context.Context, path string) bool {
	if c.known == nil {
		return false
	}
	known, err := c.known.Known(ctx, path)
	if err != nil {
		c.logger.Warn("object cache lookup failed", "path", path, "error", err)
		return false
	}
	return known
}

func (c *Codec) markKnown(ctx context.Context, path string) {
	if c.known == nil {
		return
	}
	if err := c.known.MarkKnown(ctx, path); err != nil {
		c.logger.Warn("object cache update failed", "path", path, "error", err)
	}
}
