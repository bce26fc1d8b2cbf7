// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/sealed"
)

// TagPrefix is the backend directory holding tags.
const TagPrefix = "tags/"

const (
	tagNameSize  = 4
	tagSize      = blob.HashSize + sealed.Overhead
	maxTagTrials = 1000
)

// Tag is one stored pointer to a snapshot.
type Tag struct {
	Path string
	Hash blob.Hash
}

// WriteTag stores a new tag pointing at hash under a fresh random
// name and returns the number of bytes written.
func (c *Codec) WriteTag(ctx context.Context, hash blob.Hash) (int64, error) {
	public, err := c.keys.PublicKey()
	if err != nil {
		return 0, err
	}
	payload, err := sealed.Seal(nil, hash[:], &public)
	if err != nil {
		return 0, err
	}

	var name [tagNameSize]byte
	for range maxTagTrials {
		if _, err := rand.Read(name[:]); err != nil {
			return 0, fmt.Errorf("object: generating tag name: %w", err)
		}
		path := TagPrefix + hex.EncodeToString(name[:])
		written, err := backend.WriteBytes(ctx, c.backend, path, payload)
		if errors.Is(err, backend.ErrExists) {
			continue
		}
		if err != nil {
			return 0, err
		}
		c.logger.Debug("tag written", "path", path, "snapshot", hash)
		return written, nil
	}
	return 0, fmt.Errorf("object: no free tag name after %d attempts", maxTagTrials)
}

// ListTags returns every tag in the repository, sorted by path. It
// requires the secret key. A tag that cannot be opened is an error.
func (c *Codec) ListTags(ctx context.Context) ([]Tag, error) {
	secretKey, err := c.keys.SecretKey()
	if err != nil {
		return nil, err
	}
	public, err := c.keys.PublicKey()
	if err != nil {
		return nil, err
	}

	var paths []string
	err = c.backend.List(ctx, TagPrefix, func(path string) error {
		if strings.Contains(path[len(TagPrefix):], "/") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("object: listing tags: %w", err)
	}
	slices.Sort(paths)

	tags := make([]Tag, 0, len(paths))
	for _, path := range paths {
		payload, err := c.backend.Read(ctx, path)
		if err != nil {
			return nil, err
		}
		if len(payload) != tagSize {
			return nil, fmt.Errorf("%w: tag %s is %d bytes", ErrCorruptObject, path, len(payload))
		}
		opened, err := sealed.Open(nil, payload, &public, secretKey)
		if err != nil {
			return nil, fmt.Errorf("%w: tag %s: %w", ErrCorruptObject, path, err)
		}
		tags = append(tags, Tag{Path: path, Hash: blob.Hash(opened)})
	}
	return tags, nil
}

// DeleteTag removes a tag. The snapshot it points at is left in place.
func (c *Codec) DeleteTag(ctx context.Context, path string) error {
	if !strings.HasPrefix(path, TagPrefix) {
		return fmt.Errorf("object: %q is not a tag path", path)
	}
	return c.backend.Delete(ctx, path)
}
