// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package restore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/object"
	"github.com/bureau-foundation/coffer/lib/record"
)

// ErrUnexpectedType is returned when an object is not of the type its
// reference implies.
var ErrUnexpectedType = errors.New("restore: unexpected object type")

// Reader reads objects and tags. *object.Codec implements it.
type Reader interface {
	ReadBlob(ctx context.Context, hash blob.Hash) (blob.Type, []byte, error)
	ListTags(ctx context.Context) ([]object.Tag, error)
}

// Snapshot is one listed snapshot.
type Snapshot struct {
	Tag    string
	Hash   blob.Hash
	Header record.SnapshotHeader
}

// ListSnapshots returns every tagged snapshot, oldest first.
func ListSnapshots(ctx context.Context, reader Reader) ([]Snapshot, error) {
	tags, err := reader.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	snapshots := make([]Snapshot, 0, len(tags))
	for _, tag := range tags {
		payload, err := readTyped(ctx, reader, tag.Hash, blob.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("restore: snapshot of tag %s: %w", tag.Path, err)
		}
		header, err := record.DecodeSnapshotHeader(payload)
		if err != nil {
			return nil, fmt.Errorf("restore: snapshot %s: %w", tag.Hash, err)
		}
		snapshots = append(snapshots, Snapshot{Tag: tag.Path, Hash: tag.Hash, Header: header})
	}
	slices.SortFunc(snapshots, func(a, b Snapshot) int {
		if c := cmp.Compare(a.Header.Time, b.Header.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
	return snapshots, nil
}

// ReadSnapshot returns the header and top-level entries of a snapshot.
func ReadSnapshot(ctx context.Context, reader Reader, hash blob.Hash) (record.SnapshotHeader, []record.Entry, error) {
	payload, err := readTyped(ctx, reader, hash, blob.Snapshot)
	if err != nil {
		return record.SnapshotHeader{}, nil, err
	}
	header, entries, err := record.DecodeSnapshot(payload)
	if err != nil {
		return record.SnapshotHeader{}, nil, fmt.Errorf("restore: snapshot %s: %w", hash, err)
	}
	return header, entries, nil
}

// ReadDirectory returns the entries and total length of a directory.
func ReadDirectory(ctx context.Context, reader Reader, hash blob.Hash) ([]record.Entry, int64, error) {
	payload, err := readTyped(ctx, reader, hash, blob.Directory)
	if err != nil {
		return nil, 0, err
	}
	entries, length, err := record.DecodeDirectory(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("restore: directory %s: %w", hash, err)
	}
	return entries, length, nil
}

// ReadFile writes the content of a file object to w and returns its
// length. hash may address a File object or, for single-chunk files,
// the chunk itself.
func ReadFile(ctx context.Context, reader Reader, hash blob.Hash, w io.Writer) (int64, error) {
	typ, payload, err := reader.ReadBlob(ctx, hash)
	if err != nil {
		return 0, err
	}
	switch typ {
	case blob.Chunk:
		n, err := w.Write(payload)
		return int64(n), err
	case blob.File:
	default:
		return 0, fmt.Errorf("%w: %s is a %s, want file or chunk", ErrUnexpectedType, hash, typ)
	}

	chunks, length, err := record.DecodeFile(payload)
	if err != nil {
		return 0, fmt.Errorf("restore: file %s: %w", hash, err)
	}
	var written int64
	for _, chunk := range chunks {
		data, err := readTyped(ctx, reader, chunk.Hash, blob.Chunk)
		if err != nil {
			return written, err
		}
		if len(data) != int(chunk.Length) {
			return written, fmt.Errorf("%w: chunk %s is %d bytes, file %s lists %d",
				object.ErrCorruptObject, chunk.Hash, len(data), hash, chunk.Length)
		}
		n, err := w.Write(data)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	if written != length {
		return written, fmt.Errorf("%w: file %s has %d bytes, want %d", object.ErrCorruptObject, hash, written, length)
	}
	return written, nil
}

// ReadLink returns the target stored in a link object.
func ReadLink(ctx context.Context, reader Reader, hash blob.Hash) (string, error) {
	payload, err := readTyped(ctx, reader, hash, blob.Link)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func readTyped(ctx context.Context, reader Reader, hash blob.Hash, want blob.Type) ([]byte, error) {
	typ, payload, err := reader.ReadBlob(ctx, hash)
	if err != nil {
		return nil, err
	}
	if typ != want {
		return nil, fmt.Errorf("%w: %s is a %s, want %s", ErrUnexpectedType, hash, typ, want)
	}
	return payload, nil
}
