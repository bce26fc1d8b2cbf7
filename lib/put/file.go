// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package put

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/record"
	"github.com/bureau-foundation/coffer/lib/splitter"
)

// Read buffer bounds. A file holding a big-buffer slot may read up to
// bigBufferLimit at a time; others read twice the maximum chunk size.
const (
	bigBufferLimit = 64 * 1024 * 1024
	minBuffer      = 64 * 1024
)

// PutFile stores the regular file at path and returns its hash and
// length. A file made of exactly one chunk is addressed by that
// chunk's hash; longer files get a File object listing their chunks.
func (c *Context) PutFile(ctx context.Context, path string) (blob.Hash, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return blob.Hash{}, 0, readError("opening", path, err)
	}
	defer file.Close()

	split, err := splitter.New(c.parameters, c.splitSalt)
	if err != nil {
		return blob.Hash{}, 0, err
	}

	limit := 2 * c.parameters.Max
	if c.bigBuffers.TryAcquire(1) {
		defer c.bigBuffers.Release(1)
		limit = max(bigBufferLimit, c.parameters.Max)
	}
	size := int64(limit)
	if fi, err := file.Stat(); err == nil {
		size = fi.Size() + 1
	}
	buffer := make([]byte, 0, int(min(max(size, minBuffer), int64(limit))))

	var chunks []record.Chunk
	var length int64
	eof := false
	for {
		for !eof && len(buffer) < cap(buffer) {
			n, err := file.Read(buffer[len(buffer):cap(buffer)])
			buffer = buffer[:len(buffer)+n]
			length += int64(n)
			if errors.Is(err, io.EOF) {
				eof = true
			} else if err != nil {
				return blob.Hash{}, 0, readError("reading", path, err)
			}
		}

		pieces, processed := split.Process(buffer, eof)
		if len(pieces) > 0 {
			chunks = append(chunks, make([]record.Chunk, len(pieces))...)
			if err := c.storeChunks(ctx, pieces, chunks); err != nil {
				return blob.Hash{}, 0, err
			}
		}
		if eof && processed == len(buffer) {
			break
		}

		remaining := copy(buffer, buffer[processed:])
		buffer = buffer[:remaining]
		if len(buffer) == cap(buffer) {
			// The file grew past its stat size with no boundary in
			// sight.
			grown := make([]byte, len(buffer), max(2*cap(buffer), c.parameters.Max))
			copy(grown, buffer)
			buffer = grown
		}
	}

	var hash blob.Hash
	if len(chunks) == 1 {
		hash = chunks[0].Hash
	} else {
		hash, err = c.writeBlob(ctx, blob.File, record.EncodeFile(chunks, length))
		if err != nil {
			return blob.Hash{}, 0, err
		}
	}
	c.length.Add(length)
	return hash, length, nil
}

// storeChunks uploads pieces on the file pool and records each at its
// position in chunks, whatever order the uploads finish in.
func (c *Context) storeChunks(ctx context.Context, pieces []splitter.Chunk, chunks []record.Chunk) error {
	group, _ := c.files.Group(ctx)
	for _, piece := range pieces {
		group.Run(func(ctx context.Context) error {
			hash, err := c.writeBlob(ctx, blob.Chunk, piece.Data)
			if err != nil {
				return err
			}
			chunks[piece.Index] = record.Chunk{
				Offset: piece.Offset,
				Length: int32(len(piece.Data)),
				Hash:   hash,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
