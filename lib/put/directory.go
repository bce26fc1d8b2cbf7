// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package put

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/record"
)

// maxLinkTarget bounds the link targets stored.
const maxLinkTarget = 4095

// pendingDirectory is a directory found during the walk whose listing
// is not yet written. Directories refer to their parent by index into
// the walk's list, never by pointer.
type pendingDirectory struct {
	parent      int
	parentEntry int
	path        string

	entries []record.Entry
	failed  bool

	// totalLength sums file sizes and subdirectory totals.
	totalLength atomic.Int64

	hash blob.Hash
}

// PutDirectory stores the tree rooted at path and returns the hash of
// its Directory object. Nested paths that vanish or cannot be read are
// skipped with a warning; failing to list path itself is an error.
func (c *Context) PutDirectory(ctx context.Context, path string) (blob.Hash, error) {
	pending := []*pendingDirectory{{parent: -1, parentEntry: -1, path: path}}

	group, groupCtx := c.directories.Group(ctx)
	for index := 0; index < len(pending); index++ {
		directory := pending[index]
		if err := groupCtx.Err(); err != nil {
			break
		}

		children, err := c.enumerate(directory)
		if err != nil {
			if index == 0 || !skippable(err) {
				_ = group.Wait()
				return blob.Hash{}, err
			}
			c.logger.Warn("skipping unreadable directory", "path", directory.path, "error", err)
			directory.failed = true
			directory.entries = nil
			continue
		}
		for _, entryIndex := range children {
			pending = append(pending, &pendingDirectory{
				parent:      index,
				parentEntry: entryIndex,
				path:        filepath.Join(directory.path, directory.entries[entryIndex].Name),
			})
		}

		for entryIndex := range directory.entries {
			entry := &directory.entries[entryIndex]
			entryPath := filepath.Join(directory.path, entry.Name)
			switch entry.Kind {
			case record.KindFile:
				info := fileInfo{mtime: entry.Mtime, mode: entry.Mode, size: entry.Size}
				group.Run(func(ctx context.Context) error {
					hash, length, err := c.storeFile(ctx, entryPath, info)
					if skippable(err) {
						c.logger.Warn("skipping unreadable file", "path", entryPath, "error", err)
						return nil
					}
					if err != nil {
						return err
					}
					entry.Hash = hash
					entry.Flags |= record.FlagReadable
					directory.totalLength.Add(length)
					return nil
				})
			case record.KindLink:
				group.Run(func(ctx context.Context) error {
					return c.storeLink(ctx, entryPath, entry)
				})
			}
		}
	}
	if err := group.Wait(); err != nil {
		return blob.Hash{}, err
	}
	if err := ctx.Err(); err != nil {
		return blob.Hash{}, err
	}

	// Children come after their parents in the list, so walking it
	// backwards finishes every child before its parent is encoded.
	group, _ = c.directories.Group(ctx)
	for index := len(pending) - 1; index >= 0; index-- {
		directory := pending[index]
		total := directory.totalLength.Load()
		payload, err := record.EncodeDirectory(directory.entries, total)
		if err != nil {
			_ = group.Wait()
			return blob.Hash{}, fmt.Errorf("put: encoding %s: %w", directory.path, err)
		}
		directory.hash = c.hasher.Sum(blob.Directory, payload)

		if directory.parent >= 0 {
			parent := pending[directory.parent]
			entry := &parent.entries[directory.parentEntry]
			entry.Hash = directory.hash
			if !directory.failed {
				entry.Flags |= record.FlagReadable
			}
			parent.totalLength.Add(total)
		}

		group.Run(func(ctx context.Context) error {
			written, err := c.store.WriteBlob(ctx, directory.hash, blob.Directory, payload)
			if err != nil {
				return err
			}
			c.written.Add(written)
			c.length.Add(int64(len(payload)))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return blob.Hash{}, err
	}
	if err := ctx.Err(); err != nil {
		return blob.Hash{}, err
	}
	return pending[0].hash, nil
}

// enumerate lists and stats the members of directory, filling its
// entries in name order. It returns the indexes of the entries that
// are directories.
func (c *Context) enumerate(directory *pendingDirectory) ([]int, error) {
	members, err := os.ReadDir(directory.path)
	if err != nil {
		return nil, readError("listing", directory.path, err)
	}

	directory.entries = make([]record.Entry, len(members))
	var children []int
	for index, member := range members {
		entry := &directory.entries[index]
		entry.Name = member.Name()
		entry.Kind = record.KindUnknown

		path := filepath.Join(directory.path, entry.Name)
		info, err := stat(path, c.follow)
		if err != nil {
			c.logger.Warn("cannot stat path", "path", path, "error", err)
			continue
		}
		info.apply(entry)
		switch info.kind {
		case record.KindDirectory:
			children = append(children, index)
		case record.KindUnknown:
			c.logger.Warn("ignoring special file", "path", path, "type", info.special)
		}
	}
	return children, nil
}

// storeLink stores the target of the symbolic link at path.
func (c *Context) storeLink(ctx context.Context, path string, entry *record.Entry) error {
	target, err := os.Readlink(path)
	if err != nil {
		err = readError("reading link", path, err)
		if skippable(err) {
			c.logger.Warn("skipping unreadable link", "path", path, "error", err)
			return nil
		}
		return err
	}
	if len(target) > maxLinkTarget {
		c.logger.Warn("skipping link with overlong target", "path", path, "length", len(target))
		return nil
	}

	hash, err := c.writeBlob(ctx, blob.Link, []byte(target))
	if err != nil {
		return err
	}
	c.length.Add(int64(len(target)))
	entry.Hash = hash
	entry.Flags |= record.FlagReadable
	return nil
}
