// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package put

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/record"
)

// Settings selects what Put produces.
type Settings struct {
	// Name labels the snapshot.
	Name string

	// Raw stores a single path and returns its own hash instead of
	// writing a snapshot and tag.
	Raw bool

	FollowSymlinks bool
}

// Result describes a finished backup.
type Result struct {
	// Hash is the snapshot, or in raw mode the stored path's object.
	Hash blob.Hash

	// Length is the logical number of bytes covered.
	Length int64

	// Written is the number of bytes written to the backend,
	// including the snapshot and tag.
	Written int64
}

// Put backs up paths. Each path becomes a top-level entry of the
// snapshot, named by its absolute path without the leading slash.
// Unlike nested paths, a top-level path that cannot be stored fails
// the whole run.
func Put(ctx context.Context, options Options, settings Settings, paths []string) (Result, error) {
	if len(paths) == 0 {
		return Result{}, fmt.Errorf("put: no paths to back up")
	}
	if settings.Raw && settings.Name != "" {
		return Result{}, fmt.Errorf("put: raw mode does not take a snapshot name")
	}
	if settings.Raw && len(paths) != 1 {
		return Result{}, fmt.Errorf("put: raw mode stores exactly one path, got %d", len(paths))
	}
	if len(settings.Name) > record.MaxSnapshotName {
		return Result{}, fmt.Errorf("put: snapshot name is %d bytes, limit %d", len(settings.Name), record.MaxSnapshotName)
	}

	options.FollowSymlinks = settings.FollowSymlinks
	run, err := NewContext(options)
	if err != nil {
		return Result{}, err
	}
	started := run.clock.Now()

	entries := make([]record.Entry, 0, len(paths))
	for _, path := range paths {
		entry, err := run.putTopLevel(ctx, path)
		if err != nil {
			return Result{}, err
		}
		entries = append(entries, entry)
	}

	result := Result{Length: run.Length(), Written: run.Written()}
	if settings.Raw {
		result.Hash = entries[0].Hash
	} else {
		payload, err := record.EncodeSnapshot(record.SnapshotHeader{
			Name:   settings.Name,
			Time:   started.UnixMilli(),
			Length: result.Length,
			Stored: result.Written,
		}, entries)
		if err != nil {
			return Result{}, fmt.Errorf("put: encoding snapshot: %w", err)
		}
		result.Hash, err = run.writeBlob(ctx, blob.Snapshot, payload)
		if err != nil {
			return Result{}, err
		}
		tagWritten, err := run.store.WriteTag(ctx, result.Hash)
		if err != nil {
			return Result{}, err
		}
		result.Written = run.Written() + tagWritten
	}

	if err := run.CommitCache(ctx); err != nil {
		run.logger.Warn("change cache not updated", "error", err)
	}
	run.logger.Info("backup complete",
		"hash", result.Hash,
		"name", settings.Name,
		"length", result.Length,
		"written", result.Written,
	)
	return result, nil
}

func (c *Context) putTopLevel(ctx context.Context, path string) (record.Entry, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return record.Entry{}, fmt.Errorf("put: resolving %s: %w", path, err)
	}
	entry := record.Entry{Name: strings.TrimPrefix(filepath.ToSlash(absolute), "/")}

	info, err := stat(absolute, true)
	if err != nil {
		return record.Entry{}, fmt.Errorf("put: %w", err)
	}
	info.apply(&entry)

	switch info.kind {
	case record.KindDirectory:
		entry.Hash, err = c.PutDirectory(ctx, absolute)
	case record.KindFile:
		entry.Hash, _, err = c.storeFile(ctx, absolute, info)
	default:
		return record.Entry{}, fmt.Errorf("put: cannot back up %s (%s)", absolute, info.special)
	}
	if err != nil {
		return record.Entry{}, err
	}
	entry.Flags |= record.FlagReadable
	return entry, nil
}
