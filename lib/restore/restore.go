// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package restore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/coffer/lib/async"
	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/record"
)

// ErrUnsafeName is returned for entry names that would escape the
// restore destination.
var ErrUnsafeName = errors.New("restore: unsafe entry name")

// Options configures Restore.
type Options struct {
	// Threads bounds concurrent file restores. Zero means one per CPU.
	Threads int

	// Chown restores owner and group, which usually requires root.
	Chown bool

	Logger *slog.Logger
}

// Result counts what Restore created.
type Result struct {
	Directories int64
	Files       int64
	Links       int64
	Length      int64
}

type restorer struct {
	reader Reader
	pool   *async.Pool
	chown  bool
	logger *slog.Logger

	directories atomic.Int64
	files       atomic.Int64
	links       atomic.Int64
	length      atomic.Int64
}

// Restore recreates the object at hash under destination. A snapshot
// restores each top-level path at its stored name below destination;
// a directory restores its members into destination; a file or link
// is created at destination itself. Existing files are never
// overwritten.
func Restore(ctx context.Context, reader Reader, hash blob.Hash, destination string, options Options) (Result, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &restorer{
		reader: reader,
		pool:   async.NewPool(options.Threads),
		chown:  options.Chown,
		logger: logger,
	}

	typ, payload, err := reader.ReadBlob(ctx, hash)
	if err != nil {
		return Result{}, err
	}
	switch typ {
	case blob.Snapshot:
		_, entries, err := record.DecodeSnapshot(payload)
		if err != nil {
			return Result{}, fmt.Errorf("restore: snapshot %s: %w", hash, err)
		}
		err = r.restoreTopLevel(ctx, entries, destination)
		if err != nil {
			return Result{}, err
		}
	case blob.Directory:
		entries, _, err := record.DecodeDirectory(payload)
		if err != nil {
			return Result{}, fmt.Errorf("restore: directory %s: %w", hash, err)
		}
		if err := os.MkdirAll(destination, 0o755); err != nil {
			return Result{}, fmt.Errorf("restore: %w", err)
		}
		if err := r.restoreMembers(ctx, entries, destination); err != nil {
			return Result{}, err
		}
	case blob.File, blob.Chunk:
		if err := r.restoreFile(ctx, hash, destination); err != nil {
			return Result{}, err
		}
	case blob.Link:
		if err := r.restoreLink(ctx, hash, destination); err != nil {
			return Result{}, err
		}
	default:
		return Result{}, fmt.Errorf("%w: cannot restore a %s", ErrUnexpectedType, typ)
	}

	result := Result{
		Directories: r.directories.Load(),
		Files:       r.files.Load(),
		Links:       r.links.Load(),
		Length:      r.length.Load(),
	}
	r.logger.Info("restore complete",
		"hash", hash,
		"destination", destination,
		"files", result.Files,
		"length", result.Length,
	)
	return result, nil
}

func (r *restorer) restoreTopLevel(ctx context.Context, entries []record.Entry, destination string) error {
	for _, entry := range entries {
		name, err := topLevelPath(entry.Name)
		if err != nil {
			return err
		}
		root := destination
		if name == "." {
			root = filepath.Dir(destination)
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if err := makeParents(destination, name); err != nil {
			return err
		}
		if err := r.restoreEntry(ctx, entry, filepath.Join(destination, name)); err != nil {
			return err
		}
	}
	return nil
}

// restoreMembers restores the entries of one directory into path,
// files in parallel.
func (r *restorer) restoreMembers(ctx context.Context, entries []record.Entry, path string) error {
	group, _ := r.pool.Group(ctx)
	for _, entry := range entries {
		if err := memberName(entry.Name); err != nil {
			_ = group.Wait()
			return err
		}
		group.Run(func(ctx context.Context) error {
			return r.restoreEntry(ctx, entry, filepath.Join(path, entry.Name))
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *restorer) restoreEntry(ctx context.Context, entry record.Entry, path string) error {
	if !entry.Readable() {
		if entry.Kind != record.KindUnknown {
			r.logger.Warn("skipping entry stored without content", "path", path, "kind", entry.Kind)
		}
		return nil
	}

	switch entry.Kind {
	case record.KindDirectory:
		entries, _, err := ReadDirectory(ctx, r.reader, entry.Hash)
		if err != nil {
			return err
		}
		if err := os.Mkdir(path, 0o700); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		r.directories.Add(1)
		if err := r.restoreMembers(ctx, entries, path); err != nil {
			return err
		}
	case record.KindFile:
		if err := r.restoreFile(ctx, entry.Hash, path); err != nil {
			return err
		}
	case record.KindLink:
		if err := r.restoreLink(ctx, entry.Hash, path); err != nil {
			return err
		}
	default:
		return nil
	}
	return r.applyMetadata(entry, path)
}

func (r *restorer) restoreFile(ctx context.Context, hash blob.Hash, path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	writer := bufio.NewWriterSize(file, 1<<20)
	length, err := ReadFile(ctx, r.reader, hash, writer)
	if err == nil {
		err = writer.Flush()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("restore: writing %s: %w", path, err)
	}
	r.files.Add(1)
	r.length.Add(length)
	return nil
}

func (r *restorer) restoreLink(ctx context.Context, hash blob.Hash, path string) error {
	target, err := ReadLink(ctx, r.reader, hash)
	if err != nil {
		return err
	}
	if err := os.Symlink(target, path); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	r.links.Add(1)
	r.length.Add(int64(len(target)))
	return nil
}

// applyMetadata sets ownership, permissions, and mtime. Links only get
// ownership. Directories are handled after their members, so writing
// members does not disturb the restored mtime.
func (r *restorer) applyMetadata(entry record.Entry, path string) error {
	if entry.Flags&record.FlagStated == 0 {
		return nil
	}
	if r.chown {
		if err := os.Lchown(path, int(entry.UID), int(entry.GID)); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	if entry.Kind == record.KindLink {
		return nil
	}
	if err := os.Chmod(path, fileMode(entry.Mode)); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	mtime := time.UnixMilli(entry.Mtime)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

// makeParents creates the directories between destination and the
// relative path name. Every existing component must be a real
// directory: a link restored by an earlier entry would otherwise
// carry later entries outside destination.
func makeParents(destination, name string) error {
	parent := filepath.Dir(name)
	if parent == "." {
		return nil
	}
	path := destination
	for _, component := range strings.Split(parent, string(filepath.Separator)) {
		path = filepath.Join(path, component)
		info, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.Mkdir(path, 0o755); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %q passes through %s, which is not a directory", ErrUnsafeName, name, path)
		}
	}
	return nil
}

func fileMode(mode uint32) fs.FileMode {
	result := fs.FileMode(mode & 0o777)
	if mode&0o4000 != 0 {
		result |= fs.ModeSetuid
	}
	if mode&0o2000 != 0 {
		result |= fs.ModeSetgid
	}
	if mode&0o1000 != 0 {
		result |= fs.ModeSticky
	}
	return result
}

// memberName accepts a single path component.
func memberName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return nil
}

// topLevelPath converts a snapshot entry name, a slash-separated
// absolute path without its leading slash, into a relative path.
func topLevelPath(name string) (string, error) {
	if name == "" {
		return ".", nil
	}
	if strings.HasPrefix(name, "/") || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	for _, component := range strings.Split(name, "/") {
		if component == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
		}
	}
	return filepath.FromSlash(name), nil
}
