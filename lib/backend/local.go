// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// tmpDir holds in-progress writes. It lives inside the root so the
// final hard link never crosses a filesystem boundary.
const tmpDir = ".tmp"

// LocalOptions configures a Local backend.
type LocalOptions struct {
	// Threads overrides the concurrency hint. Zero means
	// max(NumCPU, 4).
	Threads int

	// Sync fsyncs every object before publishing it.
	Sync bool

	// Logger receives warnings about leftover temp files. Nil
	// discards them.
	Logger *slog.Logger
}

// Local stores objects as files below a root directory.
type Local struct {
	root    string
	threads int
	sync    bool
	logger  *slog.Logger
}

// NewLocal opens (creating if needed) a filesystem backend at root.
func NewLocal(root string, options LocalOptions) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("backend: local root is required")
	}
	absolute, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("backend: resolving %s: %w", root, err)
	}
	if err := os.MkdirAll(filepath.Join(absolute, tmpDir), 0o755); err != nil {
		return nil, fmt.Errorf("backend: creating %s: %w", absolute, err)
	}

	threads := options.Threads
	if threads <= 0 {
		threads = max(runtime.NumCPU(), 4)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Local{
		root:    absolute,
		threads: threads,
		sync:    options.Sync,
		logger:  logger,
	}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

func (l *Local) Threads() int { return l.threads }

func (l *Local) Close() error { return nil }

func (l *Local) Read(ctx context.Context, objectPath string) ([]byte, error) {
	if err := l.check(ctx, objectPath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.filePath(objectPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, objectPath)
	}
	if err != nil {
		return nil, fmt.Errorf("backend: reading %s: %w", objectPath, err)
	}
	return data, nil
}

func (l *Local) Write(ctx context.Context, objectPath string, produce Producer) (int64, error) {
	if err := l.check(ctx, objectPath); err != nil {
		return 0, err
	}
	finalPath := l.filePath(objectPath)
	if _, err := os.Lstat(finalPath); err == nil {
		return 0, fmt.Errorf("%w: %s", ErrExists, objectPath)
	}

	tmpFile, err := os.CreateTemp(filepath.Join(l.root, tmpDir), "object-*")
	if err != nil {
		return 0, fmt.Errorf("backend: creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	// The published object is a second link, so the temp name is
	// removed on every path.
	defer os.Remove(tmpPath)

	var written int64
	err = produce(func(data []byte) error {
		n, err := tmpFile.Write(data)
		written += int64(n)
		return err
	})
	if err != nil {
		tmpFile.Close()
		return 0, fmt.Errorf("backend: writing %s: %w", objectPath, err)
	}
	if l.sync {
		if err := tmpFile.Sync(); err != nil {
			tmpFile.Close()
			return 0, fmt.Errorf("backend: syncing %s: %w", objectPath, err)
		}
	}
	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("backend: closing temp file for %s: %w", objectPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return 0, fmt.Errorf("backend: creating directory for %s: %w", objectPath, err)
	}
	if err := os.Link(tmpPath, finalPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, fmt.Errorf("%w: %s", ErrExists, objectPath)
		}
		return 0, fmt.Errorf("backend: publishing %s: %w", objectPath, err)
	}
	return written, nil
}

func (l *Local) Delete(ctx context.Context, objectPath string) error {
	if err := l.check(ctx, objectPath); err != nil {
		return err
	}
	err := os.Remove(l.filePath(objectPath))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, objectPath)
	}
	if err != nil {
		return fmt.Errorf("backend: deleting %s: %w", objectPath, err)
	}
	return nil
}

func (l *Local) List(ctx context.Context, prefix string, visit func(string) error) error {
	// Walk the deepest directory that fully contains the prefix.
	start := prefix
	if !strings.HasSuffix(start, "/") {
		start = path.Dir(start)
	}
	start = strings.TrimSuffix(start, "/")
	if start == "." {
		start = ""
	}

	walkRoot := filepath.Join(l.root, filepath.FromSlash(start))
	err := filepath.WalkDir(walkRoot, func(current string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && current == walkRoot {
				return filepath.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if current == filepath.Join(l.root, tmpDir) {
				return filepath.SkipDir
			}
			return nil
		}
		relative, err := filepath.Rel(l.root, current)
		if err != nil {
			return err
		}
		relative = filepath.ToSlash(relative)
		if !strings.HasPrefix(relative, prefix) {
			return nil
		}
		return visit(relative)
	})
	if err != nil {
		return fmt.Errorf("backend: listing %q: %w", prefix, err)
	}
	return nil
}

func (l *Local) Test(ctx context.Context, objectPath string) (bool, error) {
	if err := l.check(ctx, objectPath); err != nil {
		return false, err
	}
	_, err := os.Lstat(l.filePath(objectPath))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("backend: testing %s: %w", objectPath, err)
	}
	return true, nil
}

// CreateDirectory creates a directory (and its parents) under the root.
func (l *Local) CreateDirectory(ctx context.Context, directory string) error {
	if err := l.check(ctx, directory); err != nil {
		return err
	}
	if err := os.MkdirAll(l.filePath(directory), 0o755); err != nil {
		return fmt.Errorf("backend: creating directory %s: %w", directory, err)
	}
	return nil
}

// DeleteDirectory removes an empty directory under the root.
func (l *Local) DeleteDirectory(ctx context.Context, directory string) error {
	if err := l.check(ctx, directory); err != nil {
		return err
	}
	err := os.Remove(l.filePath(directory))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, directory)
	}
	if err != nil {
		return fmt.Errorf("backend: deleting directory %s: %w", directory, err)
	}
	return nil
}

// CleanTemp removes temp files left behind by interrupted writes and
// returns how many it removed.
func (l *Local) CleanTemp() (int, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, tmpDir))
	if err != nil {
		return 0, fmt.Errorf("backend: reading temp directory: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if err := os.Remove(filepath.Join(l.root, tmpDir, entry.Name())); err != nil {
			l.logger.Warn("cannot remove leftover temp file", "name", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (l *Local) check(ctx context.Context, objectPath string) error {
	if err := check(ctx, objectPath); err != nil {
		return err
	}
	if objectPath == tmpDir || strings.HasPrefix(objectPath, tmpDir+"/") {
		return &PathError{Path: objectPath, Reason: "reserved for in-progress writes"}
	}
	return nil
}

func (l *Local) filePath(objectPath string) string {
	return filepath.Join(l.root, filepath.FromSlash(objectPath))
}
