// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Read and Delete for missing paths.
	ErrNotFound = errors.New("backend: not found")

	// ErrExists is returned by Write when the path already exists.
	ErrExists = errors.New("backend: already exists")
)

// Producer streams the content of an object into write. The backend
// calls it exactly once per Write. Any error it returns aborts the
// write and nothing is published.
type Producer func(write func([]byte) error) error

// Backend is a durable store of immutable byte strings keyed by
// slash-separated relative paths.
type Backend interface {
	// Read returns the full content stored at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write atomically creates path with the bytes produced by
	// produce and returns the number of bytes stored. If path
	// already exists, Write returns ErrExists and leaves it intact.
	Write(ctx context.Context, path string, produce Producer) (int64, error)

	// Delete removes path.
	Delete(ctx context.Context, path string) error

	// List calls visit for every stored path beginning with prefix.
	// Order is backend-specific. An error from visit stops the
	// listing and is returned.
	List(ctx context.Context, prefix string, visit func(path string) error) error

	// Test reports whether path exists.
	Test(ctx context.Context, path string) (bool, error)

	// Threads is the number of concurrent operations the backend
	// serves well. Callers size their worker pools from it.
	Threads() int

	// Close releases resources held by the backend.
	Close() error
}

// Directories is implemented by backends whose namespace is a real
// directory tree.
type Directories interface {
	CreateDirectory(ctx context.Context, path string) error
	DeleteDirectory(ctx context.Context, path string) error
}

// Writer is the write half of a Backend.
type Writer interface {
	Write(ctx context.Context, path string, produce Producer) (int64, error)
}

// WriteBytes stores data at path. It is a convenience over Write for
// content that is already in memory.
func WriteBytes(ctx context.Context, writer Writer, path string, data []byte) (int64, error) {
	return writer.Write(ctx, path, func(write func([]byte) error) error {
		return write(data)
	})
}

// validatePath rejects paths that could escape a filesystem root or
// collide with backend bookkeeping.
func validatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return &PathError{Path: path, Reason: "must be a non-empty relative path"}
	}
	for _, element := range strings.Split(path, "/") {
		if element == "" || element == "." || element == ".." {
			return &PathError{Path: path, Reason: "contains an empty, . or .. element"}
		}
	}
	return nil
}

// PathError reports a path the backend refuses to store.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("backend: invalid path %q: %s", e.Path, e.Reason)
}
