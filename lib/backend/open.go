// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config selects and configures a backend variant.
type Config struct {
	// URL names the backend:
	//
	//	/srv/backup or file:///srv/backup   local filesystem
	//	badger:///srv/backup.db              Badger database on disk
	//	memory:                              process memory
	URL string

	// Threads overrides the backend's concurrency hint.
	Threads int

	// Sync enables fsync on local filesystem writes.
	Sync bool

	Logger *slog.Logger
}

// Open constructs the backend variant named by config.URL.
func Open(config Config) (Backend, error) {
	location := config.URL
	switch {
	case location == "":
		return nil, fmt.Errorf("backend: URL is required")
	case location == "memory:":
		memory := NewMemory()
		if config.Threads > 0 {
			memory.threads = config.Threads
		}
		return memory, nil
	case strings.HasPrefix(location, "badger://"):
		return NewBadger(BadgerOptions{
			Path:    strings.TrimPrefix(location, "badger://"),
			Threads: config.Threads,
			Logger:  config.Logger,
		})
	case strings.HasPrefix(location, "file://"):
		location = strings.TrimPrefix(location, "file://")
	case strings.Contains(location, "://"):
		scheme, _, _ := strings.Cut(location, "://")
		return nil, fmt.Errorf("backend: unsupported scheme %q", scheme)
	}
	return NewLocal(location, LocalOptions{
		Threads: config.Threads,
		Sync:    config.Sync,
		Logger:  config.Logger,
	})
}
