// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// badgerConflictRetries bounds how often a write transaction is
// retried after an optimistic concurrency conflict.
const badgerConflictRetries = 8

// BadgerOptions configures a Badger backend.
type BadgerOptions struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the whole database in RAM.
	InMemory bool

	// Threads overrides the concurrency hint. Zero means NumCPU.
	Threads int

	// Logger receives Badger's internal log output at matching
	// levels. Nil silences Badger.
	Logger *slog.Logger
}

// Badger stores objects as keys in a Badger database.
type Badger struct {
	db      *badger.DB
	threads int
}

// NewBadger opens a Badger backend.
func NewBadger(options BadgerOptions) (*Badger, error) {
	var badgerOptions badger.Options
	if options.InMemory {
		badgerOptions = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if options.Path == "" {
			return nil, fmt.Errorf("backend: badger path is required")
		}
		badgerOptions = badger.DefaultOptions(options.Path)
	}
	badgerOptions.Logger = nil
	if options.Logger != nil {
		badgerOptions.Logger = badgerLogger{options.Logger}
	}

	db, err := badger.Open(badgerOptions)
	if err != nil {
		return nil, fmt.Errorf("backend: opening badger database: %w", err)
	}

	threads := options.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return &Badger{db: db, threads: threads}, nil
}

func (b *Badger) Threads() int { return b.threads }

func (b *Badger) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("backend: closing badger database: %w", err)
	}
	return nil
}

func (b *Badger) Read(ctx context.Context, path string) ([]byte, error) {
	if err := check(ctx, path); err != nil {
		return nil, err
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("backend: reading %s: %w", path, err)
	}
	return data, nil
}

func (b *Badger) Write(ctx context.Context, path string, produce Producer) (int64, error) {
	if err := check(ctx, path); err != nil {
		return 0, err
	}

	var content bytes.Buffer
	err := produce(func(data []byte) error {
		_, err := content.Write(data)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("backend: writing %s: %w", path, err)
	}

	key := []byte(path)
	for range badgerConflictRetries {
		err = b.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				return ErrExists
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			return txn.Set(key, content.Bytes())
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if errors.Is(err, ErrExists) {
		return 0, fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err != nil {
		return 0, fmt.Errorf("backend: writing %s: %w", path, err)
	}
	return int64(content.Len()), nil
}

func (b *Badger) Delete(ctx context.Context, path string) error {
	if err := check(ctx, path); err != nil {
		return err
	}
	key := []byte(path)
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("backend: deleting %s: %w", path, err)
	}
	return nil
}

func (b *Badger) List(ctx context.Context, prefix string, visit func(string) error) error {
	// Keys are collected first so visit never runs inside a read
	// transaction.
	var paths []string
	err := b.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = []byte(prefix)
		iterator := txn.NewIterator(options)
		defer iterator.Close()

		for iterator.Seek(options.Prefix); iterator.ValidForPrefix(options.Prefix); iterator.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			paths = append(paths, string(iterator.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("backend: listing %q: %w", prefix, err)
	}
	for _, path := range paths {
		if err := visit(path); err != nil {
			return err
		}
	}
	return nil
}

func (b *Badger) Test(ctx context.Context, path string) (bool, error) {
	if err := check(ctx, path); err != nil {
		return false, err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(path))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("backend: testing %s: %w", path, err)
	}
	return true, nil
}

// badgerLogger routes Badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func check(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return validatePath(path)
}
