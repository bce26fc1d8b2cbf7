// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statcache

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS stats (
	path  TEXT PRIMARY KEY,
	mtime INTEGER NOT NULL,
	mode  INTEGER NOT NULL,
	size  INTEGER NOT NULL,
	hash  BLOB NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS objects (
	key TEXT PRIMARY KEY
) WITHOUT ROWID;
`

// Stat is the cached state of one file.
type Stat struct {
	Path  string
	Mtime int64
	Mode  uint32
	Size  int64
	Hash  blob.Hash
}

// Matches reports whether the cached state equals the given
// filesystem state.
func (s Stat) Matches(mtime int64, mode uint32, size int64) bool {
	return s.Mtime == mtime && s.Mode == mode && s.Size == size
}

// Lister enumerates backend paths. backend.Backend satisfies it.
type Lister interface {
	List(ctx context.Context, prefix string, visit func(path string) error) error
}

// Options configures Open.
type Options struct {
	// Path is the database file. Its directory is created if missing.
	Path string

	Logger *slog.Logger
}

// Cache is a change cache. It is safe for concurrent use.
type Cache struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger

	// SQLite has one writer at a time. Serializing writers here
	// keeps them off the busy handler.
	writeMu sync.Mutex
}

// DatabasePath returns the cache file for a repository inside dir.
func DatabasePath(dir string, repositoryID []byte) string {
	return filepath.Join(dir, hex.EncodeToString(repositoryID)+".db")
}

// Open opens or creates the cache database.
func Open(options Options) (*Cache, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := ensureDirectory(options.Path); err != nil {
		return nil, err
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   options.Path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("statcache: %w", err)
	}
	return &Cache{pool: pool, logger: logger}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.pool.Close()
}

// Lookup returns the cached state of path.
func (c *Cache) Lookup(ctx context.Context, path string) (Stat, bool, error) {
	stat := Stat{Path: path}
	found := false
	err := c.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT mtime, mode, size, hash FROM stats WHERE path = ?",
			&sqlitex.ExecOptions{
				Args: []any{path},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					if stmt.ColumnLen(3) != blob.HashSize {
						return nil
					}
					stat.Mtime = stmt.ColumnInt64(0)
					stat.Mode = uint32(stmt.ColumnInt64(1))
					stat.Size = stmt.ColumnInt64(2)
					stmt.ColumnBytes(3, stat.Hash[:])
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return Stat{}, false, fmt.Errorf("statcache: looking up %s: %w", path, err)
	}
	return stat, found, nil
}

// Commit stores stats in a single transaction, replacing earlier rows
// for the same paths.
func (c *Cache) Commit(ctx context.Context, stats []Stat) error {
	if len(stats) == 0 {
		return nil
	}
	err := c.write(ctx, func(conn *sqlite.Conn) error {
		for _, stat := range stats {
			err := sqlitex.Execute(conn,
				"INSERT OR REPLACE INTO stats (path, mtime, mode, size, hash) VALUES (?, ?, ?, ?, ?)",
				&sqlitex.ExecOptions{
					Args: []any{stat.Path, stat.Mtime, int64(stat.Mode), stat.Size, stat.Hash[:]},
				})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("statcache: committing %d stats: %w", len(stats), err)
	}
	c.logger.Debug("stat cache committed", "entries", len(stats))
	return nil
}

// Known reports whether key was recorded as stored.
func (c *Cache) Known(ctx context.Context, key string) (bool, error) {
	known := false
	err := c.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT 1 FROM objects WHERE key = ?", &sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				known = true
				return nil
			},
		})
	})
	if err != nil {
		return false, fmt.Errorf("statcache: checking %s: %w", key, err)
	}
	return known, nil
}

// MarkKnown records key as stored.
func (c *Cache) MarkKnown(ctx context.Context, key string) error {
	err := c.write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "INSERT OR IGNORE INTO objects (key) VALUES (?)", &sqlitex.ExecOptions{
			Args: []any{key},
		})
	})
	if err != nil {
		return fmt.Errorf("statcache: marking %s: %w", key, err)
	}
	return nil
}

// Clear empties both tables.
func (c *Cache) Clear(ctx context.Context) error {
	err := c.write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, "DELETE FROM stats; DELETE FROM objects;", nil)
	})
	if err != nil {
		return fmt.Errorf("statcache: clearing: %w", err)
	}
	return nil
}

// Rebuild replaces the cache contents with the objects lister
// reports under prefix. Stats rows are dropped, since the objects they
// point at may no longer exist. It returns the number of objects
// recorded.
func (c *Cache) Rebuild(ctx context.Context, lister Lister, prefix string) (int, error) {
	count := 0
	err := c.write(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.ExecuteScript(conn, "DELETE FROM stats; DELETE FROM objects;", nil); err != nil {
			return err
		}
		return lister.List(ctx, prefix, func(path string) error {
			if !strings.HasPrefix(path, prefix) {
				return nil
			}
			count++
			return sqlitex.Execute(conn, "INSERT OR IGNORE INTO objects (key) VALUES (?)", &sqlitex.ExecOptions{
				Args: []any{path},
			})
		})
	})
	if err != nil {
		return 0, fmt.Errorf("statcache: rebuilding: %w", err)
	}
	c.logger.Info("stat cache rebuilt", "objects", count)
	return count, nil
}

// write runs fn inside an immediate transaction on a borrowed
// connection, holding the writer lock.
func (c *Cache) write(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.pool.With(ctx, func(conn *sqlite.Conn) (err error) {
		endFn, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return err
		}
		defer endFn(&err)
		return fn(conn)
	})
}

func ensureDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("statcache: Path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("statcache: creating cache directory: %w", err)
	}
	return nil
}
