// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package put

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/bureau-foundation/coffer/lib/async"
	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/clock"
	"github.com/bureau-foundation/coffer/lib/splitter"
	"github.com/bureau-foundation/coffer/lib/statcache"
)

// DefaultBigBuffers is how many files may read through a large
// buffer at once.
const DefaultBigBuffers = 4

// Store is where objects go. *object.Codec implements it.
type Store interface {
	Hasher() *blob.Hasher
	WriteBlob(ctx context.Context, hash blob.Hash, t blob.Type, plaintext []byte) (int64, error)
	WriteTag(ctx context.Context, hash blob.Hash) (int64, error)
}

// Cache is the change cache. *statcache.Cache implements it.
type Cache interface {
	Lookup(ctx context.Context, path string) (statcache.Stat, bool, error)
	Commit(ctx context.Context, stats []statcache.Stat) error
}

// Options configures a Context.
type Options struct {
	Store Store

	// Cache is optional.
	Cache Cache

	// Threads sizes each of the directory and file pools. Zero means
	// one per CPU.
	Threads int

	// Parameters defaults to splitter.DefaultParameters().
	Parameters splitter.Parameters

	// BigBuffers defaults to DefaultBigBuffers.
	BigBuffers int

	// FollowSymlinks stores link targets as if they were the linked
	// files and directories.
	FollowSymlinks bool

	Clock  clock.Clock
	Logger *slog.Logger
}

// Context is the state of one backup run. It is safe to call its
// Put methods from several goroutines.
type Context struct {
	store      Store
	cache      Cache
	hasher     *blob.Hasher
	parameters splitter.Parameters
	splitSalt  uint64
	follow     bool
	clock      clock.Clock
	logger     *slog.Logger

	directories *async.Pool
	files       *async.Pool
	bigBuffers  *semaphore.Weighted

	length  atomic.Int64
	written atomic.Int64

	statsMu sync.Mutex
	stats   []statcache.Stat
}

// NewContext returns a Context for one run.
func NewContext(options Options) (*Context, error) {
	if options.Store == nil {
		return nil, fmt.Errorf("put: Store is required")
	}
	parameters := options.Parameters
	if parameters == (splitter.Parameters{}) {
		parameters = splitter.DefaultParameters()
	}
	if err := parameters.Validate(); err != nil {
		return nil, err
	}
	bigBuffers := options.BigBuffers
	if bigBuffers <= 0 {
		bigBuffers = DefaultBigBuffers
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	hasher := options.Store.Hasher()

	return &Context{
		store:       options.Store,
		cache:       options.Cache,
		hasher:      hasher,
		parameters:  parameters,
		splitSalt:   splitter.Salt(hasher.Salt()),
		follow:      options.FollowSymlinks,
		clock:       clock.OrReal(options.Clock),
		logger:      logger,
		directories: async.NewPool(options.Threads),
		files:       async.NewPool(options.Threads),
		bigBuffers:  semaphore.NewWeighted(int64(bigBuffers)),
	}, nil
}

// Length returns the logical number of bytes stored so far: file
// contents, link targets, and directory listings.
func (c *Context) Length() int64 { return c.length.Load() }

// Written returns the number of bytes written to the backend so far.
// Objects that already existed count zero.
func (c *Context) Written() int64 { return c.written.Load() }

// CommitCache writes the cache rows gathered by successful Put calls
// in one transaction. Callers log a failure and carry on.
func (c *Context) CommitCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	c.statsMu.Lock()
	stats := c.stats
	c.stats = nil
	c.statsMu.Unlock()
	return c.cache.Commit(ctx, stats)
}

func (c *Context) writeBlob(ctx context.Context, t blob.Type, payload []byte) (blob.Hash, error) {
	hash := c.hasher.Sum(t, payload)
	written, err := c.store.WriteBlob(ctx, hash, t, payload)
	if err != nil {
		return blob.Hash{}, err
	}
	c.written.Add(written)
	return hash, nil
}

func (c *Context) recordStat(stat statcache.Stat) {
	if c.cache == nil {
		return
	}
	c.statsMu.Lock()
	c.stats = append(c.stats, stat)
	c.statsMu.Unlock()
}

// cached returns the cached hash of path when its state is unchanged.
func (c *Context) cached(ctx context.Context, path string, info fileInfo) (blob.Hash, bool) {
	if c.cache == nil {
		return blob.Hash{}, false
	}
	stat, found, err := c.cache.Lookup(ctx, path)
	if err != nil {
		c.logger.Warn("change cache lookup failed", "path", path, "error", err)
		return blob.Hash{}, false
	}
	if !found || !stat.Matches(info.mtime, info.mode, info.size) {
		return blob.Hash{}, false
	}
	return stat.Hash, true
}

// storeFile stores a regular file, reusing the cached hash when the
// file is unchanged, and returns its hash and length.
func (c *Context) storeFile(ctx context.Context, path string, info fileInfo) (blob.Hash, int64, error) {
	hash, ok := c.cached(ctx, path, info)
	length := info.size
	if ok {
		c.length.Add(length)
	} else {
		var err error
		hash, length, err = c.PutFile(ctx, path)
		if err != nil {
			return blob.Hash{}, 0, err
		}
		if length != info.size {
			// Changed while being read; let the next run look again.
			return hash, length, nil
		}
	}
	c.recordStat(statcache.Stat{
		Path:  path,
		Mtime: info.mtime,
		Mode:  info.mode,
		Size:  info.size,
		Hash:  hash,
	})
	return hash, length, nil
}
