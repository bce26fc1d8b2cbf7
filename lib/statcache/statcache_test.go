// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/blob"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open(Options{Path: filepath.Join(t.TempDir(), "cache", "repo.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := cache.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return cache
}

func TestLookupAndCommit(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if _, found, err := cache.Lookup(ctx, "/data/a"); err != nil || found {
		t.Fatalf("Lookup on empty cache = (%v, %v), want miss", found, err)
	}

	stats := []Stat{
		{Path: "/data/a", Mtime: 1_700_000_000_123, Mode: 0o644, Size: 10, Hash: blob.Hash{1}},
		{Path: "/data/b", Mtime: 5, Mode: 0o4755, Size: 1 << 40, Hash: blob.Hash{2}},
	}
	if err := cache.Commit(ctx, stats); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	for _, want := range stats {
		got, found, err := cache.Lookup(ctx, want.Path)
		if err != nil || !found {
			t.Fatalf("Lookup(%s) = (%v, %v), want hit", want.Path, found, err)
		}
		if got != want {
			t.Errorf("Lookup(%s) = %+v, want %+v", want.Path, got, want)
		}
		if !got.Matches(want.Mtime, want.Mode, want.Size) {
			t.Errorf("Matches(%s) = false", want.Path)
		}
	}

	updated := stats[0]
	updated.Mtime++
	updated.Hash = blob.Hash{3}
	if err := cache.Commit(ctx, []Stat{updated}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, _, _ := cache.Lookup(ctx, updated.Path)
	if got != updated {
		t.Errorf("after update, Lookup = %+v, want %+v", got, updated)
	}
	if got.Matches(stats[0].Mtime, stats[0].Mode, stats[0].Size) {
		t.Error("stale mtime matches")
	}
}

func TestKnownObjects(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	key := "blobs/ab/abcdef"

	if known, err := cache.Known(ctx, key); err != nil || known {
		t.Fatalf("Known = (%v, %v), want false", known, err)
	}
	for range 2 {
		if err := cache.MarkKnown(ctx, key); err != nil {
			t.Fatalf("MarkKnown: %v", err)
		}
	}
	if known, err := cache.Known(ctx, key); err != nil || !known {
		t.Fatalf("Known = (%v, %v), want true", known, err)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if known, _ := cache.Known(ctx, key); known {
		t.Error("Known after Clear")
	}
}

func TestRebuild(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	store := backend.NewMemory()
	for _, path := range []string{"blobs/00/00aa", "blobs/ff/ffbb", "tags/0011aabb"} {
		if _, err := backend.WriteBytes(ctx, store, path, []byte("x")); err != nil {
			t.Fatalf("WriteBytes: %v", err)
		}
	}
	if err := cache.MarkKnown(ctx, "blobs/11/11cc"); err != nil {
		t.Fatalf("MarkKnown: %v", err)
	}
	if err := cache.Commit(ctx, []Stat{{Path: "/x", Hash: blob.Hash{9}}}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	count, err := cache.Rebuild(ctx, store, "blobs/")
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if count != 2 {
		t.Errorf("Rebuild recorded %d objects, want 2", count)
	}
	for key, want := range map[string]bool{
		"blobs/00/00aa": true,
		"blobs/ff/ffbb": true,
		"blobs/11/11cc": false,
		"tags/0011aabb": false,
	} {
		if known, _ := cache.Known(ctx, key); known != want {
			t.Errorf("Known(%s) = %v, want %v", key, known, want)
		}
	}
	if _, found, _ := cache.Lookup(ctx, "/x"); found {
		t.Error("stats survived Rebuild")
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.db")
	ctx := context.Background()

	cache, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := cache.Commit(ctx, []Stat{{Path: "/kept", Size: 3, Hash: blob.Hash{4}}}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cache, err = Open(Options{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer cache.Close()
	stat, found, err := cache.Lookup(ctx, "/kept")
	if err != nil || !found || stat.Hash != (blob.Hash{4}) {
		t.Fatalf("Lookup after reopen = (%+v, %v, %v)", stat, found, err)
	}
}

func TestDatabasePath(t *testing.T) {
	got := DatabasePath("/var/cache/coffer", []byte{0xab, 0x01})
	if want := "/var/cache/coffer/ab01.db"; got != want {
		t.Errorf("DatabasePath = %q, want %q", got, want)
	}
}
