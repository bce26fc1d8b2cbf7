// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/clock"
	"github.com/bureau-foundation/coffer/lib/keyring"
	"github.com/bureau-foundation/coffer/lib/put"
	"github.com/bureau-foundation/coffer/lib/restore"
	"github.com/bureau-foundation/coffer/lib/splitter"
	"github.com/bureau-foundation/coffer/lib/statcache"
	"github.com/bureau-foundation/coffer/lib/testutil"
)

const testWorkFactor = 10

func initLocal(t *testing.T) (string, [IDSize]byte) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repo")
	store, err := backend.NewLocal(root, backend.LocalOptions{})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	id, err := Init(context.Background(), store, InitOptions{
		Username:      "alice",
		FullPassword:  testutil.Password(t, "full"),
		WritePassword: testutil.Password(t, "write"),
		WorkFactor:    testWorkFactor,
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return root, id
}

func open(t *testing.T, root, password, cacheDir string) *Repository {
	t.Helper()
	store, err := backend.NewLocal(root, backend.LocalOptions{})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	repository, err := Open(context.Background(), Options{
		Backend:  store,
		Username: "alice",
		Password: testutil.Password(t, password),
		CacheDir: cacheDir,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { repository.Close() })
	return repository
}

func TestInitCreatesLayout(t *testing.T) {
	root, id := initLocal(t)
	if id == ([IDSize]byte{}) {
		t.Fatal("Init returned a zero ID")
	}
	for _, directory := range []string{"keys", "tags", "blobs/00", "blobs/7f", "blobs/ff"} {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(directory)))
		if err != nil || !info.IsDir() {
			t.Errorf("%s missing after Init: %v", directory, err)
		}
	}
	for _, file := range []string{"repository", "keys/alice/full", "keys/alice/write"} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(file))); err != nil {
			t.Errorf("%s missing after Init: %v", file, err)
		}
	}
}

func TestInitRefusesNonEmptyBackend(t *testing.T) {
	store := backend.NewMemory()
	if _, err := backend.WriteBytes(context.Background(), store, "stray", []byte("x")); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	_, err := Init(context.Background(), store, InitOptions{
		Username:     "alice",
		FullPassword: testutil.Password(t, "full"),
		WorkFactor:   testWorkFactor,
	})
	if !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("Init error = %v, want ErrNotEmpty", err)
	}
}

func TestInitRequiresPassword(t *testing.T) {
	_, err := Init(context.Background(), backend.NewMemory(), InitOptions{Username: "alice"})
	if err == nil {
		t.Fatal("Init without passwords succeeded")
	}
}

func TestOpenModes(t *testing.T) {
	root, id := initLocal(t)

	full := open(t, root, "full", "")
	if full.Mode() != keyring.Full {
		t.Errorf("mode = %s, want full", full.Mode())
	}
	if full.ID() != id {
		t.Errorf("ID = %x, want %x", full.ID(), id)
	}
	if full.Cache() != nil {
		t.Error("cache opened without a cache directory")
	}

	write := open(t, root, "write", "")
	if write.Mode() != keyring.WriteOnly {
		t.Errorf("mode = %s, want write-only", write.Mode())
	}
}

func TestOpenWrongPassword(t *testing.T) {
	root, _ := initLocal(t)
	store, err := backend.NewLocal(root, backend.LocalOptions{})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	_, err = Open(context.Background(), Options{
		Backend:  store,
		Username: "alice",
		Password: testutil.Password(t, "guess"),
	})
	if !errors.Is(err, keyring.ErrAuthentication) {
		t.Fatalf("Open error = %v, want ErrAuthentication", err)
	}
}

func TestOpenRequiresMetadata(t *testing.T) {
	_, err := Open(context.Background(), Options{
		Backend:  backend.NewMemory(),
		Username: "alice",
		Password: testutil.Password(t, "full"),
	})
	if !errors.Is(err, ErrNotRepository) {
		t.Fatalf("Open error = %v, want ErrNotRepository", err)
	}
}

func TestBackupAndRestore(t *testing.T) {
	root, id := initLocal(t)
	cacheDir := t.TempDir()
	source := t.TempDir()
	testutil.WriteTree(t, source, map[string]string{
		"notes.txt":   "remember the milk",
		"data/blob":   string(testutil.RandomBytes(1, 5000)),
		"data/empty/": "",
	})

	writer := open(t, root, "write", cacheDir)
	if writer.Cache() == nil {
		t.Fatal("cache not opened")
	}
	if _, err := os.Stat(statcache.DatabasePath(cacheDir, id[:])); err != nil {
		t.Errorf("cache database missing: %v", err)
	}
	options := writer.PutOptions(splitter.Parameters{Average: 512, Min: 256, Max: 2048}, 2,
		clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	result, err := put.Put(context.Background(), options, put.Settings{Name: "daily"}, []string{source})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	reader := open(t, root, "full", cacheDir)
	snapshots, err := restore.ListSnapshots(context.Background(), reader.Codec())
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].Hash != result.Hash || snapshots[0].Header.Name != "daily" {
		t.Fatalf("snapshots = %+v, want the one just written", snapshots)
	}

	destination := t.TempDir()
	if _, err := restore.Restore(context.Background(), reader.Codec(), result.Hash, destination, restore.Options{}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(destination, source[1:], "notes.txt"))
	if err != nil || string(got) != "remember the milk" {
		t.Errorf("restored notes.txt = (%q, %v)", got, err)
	}
}

func TestRebuildCache(t *testing.T) {
	root, _ := initLocal(t)
	source := t.TempDir()
	testutil.WriteTree(t, source, map[string]string{"a": "alpha", "b": "beta"})

	repository := open(t, root, "full", t.TempDir())
	options := repository.PutOptions(splitter.DefaultParameters(), 0, nil)
	if _, err := put.Put(context.Background(), options, put.Settings{}, []string{source}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	count, err := repository.RebuildCache(context.Background())
	if err != nil {
		t.Fatalf("RebuildCache: %v", err)
	}
	// Two chunks, one directory, one snapshot.
	if count != 4 {
		t.Errorf("RebuildCache = %d objects, want 4", count)
	}
	entries, err := os.ReadDir(filepath.Join(root, "blobs"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 256 {
		t.Errorf("%d blob directories, want 256", len(entries))
	}
}
