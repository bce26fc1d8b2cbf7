// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/coffer/lib/keyring"
	"github.com/bureau-foundation/coffer/lib/repository"
	"github.com/bureau-foundation/coffer/lib/testutil"
)

// harness runs commands against a local repository configured in a
// temporary directory, capturing stdout.
type harness struct {
	t          *testing.T
	configPath string
	output     bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "coffer.yaml")
	content := fmt.Sprintf(`repository: %s
username: alice
cache_dir: %s
work_factor: 10
threads: 2
chunking:
  average: 4096
  min: 1024
  max: 16384
`, filepath.Join(dir, "repo"), filepath.Join(dir, "cache"))
	testutil.WriteFile(t, configPath, []byte(content))
	t.Setenv("COFFER_CONFIG", configPath)
	t.Setenv(PasswordEnvironment, "")
	t.Setenv(WritePasswordEnvironment, "")
	t.Setenv(NewPasswordEnvironment, "")

	h := &harness{t: t, configPath: configPath}
	saved := stdout
	stdout = &h.output
	t.Cleanup(func() { stdout = saved })
	return h
}

// run executes one command line with password in COFFER_PASSWORD and
// returns what it printed.
func (h *harness) run(password string, args ...string) (string, error) {
	h.t.Helper()
	h.t.Setenv(PasswordEnvironment, password)
	h.output.Reset()
	err := Root().Execute(context.Background(), args)
	return h.output.String(), err
}

func (h *harness) mustRun(password string, args ...string) string {
	h.t.Helper()
	output, err := h.run(password, args...)
	if err != nil {
		h.t.Fatalf("coffer %s: %v", strings.Join(args, " "), err)
	}
	return output
}

func TestBackupLifecycle(t *testing.T) {
	h := newHarness(t)
	t.Setenv(WritePasswordEnvironment, "write-secret")

	id := strings.TrimSpace(h.mustRun("full-secret", "init"))
	if len(id) != 2*repository.IDSize {
		t.Fatalf("init printed %q, want a repository ID", id)
	}
	if _, err := h.run("full-secret", "init"); !errors.Is(err, repository.ErrNotEmpty) {
		t.Fatalf("second init error = %v, want ErrNotEmpty", err)
	}

	source := t.TempDir()
	testutil.WriteTree(t, source, map[string]string{
		"report.txt":    "quarterly numbers",
		"photos/a.raw":  string(testutil.RandomBytes(4, 50_000)),
		"photos/b.raw":  string(testutil.RandomBytes(5, 20_000)),
		"photos/latest": "->a.raw",
	})

	// Backups need only the write-only password.
	hash := strings.TrimSpace(h.mustRun("write-secret", "put", "--name", "first", source))
	if len(hash) != 64 {
		t.Fatalf("put printed %q, want a hash", hash)
	}
	if _, err := h.run("write-secret", "snapshots"); !errors.Is(err, keyring.ErrPermissionDenied) {
		t.Errorf("snapshots with write-only password error = %v, want ErrPermissionDenied", err)
	}

	var rows []snapshotRow
	if err := json.Unmarshal([]byte(h.mustRun("full-secret", "snapshots", "--json")), &rows); err != nil {
		t.Fatalf("decoding snapshots: %v", err)
	}
	if len(rows) != 1 || rows[0].Hash != hash || rows[0].Name != "first" {
		t.Fatalf("snapshots = %+v, want one snapshot %s named first", rows, hash)
	}
	if rows[0].Length < int64(len("quarterly numbers")+50_000+20_000) {
		t.Errorf("snapshot length = %d, want at least the file bytes", rows[0].Length)
	}

	destination := filepath.Join(t.TempDir(), "restore")
	h.mustRun("full-secret", "restore", "latest", destination)
	restored := filepath.Join(destination, source[1:])
	got, err := os.ReadFile(filepath.Join(restored, "report.txt"))
	if err != nil || string(got) != "quarterly numbers" {
		t.Errorf("restored report.txt = (%q, %v)", got, err)
	}
	if target, err := os.Readlink(filepath.Join(restored, "photos", "latest")); err != nil || target != "a.raw" {
		t.Errorf("restored link = (%q, %v), want a.raw", target, err)
	}

	rebuilt := h.mustRun("full-secret", "cache", "rebuild")
	if !strings.HasSuffix(strings.TrimSpace(rebuilt), "objects indexed") {
		t.Errorf("cache rebuild printed %q", rebuilt)
	}
}

func TestRestoreByHash(t *testing.T) {
	h := newHarness(t)
	h.mustRun("full-secret", "init")

	path := filepath.Join(t.TempDir(), "single")
	testutil.WriteFile(t, path, []byte("just one file"))
	hash := strings.TrimSpace(h.mustRun("full-secret", "put", "--raw", path))

	destination := filepath.Join(t.TempDir(), "copy")
	h.mustRun("full-secret", "restore", hash, destination)
	got, err := os.ReadFile(destination)
	if err != nil || string(got) != "just one file" {
		t.Errorf("restored file = (%q, %v)", got, err)
	}

	if _, err := h.run("full-secret", "restore", "not-a-hash", destination); err == nil {
		t.Error("restore with a malformed hash succeeded")
	}
}

func TestUsers(t *testing.T) {
	h := newHarness(t)
	h.mustRun("full-secret", "init")

	t.Setenv(WritePasswordEnvironment, "bob-write")
	h.mustRun("full-secret", "user", "add", "--write-only", "bob")

	var users []keyring.User
	if err := json.Unmarshal([]byte(h.mustRun("full-secret", "user", "list", "--json")), &users); err != nil {
		t.Fatalf("decoding users: %v", err)
	}
	if len(users) != 2 || users[0].Name != "alice" || users[1].Name != "bob" {
		t.Fatalf("users = %+v, want alice and bob", users)
	}
	if users[1].Full || !users[1].Write {
		t.Errorf("bob = %+v, want write-only", users[1])
	}

	// bob can authenticate with the new password.
	configPath := h.configPath
	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	testutil.WriteFile(t, configPath, bytes.Replace(content, []byte("username: alice"), []byte("username: bob"), 1))
	source := t.TempDir()
	testutil.WriteFile(t, filepath.Join(source, "f"), []byte("bob's data"))
	h.mustRun("bob-write", "put", source)
	testutil.WriteFile(t, configPath, content)

	h.mustRun("full-secret", "user", "delete", "bob")
	if err := json.Unmarshal([]byte(h.mustRun("full-secret", "user", "list", "--json")), &users); err != nil {
		t.Fatalf("decoding users: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("users after delete = %+v, want only alice", users)
	}
}

func TestWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.mustRun("full-secret", "init")
	if _, err := h.run("guess", "snapshots"); !errors.Is(err, keyring.ErrAuthentication) {
		t.Fatalf("snapshots error = %v, want ErrAuthentication", err)
	}
}

func TestPutRequiresPaths(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("full-secret", "put"); err == nil {
		t.Fatal("put without paths succeeded")
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	if output := h.mustRun("", "version"); !strings.HasPrefix(output, "coffer ") {
		t.Errorf("version printed %q", output)
	}
}
