// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/coffer/lib/splitter"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "coffer.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Parameters() != splitter.DefaultParameters() {
		t.Errorf("expected default chunking %+v, got %+v", splitter.DefaultParameters(), cfg.Parameters())
	}
	if cfg.WorkFactor != 18 {
		t.Errorf("expected work_factor=18, got %d", cfg.WorkFactor)
	}
	if cfg.Repository != "" {
		t.Errorf("expected no default repository, got %s", cfg.Repository)
	}
}

func TestLoad_RequiresCofferConfig(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when COFFER_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "COFFER_CONFIG environment variable not set") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestLoad_WithCofferConfig(t *testing.T) {
	configPath := writeConfig(t, `
repository: /srv/backup
username: alice
`)
	t.Setenv(EnvironmentVariable, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Repository != "/srv/backup" {
		t.Errorf("expected repository=/srv/backup, got %s", cfg.Repository)
	}
	if cfg.Username != "alice" {
		t.Errorf("expected username=alice, got %s", cfg.Username)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, `
repository: badger:///var/lib/coffer.db
username: backup
cache_dir: /var/cache/coffer
threads: 12
sync: true
follow_symlinks: true
work_factor: 15
chunking:
  average: 65536
  min: 32768
  max: 262144
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	want := splitter.Parameters{Average: 65536, Min: 32768, Max: 262144}
	if cfg.Parameters() != want {
		t.Errorf("expected chunking %+v, got %+v", want, cfg.Parameters())
	}
	if cfg.CacheDir != "/var/cache/coffer" {
		t.Errorf("expected cache_dir=/var/cache/coffer, got %s", cfg.CacheDir)
	}
	if !cfg.Sync || !cfg.FollowSymlinks {
		t.Error("expected sync and follow_symlinks to be set")
	}

	backendConfig := cfg.Backend(nil)
	if backendConfig.URL != "badger:///var/lib/coffer.db" || backendConfig.Threads != 12 || !backendConfig.Sync {
		t.Errorf("unexpected backend config %+v", backendConfig)
	}
}

func TestLoadFile_PartialChunkingKeepsDefaults(t *testing.T) {
	configPath := writeConfig(t, `
chunking:
  max: 16777216
`)
	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	defaults := splitter.DefaultParameters()
	if cfg.Chunking.Average != defaults.Average || cfg.Chunking.Min != defaults.Min {
		t.Errorf("expected default average and min, got %+v", cfg.Chunking)
	}
	if cfg.Chunking.Max != 16777216 {
		t.Errorf("expected max=16777216, got %d", cfg.Chunking.Max)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	configPath := writeConfig(t, "repository: [unterminated\n")
	if _, err := LoadFile(configPath); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestLoadFile_ExpandsPaths(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("COFFER_CACHE", "")
	configPath := writeConfig(t, `
repository: ${HOME}/backup
cache_dir: ${COFFER_CACHE:-/tmp/coffer-cache}
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Repository != "/home/tester/backup" {
		t.Errorf("expected repository=/home/tester/backup, got %s", cfg.Repository)
	}
	if cfg.CacheDir != "/tmp/coffer-cache" {
		t.Errorf("expected cache_dir=/tmp/coffer-cache, got %s", cfg.CacheDir)
	}
}

func TestDefaultCacheDirExpandsHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	cfg, err := LoadFile(writeConfig(t, "username: alice\n"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.CacheDir != "/home/tester/.cache/coffer" {
		t.Errorf("expected cache_dir=/home/tester/.cache/coffer, got %s", cfg.CacheDir)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/coffer",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/coffer",
		},
		{
			input:    "${COFFER_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Repository = "/srv/backup"
		cfg.Username = "alice"
		return cfg
	}
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing repository",
			modify:  func(c *Config) { c.Repository = "" },
			wantErr: true,
		},
		{
			name:    "missing username",
			modify:  func(c *Config) { c.Username = "" },
			wantErr: true,
		},
		{
			name:    "negative threads",
			modify:  func(c *Config) { c.Threads = -1 },
			wantErr: true,
		},
		{
			name:    "work factor too low",
			modify:  func(c *Config) { c.WorkFactor = 4 },
			wantErr: true,
		},
		{
			name:    "min above average",
			modify:  func(c *Config) { c.Chunking.Min = c.Chunking.Average + 1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsurePaths(t *testing.T) {
	cfg := Default()
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache", "coffer")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}
	info, err := os.Stat(cfg.CacheDir)
	if err != nil {
		t.Fatalf("cache dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("path %s is not a directory", cfg.CacheDir)
	}
}
