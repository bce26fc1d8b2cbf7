// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/splitter"
)

// EnvironmentVariable names the config file for Load.
const EnvironmentVariable = "COFFER_CONFIG"

// Config is the Coffer client configuration.
type Config struct {
	// Repository is the backend URL: a directory path, file://,
	// badger://, or memory:.
	Repository string `yaml:"repository"`

	// Username selects the key files in the repository.
	Username string `yaml:"username"`

	// CacheDir holds one change cache database per repository.
	// Empty disables the cache.
	CacheDir string `yaml:"cache_dir"`

	// Threads overrides the backend's concurrency hint. Zero keeps
	// the hint.
	Threads int `yaml:"threads"`

	// Sync fsyncs every object written to a local repository.
	Sync bool `yaml:"sync"`

	// FollowSymlinks backs up link targets instead of links.
	FollowSymlinks bool `yaml:"follow_symlinks"`

	// WorkFactor is the scrypt work factor for new key files and the
	// cap accepted when opening existing ones.
	WorkFactor int `yaml:"work_factor"`

	// Chunking bounds content-defined chunk sizes.
	Chunking ChunkingConfig `yaml:"chunking"`
}

// ChunkingConfig holds splitter sizes in bytes.
type ChunkingConfig struct {
	Average int `yaml:"average"`
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
}

// Default returns the configuration every file is merged over.
func Default() *Config {
	defaults := splitter.DefaultParameters()
	return &Config{
		CacheDir:   filepath.Join("${HOME}", ".cache", "coffer"),
		WorkFactor: 18,
		Chunking: ChunkingConfig{
			Average: defaults.Average,
			Min:     defaults.Min,
			Max:     defaults.Max,
		},
	}
}

// Load loads configuration from the file named by COFFER_CONFIG.
// There is no fallback when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your coffer.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path and
// expands variables in its path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":         os.Getenv("HOME"),
		"COFFER_CACHE": os.Getenv("COFFER_CACHE"),
	}
	c.Repository = expandVars(c.Repository, vars)
	c.CacheDir = expandVars(c.CacheDir, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Repository == "" {
		errs = append(errs, fmt.Errorf("repository is required"))
	}
	if c.Username == "" {
		errs = append(errs, fmt.Errorf("username is required"))
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads must not be negative, got %d", c.Threads))
	}
	if c.WorkFactor < 10 || c.WorkFactor > 30 {
		errs = append(errs, fmt.Errorf("work_factor must be between 10 and 30, got %d", c.WorkFactor))
	}
	if err := c.Parameters().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chunking: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Parameters returns the chunking sizes as splitter parameters.
func (c *Config) Parameters() splitter.Parameters {
	return splitter.Parameters{
		Average: c.Chunking.Average,
		Min:     c.Chunking.Min,
		Max:     c.Chunking.Max,
	}
}

// Backend returns the backend configuration for the repository.
func (c *Config) Backend(logger *slog.Logger) backend.Config {
	return backend.Config{
		URL:     c.Repository,
		Threads: c.Threads,
		Sync:    c.Sync,
		Logger:  logger,
	}
}

// EnsurePaths creates the cache directory if it is configured.
func (c *Config) EnsurePaths() error {
	if c.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.CacheDir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.CacheDir, err)
	}
	return nil
}
