// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/coffer/cmd/coffer/cli"
	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/config"
	"github.com/bureau-foundation/coffer/lib/repository"
)

// PasswordEnvironment holds the session password for non-interactive
// runs.
const PasswordEnvironment = "COFFER_PASSWORD"

type configParams struct {
	ConfigPath string `flag:"config" desc:"path to coffer.yaml (default: $COFFER_CONFIG)"`
}

func (p *configParams) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if p.ConfigPath != "" {
		cfg, err = config.LoadFile(p.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type sessionParams struct {
	configParams
	PasswordFile string `flag:"password-file" desc:"read the password from this file (\"-\" for stdin)"`
}

// open loads the configuration and authenticates against the
// repository it names.
func (p *sessionParams) open(ctx context.Context, logger *slog.Logger) (*config.Config, *repository.Repository, error) {
	cfg, err := p.load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsurePaths(); err != nil {
		logger.Warn("cannot create cache directory; continuing without the cache", "error", err)
		cfg.CacheDir = ""
	}

	password, err := cli.ReadPassword(cli.PasswordSource{
		File:        p.PasswordFile,
		Environment: PasswordEnvironment,
		Prompt:      "Password for " + cfg.Username,
	})
	if err != nil {
		return nil, nil, err
	}
	defer password.Close()

	store, err := backend.Open(cfg.Backend(logger))
	if err != nil {
		return nil, nil, err
	}
	repo, err := repository.Open(ctx, repository.Options{
		Backend:       store,
		Username:      cfg.Username,
		Password:      password,
		CacheDir:      cfg.CacheDir,
		MaxWorkFactor: cfg.WorkFactor,
		Logger:        logger,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return cfg, repo, nil
}
