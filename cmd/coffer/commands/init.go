// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/coffer/cmd/coffer/cli"
	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/repository"
)

// WritePasswordEnvironment holds the optional write-only password
// for init and user add.
const WritePasswordEnvironment = "COFFER_WRITE_PASSWORD"

type initParams struct {
	configParams
	PasswordFile      string `flag:"password-file" desc:"read the full-access password from this file"`
	WritePasswordFile string `flag:"write-password-file" desc:"read the write-only password from this file"`
}

func initCommand() *cli.Command {
	var params initParams

	return &cli.Command{
		Name:    "init",
		Summary: "Create a repository",
		Description: `Create a repository at the configured location and its first user.

The full-access password can read and write. The optional write-only
password can create snapshots but not read them back, which suits
unattended backup hosts.`,
		Usage:  "coffer init [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Create a repository with both passwords from files",
				Command:     "coffer init --password-file full.txt --write-password-file write.txt",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("init takes no arguments")
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}

			fullPassword, err := cli.ReadPassword(cli.PasswordSource{
				File:        params.PasswordFile,
				Environment: PasswordEnvironment,
				Prompt:      "Full-access password for " + cfg.Username,
				Confirm:     true,
			})
			if err != nil {
				return err
			}
			defer fullPassword.Close()
			writePassword, err := cli.ReadPassword(cli.PasswordSource{
				File:        params.WritePasswordFile,
				Environment: WritePasswordEnvironment,
				Optional:    true,
			})
			if err != nil {
				return err
			}
			if writePassword != nil {
				defer writePassword.Close()
			}

			store, err := backend.Open(cfg.Backend(logger))
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := repository.Init(ctx, store, repository.InitOptions{
				Username:      cfg.Username,
				FullPassword:  fullPassword,
				WritePassword: writePassword,
				WorkFactor:    cfg.WorkFactor,
				Logger:        logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%x\n", id)
			return nil
		},
	}
}
