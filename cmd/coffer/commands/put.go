// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/coffer/cmd/coffer/cli"
	"github.com/bureau-foundation/coffer/lib/put"
)

type putParams struct {
	sessionParams
	cli.JSONOutput
	Name           string `json:"name" flag:"name,n" desc:"snapshot name"`
	Raw            bool   `json:"raw" flag:"raw" desc:"store the single path without a snapshot and print its object hash"`
	FollowSymlinks bool   `json:"follow_symlinks" flag:"follow-symlinks,L" desc:"back up link targets instead of links"`
	Threads        int    `json:"threads" flag:"threads" desc:"upload concurrency (default: config, then backend hint)"`
}

type putResult struct {
	Hash    string `json:"hash"`
	Length  int64  `json:"length"`
	Written int64  `json:"written"`
}

func putCommand() *cli.Command {
	var params putParams

	return &cli.Command{
		Name:    "put",
		Summary: "Back up files and directories",
		Description: `Back up each path into a new snapshot and print the snapshot hash.

Unchanged files are recognized by the change cache and not read again.
Chunks already present in the repository are not uploaded again.
Paths that vanish or cannot be read during the walk are skipped with
a warning.`,
		Usage:  "coffer put [flags] <path>...",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Back up a home directory as a named snapshot",
				Command:     "coffer put --name nightly /home/alice",
			},
			{
				Description: "Store one file and print its object hash",
				Command:     "coffer put --raw /etc/fstab",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one path is required")
			}
			cfg, repo, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			threads := params.Threads
			if threads == 0 {
				threads = cfg.Threads
			}
			options := repo.PutOptions(cfg.Parameters(), threads, nil)
			options.FollowSymlinks = cfg.FollowSymlinks || params.FollowSymlinks

			result, err := put.Put(ctx, options, put.Settings{
				Name:           params.Name,
				Raw:            params.Raw,
				FollowSymlinks: options.FollowSymlinks,
			}, args)
			if err != nil {
				return err
			}

			output := putResult{Hash: result.Hash.String(), Length: result.Length, Written: result.Written}
			if done, err := params.EmitJSON(stdout, output); done {
				return err
			}
			fmt.Fprintln(stdout, output.Hash)
			return nil
		},
	}
}
