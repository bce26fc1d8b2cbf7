// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/coffer/cmd/coffer/cli"
	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/restore"
)

type restoreParams struct {
	sessionParams
	Chown   bool `flag:"chown" desc:"restore file ownership (needs privileges)"`
	Threads int  `flag:"threads" desc:"concurrent file writes (default: config, then backend hint)"`
}

func restoreCommand() *cli.Command {
	var params restoreParams

	return &cli.Command{
		Name:    "restore",
		Summary: "Restore a snapshot or object",
		Description: `Restore the object named by <hash> into <destination>.

A snapshot recreates each backed-up path below <destination> at its
original absolute path. A directory restores its members into
<destination>; a file or link is created at <destination> itself.
"latest" names the newest snapshot. Existing files are never
overwritten.`,
		Usage:  "coffer restore [flags] <hash|latest> <destination>",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Restore the newest snapshot into a scratch directory",
				Command:     "coffer restore latest /tmp/restore",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: coffer restore [flags] <hash|latest> <destination>")
			}
			cfg, repo, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			hash, err := resolveHash(ctx, repo.Codec(), args[0])
			if err != nil {
				return err
			}
			threads := params.Threads
			if threads == 0 {
				threads = cfg.Threads
			}
			if threads == 0 {
				threads = repo.Backend().Threads()
			}

			result, err := restore.Restore(ctx, repo.Codec(), hash, args[1], restore.Options{
				Threads: threads,
				Chown:   params.Chown,
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "restored %d files, %d links, %d directories (%d bytes)\n",
				result.Files, result.Links, result.Directories, result.Length)
			return nil
		},
	}
}

func resolveHash(ctx context.Context, reader restore.Reader, name string) (blob.Hash, error) {
	if name != "latest" {
		return blob.ParseHash(name)
	}
	snapshots, err := restore.ListSnapshots(ctx, reader)
	if err != nil {
		return blob.Hash{}, err
	}
	if len(snapshots) == 0 {
		return blob.Hash{}, fmt.Errorf("repository has no snapshots")
	}
	return snapshots[len(snapshots)-1].Hash, nil
}
