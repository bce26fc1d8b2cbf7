// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/coffer/cmd/coffer/cli"
)

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:    "cache",
		Summary: "Maintain the local change cache",
		Subcommands: []*cli.Command{
			cacheRebuildCommand(),
			cacheClearCommand(),
		},
	}
}

func cacheRebuildCommand() *cli.Command {
	var params sessionParams

	return &cli.Command{
		Name:    "rebuild",
		Summary: "Re-seed the known-object index from the repository",
		Description: `Drop the cached file states and re-list the repository's objects.

Run this after objects were deleted from the repository by other
means, so later backups do not skip uploads of objects that no longer
exist.`,
		Usage:  "coffer cache rebuild [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			_, repo, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			count, err := repo.RebuildCache(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%d objects indexed\n", count)
			return nil
		},
	}
}

func cacheClearCommand() *cli.Command {
	var params sessionParams

	return &cli.Command{
		Name:    "clear",
		Summary: "Forget every cached file state and known object",
		Usage:   "coffer cache clear [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			_, repo, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			cache := repo.Cache()
			if cache == nil {
				return fmt.Errorf("change cache is disabled")
			}
			return cache.Clear(ctx)
		},
	}
}
