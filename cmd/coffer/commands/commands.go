// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/coffer/cmd/coffer/cli"
	"github.com/bureau-foundation/coffer/lib/version"
)

// stdout receives command results. Logs go to stderr.
var stdout io.Writer = os.Stdout

// Root builds and returns the complete coffer command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "coffer",
		Description: `Coffer: content-addressed, deduplicating, encrypted backups.

Files are split into content-defined chunks, encrypted to the
repository's public key, and stored once no matter how many
snapshots refer to them.`,
		Subcommands: []*cli.Command{
			initCommand(),
			putCommand(),
			snapshotsCommand(),
			restoreCommand(),
			cacheCommand(),
			userCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					fmt.Fprintf(stdout, "coffer %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
