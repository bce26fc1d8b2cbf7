// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/bureau-foundation/coffer/cmd/coffer/cli"
	"github.com/bureau-foundation/coffer/lib/restore"
)

type snapshotsParams struct {
	sessionParams
	cli.JSONOutput
}

type snapshotRow struct {
	Tag    string    `json:"tag"`
	Hash   string    `json:"hash"`
	Name   string    `json:"name"`
	Time   time.Time `json:"time"`
	Length int64     `json:"length"`
	Stored int64     `json:"stored"`
}

func snapshotsCommand() *cli.Command {
	var params snapshotsParams

	return &cli.Command{
		Name:    "snapshots",
		Summary: "List snapshots",
		Description: `List every snapshot in the repository, oldest first.

Requires the full-access password.`,
		Usage:  "coffer snapshots [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("snapshots takes no arguments")
			}
			_, repo, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			snapshots, err := restore.ListSnapshots(ctx, repo.Codec())
			if err != nil {
				return err
			}
			rows := make([]snapshotRow, 0, len(snapshots))
			for _, snapshot := range snapshots {
				rows = append(rows, snapshotRow{
					Tag:    snapshot.Tag,
					Hash:   snapshot.Hash.String(),
					Name:   snapshot.Header.Name,
					Time:   time.UnixMilli(snapshot.Header.Time).UTC(),
					Length: snapshot.Header.Length,
					Stored: snapshot.Header.Stored,
				})
			}
			if done, err := params.EmitJSON(stdout, rows); done {
				return err
			}

			tw := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tNAME\tLENGTH\tSTORED\tHASH")
			for _, row := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
					row.Time.Format(time.RFC3339), row.Name, row.Length, row.Stored, row.Hash)
			}
			return tw.Flush()
		},
	}
}
