// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/bureau-foundation/coffer/cmd/coffer/cli"
	"github.com/bureau-foundation/coffer/lib/keyring"
	"github.com/bureau-foundation/coffer/lib/sealed"
)

// NewPasswordEnvironment holds the new user's full-access password
// for "user add".
const NewPasswordEnvironment = "COFFER_NEW_PASSWORD"

func userCommand() *cli.Command {
	return &cli.Command{
		Name:    "user",
		Summary: "Manage repository users",
		Subcommands: []*cli.Command{
			userAddCommand(),
			userListCommand(),
			userDeleteCommand(),
		},
	}
}

type userAddParams struct {
	sessionParams
	NewPasswordFile      string `flag:"new-password-file" desc:"read the new user's full-access password from this file"`
	NewWritePasswordFile string `flag:"new-write-password-file" desc:"read the new user's write-only password from this file"`
	WriteOnly            bool   `flag:"write-only" desc:"grant write-only access"`
}

func userAddCommand() *cli.Command {
	var params userAddParams

	return &cli.Command{
		Name:    "add",
		Summary: "Give another user access to the repository",
		Description: `Write key files for a new user, encrypted with the new user's passwords.

Requires the full-access password of an existing user. With
--write-only the new user gets only a write-only password.`,
		Usage:  "coffer user add [flags] <username>",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: coffer user add [flags] <username>")
			}
			username := args[0]
			cfg, repo, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			ring := repo.KeyRing()
			if ring.Mode() != keyring.Full {
				return keyring.ErrPermissionDenied
			}
			public, err := ring.PublicKey()
			if err != nil {
				return err
			}
			secretKey, err := ring.SecretKey()
			if err != nil {
				return err
			}
			// The secret key stays owned by the session; this Keypair
			// must not be closed.
			keys := &sealed.Keypair{Public: public, Secret: secretKey}

			var passwords keyring.UserKeys
			if !params.WriteOnly {
				passwords.FullPassword, err = cli.ReadPassword(cli.PasswordSource{
					File:        params.NewPasswordFile,
					Environment: NewPasswordEnvironment,
					Prompt:      "Full-access password for " + username,
					Confirm:     true,
				})
				if err != nil {
					return err
				}
				defer passwords.FullPassword.Close()
			}
			passwords.WritePassword, err = cli.ReadPassword(cli.PasswordSource{
				File:        params.NewWritePasswordFile,
				Environment: WritePasswordEnvironment,
				Prompt:      writePrompt(params.WriteOnly, username),
				Confirm:     true,
				Optional:    !params.WriteOnly,
			})
			if err != nil {
				return err
			}
			if passwords.WritePassword != nil {
				defer passwords.WritePassword.Close()
			}

			// The session keyring only reads key files; new ones use the
			// configured work factor.
			writer := keyring.New(repo.Backend(), keyring.Options{WorkFactor: cfg.WorkFactor, Logger: logger})
			return writer.CreateUser(ctx, username, keys, passwords)
		},
	}
}

func writePrompt(writeOnly bool, username string) string {
	if writeOnly {
		return "Write-only password for " + username
	}
	return ""
}

type userListParams struct {
	sessionParams
	cli.JSONOutput
}

func userListCommand() *cli.Command {
	var params userListParams

	return &cli.Command{
		Name:    "list",
		Summary: "List users and their access levels",
		Usage:   "coffer user list [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			_, repo, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			users, err := repo.KeyRing().ListUsers(ctx)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(stdout, users); done {
				return err
			}
			tw := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "USER\tFULL\tWRITE")
			for _, user := range users {
				fmt.Fprintf(tw, "%s\t%t\t%t\n", user.Name, user.Full, user.Write)
			}
			return tw.Flush()
		},
	}
}

func userDeleteCommand() *cli.Command {
	var params sessionParams

	return &cli.Command{
		Name:    "delete",
		Summary: "Remove a user's key files",
		Usage:   "coffer user delete [flags] <username>",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: coffer user delete [flags] <username>")
			}
			_, repo, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer repo.Close()
			return repo.KeyRing().DeleteUser(ctx, args[0])
		},
	}
}
