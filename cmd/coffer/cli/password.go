// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/coffer/lib/secret"
)

// PasswordSource says where a password may come from, tried in
// field order.
type PasswordSource struct {
	// File is a path, or "-" for the first line of stdin.
	File string

	// Environment names a variable holding the password.
	Environment string

	// Prompt is shown on an interactive terminal. Empty disables
	// prompting.
	Prompt string

	// Confirm asks twice and requires both answers to match.
	Confirm bool

	// Optional makes an exhausted source return nil instead of an
	// error.
	Optional bool
}

// ReadPassword resolves a password from source. The caller must
// Close the returned buffer.
func ReadPassword(source PasswordSource) (*secret.Buffer, error) {
	if source.File != "" {
		return secret.ReadFromPath(source.File)
	}
	if source.Environment != "" {
		if value := os.Getenv(source.Environment); value != "" {
			return secret.NewFromBytes([]byte(value))
		}
	}
	if source.Prompt != "" && term.IsTerminal(int(os.Stdin.Fd())) {
		return prompt(source.Prompt, source.Confirm)
	}
	if source.Optional {
		return nil, nil
	}
	if source.Environment != "" {
		return nil, fmt.Errorf("no password: set %s, pass a password file, or run on a terminal", source.Environment)
	}
	return nil, fmt.Errorf("no password: pass a password file or run on a terminal")
}

func prompt(text string, confirm bool) (*secret.Buffer, error) {
	first, err := readTerminal(text)
	if err != nil {
		return nil, err
	}
	defer secret.Zero(first)
	if confirm {
		second, err := readTerminal("Repeat " + text)
		if err != nil {
			return nil, err
		}
		defer secret.Zero(second)
		if !bytes.Equal(first, second) {
			return nil, fmt.Errorf("passwords do not match")
		}
	}
	if len(first) == 0 {
		return nil, fmt.Errorf("password is empty")
	}
	return secret.NewFromBytes(first)
}

func readTerminal(text string) ([]byte, error) {
	fmt.Fprintf(os.Stderr, "%s: ", text)
	line, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return line, nil
}
