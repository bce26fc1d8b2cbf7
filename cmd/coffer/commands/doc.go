// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the coffer command tree.
//
// Every command that touches a repository reads the configuration
// named by --config or COFFER_CONFIG and the password from
// --password-file, COFFER_PASSWORD, or a terminal prompt, in that
// order.
package commands
