// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Coffer packages.
//
// [WriteTree] lays out a directory tree from a map of relative paths,
// [RandomBytes] produces deterministic incompressible content, and
// [Password] wraps a literal in a secret buffer that is closed when
// the test ends.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
