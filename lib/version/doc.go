// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the coffer
// binary.
//
// Version information is injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/coffer/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// [Full] also reports the on-disk formats the binary reads and
// writes, so a version string is enough to tell whether two builds
// can share a repository.
package version
