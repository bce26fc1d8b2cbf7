// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the Coffer configuration file.
//
// Configuration is loaded from a single YAML file named by either the
// COFFER_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no file discovery and no per-field
// environment override: what the file says is what runs.
//
// Path fields (repository and cache_dir) expand ${HOME},
// ${COFFER_CACHE}, and ${VAR:-default} patterns after loading.
//
// This package depends only on the splitter and backend packages,
// whose option structs it fills in.
package config
