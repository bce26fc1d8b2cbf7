// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens pools of SQLite connections configured for
// a local, single-writer cache database.
//
// Every connection runs in WAL mode with a busy timeout, so readers
// never block the writer and concurrent writers wait instead of
// failing. Callers install their schema through Config.OnConnect,
// which runs once per connection.
//
// The pool wraps zombiezen.com/go/sqlite/sqlitex. Connections are not
// safe for concurrent use: take one, use it on a single goroutine, put
// it back. [Pool.With] does all three.
package sqlitepool
