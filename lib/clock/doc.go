// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable source of the current time.
//
// Code that stamps snapshots or ages temporary files takes a Clock
// instead of calling time.Now, so tests can pin the time:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	result, err := put.Put(ctx, put.Options{Clock: c, ...}, settings, paths)
//	c.Advance(time.Hour)
package clock
