// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package splitter implements content-defined chunking with a salted,
// normalized GearHash.
//
// A [Splitter] consumes one byte stream delivered as successive
// buffers. [Splitter.Process] returns every complete chunk it can
// find in the buffer and how many bytes those chunks cover; the
// caller drops that prefix, appends more input, and calls again.
// Chunk boundaries depend only on the bytes since the previous
// boundary, so the same stream always yields the same chunks no
// matter how it was cut into buffers, and an edit in one place only
// moves boundaries near the edit.
//
// Boundary selection follows FastCDC's normalized chunking: no cut
// before Min, a strict mask between Min and Average, a looser mask
// between Average and Max, and a forced cut at Max. Every chunk
// except the last one of a stream is therefore within [Min, Max].
//
// The gear table is XORed with a 64-bit salt derived from the
// repository key, so two repositories cut the same file at
// different places and chunk sizes leak nothing shared.
package splitter
