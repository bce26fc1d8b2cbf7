// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the CBOR configuration shared by every small
// structured file in a repository: key files under keys/ and the
// repository metadata file.
//
// Object payloads (chunks, directories, snapshots) are fixed
// little-endian records and do not go through this package.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so
// identical values always produce identical bytes. The decoder
// ignores unknown fields, letting newer writers add metadata that
// older readers skip.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
