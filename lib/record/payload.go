// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeDirectory builds a Directory payload.
func EncodeDirectory(entries []Entry, length int64) ([]byte, error) {
	size := lengthSize
	for index := range entries {
		size += EntryHeaderSize + len(entries[index].Name)
	}
	buffer := make([]byte, 0, size)
	for index := range entries {
		var err error
		if buffer, err = AppendEntry(buffer, &entries[index]); err != nil {
			return nil, err
		}
	}
	return AppendLength(buffer, length), nil
}

// DecodeDirectory parses a Directory payload.
func DecodeDirectory(data []byte) ([]Entry, int64, error) {
	body, length, err := splitLength(data)
	if err != nil {
		return nil, 0, err
	}
	entries, err := decodeEntries(body)
	if err != nil {
		return nil, 0, err
	}
	return entries, length, nil
}

func decodeEntries(body []byte) ([]Entry, error) {
	var entries []Entry
	for len(body) > 0 {
		entry, consumed, err := decodeEntry(body)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		body = body[consumed:]
	}
	return entries, nil
}

// EncodeFile builds a File payload from chunks in offset order.
func EncodeFile(chunks []Chunk, length int64) []byte {
	buffer := make([]byte, 0, len(chunks)*ChunkSize+lengthSize)
	for _, chunk := range chunks {
		buffer = AppendChunk(buffer, chunk)
	}
	return AppendLength(buffer, length)
}

// DecodeFile parses a File payload and checks that the chunks tile
// the file from offset 0 to its length without gaps.
func DecodeFile(data []byte) ([]Chunk, int64, error) {
	body, length, err := splitLength(data)
	if err != nil {
		return nil, 0, err
	}
	if len(body)%ChunkSize != 0 {
		return nil, 0, fmt.Errorf("%w: file payload is not a whole number of chunks", ErrMalformed)
	}

	chunks := make([]Chunk, 0, len(body)/ChunkSize)
	var expected int64
	for offset := 0; offset < len(body); offset += ChunkSize {
		record := body[offset : offset+ChunkSize]
		chunk := Chunk{
			Offset: int64(binary.LittleEndian.Uint64(record[0:8])),
			Length: int32(binary.LittleEndian.Uint32(record[8:12])),
		}
		copy(chunk.Hash[:], record[12:44])
		if chunk.Offset != expected || chunk.Length < 0 {
			return nil, 0, fmt.Errorf("%w: chunk %d at offset %d, want %d", ErrMalformed, len(chunks), chunk.Offset, expected)
		}
		expected += int64(chunk.Length)
		chunks = append(chunks, chunk)
	}
	if expected != length {
		return nil, 0, fmt.Errorf("%w: chunks cover %d bytes, file length %d", ErrMalformed, expected, length)
	}
	return chunks, length, nil
}

// SnapshotHeader describes one backup run.
type SnapshotHeader struct {
	Name string
	// Time is Unix milliseconds.
	Time int64
	// Length is the logical size of everything the snapshot covers.
	Length int64
	// Stored is the number of bytes this run wrote to the backend.
	Stored int64
}

// EncodeSnapshot builds a Snapshot payload. The trailing length
// repeats header.Length.
func EncodeSnapshot(header SnapshotHeader, entries []Entry) ([]byte, error) {
	if len(header.Name) > MaxSnapshotName {
		return nil, fmt.Errorf("record: snapshot name is %d bytes, limit %d", len(header.Name), MaxSnapshotName)
	}
	if bytes.IndexByte([]byte(header.Name), 0) >= 0 {
		return nil, fmt.Errorf("record: snapshot name contains a NUL byte")
	}

	buffer := make([]byte, SnapshotHeaderSize, SnapshotHeaderSize+len(entries)*(EntryHeaderSize+32)+lengthSize)
	copy(buffer, header.Name)
	binary.LittleEndian.PutUint64(buffer[512:520], uint64(header.Time))
	binary.LittleEndian.PutUint64(buffer[520:528], uint64(header.Length))
	binary.LittleEndian.PutUint64(buffer[528:536], uint64(header.Stored))

	for index := range entries {
		var err error
		if buffer, err = AppendEntry(buffer, &entries[index]); err != nil {
			return nil, err
		}
	}
	return AppendLength(buffer, header.Length), nil
}

// DecodeSnapshotHeader parses only the fixed header, for listings
// that do not need the entries.
func DecodeSnapshotHeader(data []byte) (SnapshotHeader, error) {
	var header SnapshotHeader
	if len(data) < SnapshotHeaderSize {
		return header, fmt.Errorf("%w: truncated snapshot header (%d bytes)", ErrMalformed, len(data))
	}
	name := data[:512]
	end := bytes.IndexByte(name, 0)
	if end < 0 {
		return header, fmt.Errorf("%w: snapshot name is not terminated", ErrMalformed)
	}
	header.Name = string(name[:end])
	header.Time = int64(binary.LittleEndian.Uint64(data[512:520]))
	header.Length = int64(binary.LittleEndian.Uint64(data[520:528]))
	header.Stored = int64(binary.LittleEndian.Uint64(data[528:536]))
	return header, nil
}

// DecodeSnapshot parses a Snapshot payload.
func DecodeSnapshot(data []byte) (SnapshotHeader, []Entry, error) {
	header, err := DecodeSnapshotHeader(data)
	if err != nil {
		return header, nil, err
	}
	body, _, err := splitLength(data[SnapshotHeaderSize:])
	if err != nil {
		return header, nil, err
	}
	entries, err := decodeEntries(body)
	if err != nil {
		return header, nil, err
	}
	return header, entries, nil
}
