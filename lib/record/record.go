// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bureau-foundation/coffer/lib/blob"
)

// ErrMalformed is returned when a payload does not decode.
var ErrMalformed = errors.New("record: malformed payload")

// Record sizes in bytes.
const (
	EntryHeaderSize    = 74
	ChunkSize          = 44
	SnapshotHeaderSize = 536
	lengthSize         = 8

	// MaxSnapshotName is the longest snapshot name that fits the
	// header with its NUL terminator.
	MaxSnapshotName = 511
)

// Kind classifies a directory entry.
type Kind int16

const (
	KindDirectory Kind = 0
	KindFile      Kind = 1
	KindLink      Kind = 2
	KindUnknown   Kind = -1
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// Flags describe how much of an entry could be captured.
type Flags int16

const (
	// FlagStated means the metadata fields hold real stat values.
	FlagStated Flags = 1 << 0
	// FlagReadable means Hash addresses the entry's content.
	FlagReadable Flags = 1 << 1
)

// Entry is one member of a directory or a snapshot's top level.
type Entry struct {
	Hash  blob.Hash
	Kind  Kind
	Flags Flags
	// Mtime and Btime are Unix milliseconds.
	Mtime int64
	Btime int64
	// Mode holds permission bits only (mode & 0o7777).
	Mode uint32
	UID  uint32
	GID  uint32
	Size int64
	Name string
}

// Readable reports whether FlagReadable is set.
func (e Entry) Readable() bool { return e.Flags&FlagReadable != 0 }

// AppendEntry appends the encoding of entry to buffer.
func AppendEntry(buffer []byte, entry *Entry) ([]byte, error) {
	if len(entry.Name) > math.MaxUint16 {
		return buffer, fmt.Errorf("record: entry name is %d bytes, limit %d", len(entry.Name), math.MaxUint16)
	}
	buffer = append(buffer, entry.Hash[:]...)
	buffer = binary.LittleEndian.AppendUint16(buffer, uint16(entry.Kind))
	buffer = binary.LittleEndian.AppendUint16(buffer, uint16(entry.Flags))
	buffer = binary.LittleEndian.AppendUint64(buffer, uint64(entry.Mtime))
	buffer = binary.LittleEndian.AppendUint64(buffer, uint64(entry.Btime))
	buffer = binary.LittleEndian.AppendUint32(buffer, entry.Mode)
	buffer = binary.LittleEndian.AppendUint32(buffer, entry.UID)
	buffer = binary.LittleEndian.AppendUint32(buffer, entry.GID)
	buffer = binary.LittleEndian.AppendUint64(buffer, uint64(entry.Size))
	buffer = binary.LittleEndian.AppendUint16(buffer, uint16(len(entry.Name)))
	buffer = append(buffer, entry.Name...)
	return buffer, nil
}

// decodeEntry decodes one entry from the start of data and returns
// the number of bytes it occupied.
func decodeEntry(data []byte) (Entry, int, error) {
	var entry Entry
	if len(data) < EntryHeaderSize {
		return entry, 0, fmt.Errorf("%w: truncated entry header (%d bytes)", ErrMalformed, len(data))
	}
	copy(entry.Hash[:], data[0:32])
	entry.Kind = Kind(binary.LittleEndian.Uint16(data[32:34]))
	entry.Flags = Flags(binary.LittleEndian.Uint16(data[34:36]))
	entry.Mtime = int64(binary.LittleEndian.Uint64(data[36:44]))
	entry.Btime = int64(binary.LittleEndian.Uint64(data[44:52]))
	entry.Mode = binary.LittleEndian.Uint32(data[52:56])
	entry.UID = binary.LittleEndian.Uint32(data[56:60])
	entry.GID = binary.LittleEndian.Uint32(data[60:64])
	entry.Size = int64(binary.LittleEndian.Uint64(data[64:72]))
	nameLength := int(binary.LittleEndian.Uint16(data[72:74]))

	end := EntryHeaderSize + nameLength
	if len(data) < end {
		return entry, 0, fmt.Errorf("%w: entry name runs past end of payload", ErrMalformed)
	}
	entry.Name = string(data[EntryHeaderSize:end])
	return entry, end, nil
}

// Chunk locates one chunk object within a file.
type Chunk struct {
	Offset int64
	Length int32
	Hash   blob.Hash
}

// AppendChunk appends the encoding of chunk to buffer.
func AppendChunk(buffer []byte, chunk Chunk) []byte {
	buffer = binary.LittleEndian.AppendUint64(buffer, uint64(chunk.Offset))
	buffer = binary.LittleEndian.AppendUint32(buffer, uint32(chunk.Length))
	return append(buffer, chunk.Hash[:]...)
}

// AppendLength appends the trailing length field.
func AppendLength(buffer []byte, length int64) []byte {
	return binary.LittleEndian.AppendUint64(buffer, uint64(length))
}

// splitLength separates the trailing length field from a payload.
func splitLength(data []byte) ([]byte, int64, error) {
	if len(data) < lengthSize {
		return nil, 0, fmt.Errorf("%w: missing trailing length", ErrMalformed)
	}
	body := data[:len(data)-lengthSize]
	length := int64(binary.LittleEndian.Uint64(data[len(body):]))
	if length < 0 {
		return nil, 0, fmt.Errorf("%w: negative length %d", ErrMalformed, length)
	}
	return body, length, nil
}
