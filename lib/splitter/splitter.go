// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package splitter

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
)

// Default chunk size parameters.
const (
	DefaultAverage = 2 * 1024 * 1024
	DefaultMin     = 1 * 1024 * 1024
	DefaultMax     = 8 * 1024 * 1024
)

// gearWindow is the number of trailing bytes that influence the top
// bit of the rolling hash. Hashing starts this far before Min so the
// state at Min is the same as if every byte had been hashed.
const gearWindow = 64

// Parameters bounds the chunk sizes a Splitter produces.
type Parameters struct {
	Average int
	Min     int
	Max     int
}

// DefaultParameters returns the repository default chunk sizes.
func DefaultParameters() Parameters {
	return Parameters{Average: DefaultAverage, Min: DefaultMin, Max: DefaultMax}
}

// Validate checks that 0 < Min <= Average <= Max and that Max fits
// the 32-bit length of a chunk record.
func (p Parameters) Validate() error {
	if p.Min <= 0 || p.Average < p.Min || p.Max < p.Average {
		return fmt.Errorf("splitter: invalid sizes min=%d avg=%d max=%d, want 0 < min <= avg <= max",
			p.Min, p.Average, p.Max)
	}
	if p.Average < 4 {
		return fmt.Errorf("splitter: average size %d is too small", p.Average)
	}
	if p.Max > math.MaxInt32 {
		return fmt.Errorf("splitter: max size %d does not fit a chunk record", p.Max)
	}
	return nil
}

// Chunk is one segment of the stream.
type Chunk struct {
	// Index is the position of the chunk in the stream, from 0.
	Index int

	// Offset is the stream offset of the first byte of Data.
	Offset int64

	// Data aliases the buffer passed to Process and is only valid
	// until the caller modifies that buffer.
	Data []byte
}

// Splitter cuts one stream into chunks. It is not safe for
// concurrent use; create one per stream.
type Splitter struct {
	parameters Parameters
	gear       [256]uint64

	// maskStrict applies before Average and maskLoose after it. A
	// boundary is a position where the hash has all masked bits
	// clear.
	maskStrict uint64
	maskLoose  uint64

	index  int
	offset int64
}

// New returns a Splitter for the given parameters and salt.
func New(parameters Parameters, salt uint64) (*Splitter, error) {
	if err := parameters.Validate(); err != nil {
		return nil, err
	}

	averageBits := bits.Len(uint(parameters.Average)) - 1
	splitter := &Splitter{
		parameters: parameters,
		maskStrict: highMask(averageBits + 1),
		maskLoose:  highMask(averageBits - 1),
	}
	for index, value := range baseGear {
		splitter.gear[index] = value ^ salt
	}
	return splitter, nil
}

// Salt derives the splitter salt from a repository salt: its first
// eight bytes, little-endian.
func Salt(repositorySalt [32]byte) uint64 {
	return binary.LittleEndian.Uint64(repositorySalt[:8])
}

// Process returns the complete chunks at the start of buffer and the
// number of bytes they cover. When final is true the whole buffer is
// consumed and the last chunk may be shorter than Min. Otherwise a
// trailing partial chunk is left unprocessed and the caller must
// present those bytes again, followed by more input.
func (s *Splitter) Process(buffer []byte, final bool) ([]Chunk, int) {
	var chunks []Chunk
	processed := 0
	for processed < len(buffer) {
		length := s.boundary(buffer[processed:], final)
		if length == 0 {
			break
		}
		chunks = append(chunks, Chunk{
			Index:  s.index,
			Offset: s.offset,
			Data:   buffer[processed : processed+length],
		})
		s.index++
		s.offset += int64(length)
		processed += length
	}
	return chunks, processed
}

// Offset returns the stream offset just past the last emitted chunk.
func (s *Splitter) Offset() int64 { return s.offset }

// boundary returns the length of the chunk at the start of data, or
// zero when more input is needed to decide.
func (s *Splitter) boundary(data []byte, final bool) int {
	length := len(data)
	minSize := s.parameters.Min
	if length <= minSize {
		if final {
			return length
		}
		return 0
	}

	limit := min(length, s.parameters.Max)
	normal := min(limit, s.parameters.Average)

	var hash uint64
	position := max(0, minSize-gearWindow)
	for ; position < minSize; position++ {
		hash = (hash << 1) + s.gear[data[position]]
	}
	for ; position < normal; position++ {
		hash = (hash << 1) + s.gear[data[position]]
		if hash&s.maskStrict == 0 {
			return position + 1
		}
	}
	for ; position < limit; position++ {
		hash = (hash << 1) + s.gear[data[position]]
		if hash&s.maskLoose == 0 {
			return position + 1
		}
	}

	if limit == s.parameters.Max {
		return limit
	}
	if final {
		return length
	}
	return 0
}

// highMask returns a mask with the top n bits set, clamped to [1, 63].
func highMask(n int) uint64 {
	n = min(max(n, 1), 63)
	return ^uint64(0) << (64 - n)
}
