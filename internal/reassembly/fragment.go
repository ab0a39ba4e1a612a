// Package reassembly implements fragment reassembly for Data/DataFragment
// packet sequences, and the bundled-data (un)packing layered on top of a
// single reassembled Data payload.
package reassembly

import (
	"encoding/binary"
)

// MissingDataLengthError is returned when the first fragment in a sequence
// is shorter than the 4-byte total-length prefix it must carry.
type MissingDataLengthError struct{}

func (e *MissingDataLengthError) Error() string {
	return "reassembly: first fragment missing 4-byte length prefix"
}

// State accumulates DataFragment payloads into a single logical Data
// payload. A zero State is ready to use; it starts "empty" (not mid-fragment).
type State struct {
	buffer         []byte
	remainingBytes uint32
}

// InProgress reports whether a fragmented message is still being
// assembled, i.e. Add has been called with a first fragment but not yet
// received all subsequent bytes.
func (s *State) InProgress() bool {
	return s.remainingBytes > 0
}

// Reset discards any partially-assembled message, used when a non-fragment
// packet arrives mid-reassembly and the channel gives up on it.
func (s *State) Reset() {
	s.buffer = nil
	s.remainingBytes = 0
}

// ExpectedFragmentError is returned when a non-fragment data packet arrives
// while a fragmented message is still being assembled.
type ExpectedFragmentError struct {
	OpCode uint16
}

func (e *ExpectedFragmentError) Error() string {
	return "reassembly: expected a DataFragment continuation, got another opcode"
}

// Add folds one fragment's bytes into the assembler. If data is the first
// fragment of a new message (the assembler is not already in progress), the
// first 4 bytes are a big-endian total length and the remainder is the
// first chunk of payload; otherwise data is a plain continuation chunk.
//
// Add returns the completed payload and true once the declared total length
// has been reached, or nil and false while more fragments are still needed.
func (s *State) Add(data []byte) ([]byte, bool, error) {
	if !s.InProgress() {
		if len(data) < 4 {
			return nil, false, &MissingDataLengthError{}
		}
		total := binary.BigEndian.Uint32(data[:4])
		chunk := data[4:]
		s.buffer = make([]byte, 0, total)
		s.remainingBytes = total
		return s.consume(chunk)
	}
	return s.consume(data)
}

func (s *State) consume(chunk []byte) ([]byte, bool, error) {
	if uint32(len(chunk)) >= s.remainingBytes {
		take := chunk[:s.remainingBytes]
		s.buffer = append(s.buffer, take...)
		s.remainingBytes = 0
		out := s.buffer
		s.buffer = nil
		return out, true, nil
	}
	s.buffer = append(s.buffer, chunk...)
	s.remainingBytes -= uint32(len(chunk))
	return nil, false, nil
}

// Fragment splits data into a sequence of DataFragment payload chunks sized
// to fit maxChunk bytes each, with a 4-byte big-endian total-length prefix
// on the first chunk only. It does not assign sequence numbers or opcodes;
// the caller (internal/channel) owns outbound sequencing.
func Fragment(data []byte, maxChunk int) [][]byte {
	if maxChunk <= 4 {
		maxChunk = 5
	}
	var prefixed []byte
	prefixed = binary.BigEndian.AppendUint32(prefixed, uint32(len(data)))
	prefixed = append(prefixed, data...)

	var out [][]byte
	for len(prefixed) > 0 {
		chunkSize := maxChunk
		if chunkSize > len(prefixed) {
			chunkSize = len(prefixed)
		}
		out = append(out, prefixed[:chunkSize])
		prefixed = prefixed[chunkSize:]
	}
	return out
}

// NeedsFragmentation reports whether data is too large to fit in a single
// Data packet of maxSingle bytes and must instead go through Fragment.
func NeedsFragmentation(data []byte, maxSingle int) bool {
	return len(data) > maxSingle
}
