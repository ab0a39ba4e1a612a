package wire

import "fmt"

// UnknownOpCodeError is returned when a 16-bit opcode does not match any
// known wire packet kind.
type UnknownOpCodeError struct {
	Code uint16
}

func (e *UnknownOpCodeError) Error() string {
	return fmt.Sprintf("wire: unknown opcode 0x%04x", e.Code)
}

// UnknownDisconnectReasonError is returned when a Disconnect packet's reason
// field falls outside the enumerated range.
type UnknownDisconnectReasonError struct {
	Code uint16
}

func (e *UnknownDisconnectReasonError) Error() string {
	return fmt.Sprintf("wire: unknown disconnect reason %d", e.Code)
}

// MissingSessionError is returned when encoding or decoding a
// session-required packet before a session has been negotiated.
type MissingSessionError struct{}

func (e *MissingSessionError) Error() string {
	return "wire: packet requires a negotiated session"
}

// BufferTooSmallError is returned when a single packet cannot fit within the
// negotiated datagram buffer size, even alone.
type BufferTooSmallError struct {
	Needed int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("wire: packet needs %d bytes, exceeds buffer size", e.Needed)
}

// BadSubPacketLengthError is returned when a MultiPacket's declared
// sub-packet length runs past the remaining bytes in the datagram.
type BadSubPacketLengthError struct {
	Declared  int
	Remaining int
}

func (e *BadSubPacketLengthError) Error() string {
	return fmt.Sprintf("wire: sub-packet length %d exceeds %d remaining bytes", e.Declared, e.Remaining)
}

// MismatchedHashError is returned when the computed truncated CRC does not
// match the footer carried in the datagram.
type MismatchedHashError struct {
	Actual, Expected uint32
	Seed             uint32
	Size             int
}

func (e *MismatchedHashError) Error() string {
	return fmt.Sprintf("wire: crc mismatch: got 0x%x want 0x%x (seed 0x%x, size %d)", e.Actual, e.Expected, e.Seed, e.Size)
}

// TruncatedError is returned when a datagram is shorter than the minimum
// length its opcode and session state require.
type TruncatedError struct {
	Where string
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("wire: truncated datagram reading %s", e.Where)
}
