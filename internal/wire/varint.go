package wire

import "encoding/binary"

// variable-length integer encoding used both by MultiPacket sub-packet
// lengths and by the bundled-data length prefix inside a Data payload.
//
//   v < 0xFF              -> 1 byte:  v
//   0xFF <= v < 0xFFFF     -> 3 bytes: 0xFF, u16BE(v)
//   v >= 0xFFFF            -> 7 bytes: 0xFF, 0xFF, 0xFF, u32BE(v)
//
// Note the boundary: 0xFF itself cannot use the 1-byte form since that byte
// value is the escape marker, and a value of exactly 0xFFFF takes the
// 7-byte form, not the 3-byte form, since the 3-byte form's u16 payload
// cannot represent it unambiguously against the escape byte.

func writeVarint(buf []byte, v uint32) []byte {
	switch {
	case v < 0xFF:
		return append(buf, byte(v))
	case v < 0xFFFF:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(v))
		buf = append(buf, 0xFF)
		return append(buf, b...)
	default:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, v)
		buf = append(buf, 0xFF, 0xFF, 0xFF)
		return append(buf, b...)
	}
}

func varintSize(v uint32) int {
	switch {
	case v < 0xFF:
		return 1
	case v < 0xFFFF:
		return 3
	default:
		return 7
	}
}

// readVarint decodes a length-prefix varint from the front of data,
// returning the value and the number of bytes consumed. The discriminant is
// always data[0] < 0xFF versus data[0] == 0xFF, applied uniformly for both
// MultiPacket sub-packet lengths and bundled-data length prefixes.
func readVarint(data []byte) (uint32, int, error) {
	if len(data) < 1 {
		return 0, 0, &TruncatedError{Where: "varint"}
	}
	if data[0] < 0xFF {
		return uint32(data[0]), 1, nil
	}
	if len(data) < 3 {
		return 0, 0, &TruncatedError{Where: "varint (3-byte form)"}
	}
	if data[1] == 0xFF && data[2] == 0xFF {
		if len(data) < 7 {
			return 0, 0, &TruncatedError{Where: "varint (7-byte form)"}
		}
		return binary.BigEndian.Uint32(data[3:7]), 7, nil
	}
	return uint32(binary.BigEndian.Uint16(data[1:3])), 3, nil
}
