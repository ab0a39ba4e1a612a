package reassembly

import "encoding/binary"

// bundleMagic is the two-byte marker that distinguishes a bundled Data
// payload (multiple application messages packed with length prefixes) from
// a plain passthrough payload (a single application message verbatim).
var bundleMagic = [2]byte{0x00, 0x19}

// Unbundle splits a reassembled Data payload into its constituent
// application-layer messages. If the payload doesn't start with the bundle
// magic bytes, it is treated as a single message and returned as-is,
// matching the "assume unbundled on no magic" behavior callers rely on.
func Unbundle(data []byte) ([][]byte, error) {
	if len(data) < 2 || data[0] != bundleMagic[0] || data[1] != bundleMagic[1] {
		return [][]byte{data}, nil
	}
	body := data[2:]
	var out [][]byte
	offset := 0
	for offset < len(body) {
		length, consumed, err := readBundleVarint(body[offset:])
		if err != nil {
			return nil, err
		}
		offset += consumed
		remaining := len(body) - offset
		if int(length) > remaining {
			return nil, &TruncatedBundleError{Declared: int(length), Remaining: remaining}
		}
		out = append(out, body[offset:offset+int(length)])
		offset += int(length)
	}
	return out, nil
}

// Bundle packs multiple application-layer messages into a single Data
// payload using the same magic-byte-plus-varint-length framing Unbundle
// expects. A single message is still wrapped so the receiver's magic-byte
// check round-trips; callers that want the cheaper passthrough form for a
// single message should skip Bundle entirely and send the message data
// directly.
func Bundle(messages [][]byte) []byte {
	out := append([]byte{}, bundleMagic[0], bundleMagic[1])
	for _, m := range messages {
		out = writeBundleVarint(out, uint32(len(m)))
		out = append(out, m...)
	}
	return out
}

// TruncatedBundleError is returned when a bundled message's declared length
// runs past the remaining bytes in the Data payload.
type TruncatedBundleError struct {
	Declared  int
	Remaining int
}

func (e *TruncatedBundleError) Error() string {
	return "reassembly: bundled message length exceeds remaining payload"
}

// readBundleVarint/writeBundleVarint use the same encoding as the
// MultiPacket sub-packet length prefix: 1 byte when < 0xFF, 3 bytes
// (0xFF + u16BE) when < 0xFFFF, 7 bytes (0xFF 0xFF 0xFF + u32BE) otherwise.
// Duplicated here rather than imported from internal/wire so this package
// has no dependency on the wire codec's packet types, only its length
// framing convention.
func readBundleVarint(data []byte) (uint32, int, error) {
	if len(data) < 1 {
		return 0, 0, &TruncatedBundleError{}
	}
	if data[0] < 0xFF {
		return uint32(data[0]), 1, nil
	}
	if len(data) < 3 {
		return 0, 0, &TruncatedBundleError{}
	}
	if data[1] == 0xFF && data[2] == 0xFF {
		if len(data) < 7 {
			return 0, 0, &TruncatedBundleError{}
		}
		return binary.BigEndian.Uint32(data[3:7]), 7, nil
	}
	return uint32(binary.BigEndian.Uint16(data[1:3])), 3, nil
}

func writeBundleVarint(buf []byte, v uint32) []byte {
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
