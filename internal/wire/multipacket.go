package wire

// encodeMultiPacketBody appends each sub-packet's encoded body, each
// prefixed with its own varint length, to buf.
func encodeMultiPacketBody(buf []byte, subPackets []Packet) ([]byte, error) {
	for _, sp := range subPackets {
		body, err := EncodeBody(sp)
		if err != nil {
			return nil, err
		}
		buf = writeVarint(buf, uint32(len(body)))
		buf = append(buf, body...)
	}
	return buf, nil
}

// canBeSubPacket reports whether a body of the given length can be grouped
// into a MultiPacket. The cap matches the varint's 1-byte form ceiling minus
// the 2-byte opcode header that group_session_packets reserves per entry,
// so a grouped sub-packet's length prefix never itself needs the 3/7-byte
// varint forms.
func canBeSubPacket(bodyLen int) bool {
	return bodyLen <= 0xFF-2
}

// decodeMultiPacketBody splits a MultiPacket's payload into its constituent
// sub-packet bodies (opcode + fields still encoded, not yet decoded).
func decodeMultiPacketBody(data []byte) ([][]byte, error) {
	var out [][]byte
	offset := 0
	for offset < len(data) {
		length, consumed, err := readVarint(data[offset:])
		if err != nil {
			return nil, err
		}
		offset += consumed
		remaining := len(data) - offset
		if int(length) > remaining {
			return nil, &BadSubPacketLengthError{Declared: int(length), Remaining: remaining}
		}
		out = append(out, data[offset:offset+int(length)])
		offset += int(length)
	}
	return out, nil
}
