package wire

import "hash/crc32"

// truncatedCRC computes the full IEEE CRC-32 of data seeded by the
// session's negotiated seed. Truncation to the session's CRC size (0-4
// bytes, 0 meaning no footer) is left to callers: crcFooter keeps the
// low-order bytes for the wire, and Decode compares against the same
// truncation.
func truncatedCRC(seed uint32, data []byte) uint32 {
	h := crc32.NewIEEE()
	var seedBuf [4]byte
	seedBuf[0] = byte(seed >> 24)
	seedBuf[1] = byte(seed >> 16)
	seedBuf[2] = byte(seed >> 8)
	seedBuf[3] = byte(seed)
	h.Write(seedBuf[:])
	h.Write(data)
	return h.Sum32()
}

// crcFooter returns the crcSize low-order bytes of a CRC-32 value, most
// significant byte first, matching the truncated footer appended on the
// wire.
func crcFooter(crc uint32, crcSize int) []byte {
	full := []byte{byte(crc >> 24), byte(crc >> 16), byte(crc >> 8), byte(crc)}
	return full[4-crcSize:]
}

func readFooter(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}
