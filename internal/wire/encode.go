package wire

import "encoding/binary"

func putUint16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func putUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// EncodeBody serializes a single packet's opcode and payload, with no
// footer or compression applied. Callers that need a full datagram go
// through Serialize/SerializeStandalone instead.
func EncodeBody(p Packet) ([]byte, error) {
	buf := putUint16(uint16(p.Op))
	switch p.Op {
	case OpSessionRequest:
		buf = append(buf, putUint32(p.ProtocolVersion)...)
		buf = append(buf, putUint32(p.SessionID)...)
		buf = append(buf, putUint32(p.UDPLength)...)
		buf = append(buf, []byte(p.Tag)...)
		buf = append(buf, 0x00)
		return buf, nil

	case OpSessionReply:
		return EncodeSessionReply(p.SessionID, p.CrcSeed, byte(p.CrcLength), p.AllowCompression, p.UseEncryption, p.UDPLength, p.ProtocolVersion), nil

	case OpDisconnect:
		buf = append(buf, putUint16(uint16(p.Reason))...)
		return buf, nil

	case OpHeartbeat, OpNetStatusRequest, OpNetStatusReply, OpUnknownSender, OpRemapConnection:
		return buf, nil

	case OpAck, OpAckAll:
		buf = append(buf, putUint16(uint16(p.Sequence))...)
		return buf, nil

	case OpData:
		buf = append(buf, putUint16(uint16(p.Sequence))...)
		buf = append(buf, p.Data...)
		return buf, nil

	case OpDataFragment:
		buf = append(buf, putUint16(uint16(p.Sequence))...)
		buf = append(buf, p.Data...)
		return buf, nil

	case OpMultiPacket:
		return encodeMultiPacketBody(buf, p.SubPackets)

	default:
		return nil, &UnknownOpCodeError{Code: uint16(p.Op)}
	}
}

// EncodeSessionReply is the full constructor for a SessionReply, since its
// flag byte encoding (allow_compression / use_encryption) doesn't fit the
// generic field layout EncodeBody assumes for the common case.
func EncodeSessionReply(sessionID, crcSeed uint32, crcLength uint8, allowCompression, useEncryption bool, udpLength, protocolVersion uint32) []byte {
	buf := putUint16(uint16(OpSessionReply))
	buf = append(buf, putUint32(sessionID)...)
	buf = append(buf, putUint32(crcSeed)...)
	buf = append(buf, crcLength)
	buf = append(buf, boolByte(allowCompression))
	buf = append(buf, boolByte(useEncryption))
	buf = append(buf, putUint32(udpLength)...)
	buf = append(buf, putUint32(protocolVersion)...)
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
