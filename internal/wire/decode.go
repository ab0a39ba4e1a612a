package wire

import (
	"bytes"
	"encoding/binary"
)

// DecodeBody decodes a single packet's opcode and payload that has already
// been stripped of any compression/CRC wrapper (i.e. a MultiPacket
// sub-packet, or the inner body of a standalone datagram).
func DecodeBody(data []byte) (Packet, error) {
	if len(data) < 2 {
		return Packet{}, &TruncatedError{Where: "opcode"}
	}
	op, err := checkOpCode(binary.BigEndian.Uint16(data[:2]))
	if err != nil {
		return Packet{}, err
	}
	body := data[2:]

	switch op {
	case OpSessionRequest:
		if len(body) < 12 {
			return Packet{}, &TruncatedError{Where: "SessionRequest"}
		}
		tag := body[12:]
		if nul := bytes.IndexByte(tag, 0); nul >= 0 {
			tag = tag[:nul]
		}
		return Packet{
			Op:              op,
			ProtocolVersion: binary.BigEndian.Uint32(body[0:4]),
			SessionID:       binary.BigEndian.Uint32(body[4:8]),
			UDPLength:       binary.BigEndian.Uint32(body[8:12]),
			Tag:             string(tag),
		}, nil

	case OpSessionReply:
		if len(body) < 19 {
			return Packet{}, &TruncatedError{Where: "SessionReply"}
		}
		return Packet{
			Op:               op,
			SessionID:        binary.BigEndian.Uint32(body[0:4]),
			CrcSeed:          binary.BigEndian.Uint32(body[4:8]),
			CrcLength:        uint32(body[8]),
			AllowCompression: body[9] != 0,
			UseEncryption:    body[10] != 0,
			UDPLength:        binary.BigEndian.Uint32(body[11:15]),
			ProtocolVersion:  binary.BigEndian.Uint32(body[15:19]),
		}, nil

	case OpDisconnect:
		if len(body) < 2 {
			return Packet{}, &TruncatedError{Where: "Disconnect"}
		}
		reason, err := checkDisconnectReason(binary.BigEndian.Uint16(body[0:2]))
		if err != nil {
			return Packet{}, err
		}
		return Packet{Op: op, Reason: reason}, nil

	case OpHeartbeat, OpNetStatusRequest, OpNetStatusReply, OpUnknownSender, OpRemapConnection:
		return Packet{Op: op}, nil

	case OpAck, OpAckAll:
		if len(body) < 2 {
			return Packet{}, &TruncatedError{Where: "Ack"}
		}
		return Packet{Op: op, Sequence: SequenceNumber(binary.BigEndian.Uint16(body[0:2]))}, nil

	case OpData:
		if len(body) < 2 {
			return Packet{}, &TruncatedError{Where: "Data"}
		}
		out := make([]byte, len(body)-2)
		copy(out, body[2:])
		return Packet{
			Op:       op,
			Sequence: SequenceNumber(binary.BigEndian.Uint16(body[0:2])),
			Data:     out,
		}, nil

	case OpDataFragment:
		if len(body) < 2 {
			return Packet{}, &TruncatedError{Where: "DataFragment"}
		}
		out := make([]byte, len(body)-2)
		copy(out, body[2:])
		return Packet{
			Op:       op,
			Sequence: SequenceNumber(binary.BigEndian.Uint16(body[0:2])),
			Data:     out,
		}, nil

	case OpMultiPacket:
		parts, err := decodeMultiPacketBody(body)
		if err != nil {
			return Packet{}, err
		}
		subs := make([]Packet, 0, len(parts))
		for _, part := range parts {
			sp, err := DecodeBody(part)
			if err != nil {
				return Packet{}, err
			}
			subs = append(subs, sp)
		}
		return Packet{Op: op, SubPackets: subs}, nil

	default:
		return Packet{}, &UnknownOpCodeError{Code: uint16(op)}
	}
}

// Decode decodes a full datagram as received from the wire. Non-session
// packets carry no compression flag or CRC footer; session packets carry a
// one-byte compression flag (only present when params.AllowCompression) and
// a params.CrcSize-byte truncated CRC-32 footer that must match before the
// body is trusted.
func Decode(data []byte, params *SessionParams) (Packet, error) {
	if len(data) < 2 {
		return Packet{}, &TruncatedError{Where: "opcode"}
	}
	op, err := checkOpCode(binary.BigEndian.Uint16(data[:2]))
	if err != nil {
		return Packet{}, err
	}
	if !op.RequiresSession() {
		return DecodeBody(data)
	}
	if params == nil {
		return Packet{}, &MissingSessionError{}
	}

	dataOffset := 2
	compressed := false
	if params.AllowCompression {
		if len(data) < dataOffset+1 {
			return Packet{}, &TruncatedError{Where: "compression flag"}
		}
		compressed = data[dataOffset] != 0
		dataOffset++
	}

	crcOffset := len(data) - params.CrcSize
	if crcOffset < dataOffset {
		crcOffset = dataOffset
	}
	packetData := data[dataOffset:crcOffset]
	footer := data[crcOffset:]

	if params.CrcSize > 0 {
		expected := readFooter(footer)
		actual := readFooter(crcFooter(truncatedCRC(params.CrcSeed, data[:crcOffset]), params.CrcSize))
		if actual != expected {
			return Packet{}, &MismatchedHashError{Actual: actual, Expected: expected, Seed: params.CrcSeed, Size: params.CrcSize}
		}
	}

	if compressed {
		decompressed, err := decompress(packetData)
		if err != nil {
			return Packet{}, err
		}
		packetData = decompressed
	}

	full := make([]byte, 0, 2+len(packetData))
	full = append(full, data[:2]...)
	full = append(full, packetData...)
	return DecodeBody(full)
}
