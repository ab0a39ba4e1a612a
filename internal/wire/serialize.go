package wire

// headerSize is the opcode plus the optional compression flag byte.
func headerSize(params *SessionParams) int {
	if params.AllowCompression {
		return 3
	}
	return 2
}

func footerSize(params *SessionParams) int {
	return params.CrcSize
}

// MaxFragmentDataSize returns how many bytes of a Data/DataFragment payload
// fit in one datagram once the opcode, sequence number, compression flag,
// and CRC footer are accounted for.
func MaxFragmentDataSize(params *SessionParams) int {
	return params.BufferSize - headerSize(params) - 2 /* sequence */ - footerSize(params)
}

// SerializeStandalone encodes packets that do not require a session
// (SessionRequest/SessionReply/NetStatus*/UnknownSender/RemapConnection),
// each as its own datagram with no compression or CRC wrapper. Every packet
// must individually fit within bufferSize.
func SerializeStandalone(packets []Packet, bufferSize int) ([][]byte, error) {
	out := make([][]byte, 0, len(packets))
	for _, p := range packets {
		body, err := EncodeBody(p)
		if err != nil {
			return nil, err
		}
		if len(body) > bufferSize {
			return nil, &BufferTooSmallError{Needed: len(body)}
		}
		out = append(out, body)
	}
	return out, nil
}

// Serialize groups session-required packets into as few datagrams as
// possible, wraps multi-packet groups in a MultiPacket envelope, and
// applies compression and the truncated CRC footer to each finished
// datagram. Packets that cannot be grouped with any neighbor but still fit
// alone are emitted standalone (still compressed/CRC'd).
func Serialize(packets []Packet, params *SessionParams) ([][]byte, error) {
	bodies := make([][]byte, len(packets))
	for i, p := range packets {
		body, err := EncodeBody(p)
		if err != nil {
			return nil, err
		}
		bodies[i] = body
	}

	header := headerSize(params)
	footer := footerSize(params)
	spaceForPayload := params.BufferSize - header - footer
	if spaceForPayload <= 0 {
		return nil, &BufferTooSmallError{Needed: params.BufferSize - spaceForPayload}
	}

	var groups [][][]byte
	var current [][]byte
	spaceLeft := spaceForPayload

	flush := func() {
		if len(current) > 0 {
			groups = append(groups, current)
			current = nil
			spaceLeft = spaceForPayload
		}
	}

	for _, body := range bodies {
		if !canBeSubPacket(len(body)) {
			flush()
			if len(body) > spaceForPayload {
				return nil, &BufferTooSmallError{Needed: len(body) + header + footer}
			}
			groups = append(groups, [][]byte{body})
			continue
		}
		needed := varintSize(uint32(len(body))) + len(body)
		if needed > spaceLeft {
			flush()
			if needed > spaceForPayload {
				return nil, &BufferTooSmallError{Needed: needed + header + footer}
			}
		}
		current = append(current, body)
		spaceLeft -= needed
	}
	flush()

	out := make([][]byte, 0, len(groups))
	for _, g := range groups {
		var payload []byte
		if len(g) == 1 {
			payload = g[0]
		} else {
			payload = putUint16(uint16(OpMultiPacket))
			for _, body := range g {
				payload = writeVarint(payload, uint32(len(body)))
				payload = append(payload, body...)
			}
		}
		datagram, err := wrapSessionDatagram(payload, params)
		if err != nil {
			return nil, err
		}
		out = append(out, datagram)
	}
	return out, nil
}

// wrapSessionDatagram applies the compression flag and CRC footer around an
// already-opcode-tagged payload (a single packet body, or a MultiPacket
// envelope).
func wrapSessionDatagram(payload []byte, params *SessionParams) ([]byte, error) {
	op := payload[:2]
	body := payload[2:]

	compressed := false
	if params.AllowCompression {
		if c, ok := tryCompress(body, params.CompressionThreshold); ok {
			body = c
			compressed = true
		}
	}

	buf := make([]byte, 0, len(op)+1+len(body)+params.CrcSize)
	buf = append(buf, op...)
	if params.AllowCompression {
		buf = append(buf, boolByte(compressed))
	}
	buf = append(buf, body...)

	if params.CrcSize > 0 {
		crc := truncatedCRC(params.CrcSeed, buf)
		buf = append(buf, crcFooter(crc, params.CrcSize)...)
	}
	return buf, nil
}
