package metrics

import (
	"github.com/ironrelay/soecore/internal/reassembly"
	"github.com/ironrelay/soecore/internal/wire"
)

// DecodeErrorKind maps a decode error to the label used on the
// DecodeErrors counter vector.
func DecodeErrorKind(err error) string {
	switch err.(type) {
	case *wire.UnknownOpCodeError:
		return "unknown_opcode"
	case *wire.UnknownDisconnectReasonError:
		return "unknown_disconnect_reason"
	case *wire.MissingSessionError:
		return "missing_session"
	case *wire.BufferTooSmallError:
		return "buffer_too_small"
	case *wire.BadSubPacketLengthError:
		return "bad_sub_packet_length"
	case *wire.MismatchedHashError:
		return "mismatched_hash"
	case *wire.TruncatedError:
		return "truncated"
	case *reassembly.ExpectedFragmentError:
		return "expected_fragment"
	default:
		return "other"
	}
}
