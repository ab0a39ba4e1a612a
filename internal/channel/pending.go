package channel

import (
	"time"

	"github.com/ironrelay/soecore/internal/wire"
)

// PendingPacket is an outbound packet awaiting transmission or
// retransmission. Sequenced (reliable) packets stay in the send queue until
// acknowledged; non-sequenced packets are reaped after their first send.
type PendingPacket struct {
	Packet           wire.Packet
	NeedsSend        bool
	Sequenced        bool
	LastPrepareToSend time.Time
}

func (p *PendingPacket) markSent(now time.Time) {
	p.NeedsSend = false
	p.LastPrepareToSend = now
}

func (p *PendingPacket) dueForResend(now time.Time, interval int64) bool {
	if !p.Sequenced {
		return p.NeedsSend
	}
	if p.NeedsSend {
		return true
	}
	return now.Sub(p.LastPrepareToSend) >= time.Duration(interval)*time.Millisecond
}
