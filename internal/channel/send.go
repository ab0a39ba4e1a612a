package channel

import (
	"time"

	"github.com/ironrelay/soecore/internal/reassembly"
	"github.com/ironrelay/soecore/internal/wire"
)

// ReliableOverflowError is returned when the send queue has grown past the
// channel's capacity without acknowledgement, signaling the caller should
// disconnect the peer with ReasonReliableOverflow.
type ReliableOverflowError struct {
	QueueLen int
}

func (e *ReliableOverflowError) Error() string {
	return "channel: reliable send queue overflow"
}

// maxSendQueue bounds how many entries the send queue (unacknowledged
// sequenced packets plus any not-yet-sent acks and control packets) may
// hold before the peer is treated as unresponsive.
const maxSendQueue = 4096

func (c *Channel) nextSequence() wire.SequenceNumber {
	seq := c.nextServerSequence
	c.nextServerSequence++
	return seq
}

// PrepareToSendData enqueues an application-layer payload for reliable
// delivery, fragmenting it across multiple DataFragment packets if it
// doesn't fit in a single Data packet.
func (c *Channel) PrepareToSendData(payload []byte) error {
	if c.session == nil {
		return &wire.MissingSessionError{}
	}
	maxSingle := wire.MaxFragmentDataSize(c.session)
	if !reassembly.NeedsFragmentation(payload, maxSingle) {
		seq := c.nextSequence()
		c.enqueueSequenced(wire.Packet{Op: wire.OpData, Data: payload, Sequence: seq})
	} else {
		chunks := reassembly.Fragment(payload, maxSingle)
		for _, chunk := range chunks {
			seq := c.nextSequence()
			c.enqueueSequenced(wire.Packet{Op: wire.OpDataFragment, Data: chunk, Sequence: seq})
		}
	}
	if len(c.sendQueue) > maxSendQueue {
		return &ReliableOverflowError{QueueLen: len(c.sendQueue)}
	}
	return nil
}

func (c *Channel) enqueueSequenced(p wire.Packet) {
	c.sendQueue = append(c.sendQueue, PendingPacket{Packet: p, NeedsSend: true, Sequenced: true})
}

// SendNext selects up to n pending packets due for (re)transmission, marks
// them sent, and returns their serialized datagrams ready to write to the
// socket. Non-sequenced packets (acks, heartbeats, session replies) are
// reaped from the queue once sent; sequenced packets stay until
// acknowledged and are retransmitted once millisUntilResend has elapsed.
func (c *Channel) SendNext(n int, now time.Time) ([][]byte, error) {
	var due []wire.Packet
	var kept []PendingPacket

	for i := range c.sendQueue {
		p := &c.sendQueue[i]
		if len(due) < n && p.dueForResend(now, c.cfg.MillisUntilResend) {
			isRetransmit := p.Sequenced && !p.NeedsSend
			due = append(due, p.Packet)
			p.markSent(now)
			if isRetransmit && c.cfg.Metrics != nil {
				c.cfg.Metrics.Retransmits.Inc()
			}
		}
		if p.Sequenced || p.NeedsSend {
			kept = append(kept, *p)
		}
	}
	c.sendQueue = kept

	if len(due) == 0 {
		return nil, nil
	}

	var standalone, sessioned []wire.Packet
	for _, p := range due {
		if p.Op.RequiresSession() {
			sessioned = append(sessioned, p)
		} else {
			standalone = append(standalone, p)
		}
	}

	var out [][]byte
	if len(standalone) > 0 {
		datagrams, err := wire.SerializeStandalone(standalone, c.cfg.BufferSize)
		if err != nil {
			return nil, err
		}
		out = append(out, datagrams...)
	}
	if len(sessioned) > 0 {
		if c.session == nil {
			return nil, &wire.MissingSessionError{}
		}
		datagrams, err := wire.Serialize(sessioned, c.session)
		if err != nil {
			return nil, err
		}
		out = append(out, datagrams...)
	}
	return out, nil
}
