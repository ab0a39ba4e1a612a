package channel

import (
	"time"

	"github.com/ironrelay/soecore/internal/reassembly"
	"github.com/ironrelay/soecore/internal/wire"
)

// AppMessage is one application-layer payload recovered from a completed,
// reassembled, unbundled Data sequence.
type AppMessage struct {
	Data []byte
}

// Receive decodes one inbound datagram and either files it directly onto
// the receive queue (protocol-internal packets) or runs it through the
// sequence/reorder decision (Data and DataFragment, including those carried
// inside a MultiPacket). It never blocks and never talks to the network; the
// host loop in cmd/soegateway owns the socket.
func (c *Channel) Receive(raw []byte) error {
	if c.State == StateClosed {
		return nil
	}
	c.LastSeen = time.Now()
	p, err := wire.Decode(raw, c.session)
	if err != nil {
		return err
	}

	switch p.Op {
	case wire.OpData, wire.OpDataFragment:
		return c.receiveSequenced(p)
	case wire.OpMultiPacket:
		for _, sp := range p.SubPackets {
			if sp.Op == wire.OpData || sp.Op == wire.OpDataFragment {
				c.receiveSequenced(sp)
			} else {
				c.receiveQueue = append(c.receiveQueue, sp)
			}
		}
		return nil
	default:
		c.receiveQueue = append(c.receiveQueue, p)
		return nil
	}
}

func (c *Channel) receiveSequenced(p wire.Packet) error {
	switch {
	case p.Sequence == c.nextClientSequence:
		c.receiveQueue = c.admitInOrder(p, c.receiveQueue)
		c.enqueueAckAll(c.lastServerAck)
	case c.saveForReorder(p.Sequence):
		c.reordered[p.Sequence] = p
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.ReorderBufferSize.Inc()
		}
		c.enqueueAckOne(p.Sequence)
	default:
		if c.log != nil {
			c.log.Debug("dropping out-of-window sequence %d from %s (expected %d)", p.Sequence, c.Addr, c.nextClientSequence)
		}
	}
	return nil
}

func (c *Channel) enqueueAckOne(seq wire.SequenceNumber) {
	c.sendQueue = append(c.sendQueue, PendingPacket{
		Packet:    wire.Packet{Op: wire.OpAck, Sequence: seq},
		NeedsSend: true,
		Sequenced: false,
	})
}

// enqueueAckAll updates the one outstanding, not-yet-sent AckAll already in
// the queue (if any) to cover seq instead of appending a second one: several
// in-order arrivals between two SendNext calls would otherwise each queue
// their own, and a later AckAll covers everything an earlier one does, so
// only the most recent is worth putting on the wire.
func (c *Channel) enqueueAckAll(seq wire.SequenceNumber) {
	for i := range c.sendQueue {
		p := &c.sendQueue[i]
		if p.Packet.Op == wire.OpAckAll && p.NeedsSend {
			p.Packet.Sequence = seq
			return
		}
	}
	c.sendQueue = append(c.sendQueue, PendingPacket{
		Packet:    wire.Packet{Op: wire.OpAckAll, Sequence: seq},
		NeedsSend: true,
		Sequenced: false,
	})
}

// ProcessNext dispatches up to n queued inbound packets, mutating channel
// state (session resets, acknowledgements, disconnects) and returning any
// application messages recovered from completed Data sequences.
func (c *Channel) ProcessNext(n int) ([]AppMessage, error) {
	var out []AppMessage
	for i := 0; i < n && len(c.receiveQueue) > 0; i++ {
		p := c.receiveQueue[0]
		c.receiveQueue = c.receiveQueue[1:]

		msgs, err := c.processPacket(p)
		if err != nil {
			if c.log != nil {
				c.log.Warn("process %s from %s: %v", p.Op, c.Addr, err)
			}
			continue
		}
		out = append(out, msgs...)
	}
	return out, nil
}

func (c *Channel) processPacket(p wire.Packet) ([]AppMessage, error) {
	switch p.Op {
	case wire.OpSessionRequest:
		return nil, c.handleSessionRequest(p)
	case wire.OpHeartbeat:
		return nil, c.handleHeartbeat()
	case wire.OpAck:
		c.acknowledgeOne(p.Sequence)
		return nil, nil
	case wire.OpAckAll:
		c.acknowledgeAll(p.Sequence)
		return nil, nil
	case wire.OpDisconnect:
		c.State = StateClosed
		return nil, nil
	case wire.OpData, wire.OpDataFragment:
		return c.handleData(p)
	case wire.OpMultiPacket:
		var out []AppMessage
		for _, sp := range p.SubPackets {
			msgs, err := c.processPacket(sp)
			if err != nil {
				return out, err
			}
			out = append(out, msgs...)
		}
		return out, nil
	default:
		return nil, nil
	}
}

func (c *Channel) handleData(p wire.Packet) ([]AppMessage, error) {
	var payload []byte
	var complete bool
	var err error

	if p.Op == wire.OpDataFragment {
		payload, complete, err = c.fragmentState.Add(p.Data)
	} else if c.fragmentState.InProgress() {
		c.fragmentState.Reset()
		return nil, &reassembly.ExpectedFragmentError{OpCode: uint16(p.Op)}
	} else {
		payload, complete, err = p.Data, true, nil
	}
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, nil
	}

	parts, err := reassembly.Unbundle(payload)
	if err != nil {
		return nil, err
	}
	out := make([]AppMessage, 0, len(parts))
	for _, part := range parts {
		out = append(out, AppMessage{Data: part})
	}
	return out, nil
}
