package channel

import "github.com/ironrelay/soecore/internal/wire"

// saveForReorder decides whether an out-of-order inbound sequence number is
// recent enough to be worth buffering, versus silently dropped as either a
// stale duplicate or hopelessly far ahead. A packet within RecencyLimit
// steps forward of the next expected sequence is buffered; anything before
// or further beyond that window is not.
func (c *Channel) saveForReorder(seq wire.SequenceNumber) bool {
	return wire.InRecencyWindow(c.nextClientSequence, seq, c.cfg.RecencyLimit)
}

// shouldClientAck reports whether an Ack/AckAll naming seq should be
// accepted as covering still-pending outbound packets, using the same
// wrap-aware window check but measured backward from the current server
// sequence cursor.
func (c *Channel) shouldClientAck(seq wire.SequenceNumber) bool {
	return wire.InRecencyWindow(seq, c.nextServerSequence-1, c.cfg.RecencyLimit)
}

// admitInOrder advances the expected client sequence past any immediately-
// following packets already sitting in the reorder buffer, appending each
// to out in order. Called after a fresh in-order packet is accepted.
func (c *Channel) admitInOrder(first wire.Packet, out []wire.Packet) []wire.Packet {
	out = append(out, first)
	c.nextClientSequence++
	c.lastServerAck = c.nextClientSequence - 1
	for {
		next, ok := c.reordered[c.nextClientSequence]
		if !ok {
			break
		}
		delete(c.reordered, c.nextClientSequence)
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.ReorderBufferSize.Dec()
		}
		out = append(out, next)
		c.nextClientSequence++
		c.lastServerAck = c.nextClientSequence - 1
	}
	return out
}
