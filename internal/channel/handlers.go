package channel

import (
	"math/rand"

	"github.com/ironrelay/soecore/internal/wire"
)

// handleSessionRequest resets the channel to a brand-new session on every
// SessionRequest, including one received while already Open: a repeat
// handshake means the peer has restarted and any in-flight reliable state
// is stale.
func (c *Channel) handleSessionRequest(p wire.Packet) error {
	bufferSize := c.cfg.BufferSize
	if p.UDPLength > 0 {
		bufferSize = int(p.UDPLength)
	}
	params := wire.SessionParams{
		SessionID:            p.SessionID,
		CrcSeed:              rand.Uint32(),
		CrcSize:              c.cfg.DefaultCrcSize,
		AllowCompression:     true,
		BufferSize:           bufferSize,
		CompressionThreshold: c.cfg.CompressionThreshold,
	}
	c.resetSession(params)
	c.State = StateOpen

	reply := wire.Packet{
		Op:               wire.OpSessionReply,
		SessionID:        params.SessionID,
		CrcSeed:          params.CrcSeed,
		CrcLength:        uint32(params.CrcSize),
		AllowCompression: params.AllowCompression,
		UseEncryption:    false,
		UDPLength:        uint32(params.BufferSize),
		ProtocolVersion:  p.ProtocolVersion,
	}
	c.sendQueue = append(c.sendQueue, PendingPacket{Packet: reply, NeedsSend: true})
	return nil
}

// Disconnect enqueues a Disconnect packet carrying reason, when the channel
// has a negotiated session to carry it on, and transitions the channel to
// Closed. Used for host-initiated disconnects (reliable overflow, idle
// timeout) as opposed to a peer-initiated Disconnect arriving over the
// wire. Callers must hold Mu.
func (c *Channel) Disconnect(reason wire.DisconnectReason) {
	if c.session != nil {
		c.sendQueue = append(c.sendQueue, PendingPacket{
			Packet:    wire.Packet{Op: wire.OpDisconnect, Reason: reason},
			NeedsSend: true,
		})
	}
	c.State = StateClosed
}

func (c *Channel) handleHeartbeat() error {
	c.sendQueue = append(c.sendQueue, PendingPacket{
		Packet:    wire.Packet{Op: wire.OpHeartbeat},
		NeedsSend: true,
	})
	return nil
}

// acknowledgeOne removes exactly the pending packet with the given
// sequence number, if it's still outstanding and within the recency
// window.
func (c *Channel) acknowledgeOne(seq wire.SequenceNumber) {
	if !c.shouldClientAck(seq) {
		return
	}
	filtered := c.sendQueue[:0]
	for _, p := range c.sendQueue {
		if p.Sequenced && p.Packet.Sequence == seq {
			continue
		}
		filtered = append(filtered, p)
	}
	c.sendQueue = filtered
}

// acknowledgeAll removes every pending sequenced packet whose sequence
// number is covered (not newer than) seq, within the recency window.
func (c *Channel) acknowledgeAll(seq wire.SequenceNumber) {
	if !c.shouldClientAck(seq) {
		return
	}
	filtered := c.sendQueue[:0]
	for _, p := range c.sendQueue {
		if p.Sequenced && wire.InRecencyWindow(p.Packet.Sequence, seq, c.cfg.RecencyLimit) {
			continue
		}
		filtered = append(filtered, p)
	}
	c.sendQueue = filtered
}
