package gateway

import (
	"time"

	"github.com/ironrelay/soecore/internal/channel"
	"github.com/ironrelay/soecore/internal/wire"
)

// ProcessNext runs the channel's inbound dispatch while holding its lock,
// returning any application messages it recovered. Safe to call from any
// worker goroutine pulled from the WorkQueue.
func (m *Manager) ProcessNext(c *channel.Channel, n int) ([]channel.AppMessage, error) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return c.ProcessNext(n)
}

// ProcessNextAndAuthenticate runs the channel's inbound dispatch and, if
// that dispatch is the one that completes its handshake (a New/Open
// transition it didn't already have), promotes the channel from the
// unauthenticated index into the authenticated one under its negotiated
// session id — the host-loop-facing half of C4's Authenticate wiring,
// since nothing else in the running server observes that transition.
func (m *Manager) ProcessNextAndAuthenticate(addr channel.Endpoint, c *channel.Channel, n int) ([]channel.AppMessage, error) {
	c.Mu.Lock()
	wasOpen := c.State == channel.StateOpen
	msgs, err := c.ProcessNext(n)
	becameOpen := !wasOpen && c.State == channel.StateOpen
	var sessionID uint32
	if becameOpen && c.Session() != nil {
		sessionID = c.Session().SessionID
	}
	c.Mu.Unlock()

	if becameOpen {
		m.Authenticate(addr, sessionID)
	}
	return msgs, err
}

// SendNext runs the channel's outbound dispatch while holding its lock,
// returning serialized datagrams ready to write to the socket.
func (m *Manager) SendNext(c *channel.Channel, n int, now time.Time) ([][]byte, error) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return c.SendNext(n, now)
}

// StillHasWork reports whether c has more pending work after a dispatch
// round, for the worker loop to decide whether to re-push the endpoint.
func (m *Manager) StillHasWork(c *channel.Channel) bool {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return c.NeedsProcessing()
}

// SweepTimeouts disconnects, with ReasonTimeout, any channel that has gone
// longer than the configured IdleTimeoutMs without inbound traffic, and
// pushes its endpoint onto queue so the Disconnect datagram this enqueues
// gets flushed; a disabled IdleTimeoutMs (<= 0) makes this a no-op. A
// channel closed here is reaped by the next SweepIdle pass, once its
// outbound Disconnect has had a chance to go out.
func (m *Manager) SweepTimeouts(now time.Time, queue *WorkQueue) {
	if m.cfg.IdleTimeoutMs <= 0 {
		return
	}
	timeout := time.Duration(m.cfg.IdleTimeoutMs) * time.Millisecond

	m.mu.RLock()
	channels := make(map[channel.Endpoint]*channel.Channel, len(m.unauthenticated)+len(m.byID))
	for addr, c := range m.unauthenticated {
		channels[addr] = c
	}
	for addr, id := range m.addrToID {
		if c, ok := m.byID[id]; ok {
			channels[addr] = c
		}
	}
	m.mu.RUnlock()

	for addr, c := range channels {
		c.Mu.Lock()
		idle := c.State != channel.StateClosed && c.IdleSince(now) > timeout
		if idle {
			c.Disconnect(wire.ReasonTimeout)
		}
		hasWork := c.NeedsProcessing()
		c.Mu.Unlock()

		if idle && hasWork && queue != nil {
			queue.Push(addr)
		}
	}
}

// SweepIdle removes authenticated and unauthenticated channels that have
// been Closed, returning the endpoints removed. Intended to run
// periodically from the host loop rather than per-datagram.
func (m *Manager) SweepIdle() []channel.Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []channel.Endpoint
	for addr, c := range m.unauthenticated {
		c.Mu.Lock()
		closed := c.State == channel.StateClosed
		c.Mu.Unlock()
		if closed {
			delete(m.unauthenticated, addr)
			removed = append(removed, addr)
		}
	}
	for addr, id := range m.addrToID {
		c, ok := m.byID[id]
		if !ok {
			continue
		}
		c.Mu.Lock()
		closed := c.State == channel.StateClosed
		c.Mu.Unlock()
		if closed {
			delete(m.addrToID, addr)
			delete(m.byID, id)
			removed = append(removed, addr)
		}
	}
	return removed
}
