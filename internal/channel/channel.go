// Package channel implements the per-endpoint reliable session: the
// New/Open/Closed state machine, inbound reorder buffering, outbound
// fragmentation and retransmission, and the protocol-internal packet
// handlers (handshake, heartbeat, ack bookkeeping).
package channel

import (
	"sync"
	"time"

	"github.com/ironrelay/soecore/internal/metrics"
	"github.com/ironrelay/soecore/internal/reassembly"
	"github.com/ironrelay/soecore/internal/wire"
	"github.com/ironrelay/soecore/pkg/logging"
)

// State is the channel's lifecycle stage.
type State int

const (
	StateNew State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Endpoint identifies a remote peer by its transport address string (e.g.
// "203.0.113.7:9000"). Using a plain string rather than net.Addr keeps the
// type comparable and usable as a map key without an adapter.
type Endpoint string

// Config holds the tunable parameters a Channel is constructed with. All
// fields come from the host's negotiated/configured defaults; nothing here
// is mutated by the channel itself.
type Config struct {
	BufferSize           int
	RecencyLimit         uint16
	MillisUntilResend    int64
	DefaultCrcSize       int
	CompressionThreshold int
	// IdleTimeoutMs is how long a channel may go without inbound traffic
	// before the host disconnects it with ReasonTimeout. Zero disables the
	// idle sweep entirely.
	IdleTimeoutMs int64
	// Metrics is optional; when set, the channel reports retransmits and
	// reorder-buffer occupancy to it as it processes traffic.
	Metrics *metrics.Collectors
}

// Channel is the reliable per-endpoint session. Its methods do not lock Mu
// themselves; callers (internal/gateway) hold Mu around every call and
// never reach into fields directly while a Channel is shared across
// goroutines.
type Channel struct {
	Mu sync.Mutex

	Addr  Endpoint
	State State

	// LastSeen is stamped on every Receive while the channel is not Closed,
	// before the datagram is decoded; the idle-timeout sweep measures
	// against it.
	LastSeen time.Time

	cfg Config

	session *wire.SessionParams

	fragmentState reassembly.State

	sendQueue     []PendingPacket
	receiveQueue  []wire.Packet
	reordered     map[wire.SequenceNumber]wire.Packet

	nextClientSequence wire.SequenceNumber
	nextServerSequence wire.SequenceNumber
	lastServerAck      wire.SequenceNumber

	log *logging.Logger
}

// New constructs a fresh, unopened channel for addr.
func New(addr Endpoint, cfg Config, log *logging.Logger) *Channel {
	return &Channel{
		Addr:      addr,
		State:     StateNew,
		LastSeen:  time.Now(),
		cfg:       cfg,
		reordered: make(map[wire.SequenceNumber]wire.Packet),
		log:       log,
	}
}

// IdleSince reports how long has elapsed since the channel last received
// any inbound datagram.
func (c *Channel) IdleSince(now time.Time) time.Duration {
	return now.Sub(c.LastSeen)
}

// ReorderedCount returns how many packets are currently buffered awaiting
// in-order delivery. Callers must hold Mu.
func (c *Channel) ReorderedCount() int {
	return len(c.reordered)
}

// Session returns the negotiated session parameters, or nil if the channel
// hasn't completed its handshake. Callers must hold Mu.
func (c *Channel) Session() *wire.SessionParams {
	return c.session
}

// NeedsProcessing reports whether the channel has inbound work queued for
// ProcessNext or outbound work queued for SendNext. internal/gateway calls
// this under the channel's own lock immediately after mutating the queues,
// to decide whether the endpoint needs to be (re)enqueued on the work
// queue without losing a wakeup.
func (c *Channel) NeedsProcessing() bool {
	if len(c.receiveQueue) > 0 {
		return true
	}
	for _, p := range c.sendQueue {
		if p.NeedsSend {
			return true
		}
	}
	return false
}

func (c *Channel) resetSession(params wire.SessionParams) {
	if c.cfg.Metrics != nil && len(c.reordered) > 0 {
		c.cfg.Metrics.ReorderBufferSize.Sub(float64(len(c.reordered)))
	}
	c.session = &params
	c.fragmentState = reassembly.State{}
	c.sendQueue = nil
	c.receiveQueue = nil
	c.reordered = make(map[wire.SequenceNumber]wire.Packet)
	c.nextClientSequence = 0
	c.nextServerSequence = 0
	c.lastServerAck = 0
}
