// Package gateway implements the bounded channel manager: a dual-indexed
// store of per-endpoint channels (unauthenticated by address, authenticated
// by both address and session id), a single outer lock guarding the maps,
// and the work-queue signaling that lets a worker pool know which
// endpoints have pending inbound or outbound work.
package gateway

import (
	"sort"
	"sync"

	"github.com/ironrelay/soecore/internal/channel"
	"github.com/ironrelay/soecore/internal/metrics"
	"github.com/ironrelay/soecore/pkg/logging"
)

// TooManyChannelsError is returned by Insert when the manager is already at
// MaxSessions capacity.
type TooManyChannelsError struct {
	Max int
}

func (e *TooManyChannelsError) Error() string {
	return "gateway: channel manager at capacity"
}

// ReceiveResult reports what Receive did with an inbound datagram.
type ReceiveResult struct {
	// CreateChannelFirst is true when the endpoint has no channel yet and
	// the caller must Insert one before retrying Receive.
	CreateChannelFirst bool
	// HasWork is true when the channel transitioned from idle to having
	// pending work and should be (re)enqueued on the work queue.
	HasWork bool
}

// Manager is the bounded, dual-indexed channel store. All public methods
// are safe for concurrent use.
type Manager struct {
	mu sync.RWMutex

	unauthenticated map[channel.Endpoint]*channel.Channel

	addrToID map[channel.Endpoint]uint32
	byID     map[uint32]*channel.Channel

	maxSessions int
	cfg         channel.Config
	log         *logging.Logger
	metrics     *metrics.Collectors
}

// New constructs an empty Manager bounded to maxSessions concurrent
// channels.
func New(maxSessions int, cfg channel.Config, log *logging.Logger) *Manager {
	return &Manager{
		unauthenticated: make(map[channel.Endpoint]*channel.Channel),
		addrToID:        make(map[channel.Endpoint]uint32),
		byID:            make(map[uint32]*channel.Channel),
		maxSessions:     maxSessions,
		cfg:             cfg,
		log:             log,
	}
}

// SetMetrics wires the collectors the manager updates its session gauges
// on as channels are inserted, authenticated, and removed. Optional: a
// Manager with no metrics set simply skips the updates, so tests can
// construct one without a registry.
func (m *Manager) SetMetrics(c *metrics.Collectors) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = c
}

// reportSessionCounts refreshes the session gauges from the current map
// sizes. Callers must hold m.mu.
func (m *Manager) reportSessionCounts() {
	if m.metrics == nil {
		return
	}
	m.metrics.UnauthenticatedSessions.Set(float64(len(m.unauthenticated)))
	m.metrics.AuthenticatedSessions.Set(float64(len(m.byID)))
}

// Len returns the total number of tracked channels, authenticated or not.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.unauthenticated) + len(m.byID)
}

// GetByAddr returns the channel for addr, checking the unauthenticated map
// first and falling back to the authenticated address index.
func (m *Manager) GetByAddr(addr channel.Endpoint) *channel.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.unauthenticated[addr]; ok {
		return c
	}
	if id, ok := m.addrToID[addr]; ok {
		return m.byID[id]
	}
	return nil
}

// GetByID returns the authenticated channel for a session id, or nil.
func (m *Manager) GetByID(id uint32) *channel.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byID[id]
}

// Insert creates a new unauthenticated channel for addr, atomically
// evicting any existing channel at that address first, whether it sits in
// the unauthenticated map or in the authenticated addrToID/byID index — a repeat
// SessionRequest from a previously-authenticated address must not leave its
// old entry orphaned in addrToID/byID while a second channel object is
// installed in unauthenticated for the same address. It fails with
// TooManyChannelsError if the manager is already at capacity.
func (m *Manager) Insert(addr channel.Endpoint) (*channel.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.unauthenticated, addr)
	if id, ok := m.addrToID[addr]; ok {
		delete(m.addrToID, addr)
		delete(m.byID, id)
	}
	if len(m.unauthenticated)+len(m.byID) >= m.maxSessions {
		return nil, &TooManyChannelsError{Max: m.maxSessions}
	}

	c := channel.New(addr, m.cfg, m.log)
	m.unauthenticated[addr] = c
	m.reportSessionCounts()
	return c, nil
}

// Authenticate promotes the unauthenticated channel at addr into the
// authenticated index under id. It panics if no unauthenticated channel
// exists at addr: callers only authenticate a channel whose handshake they
// just observed complete, so a missing entry is a programmer error, not a
// recoverable condition.
func (m *Manager) Authenticate(addr channel.Endpoint, id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.unauthenticated[addr]
	if !ok {
		panic("gateway: authenticate called for an endpoint with no pending channel")
	}
	delete(m.unauthenticated, addr)
	m.addrToID[addr] = id
	m.byID[id] = c
	m.reportSessionCounts()
}

// Remove drops a channel from whichever index currently holds it.
func (m *Manager) Remove(addr channel.Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.unauthenticated[addr]
	delete(m.unauthenticated, addr)
	if id, idOk := m.addrToID[addr]; idOk {
		if !ok {
			c = m.byID[id]
		}
		delete(m.addrToID, addr)
		delete(m.byID, id)
	}
	if c != nil && m.metrics != nil {
		c.Mu.Lock()
		m.metrics.ReorderBufferSize.Sub(float64(c.ReorderedCount()))
		c.Mu.Unlock()
	}
	m.reportSessionCounts()
}

// Receive routes an inbound datagram to its channel, creating one first if
// necessary is signaled via ReceiveResult.CreateChannelFirst. Decode errors
// are logged and swallowed rather than propagated, matching the
// reference's "malformed datagram never disrupts the manager" contract.
func (m *Manager) Receive(addr channel.Endpoint, data []byte) ReceiveResult {
	c := m.GetByAddr(addr)
	if c == nil {
		return ReceiveResult{CreateChannelFirst: true}
	}

	c.Mu.Lock()
	defer c.Mu.Unlock()

	hadWork := c.NeedsProcessing()
	if err := c.Receive(data); err != nil {
		if m.log != nil {
			m.log.Warn("decode from %s: %v", addr, err)
		}
		return ReceiveResult{}
	}
	hasWork := c.NeedsProcessing()
	return ReceiveResult{HasWork: !hadWork && hasWork}
}

// Snapshot returns every tracked endpoint in sorted order, for
// deterministic diagnostics and metrics scraping without requiring a sorted
// map on the hot path.
func (m *Manager) Snapshot() []channel.Endpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[channel.Endpoint]struct{}, len(m.unauthenticated)+len(m.addrToID))
	for addr := range m.unauthenticated {
		seen[addr] = struct{}{}
	}
	for addr := range m.addrToID {
		seen[addr] = struct{}{}
	}
	out := make([]channel.Endpoint, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
