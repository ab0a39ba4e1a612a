package gateway

import "github.com/ironrelay/soecore/internal/channel"

// WorkQueue is the multi-consumer queue of endpoints that have pending
// inbound or outbound work; any goroutine may push onto it (the read loop,
// Broadcast, SweepTimeouts, and workers re-pushing an endpoint that still
// has work). Receive signals an endpoint's
// transition from idle to having work (via ReceiveResult.HasWork); workers
// pull endpoints off this queue and call ProcessNext/SendNext on them.
//
// The "has work" check-then-enqueue must happen under the channel's own
// lock (see Manager.Receive) or a wakeup can be lost: a worker could drain
// the channel empty and decide it's idle in the gap between another
// goroutine checking NeedsProcessing and enqueueing the endpoint.
type WorkQueue struct {
	ch chan channel.Endpoint
}

// NewWorkQueue creates a work queue with room for capacity pending
// endpoints before Push blocks.
func NewWorkQueue(capacity int) *WorkQueue {
	return &WorkQueue{ch: make(chan channel.Endpoint, capacity)}
}

// Push enqueues addr. Safe to call from any goroutine.
func (q *WorkQueue) Push(addr channel.Endpoint) {
	q.ch <- addr
}

// Pop blocks until an endpoint is available or done is closed, returning
// ok=false in the latter case.
func (q *WorkQueue) Pop(done <-chan struct{}) (channel.Endpoint, bool) {
	select {
	case addr := <-q.ch:
		return addr, true
	case <-done:
		return "", false
	}
}
