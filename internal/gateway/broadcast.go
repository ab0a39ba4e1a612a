package gateway

import (
	"github.com/ironrelay/soecore/internal/channel"
	"github.com/ironrelay/soecore/internal/wire"
)

// BroadcastItem names one fan-out unit: a set of payloads to be delivered,
// in order, to either a single authenticated session or a list of them.
// Mirrors the source's Broadcast::Single/Broadcast::Multi distinction.
type BroadcastItem struct {
	Single   uint32
	Multi    []uint32
	IsMulti  bool
	Payloads [][]byte
}

func (b BroadcastItem) ids() []uint32 {
	if b.IsMulti {
		return b.Multi
	}
	return []uint32{b.Single}
}

// Broadcast enqueues every item's payloads, in order, for each of its
// targeted authenticated sessions, pushing an endpoint onto queue whenever
// delivering to it transitions the channel from idle to having work (the
// same check-under-lock discipline as Receive, so no wakeup is lost). It
// returns every id across all items that resolved to no channel, for the
// caller to treat as already-disconnected.
//
// Broadcast preserves the relative order of payloads submitted to a single
// recipient within one call; it does not synchronize delivery across
// recipients.
func (m *Manager) Broadcast(queue *WorkQueue, items []BroadcastItem) []uint32 {
	var missing []uint32
	for _, item := range items {
		for _, id := range item.ids() {
			c := m.GetByID(id)
			if c == nil {
				missing = append(missing, id)
				continue
			}

			c.Mu.Lock()
			hadWork := c.NeedsProcessing()
			for _, payload := range item.Payloads {
				if err := c.PrepareToSendData(payload); err != nil {
					if _, ok := err.(*channel.ReliableOverflowError); ok {
						c.Disconnect(wire.ReasonReliableOverflow)
					}
					break
				}
			}
			hasWork := c.NeedsProcessing()
			addr := c.Addr
			c.Mu.Unlock()

			if queue != nil && !hadWork && hasWork {
				queue.Push(addr)
			}
		}
	}
	return missing
}
