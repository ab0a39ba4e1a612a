package gateway

import (
	"testing"
	"time"

	"github.com/ironrelay/soecore/internal/channel"
	"github.com/ironrelay/soecore/internal/wire"
	"github.com/ironrelay/soecore/pkg/logging"
)

func testConfig() channel.Config {
	return channel.Config{BufferSize: 512, RecencyLimit: 16, MillisUntilResend: 100, DefaultCrcSize: 2}
}

func TestInsertRejectsOverCapacity(t *testing.T) {
	m := New(1, testConfig(), logging.Discard())
	if _, err := m.Insert("a:1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Insert("b:1"); err == nil {
		t.Fatal("expected TooManyChannelsError")
	}
}

func TestReceiveSignalsCreateChannelFirst(t *testing.T) {
	m := New(10, testConfig(), logging.Discard())
	result := m.Receive("new:1", []byte{0, 1})
	if !result.CreateChannelFirst {
		t.Fatal("expected CreateChannelFirst for an endpoint with no channel")
	}
}

func TestReceiveSignalsHasWorkOnTransition(t *testing.T) {
	m := New(10, testConfig(), logging.Discard())
	if _, err := m.Insert("a:1"); err != nil {
		t.Fatal(err)
	}
	req, err := wire.EncodeBody(wire.Packet{Op: wire.OpSessionRequest, ProtocolVersion: 3, SessionID: 1, UDPLength: 512})
	if err != nil {
		t.Fatal(err)
	}
	result := m.Receive("a:1", req)
	if !result.HasWork {
		t.Fatal("expected HasWork=true on the idle-to-work transition")
	}

	// A second datagram while the first is still unprocessed should not
	// re-signal HasWork.
	result2 := m.Receive("a:1", req)
	if result2.HasWork {
		t.Fatal("expected HasWork=false when the channel already had pending work")
	}
}

func TestAuthenticateMovesChannelToIDIndex(t *testing.T) {
	m := New(10, testConfig(), logging.Discard())
	if _, err := m.Insert("a:1"); err != nil {
		t.Fatal(err)
	}
	m.Authenticate("a:1", 42)

	if c := m.GetByID(42); c == nil {
		t.Fatal("expected channel reachable by id after authenticate")
	}
	if c := m.GetByAddr("a:1"); c == nil {
		t.Fatal("expected channel still reachable by address")
	}
}

func TestAuthenticatePanicsWithoutPendingChannel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic authenticating an address with no channel")
		}
	}()
	m := New(10, testConfig(), logging.Discard())
	m.Authenticate("ghost:1", 1)
}

func TestEndToEndHandshakeThroughManager(t *testing.T) {
	m := New(10, testConfig(), logging.Discard())
	addr := channel.Endpoint("peer:1")
	c, err := m.Insert(addr)
	if err != nil {
		t.Fatal(err)
	}

	req, _ := wire.EncodeBody(wire.Packet{Op: wire.OpSessionRequest, ProtocolVersion: 3, SessionID: 99, UDPLength: 512})
	result := m.Receive(addr, req)
	if !result.HasWork {
		t.Fatal("expected work after session request")
	}
	if _, err := m.ProcessNext(c, 10); err != nil {
		t.Fatal(err)
	}
	datagrams, err := m.SendNext(c, 10, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(datagrams) != 1 {
		t.Fatalf("expected 1 reply datagram, got %d", len(datagrams))
	}
	m.Authenticate(addr, 99)
	if m.GetByID(99) != c {
		t.Fatal("expected same channel instance reachable by id")
	}
}

func TestBroadcastReportsMissingIDs(t *testing.T) {
	m := New(10, testConfig(), logging.Discard())
	items := []BroadcastItem{{IsMulti: true, Multi: []uint32{1, 2, 3}, Payloads: [][]byte{[]byte("hi")}}}
	missing := m.Broadcast(nil, items)
	if len(missing) != 3 {
		t.Fatalf("expected all 3 ids missing, got %d", len(missing))
	}
}

func TestBroadcastPushesEndpointOnHasWorkTransition(t *testing.T) {
	m := New(10, testConfig(), logging.Discard())
	addr := channel.Endpoint("peer:1")
	c, err := m.Insert(addr)
	if err != nil {
		t.Fatal(err)
	}
	req, err := wire.EncodeBody(wire.Packet{Op: wire.OpSessionRequest, ProtocolVersion: 3, SessionID: 42, UDPLength: 512})
	if err != nil {
		t.Fatal(err)
	}
	if m.Receive(addr, req).CreateChannelFirst {
		t.Fatal("unexpected CreateChannelFirst")
	}
	if _, err := m.ProcessNext(c, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SendNext(c, 10, time.Now()); err != nil {
		t.Fatal(err)
	}
	m.Authenticate(addr, 42)

	queue := NewWorkQueue(1)
	items := []BroadcastItem{{Single: 42, Payloads: [][]byte{[]byte("hello")}}}
	if missing := m.Broadcast(queue, items); len(missing) != 0 {
		t.Fatalf("expected no missing ids, got %v", missing)
	}

	got, ok := queue.Pop(nil)
	if !ok || got != addr {
		t.Fatalf("expected %s pushed onto the work queue, got %q ok=%v", addr, got, ok)
	}
}

func TestInsertEvictsStaleAuthenticatedEntryAtSameAddress(t *testing.T) {
	m := New(10, testConfig(), logging.Discard())
	addr := channel.Endpoint("peer:1")

	first, err := m.Insert(addr)
	if err != nil {
		t.Fatal(err)
	}
	m.Authenticate(addr, 7)
	if m.GetByID(7) != first {
		t.Fatal("expected first channel authenticated under id 7")
	}

	// A fresh SessionRequest from the same address (peer restarted) must
	// evict the stale authenticated entry rather than leaving it orphaned.
	second, err := m.Insert(addr)
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Fatal("expected a new channel instance")
	}
	if m.GetByID(7) != nil {
		t.Fatal("expected the stale id-7 entry evicted by Insert")
	}
	if c := m.GetByAddr(addr); c != second {
		t.Fatal("expected GetByAddr to resolve to the new unauthenticated channel")
	}
	if m.Len() != 1 {
		t.Fatalf("expected exactly 1 tracked channel for the address, got %d", m.Len())
	}
}

func TestProcessNextAndAuthenticatePromotesOnOpenTransition(t *testing.T) {
	m := New(10, testConfig(), logging.Discard())
	addr := channel.Endpoint("peer:1")
	c, err := m.Insert(addr)
	if err != nil {
		t.Fatal(err)
	}

	req, _ := wire.EncodeBody(wire.Packet{Op: wire.OpSessionRequest, ProtocolVersion: 3, SessionID: 55, UDPLength: 512})
	if m.Receive(addr, req).CreateChannelFirst {
		t.Fatal("unexpected CreateChannelFirst")
	}
	if _, err := m.ProcessNextAndAuthenticate(addr, c, 10); err != nil {
		t.Fatal(err)
	}
	if m.GetByID(55) != c {
		t.Fatal("expected the channel promoted to the id index after completing its handshake")
	}
	if m.GetByAddr(addr) != c {
		t.Fatal("expected the channel still reachable by address")
	}
}

func TestSweepTimeoutsDisconnectsIdleChannel(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeoutMs = 1000
	m := New(10, cfg, logging.Discard())
	addr := channel.Endpoint("peer:1")
	c, err := m.Insert(addr)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := wire.EncodeBody(wire.Packet{Op: wire.OpSessionRequest, ProtocolVersion: 3, SessionID: 1, UDPLength: 512})
	if m.Receive(addr, req).CreateChannelFirst {
		t.Fatal("unexpected CreateChannelFirst")
	}
	if _, err := m.ProcessNextAndAuthenticate(addr, c, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SendNext(c, 10, time.Now()); err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(2 * time.Second)
	m.SweepTimeouts(future, nil)

	c.Mu.Lock()
	state := c.State
	c.Mu.Unlock()
	if state != channel.StateClosed {
		t.Fatalf("expected channel disconnected by the idle sweep, got state %v", state)
	}
}

func TestSweepTimeoutsDisabledWhenIdleTimeoutIsZero(t *testing.T) {
	m := New(10, testConfig(), logging.Discard())
	addr := channel.Endpoint("peer:1")
	c, err := m.Insert(addr)
	if err != nil {
		t.Fatal(err)
	}

	m.SweepTimeouts(time.Now().Add(time.Hour), nil)

	c.Mu.Lock()
	state := c.State
	c.Mu.Unlock()
	if state == channel.StateClosed {
		t.Fatal("expected SweepTimeouts to be a no-op when IdleTimeoutMs is 0")
	}
}

func TestBroadcastDisconnectsOnReliableOverflow(t *testing.T) {
	cfg := testConfig()
	m := New(10, cfg, logging.Discard())
	addr := channel.Endpoint("peer:1")
	c, err := m.Insert(addr)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := wire.EncodeBody(wire.Packet{Op: wire.OpSessionRequest, ProtocolVersion: 3, SessionID: 1, UDPLength: 512})
	if m.Receive(addr, req).CreateChannelFirst {
		t.Fatal("unexpected CreateChannelFirst")
	}
	if _, err := m.ProcessNextAndAuthenticate(addr, c, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SendNext(c, 10, time.Now()); err != nil {
		t.Fatal(err)
	}

	// Enough payloads to blow past maxSendQueue in one Broadcast call.
	payloads := make([][]byte, 5000)
	for i := range payloads {
		payloads[i] = []byte("x")
	}
	items := []BroadcastItem{{Single: 1, Payloads: payloads}}
	m.Broadcast(nil, items)

	c.Mu.Lock()
	state := c.State
	c.Mu.Unlock()
	if state != channel.StateClosed {
		t.Fatalf("expected the channel disconnected on reliable-send-queue overflow, got state %v", state)
	}
}

func TestSnapshotIsSorted(t *testing.T) {
	m := New(10, testConfig(), logging.Discard())
	for _, addr := range []channel.Endpoint{"c:1", "a:1", "b:1"} {
		if _, err := m.Insert(addr); err != nil {
			t.Fatal(err)
		}
	}
	snap := m.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 endpoints, got %d", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i-1] >= snap[i] {
			t.Fatalf("expected sorted order, got %v", snap)
		}
	}
}
