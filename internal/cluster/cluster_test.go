package cluster

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/serialx/hashring"

	"github.com/sakuffo/sakwatch/internal/config"
	"github.com/sakuffo/sakwatch/internal/event"
	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/node"
)

// testLogger forwards to t.Logf until the test finishes; background
// goroutines may still log during shutdown.
type testLogger struct {
	mu   sync.Mutex
	t    *testing.T
	done bool
}

func (l *testLogger) logf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done {
		l.t.Logf(format, v...)
	}
}

func (l *testLogger) Debug(format string, v ...interface{}) { l.logf("[DEBUG] "+format, v...) }
func (l *testLogger) Info(format string, v ...interface{})  { l.logf("[INFO] "+format, v...) }
func (l *testLogger) Warn(format string, v ...interface{})  { l.logf("[WARN] "+format, v...) }
func (l *testLogger) Error(format string, v ...interface{}) { l.logf("[ERROR] "+format, v...) }
func (l *testLogger) Fatal(format string, v ...interface{}) { l.logf("[FATAL] "+format, v...) }

// newTestLogger creates a new logger for testing
func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()
	l := &testLogger{t: t}
	t.Cleanup(func() {
		l.mu.Lock()
		l.done = true
		l.mu.Unlock()
	})
	return l
}

// newTestCluster creates a cluster whose local node is not master eligible,
// so tests only see the events they provoke.
func newTestCluster(t *testing.T) *Cluster {
	t.Helper()
	localNode := node.New("local-test", net.ParseIP("127.0.0.1"), 7946)
	localNode.MasterEligible = false
	cfg := config.DefaultConfig()
	cfg.ClusterName = "test-cluster"
	c := NewCluster(context.Background(), localNode, newTestLogger(t), cfg)
	t.Cleanup(func() { c.Shutdown() })
	return c
}

// collect subscribes to c and returns the channel events arrive on.
func collect(c *Cluster) <-chan event.Event {
	ch := make(chan event.Event, 32)
	c.Subscribe(func(ev event.Event) { ch <- ev })
	return ch
}

func next(t *testing.T, ch <-chan event.Event) event.NodeEventer {
	t.Helper()
	select {
	case ev := <-ch:
		ne, ok := ev.(event.NodeEventer)
		if !ok {
			t.Fatalf("unexpected event type %T", ev)
		}
		return ne
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func expectNone(t *testing.T, ch <-chan event.Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %s", ev.ConciseDescription())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewCluster(t *testing.T) {
	c := newTestCluster(t)
	if c.localNode.Name != "local-test" {
		t.Error("Local node not set correctly")
	}
	if len(c.Nodes()) != 0 {
		t.Error("Expected no peers")
	}
	if c.Master() != "" {
		t.Errorf("Master() = %q, want none", c.Master())
	}
}

func TestJoin(t *testing.T) {
	c := newTestCluster(t)
	events := collect(c)

	peer := node.New("peer", net.ParseIP("10.0.0.2"), 7946)
	peer.MasterEligible = false
	c.Join(peer, SourceMDNS)

	ev := next(t, events)
	if ev.Kind() != event.KindNodeJoined || ev.Source() != SourceMDNS {
		t.Errorf("event = (%s, %s)", ev.Kind(), ev.Source())
	}
	if ev.ClusterName() != "test-cluster" {
		t.Errorf("ClusterName() = %q", ev.ClusterName())
	}
	if got, want := ev.ConciseDescription(), "[peer][10.0.0.2] joined"; got != want {
		t.Errorf("ConciseDescription() = %q, want %q", got, want)
	}

	got, exists := c.GetNode(peer.ID)
	if !exists {
		t.Fatal("peer not found in cluster")
	}
	if got.Name != "peer" {
		t.Errorf("peer name = %q", got.Name)
	}

	// A second sighting only refreshes the peer.
	c.Join(peer.Clone(), SourceMDNS)
	expectNone(t, events)
	if len(c.Nodes()) != 1 {
		t.Errorf("len(Nodes()) = %d, want 1", len(c.Nodes()))
	}
}

func TestJoinIgnoresLocalNode(t *testing.T) {
	c := newTestCluster(t)
	events := collect(c)

	c.Join(c.Local(), SourceMDNS)

	expectNone(t, events)
	if len(c.Nodes()) != 0 {
		t.Error("local node was added as a peer")
	}
}

func TestLeave(t *testing.T) {
	c := newTestCluster(t)
	peer := node.New("peer", net.ParseIP("10.0.0.2"), 7946)
	peer.MasterEligible = false
	c.Join(peer, SourceGossip)
	events := collect(c)

	c.Leave(peer.ID, SourceGossip)

	ev := next(t, events)
	if ev.Kind() != event.KindNodeLeft {
		t.Errorf("Kind() = %q, want %q", ev.Kind(), event.KindNodeLeft)
	}
	if _, exists := c.GetNode(peer.ID); exists {
		t.Error("peer still present after leave")
	}

	c.Leave("unknown", SourceGossip)
	expectNone(t, events)
}

func TestEventsCarrySnapshots(t *testing.T) {
	c := newTestCluster(t)
	events := collect(c)

	peer := node.New("peer", net.ParseIP("10.0.0.2"), 7946)
	peer.MasterEligible = false
	c.Join(peer, SourceMDNS)
	ev := next(t, events)

	c.mutex.Lock()
	c.nodes[peer.ID].Name = "renamed"
	c.mutex.Unlock()

	if got := ev.Node().Describe(); got != "[peer][10.0.0.2]" {
		t.Errorf("event node changed with cluster state: %s", got)
	}
}

func TestElection(t *testing.T) {
	localNode := node.New("local", net.ParseIP("10.0.0.1"), 7946)
	c := NewCluster(context.Background(), localNode, newTestLogger(t), config.DefaultConfig())
	defer c.Shutdown()
	events := collect(c)

	c.Elect(SourceStartup)
	ev := next(t, events)
	if ev.Kind() != event.KindElectedAsMaster || ev.Source() != SourceStartup {
		t.Fatalf("event = (%s, %s), want elected_as_master from startup", ev.Kind(), ev.Source())
	}
	if got, want := ev.ConciseDescription(), "[local][10.0.0.1] became master"; got != want {
		t.Errorf("ConciseDescription() = %q, want %q", got, want)
	}
	if c.Master() != localNode.ID {
		t.Errorf("Master() = %q, want local node", c.Master())
	}

	// Re-electing with the same membership changes nothing.
	c.Elect(SourceStartup)
	expectNone(t, events)

	peer := node.New("peer", net.ParseIP("10.0.0.2"), 7946)
	winner, _ := hashring.New([]string{localNode.ID, peer.ID}).GetNode(masterKey)

	c.Join(peer, SourceMDNS)
	if next(t, events).Kind() != event.KindNodeJoined {
		t.Fatal("expected join event first")
	}
	if c.Master() != winner {
		t.Errorf("Master() = %q, want %q", c.Master(), winner)
	}
	expectNone(t, events)

	c.Leave(peer.ID, SourceMDNS)
	want := map[string]string{event.KindNodeLeft: SourceMDNS}
	if winner == peer.ID {
		// Mastership returns to the local node.
		want[event.KindElectedAsMaster] = SourceMDNS
	}
	// Subscribers are notified concurrently, so arrival order is not fixed.
	got := make(map[string]string)
	for range want {
		ev := next(t, events)
		got[ev.Kind()] = ev.Source()
	}
	for kind, source := range want {
		if got[kind] != source {
			t.Errorf("events = %v, want %v", got, want)
		}
	}
	if c.Master() != localNode.ID {
		t.Errorf("Master() = %q, want local node", c.Master())
	}
}

func TestNodeStateTransitions(t *testing.T) {
	c := newTestCluster(t)
	c.config.SuspectTimeout = 300 * time.Millisecond
	c.config.DeadTimeout = 900 * time.Millisecond
	c.config.NodeRemovalDelay = time.Hour

	now := time.Now()
	c.now = func() time.Time { return now }

	peer := node.New("test", net.ParseIP("127.0.0.2"), 7946)
	peer.MasterEligible = false
	c.Join(peer, SourceMDNS)
	events := collect(c)

	getNodeState := func() node.State {
		if n, exists := c.GetNode(peer.ID); exists {
			return n.State
		}
		return node.Unknown
	}

	if state := getNodeState(); state != node.Alive {
		t.Errorf("Initial state should be Alive, got %v", state)
	}

	now = now.Add(400 * time.Millisecond)
	c.checkNodes()
	if state := getNodeState(); state != node.Suspect {
		t.Errorf("Expected node state to be Suspect, got %v", state)
	}
	expectNone(t, events)

	now = now.Add(600 * time.Millisecond)
	c.checkNodes()
	if state := getNodeState(); state != node.Dead {
		t.Errorf("Expected node state to be Dead, got %v", state)
	}
	ev := next(t, events)
	if ev.Kind() != event.KindNodeLeft || ev.Source() != SourceHealth {
		t.Errorf("event = (%s, %s), want node_left from health-check", ev.Kind(), ev.Source())
	}

	// A later leave from discovery is not reported twice.
	c.Leave(peer.ID, SourceMDNS)
	expectNone(t, events)
}

func TestHealthCheckLeavesSelfMonitoredPeers(t *testing.T) {
	for _, source := range []string{SourceGossip, SourceKubernetes} {
		t.Run(source, func(t *testing.T) {
			c := newTestCluster(t)
			now := time.Now()
			c.now = func() time.Time { return now }

			peer := node.New("quiet", net.ParseIP("10.0.0.7"), 7946)
			c.Join(peer, source)
			if c.Master() != peer.ID {
				t.Fatalf("Master() = %q, want %q", c.Master(), peer.ID)
			}
			events := collect(c)

			now = now.Add(c.config.DeadTimeout + 5*time.Second)
			c.checkNodes()

			expectNone(t, events)
			if n, _ := c.GetNode(peer.ID); n == nil || n.State != node.Alive {
				t.Errorf("peer state = %v, want alive", n)
			}
			if c.Master() != peer.ID {
				t.Errorf("Master() = %q after health check, want %q", c.Master(), peer.ID)
			}

			// Failures still arrive through the backend.
			c.Leave(peer.ID, source)
			if ev := next(t, events); ev.Kind() != event.KindNodeLeft || ev.Source() != source {
				t.Errorf("event = (%s, %s), want node_left from %s", ev.Kind(), ev.Source(), source)
			}
		})
	}
}

func TestHealthCheckAgesPeerSeenThroughMDNS(t *testing.T) {
	c := newTestCluster(t)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.config.NodeRemovalDelay = time.Hour

	peer := node.New("peer", net.ParseIP("10.0.0.8"), 7946)
	peer.MasterEligible = false
	c.Join(peer, SourceGossip)
	c.Join(peer.Clone(), SourceMDNS)
	events := collect(c)

	now = now.Add(c.config.DeadTimeout + time.Second)
	c.checkNodes()
	if ev := next(t, events); ev.Kind() != event.KindNodeLeft || ev.Source() != SourceHealth {
		t.Errorf("event = (%s, %s), want node_left from health-check", ev.Kind(), ev.Source())
	}
}

func TestDeadNodeRejoins(t *testing.T) {
	c := newTestCluster(t)
	c.config.NodeRemovalDelay = time.Hour
	peer := node.New("peer", net.ParseIP("10.0.0.9"), 7946)
	peer.MasterEligible = false
	c.Join(peer, SourceMDNS)

	c.mutex.Lock()
	c.markNodeDead(c.nodes[peer.ID])
	c.mutex.Unlock()
	events := collect(c)

	c.Join(peer.Clone(), SourceMDNS)
	if ev := next(t, events); ev.Kind() != event.KindNodeJoined {
		t.Errorf("Kind() = %q, want node_joined", ev.Kind())
	}
	if n, _ := c.GetNode(peer.ID); n.State != node.Alive {
		t.Errorf("state = %v, want alive", n.State)
	}
}

type stubDiscoverer struct {
	peer *node.Descriptor
}

func (d *stubDiscoverer) Name() string { return "stub" }

func (d *stubDiscoverer) Run(ctx context.Context, m Membership) error {
	m.Join(d.peer, "stub")
	<-ctx.Done()
	return ctx.Err()
}

func TestClusterShutdown(t *testing.T) {
	c := newTestCluster(t)
	peer := node.New("peer", net.ParseIP("10.0.0.2"), 7946)
	peer.MasterEligible = false
	events := collect(c)

	c.Start(&stubDiscoverer{peer: peer})
	c.StartHealthCheck()
	if ev := next(t, events); ev.Kind() != event.KindNodeJoined {
		t.Fatalf("Kind() = %q, want node_joined", ev.Kind())
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		if err := c.Shutdown(); err != nil {
			t.Errorf("Shutdown error: %v", err)
		}
	}()

	select {
	case <-shutdownDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown timed out")
	}

	ev := next(t, events)
	if ev.Kind() != event.KindNodeLeft || ev.Source() != SourceShutdown {
		t.Errorf("event = (%s, %s), want node_left from shutdown", ev.Kind(), ev.Source())
	}
	if got := ev.Node().Describe(); got != "[local-test][127.0.0.1]" {
		t.Errorf("shutdown event node = %s", got)
	}
}

func TestNoEventsAfterShutdown(t *testing.T) {
	c := newTestCluster(t)
	events := collect(c)

	c.Shutdown()
	if ev := next(t, events); ev.Source() != SourceShutdown {
		t.Fatalf("first event source = %s, want shutdown", ev.Source())
	}

	c.Join(node.New("late", net.ParseIP("10.0.0.9"), 7946), "stub")
	select {
	case ev := <-events:
		t.Errorf("unexpected event after shutdown: %s", ev.ConciseDescription())
	case <-time.After(100 * time.Millisecond):
	}
}
