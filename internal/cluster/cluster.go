package cluster

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sakuffo/sakwatch/internal/config"
	"github.com/sakuffo/sakwatch/internal/event"
	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/node"
)

// Membership is the view of the cluster a Discoverer reports peers into.
type Membership interface {
	// Local returns a snapshot of the local node.
	Local() *node.Descriptor
	Join(n *node.Descriptor, source string)
	Leave(id, source string)
}

// Discoverer finds peers and reports them until ctx is cancelled.
type Discoverer interface {
	Name() string
	Run(ctx context.Context, m Membership) error
}

// Cluster tracks the topology of the monitored cluster as seen from the local
// node. It turns discovery and health observations into lifecycle events and
// distributes them to subscribers.
type Cluster struct {
	ctx          context.Context
	cancel       context.CancelFunc
	mutex        sync.RWMutex
	localNode    *node.Descriptor
	nodes        map[string]*node.Descriptor
	sources      map[string]string // node ID to the source that last reported it
	master       string
	subscribers  []EventFunc
	logger       logger.Logger
	config       *config.Config
	healthCheck  *time.Ticker
	discoveryWG  sync.WaitGroup
	notifyWG     sync.WaitGroup
	stopped      bool // no events are emitted once set
	shutdownOnce sync.Once
	now          func() time.Time
}

// NewCluster initializes a new cluster with the local node.
//
// The provided context controls the lifecycle of all cluster operations including
// discovery and health checking. Cancel the context to initiate a graceful shutdown.
//
// Example:
//
//	ctx := context.Background()
//	cfg := config.DefaultConfig()
//	log := logger.NewWriter(os.Stderr)
//	localNode := node.New("local", net.ParseIP("192.168.1.1"), 7946)
//
//	c := cluster.NewCluster(ctx, localNode, log, cfg)
//	defer c.Shutdown()
func NewCluster(ctx context.Context, localNode *node.Descriptor, log logger.Logger, cfg *config.Config) *Cluster {
	ctx, cancel := context.WithCancel(ctx)
	c := &Cluster{
		ctx:       ctx,
		cancel:    cancel,
		localNode: localNode,
		nodes:     make(map[string]*node.Descriptor),
		sources:   make(map[string]string),
		logger:    log,
		config:    cfg,
		now:       time.Now,
	}
	c.logger.Info("Created cluster %s with local node: %s (ID: %s, Address: %s)",
		cfg.ClusterName, localNode.Name, localNode.ID, localNode.TransportAddress())
	return c
}

// Local returns a snapshot of the local node.
func (c *Cluster) Local() *node.Descriptor {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.localNode.Clone()
}

// Join records that a peer was observed. An unknown peer is added and
// announced with a node_joined event; a known peer only has its last seen
// time refreshed. A dead peer that shows up again is announced as joined.
func (c *Cluster) Join(n *node.Descriptor, source string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n.ID == c.localNode.ID {
		return
	}

	c.sources[n.ID] = source
	if existing, exists := c.nodes[n.ID]; exists {
		existing.LastSeen = c.now()
		switch existing.State {
		case node.Suspect:
			c.logger.Info("Node %s recovered from suspect state", existing.Name)
			existing.State = node.Alive
		case node.Dead:
			c.logger.Info("Node %s came back after being marked dead", existing.Name)
			existing.State = node.Alive
			c.notifySubscribers(c.joinLeave(existing, true, source))
			c.elect(source)
		default:
			c.logger.Debug("Updated last seen time for node: %s (ID: %s)", existing.Name, existing.ID)
		}
		return
	}

	n.State = node.Alive
	n.LastSeen = c.now()
	c.nodes[n.ID] = n
	c.logger.Info("Node joined cluster: %s (ID: %s, Address: %s, source: %s)",
		n.Name, n.ID, n.TransportAddress(), source)
	c.notifySubscribers(c.joinLeave(n, true, source))
	c.elect(source)
}

// Leave removes a peer and announces it with a node_left event, unless the
// health check already reported it dead.
func (c *Cluster) Leave(id, source string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n, exists := c.nodes[id]
	if !exists {
		c.logger.Debug("Ignoring leave of unknown node %s (source: %s)", id, source)
		return
	}
	delete(c.nodes, id)
	delete(c.sources, id)
	c.logger.Info("Node left cluster: %s (ID: %s, source: %s)", n.Name, n.ID, source)
	if n.State != node.Dead {
		c.notifySubscribers(c.joinLeave(n, false, source))
	}
	c.elect(source)
}

// GetNode returns a snapshot of the peer with the given ID.
func (c *Cluster) GetNode(id string) (*node.Descriptor, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	n, exists := c.nodes[id]
	if !exists {
		return nil, false
	}
	return n.Clone(), true
}

// Nodes returns snapshots of all known peers.
func (c *Cluster) Nodes() []*node.Descriptor {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	nodes := make([]*node.Descriptor, 0, len(c.nodes))
	for _, n := range c.nodes {
		nodes = append(nodes, n.Clone())
	}
	return nodes
}

// Subscribe adds an event listener that will be notified of cluster events.
// Events are delivered asynchronously to all subscribers.
func (c *Cluster) Subscribe(fn EventFunc) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.subscribers = append(c.subscribers, fn)
	c.logger.Debug("Added new cluster event subscriber (total subscribers: %d)",
		len(c.subscribers))
}

// notifySubscribers sends events to all subscribers asynchronously.
// Caller must hold c.mutex.
func (c *Cluster) notifySubscribers(ev event.Event) {
	if c.stopped {
		c.logger.Debug("Dropping event after shutdown: %s", ev.ConciseDescription())
		return
	}
	c.logger.Debug("Notifying %d subscribers: %s", len(c.subscribers), ev.ConciseDescription())
	for _, fn := range c.subscribers {
		c.notifyWG.Add(1)
		go func(fn EventFunc) {
			defer c.notifyWG.Done()
			fn(ev)
		}(fn)
	}
}

// Start runs d in the background until the cluster shuts down.
func (c *Cluster) Start(d Discoverer) {
	c.logger.Info("Starting %s discovery", d.Name())
	c.discoveryWG.Add(1)
	go func() {
		defer c.discoveryWG.Done()
		if err := d.Run(c.ctx, c); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("%s discovery stopped: %v", d.Name(), err)
			return
		}
		c.logger.Info("%s discovery stopped", d.Name())
	}()
}

// Shutdown gracefully shuts down the cluster, stopping all background services
// and notifying subscribers of the local node's departure. It blocks until
// every discoverer has returned and every subscriber call has finished.
func (c *Cluster) Shutdown() error {
	c.shutdownOnce.Do(func() {
		c.logger.Info("Starting cluster shutdown for node: %s", c.localNode.Name)

		// Cancel context to stop all background operations
		c.cancel()

		c.mutex.Lock()
		if c.healthCheck != nil {
			c.healthCheck.Stop()
		}
		c.mutex.Unlock()

		// Discoverers call Join/Leave, so wait without holding the lock
		c.discoveryWG.Wait()

		c.mutex.Lock()
		c.notifySubscribers(c.joinLeave(c.localNode, false, SourceShutdown))
		c.stopped = true
		c.mutex.Unlock()

		c.notifyWG.Wait()
		c.logger.Info("Cluster shutdown complete for node: %s", c.localNode.Name)
	})
	return nil
}
