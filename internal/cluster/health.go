package cluster

import (
	"time"

	"github.com/sakuffo/sakwatch/internal/node"
)

// StartHealthCheck periodically downgrades peers that have not been seen:
// Alive to Suspect after SuspectTimeout, then to Dead after DeadTimeout.
// Peers whose discovery backend detects failures itself are left to it.
func (c *Cluster) StartHealthCheck() {
	c.logger.Info("Starting health check service with %v interval", c.config.HealthInterval)
	ticker := time.NewTicker(c.config.HealthInterval)
	c.mutex.Lock()
	c.healthCheck = ticker
	c.mutex.Unlock()

	go func() {
		for {
			select {
			case <-c.ctx.Done():
				c.logger.Info("Health check service stopping due to context cancellation")
				return
			case <-ticker.C:
				c.checkNodes()
			}
		}
	}()
}

func (c *Cluster) checkNodes() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.logger.Debug("Starting health check cycle for %d nodes", len(c.nodes))
	now := c.now()

	for _, n := range c.nodes {
		select {
		case <-c.ctx.Done():
			return
		default:
			c.checkNodeHealth(n, now)
		}
	}
	c.logger.Debug("Health check cycle complete")
}

func (c *Cluster) checkNodeHealth(n *node.Descriptor, now time.Time) {
	if source := c.sources[n.ID]; detectsFailures(source) {
		c.logger.Debug("Skipping node %s, liveness reported by %s", n.Name, source)
		return
	}
	lastSeenDuration := now.Sub(n.LastSeen)
	c.logger.Debug("Checking node %s (ID: %s), last seen %v ago",
		n.Name, n.ID, lastSeenDuration.Round(time.Second))

	if lastSeenDuration > c.config.SuspectTimeout && n.State == node.Alive {
		c.logger.Warn("Node %s (%s) hasn't been seen for %v, marking as suspect",
			n.Name, n.Address, lastSeenDuration.Round(time.Second))
		c.markNodeSuspect(n)
	}

	if lastSeenDuration > c.config.DeadTimeout && n.State != node.Dead {
		c.logger.Warn("Node %s (%s) hasn't been seen for %v, marking as dead",
			n.Name, n.Address, lastSeenDuration.Round(time.Second))
		c.markNodeDead(n)
	}
}

func (c *Cluster) markNodeSuspect(n *node.Descriptor) {
	if n.State == node.Alive {
		oldState := n.State
		n.State = node.Suspect
		c.logger.Info("Node %s (%s) state changed from %v to %v",
			n.Name, n.Address, oldState, n.State)
	}
}

// markNodeDead reports the node as left and schedules its removal.
func (c *Cluster) markNodeDead(n *node.Descriptor) {
	if n.State != node.Dead {
		oldState := n.State
		n.State = node.Dead
		c.logger.Info("Node %s (%s) state changed from %v to %v",
			n.Name, n.Address, oldState, n.State)
		c.notifySubscribers(c.joinLeave(n, false, SourceHealth))
		c.elect(SourceHealth)

		go c.removeDeadNodeAfterDelay(n.ID)
	}
}

func (c *Cluster) removeDeadNodeAfterDelay(nodeID string) {
	c.logger.Debug("Starting %v delay before removing dead node: %s", c.config.NodeRemovalDelay, nodeID)

	select {
	case <-c.ctx.Done():
		c.logger.Debug("Cancelling node removal due to context cancellation: %s", nodeID)
		return
	case <-time.After(c.config.NodeRemovalDelay):
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.nodes[nodeID]; exists && n.State == node.Dead {
		c.logger.Info("Removing dead node %s (%s) from cluster after %v delay",
			n.Name, n.Address, c.config.NodeRemovalDelay)
		delete(c.nodes, nodeID)
		delete(c.sources, nodeID)
	} else {
		c.logger.Debug("Node %s no longer eligible for removal (state changed or already removed)", nodeID)
	}
}
