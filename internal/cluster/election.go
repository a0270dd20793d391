package cluster

import (
	"github.com/serialx/hashring"

	"github.com/sakuffo/sakwatch/internal/node"
)

const masterKey = "master"

// Elect recomputes the master from the current membership.
func (c *Cluster) Elect(source string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.elect(source)
}

// Master returns the ID of the current master, or "" when no node is eligible.
func (c *Cluster) Master() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.master
}

// candidates returns the IDs of master-eligible nodes that are not dead.
func (c *Cluster) candidates() []string {
	var ids []string
	if c.localNode.MasterEligible {
		ids = append(ids, c.localNode.ID)
	}
	for id, n := range c.nodes {
		if n.MasterEligible && n.State != node.Dead {
			ids = append(ids, id)
		}
	}
	return ids
}

// elect places every candidate on a consistent hash ring and makes the owner
// of masterKey the master. Every agent seeing the same membership picks the
// same master. Only the local node's own election is reported as an event.
// Caller must hold c.mutex.
func (c *Cluster) elect(source string) {
	master, ok := hashring.New(c.candidates()).GetNode(masterKey)
	if !ok {
		master = ""
	}
	if master == c.master {
		return
	}

	previous := c.master
	c.master = master
	c.logger.Info("Master changed from %q to %q (source: %s)", previous, master, source)

	if master == c.localNode.ID {
		c.notifySubscribers(c.electedAsMaster(c.localNode, source))
	}
}
