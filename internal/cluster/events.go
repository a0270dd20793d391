package cluster

import (
	"github.com/sakuffo/sakwatch/internal/event"
	"github.com/sakuffo/sakwatch/internal/node"
)

// Event sources attached to the events this package emits
const (
	SourceMDNS       = "mdns-discovery"
	SourceGossip     = "gossip-discovery"
	SourceKubernetes = "kubernetes-informer"
	SourceHealth     = "health-check"
	SourceStartup    = "startup"
	SourceShutdown   = "shutdown"
)

// detectsFailures reports whether peers seen through source are dropped by
// their discovery backend when they fail. Serf probes its members and the
// informer tracks node readiness; neither re-announces a quiet healthy peer,
// so their peers are not aged out by last seen time.
func detectsFailures(source string) bool {
	switch source {
	case SourceGossip, SourceKubernetes:
		return true
	}
	return false
}

// EventFunc is a callback function type for cluster events
type EventFunc func(ev event.Event)

// joinLeave builds a join/leave event around a snapshot of n.
func (c *Cluster) joinLeave(n *node.Descriptor, joined bool, source string) event.Event {
	return event.NewNodeJoinLeave(c.now().UnixMilli(), c.config.ClusterName, n.Clone(), joined, source)
}

func (c *Cluster) electedAsMaster(n *node.Descriptor, source string) event.Event {
	return event.NewElectedAsMaster(c.now().UnixMilli(), c.config.ClusterName, n.Clone(), source)
}
