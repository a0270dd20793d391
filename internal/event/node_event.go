package event

import "github.com/sakuffo/sakwatch/internal/xcontent"

const (
	TypeNodeEvent = "node_event"

	KindElectedAsMaster = "elected_as_master"
	KindNodeJoined      = "node_joined"
	KindNodeLeft        = "node_left"
)

// Node is the read-only view of a cluster node that node events render.
// Events borrow it; they never modify it.
type Node interface {
	// Describe renders the node identity as a short human-readable string.
	Describe() string
	// RenderXContent writes the node identity into the open object of b.
	RenderXContent(b xcontent.Builder) error
}

// NodeEventer is implemented by every node topology event.
type NodeEventer interface {
	Event
	Kind() string
	Source() string
	Node() Node
}

// NodeEvent holds what all node topology events share. All of them report
// the "node_event" type; the variant is carried in the "event" field.
type NodeEvent struct {
	envelope
	source string
}

func newNodeEvent(timestamp int64, clusterName, source string) NodeEvent {
	return NodeEvent{
		envelope: envelope{timestamp: timestamp, clusterName: clusterName},
		source:   source,
	}
}

func (NodeEvent) Type() string { return TypeNodeEvent }

// Source names the subsystem that observed the event.
func (e NodeEvent) Source() string { return e.source }

func (e NodeEvent) writers(kind string) []FieldWriter {
	return []FieldWriter{
		typeWriter(TypeNodeEvent),
		func(b xcontent.Builder) error {
			if err := b.Field("event", kind); err != nil {
				return err
			}
			return b.Field("event_source", e.source)
		},
	}
}

// ElectedAsMaster records that a node became the cluster master.
type ElectedAsMaster struct {
	NodeEvent
	node Node
}

func NewElectedAsMaster(timestamp int64, clusterName string, n Node, source string) *ElectedAsMaster {
	return &ElectedAsMaster{
		NodeEvent: newNodeEvent(timestamp, clusterName, source),
		node:      n,
	}
}

func (e *ElectedAsMaster) Kind() string { return KindElectedAsMaster }
func (e *ElectedAsMaster) Node() Node   { return e.node }

func (e *ElectedAsMaster) ConciseDescription() string {
	return e.node.Describe() + " became master"
}

// Writers leaves the node out of the body; the exporter attaches the
// identity of the reporting node itself.
func (e *ElectedAsMaster) Writers() []FieldWriter {
	return e.NodeEvent.writers(e.Kind())
}

// NodeJoinLeave records a node joining or leaving the cluster.
type NodeJoinLeave struct {
	NodeEvent
	node   Node
	joined bool
}

func NewNodeJoinLeave(timestamp int64, clusterName string, n Node, joined bool, source string) *NodeJoinLeave {
	return &NodeJoinLeave{
		NodeEvent: newNodeEvent(timestamp, clusterName, source),
		node:      n,
		joined:    joined,
	}
}

func (e *NodeJoinLeave) Joined() bool { return e.joined }
func (e *NodeJoinLeave) Node() Node   { return e.node }

func (e *NodeJoinLeave) Kind() string {
	if e.joined {
		return KindNodeJoined
	}
	return KindNodeLeft
}

func (e *NodeJoinLeave) ConciseDescription() string {
	if e.joined {
		return e.node.Describe() + " joined"
	}
	return e.node.Describe() + " left"
}

func (e *NodeJoinLeave) Writers() []FieldWriter {
	return append(e.NodeEvent.writers(e.Kind()), e.writeNode)
}

// writeNode embeds the node identity as a nested "node" object. A failure
// while rendering the node is returned before the object is closed.
func (e *NodeJoinLeave) writeNode(b xcontent.Builder) error {
	if err := b.StartObject("node"); err != nil {
		return err
	}
	if err := e.node.RenderXContent(b); err != nil {
		return err
	}
	return b.EndObject()
}

var (
	_ NodeEventer = (*ElectedAsMaster)(nil)
	_ NodeEventer = (*NodeJoinLeave)(nil)
)
