package node

import (
	"maps"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// State represents the liveness of a node as seen by the local agent
type State int

const (
	Unknown State = iota
	Alive
	Suspect
	Dead
)

func (s State) String() string {
	switch s {
	case Alive:
		return "alive"
	case Suspect:
		return "suspect"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// Descriptor identifies a single node in the monitored cluster
type Descriptor struct {
	ID             string
	Name           string
	HostName       string
	Address        net.IP
	Port           int
	MasterEligible bool
	State          State
	LastSeen       time.Time
	Attributes     map[string]string
}

// New creates a master-eligible, alive node descriptor with a fresh ID
func New(name string, address net.IP, port int) *Descriptor {
	return &Descriptor{
		ID:             uuid.New().String(),
		Name:           name,
		Address:        address,
		Port:           port,
		MasterEligible: true,
		State:          Alive,
		LastSeen:       time.Now(),
		Attributes:     make(map[string]string),
	}
}

// Clone returns a deep copy. Events are handed clones so the owner of the
// original can keep updating it while the event is being serialized.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	if d.Address != nil {
		c.Address = append(net.IP(nil), d.Address...)
	}
	c.Attributes = maps.Clone(d.Attributes)
	if c.Attributes == nil {
		c.Attributes = make(map[string]string)
	}
	return &c
}

// TransportAddress returns "ip:port", or "" when the address is unknown.
func (d *Descriptor) TransportAddress() string {
	if d.Address == nil {
		return ""
	}
	return net.JoinHostPort(d.Address.String(), strconv.Itoa(d.Port))
}
