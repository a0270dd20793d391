// Package gossip discovers peers through a serf gossip pool.
package gossip

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/serf/serf"

	"github.com/sakuffo/sakwatch/internal/cluster"
	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/node"
)

// Member tags carrying node identity
const (
	tagID     = "id"
	tagMaster = "master"
)

type Config struct {
	BindAddr string
	BindPort int
	Peers    []string
}

// Discoverer joins a serf pool and turns member events into membership changes.
type Discoverer struct {
	config  Config
	logger  logger.Logger
	eventCh chan serf.Event
}

func New(cfg Config, log logger.Logger) *Discoverer {
	return &Discoverer{
		config:  cfg,
		logger:  log,
		eventCh: make(chan serf.Event, 16),
	}
}

func (d *Discoverer) Name() string { return "gossip" }

func (d *Discoverer) serfConfig(local *node.Descriptor) *serf.Config {
	cfg := serf.DefaultConfig()
	cfg.NodeName = local.Name
	cfg.Tags = map[string]string{
		tagID:     local.ID,
		tagMaster: strconv.FormatBool(local.MasterEligible),
	}
	for k, v := range local.Attributes {
		cfg.Tags[k] = v
	}
	cfg.MemberlistConfig.BindAddr = d.config.BindAddr
	cfg.MemberlistConfig.BindPort = d.config.BindPort
	cfg.ReapInterval = 5 * time.Second
	cfg.ReconnectTimeout = 15 * time.Second
	cfg.ReconnectInterval = 5 * time.Second
	cfg.TombstoneTimeout = 15 * time.Second
	cfg.EventCh = d.eventCh
	return cfg
}

// Run creates the serf agent, joins the configured peers and forwards member
// events until ctx is cancelled, then leaves the pool.
func (d *Discoverer) Run(ctx context.Context, m cluster.Membership) error {
	local := m.Local()
	s, err := serf.Create(d.serfConfig(local))
	if err != nil {
		return fmt.Errorf("gossip: create serf: %w", err)
	}
	defer func() {
		if err := s.Leave(); err != nil {
			d.logger.Warn("gossip: leave: %v", err)
		}
		if err := s.Shutdown(); err != nil {
			d.logger.Warn("gossip: shutdown: %v", err)
		}
	}()

	if len(d.config.Peers) > 0 {
		joined, err := s.Join(d.config.Peers, true)
		if err != nil {
			d.logger.Warn("gossip: joined %d of %d peers: %v", joined, len(d.config.Peers), err)
		} else {
			d.logger.Info("gossip: joined %d peers", joined)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.eventCh:
			if memberEvent, ok := ev.(serf.MemberEvent); ok {
				d.handleMemberEvent(m, memberEvent)
			}
		}
	}
}

func (d *Discoverer) handleMemberEvent(m cluster.Membership, ev serf.MemberEvent) {
	localID := m.Local().ID
	for _, member := range ev.Members {
		n, ok := toDescriptor(member)
		if !ok {
			d.logger.Debug("gossip: member %s has no id tag", member.Name)
			continue
		}
		if n.ID == localID {
			continue
		}
		switch ev.EventType() {
		case serf.EventMemberJoin, serf.EventMemberUpdate:
			m.Join(n, cluster.SourceGossip)
		case serf.EventMemberLeave, serf.EventMemberFailed, serf.EventMemberReap:
			m.Leave(n.ID, cluster.SourceGossip)
		}
	}
}

func toDescriptor(member serf.Member) (*node.Descriptor, bool) {
	id := member.Tags[tagID]
	if id == "" {
		return nil, false
	}
	master := true
	if v, ok := member.Tags[tagMaster]; ok {
		master, _ = strconv.ParseBool(v)
	}
	attributes := make(map[string]string)
	for k, v := range member.Tags {
		if k != tagID && k != tagMaster {
			attributes[k] = v
		}
	}
	return &node.Descriptor{
		ID:             id,
		Name:           member.Name,
		Address:        member.Addr,
		Port:           int(member.Port),
		MasterEligible: master,
		State:          node.Alive,
		Attributes:     attributes,
	}, true
}
