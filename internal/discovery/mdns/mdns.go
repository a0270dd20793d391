// Package mdns discovers peers on the local network with zeroconf.
package mdns

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/sakuffo/sakwatch/internal/cluster"
	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/node"
)

const domain = "local."

// TXT record keys carrying node identity
const (
	txtID     = "id"
	txtName   = "name"
	txtMaster = "master"
)

// Config holds the mDNS discovery settings.
type Config struct {
	ServiceName   string
	RetryInterval time.Duration // Time between discovery attempts
	Timeout       time.Duration // Timeout for each browse
	BufferSize    int           // Size of the discovery entries buffer
}

// Discoverer advertises the local node and browses for peers.
type Discoverer struct {
	config Config
	logger logger.Logger
}

func New(cfg Config, log logger.Logger) *Discoverer {
	return &Discoverer{config: cfg, logger: log}
}

func (d *Discoverer) Name() string { return "mdns" }

// Run registers the local node and continuously looks for other nodes until
// ctx is cancelled.
func (d *Discoverer) Run(ctx context.Context, m cluster.Membership) error {
	local := m.Local()
	d.logger.Info("Starting mDNS service with name: %s", d.config.ServiceName)

	server, err := zeroconf.Register(
		local.Name,
		d.config.ServiceName,
		domain,
		local.Port,
		txtRecords(local),
		nil,
	)
	if err != nil {
		d.logger.Error("Failed to register mDNS service: %v", err)
		return fmt.Errorf("failed to register zeroconf server: %w", err)
	}
	defer server.Shutdown()
	d.logger.Info("mDNS service registered successfully on port %d", local.Port)

	ticker := time.NewTicker(d.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Discovery service stopping due to context cancellation")
			return ctx.Err()
		case <-ticker.C:
			d.logger.Debug("Starting new discovery cycle (service: %s, retry interval: %v)",
				d.config.ServiceName, d.config.RetryInterval)
			if err := d.runDiscoveryCycle(ctx, m); err != nil {
				d.logger.Error("Discovery cycle failed: %v", err)
			}
		}
	}
}

// runDiscoveryCycle performs a single browse
func (d *Discoverer) runDiscoveryCycle(ctx context.Context, m cluster.Membership) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, d.config.BufferSize)
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	go func() {
		for entry := range entries {
			d.handleDiscoveredNode(m, entry)
		}
	}()

	if err := resolver.Browse(ctx, d.config.ServiceName, domain, entries); err != nil {
		return fmt.Errorf("failed to browse services: %w", err)
	}
	<-ctx.Done()
	return nil
}

func (d *Discoverer) handleDiscoveredNode(m cluster.Membership, entry *zeroconf.ServiceEntry) {
	n, ok := d.parseEntry(entry)
	if !ok {
		return
	}
	if n.ID == m.Local().ID {
		d.logger.Debug("Skipping discovery of our own node (ID: %s, Host: %s)", n.ID, entry.HostName)
		return
	}
	m.Join(n, cluster.SourceMDNS)
}

// parseEntry turns a service entry into a node descriptor. Entries without
// an ID or without a usable IPv4 address are rejected.
func (d *Discoverer) parseEntry(entry *zeroconf.ServiceEntry) (*node.Descriptor, bool) {
	attributes := make(map[string]string)
	var id, name string
	master := true

	for _, txt := range entry.Text {
		key, value, found := strings.Cut(txt, "=")
		if !found {
			continue
		}
		switch key {
		case txtID:
			id = value
		case txtName:
			name = value
		case txtMaster:
			master, _ = strconv.ParseBool(value)
		default:
			attributes[key] = value
		}
	}

	if id == "" {
		d.logger.Debug("Discovered node missing ID in TXT records - Host: %s, IP: %v, Port: %d",
			entry.HostName, entry.AddrIPv4, entry.Port)
		return nil, false
	}

	ip := node.FirstUsableIP(entry.AddrIPv4)
	if ip == nil {
		d.logger.Debug("Discovered node %s has no usable address: %v", id, entry.AddrIPv4)
		return nil, false
	}

	if name == "" {
		name = entry.Instance
	}
	return &node.Descriptor{
		ID:             id,
		Name:           name,
		HostName:       strings.TrimSuffix(entry.HostName, "."),
		Address:        ip,
		Port:           entry.Port,
		MasterEligible: master,
		State:          node.Alive,
		Attributes:     attributes,
	}, true
}

func txtRecords(n *node.Descriptor) []string {
	records := []string{
		txtID + "=" + n.ID,
		txtName + "=" + n.Name,
		txtMaster + "=" + strconv.FormatBool(n.MasterEligible),
	}
	for k, v := range n.Attributes {
		records = append(records, k+"="+v)
	}
	return records
}
