package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakuffo/sakwatch/internal/cluster"
	"github.com/sakuffo/sakwatch/internal/config"
	"github.com/sakuffo/sakwatch/internal/discovery/gossip"
	"github.com/sakuffo/sakwatch/internal/discovery/kube"
	"github.com/sakuffo/sakwatch/internal/discovery/mdns"
	"github.com/sakuffo/sakwatch/internal/exporter"
	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/node"
)

const shutdownTimeout = 30 * time.Second

func newRunCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Join the cluster and export membership events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if root.logLevel != "" {
				level = root.logLevel
			}

			log, err := logger.New("sakwatch", cfg.Logging.Dir)
			if err != nil {
				return err
			}
			defer log.Close()
			log.SetLevel(logger.ParseLevel(level))

			return runAgent(cmd.Context(), cfg, log)
		},
	}
}

func runAgent(parent context.Context, cfg *config.Config, log logger.Logger) error {
	log.Info("Starting sakwatch...")
	log.Debug("Loaded configuration: %+v", cfg)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return fmt.Errorf("failed to get interface addresses: %w", err)
	}
	localIP := node.SelectBestIP(addrs)
	if localIP == nil {
		return errors.New("could not find suitable local IP address (non-link-local, non-loopback)")
	}
	log.Info("Using local IP: %s", localIP)

	localNode := node.New(cfg.NodeName, localIP, cfg.DiscoveryPort)
	localNode.MasterEligible = cfg.MasterEligible
	if host, err := os.Hostname(); err == nil {
		localNode.HostName = host
	}
	log.Info("Created local node: %s (ID: %s)", localNode.Name, localNode.ID)

	out, err := buildOutput(ctx, cfg.Export, log)
	if err != nil {
		return err
	}
	exportOpts := []exporter.Option{exporter.WithIndexPrefix(cfg.Export.IndexPrefix)}
	if cfg.Export.SourceNode {
		exportOpts = append(exportOpts, exporter.WithSourceNode(localNode.Clone()))
	}
	exp := exporter.New(out, log, exportOpts...)
	defer func() {
		if err := exp.Close(); err != nil {
			log.Error("Error closing outputs: %v", err)
		}
	}()

	discoverer, err := buildDiscoverer(cfg, log)
	if err != nil {
		return err
	}

	c := cluster.NewCluster(ctx, localNode, log, cfg)
	c.Subscribe(exp.Handle)
	c.Elect(cluster.SourceStartup)
	c.Start(discoverer)
	c.StartHealthCheck()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	log.Info("Waiting for interrupt signal...")

	select {
	case <-ctx.Done():
		log.Info("Context cancelled, initiating shutdown...")
	case sig := <-sigChan:
		log.Info("Received signal %v, initiating shutdown...", sig)
		cancel()
	}

	logMembership(c, localNode, log)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		if err := c.Shutdown(); err != nil {
			log.Error("Error during shutdown: %v", err)
		}
	}()

	select {
	case <-shutdownCtx.Done():
		log.Error("Shutdown timed out")
	case <-shutdownDone:
		log.Info("Shutdown complete")
	}
	return nil
}

// logMembership reports the peers and master as last seen before shutdown.
func logMembership(c *cluster.Cluster, local *node.Descriptor, log logger.Logger) {
	master := "none"
	switch id := c.Master(); {
	case id == local.ID:
		master = local.Describe() + " (local)"
	case id != "":
		master = id
		if n, ok := c.GetNode(id); ok {
			master = n.Describe()
		}
	}
	peers := c.Nodes()
	log.Info("Cluster membership: %d peer(s), master %s", len(peers), master)
	for _, n := range peers {
		log.Debug("Peer %s (ID: %s, state: %v)", n.Describe(), n.ID, n.State)
	}
}

func buildDiscoverer(cfg *config.Config, log logger.Logger) (cluster.Discoverer, error) {
	switch cfg.DiscoveryBackend {
	case config.BackendGossip:
		return gossip.New(gossip.Config{
			BindAddr: cfg.Gossip.BindAddr,
			BindPort: cfg.Gossip.BindPort,
			Peers:    cfg.Gossip.Peers,
		}, log), nil
	case config.BackendKubernetes:
		clientset, err := kube.NewClientset(cfg.Kubernetes.Kubeconfig)
		if err != nil {
			return nil, err
		}
		return kube.New(clientset, cfg.Kubernetes.Resync, log), nil
	case config.BackendMDNS:
		return mdns.New(mdns.Config{
			ServiceName:   cfg.ServiceName,
			RetryInterval: cfg.DiscoveryRetryInterval,
			Timeout:       cfg.DiscoveryTimeout,
			BufferSize:    cfg.DiscoveryBufferSize,
		}, log), nil
	default:
		return nil, fmt.Errorf("%w: unknown discovery_backend %q", config.ErrInvalidConfig, cfg.DiscoveryBackend)
	}
}
