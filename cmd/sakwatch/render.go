package main

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakuffo/sakwatch/internal/cluster"
	"github.com/sakuffo/sakwatch/internal/event"
	"github.com/sakuffo/sakwatch/internal/exporter"
	"github.com/sakuffo/sakwatch/internal/node"
)

type renderOptions struct {
	kind       string
	nodeName   string
	host       string
	ip         string
	port       int
	master     bool
	source     string
	cluster    string
	timestamp  string
	format     string
	sourceNode bool
}

func newRenderCommand(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the document an event would be exported as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cluster") && root.configPath != "" {
				cfg, err := root.loadConfig()
				if err != nil {
					return err
				}
				opts.cluster = cfg.ClusterName
			}
			doc, err := opts.render()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.kind, "kind", "joined", "Event kind: master, joined or left")
	f.StringVar(&opts.nodeName, "node", "node-1", "Node name")
	f.StringVar(&opts.host, "host", "", "Node host name")
	f.StringVar(&opts.ip, "ip", "", "Node IP address")
	f.IntVar(&opts.port, "port", 7946, "Node transport port")
	f.BoolVar(&opts.master, "master-eligible", true, "Whether the node is master eligible")
	f.StringVar(&opts.source, "source", cluster.SourceStartup, "Subsystem that observed the event")
	f.StringVar(&opts.cluster, "cluster", "sakwatch", "Cluster name")
	f.StringVar(&opts.timestamp, "timestamp", "", "Event time (RFC 3339); defaults to now")
	f.StringVar(&opts.format, "format", string(exporter.FormatJSON), "Document format: json or yaml")
	f.BoolVar(&opts.sourceNode, "source-node", false, "Attach the node as source_node")
	return cmd
}

func (o *renderOptions) render() ([]byte, error) {
	format, err := exporter.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}

	ts := time.Now()
	if o.timestamp != "" {
		if ts, err = time.Parse(time.RFC3339Nano, o.timestamp); err != nil {
			return nil, fmt.Errorf("invalid --timestamp: %w", err)
		}
	}

	var ip net.IP
	if o.ip != "" {
		if ip = net.ParseIP(o.ip); ip == nil {
			return nil, fmt.Errorf("invalid --ip %q", o.ip)
		}
	}
	n := node.New(o.nodeName, ip, o.port)
	n.HostName = o.host
	n.MasterEligible = o.master

	var ev event.Event
	switch o.kind {
	case "master":
		ev = event.NewElectedAsMaster(ts.UnixMilli(), o.cluster, n, o.source)
	case "joined", "left":
		ev = event.NewNodeJoinLeave(ts.UnixMilli(), o.cluster, n, o.kind == "joined", o.source)
	default:
		return nil, fmt.Errorf("unknown --kind %q (want master, joined or left)", o.kind)
	}

	r := exporter.Renderer{Format: format}
	if o.sourceNode {
		r.SourceNode = n
	}
	return r.Render(ev)
}
