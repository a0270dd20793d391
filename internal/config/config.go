package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Discovery backends
const (
	BackendMDNS       = "mdns"
	BackendGossip     = "gossip"
	BackendKubernetes = "kubernetes"
)

// Config holds the application configuration
type Config struct {
	ClusterName    string `yaml:"cluster_name"`
	NodeName       string `yaml:"node_name"`
	MasterEligible bool   `yaml:"master_eligible"`
	ServiceName    string `yaml:"service_name"`
	DiscoveryPort  int    `yaml:"discovery_port"`

	// Health check settings
	HealthInterval   time.Duration `yaml:"health_interval"`    // Interval between health checks
	SuspectTimeout   time.Duration `yaml:"suspect_timeout"`    // Time until node is marked suspect
	DeadTimeout      time.Duration `yaml:"dead_timeout"`       // Time until node is marked dead
	NodeRemovalDelay time.Duration `yaml:"node_removal_delay"` // Time to wait before removing dead node

	// Discovery settings
	DiscoveryBackend       string        `yaml:"discovery_backend"`
	DiscoveryRetryInterval time.Duration `yaml:"discovery_retry_interval"` // Time between discovery attempts
	DiscoveryTimeout       time.Duration `yaml:"discovery_timeout"`        // Timeout for each discovery operation
	DiscoveryBufferSize    int           `yaml:"discovery_buffer_size"`    // Size of the discovery entries buffer

	Gossip     GossipConfig     `yaml:"gossip"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Export     ExportConfig     `yaml:"export"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type GossipConfig struct {
	BindAddr string   `yaml:"bind_addr"`
	BindPort int      `yaml:"bind_port"`
	Peers    []string `yaml:"peers"`
}

type KubernetesConfig struct {
	// Kubeconfig is empty for in-cluster configuration.
	Kubeconfig string        `yaml:"kubeconfig"`
	Resync     time.Duration `yaml:"resync"`
}

type ExportConfig struct {
	IndexPrefix string `yaml:"index_prefix"`
	// SourceNode attaches the local node identity to every document.
	SourceNode bool `yaml:"source_node"`
	// AsyncBufferSize is the queue length in front of each async output.
	AsyncBufferSize int `yaml:"async_buffer_size"`

	Stdout   StdoutConfig   `yaml:"stdout"`
	File     FileConfig     `yaml:"file"`
	Local    LocalConfig    `yaml:"local"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type StdoutConfig struct {
	Enabled bool `yaml:"enabled"`
	// Text prints one description line per event instead of NDJSON.
	Text bool `yaml:"text"`
}

type FileConfig struct {
	Path    string `yaml:"path"`
	MaxSize int64  `yaml:"max_size"`
	BufSize int    `yaml:"buf_size"`
}

type LocalConfig struct {
	BasePath string `yaml:"base_path"`
}

type WebhookConfig struct {
	URL           string            `yaml:"url"`
	Headers       map[string]string `yaml:"headers"`
	BatchSize     int               `yaml:"batch_size"`
	FlushInterval time.Duration     `yaml:"flush_interval"`
	Timeout       time.Duration     `yaml:"timeout"`
	Async         bool              `yaml:"async"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	TTLDays    int    `yaml:"ttl_days"`
}

type TelegramConfig struct {
	BotToken string  `yaml:"bot_token"`
	ChatIDs  []int64 `yaml:"chat_ids"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ClusterName:    "sakwatch",
		NodeName:       "local-node",
		MasterEligible: true,
		ServiceName:    "_sakwatch._tcp",
		DiscoveryPort:  7946,

		// Health check defaults
		HealthInterval:   time.Second * 5,  // Check every 5 seconds
		SuspectTimeout:   time.Second * 10, // Mark as suspect after 10 seconds
		DeadTimeout:      time.Second * 20, // Mark as dead after 20 seconds
		NodeRemovalDelay: time.Second * 30, // Remove after 30 seconds

		// Discovery defaults
		DiscoveryBackend:       BackendMDNS,
		DiscoveryRetryInterval: time.Second * 10,
		DiscoveryTimeout:       time.Second * 5,
		DiscoveryBufferSize:    4,

		Gossip: GossipConfig{
			BindAddr: "0.0.0.0",
			BindPort: 7947,
		},
		Kubernetes: KubernetesConfig{
			Resync: 10 * time.Minute,
		},
		Export: ExportConfig{
			IndexPrefix:     "sakwatch",
			SourceNode:      true,
			AsyncBufferSize: 1024,
			Stdout:          StdoutConfig{Enabled: true},
			File:            FileConfig{BufSize: 64 * 1024},
			Webhook: WebhookConfig{
				BatchSize:     50,
				FlushInterval: 5 * time.Second,
				Timeout:       10 * time.Second,
			},
			Mongo: MongoConfig{
				Database:   "sakwatch",
				Collection: "events",
				TTLDays:    7,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
	}
}

// Load reads a YAML file on top of the defaults. Durations are Go duration
// strings ("5s", "1m").
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the agent cannot run without.
func (c *Config) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("%w: cluster_name is required", ErrInvalidConfig)
	}
	if c.NodeName == "" {
		return fmt.Errorf("%w: node_name is required", ErrInvalidConfig)
	}
	switch c.DiscoveryBackend {
	case BackendMDNS, BackendGossip, BackendKubernetes:
	default:
		return fmt.Errorf("%w: unknown discovery_backend %q", ErrInvalidConfig, c.DiscoveryBackend)
	}
	if c.SuspectTimeout <= 0 || c.DeadTimeout < c.SuspectTimeout {
		return fmt.Errorf("%w: dead_timeout (%v) must not be shorter than suspect_timeout (%v)",
			ErrInvalidConfig, c.DeadTimeout, c.SuspectTimeout)
	}
	if c.HealthInterval <= 0 || c.DiscoveryRetryInterval <= 0 {
		return fmt.Errorf("%w: health_interval and discovery_retry_interval must be positive", ErrInvalidConfig)
	}
	if c.Export.IndexPrefix == "" {
		return fmt.Errorf("%w: export.index_prefix is required", ErrInvalidConfig)
	}
	if c.Export.AsyncBufferSize <= 0 {
		return fmt.Errorf("%w: export.async_buffer_size must be positive", ErrInvalidConfig)
	}
	if c.Export.Telegram.BotToken != "" && len(c.Export.Telegram.ChatIDs) == 0 {
		return fmt.Errorf("%w: export.telegram.chat_ids is required with a bot token", ErrInvalidConfig)
	}
	return nil
}
