package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sakuffo/sakwatch/internal/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "sakwatch",
		Short:        "Watch cluster membership and export lifecycle events",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error, fatal); overrides the config")

	cmd.AddCommand(newRunCommand(opts), newRenderCommand(opts), newArchiveCommand(opts))
	return cmd
}

// loadConfig returns the defaults when no path is given.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		cfg := config.DefaultConfig()
		return cfg, cfg.Validate()
	}
	return config.Load(o.configPath)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
