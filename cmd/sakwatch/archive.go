package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakuffo/sakwatch/internal/config"
	"github.com/sakuffo/sakwatch/internal/storage"
	"github.com/sakuffo/sakwatch/internal/xcontent"
)

type archiveOptions struct {
	root *rootOptions
	path string
}

func newArchiveCommand(root *rootOptions) *cobra.Command {
	opts := &archiveOptions{root: root}
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect documents kept by the local archive output",
	}
	cmd.PersistentFlags().StringVar(&opts.path, "path", "", "Archive directory; defaults to export.local.base_path")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "indices",
			Short: "List archived indices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.with(func(s storage.Storage) error {
					indices, err := s.Indices(cmd.Context())
					if err != nil {
						return err
					}
					for _, index := range indices {
						fmt.Fprintln(cmd.OutOrStdout(), index)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list <index>",
			Short: "List the documents of an index, oldest first",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.with(func(s storage.Storage) error {
					infos, err := s.List(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tEVENT\tCREATED\tSIZE")
					for _, info := range infos {
						fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
							info.ID, info.Kind, xcontent.FormatTime(info.CreatedAt), info.Size)
					}
					return w.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "get <index> <id>",
			Short: "Print an archived document after verifying its checksum",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.with(func(s storage.Storage) error {
					data, _, err := s.Get(cmd.Context(), args[0], args[1])
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "delete <index> <id>",
			Short: "Remove an archived document",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.with(func(s storage.Storage) error {
					return s.Delete(cmd.Context(), args[0], args[1])
				})
			},
		},
	)
	return cmd
}

// with opens the archive, runs fn against it and closes it again.
func (o *archiveOptions) with(fn func(storage.Storage) error) error {
	path := o.path
	if path == "" {
		cfg, err := o.root.loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Export.Local.BasePath
	}
	if path == "" {
		return fmt.Errorf("%w: no archive path (set --path or export.local.base_path)", config.ErrInvalidConfig)
	}

	storageCfg := storage.DefaultConfig()
	storageCfg.BasePath = path
	ls, err := storage.NewLocalStorage(storageCfg)
	if err != nil {
		return err
	}
	defer ls.Close()
	return fn(ls)
}
