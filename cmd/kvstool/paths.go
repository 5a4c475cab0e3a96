package main

import (
	"fmt"

	"github.com/hupe1980/kvs"
	"github.com/hupe1980/kvs/layout"
	"github.com/spf13/cobra"
)

func newPathsCmd() *cobra.Command {
	var (
		flags    dirFlags
		snapshot uint32
		maxCount int
	)
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the data and hash file of a snapshot slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := layout.Resolver{Dir: flags.dir, SnapshotMaxCount: maxCount}
			p, err := r.Resolve(flags.id(), layout.SnapshotID(snapshot))
			if err != nil {
				return err
			}
			d := r.DefaultsPaths(flags.id())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kvs_path: %s\n", p.Data)
			fmt.Fprintf(out, "hash_path: %s\n", p.Hash)
			fmt.Fprintf(out, "defaults_path: %s\n", d.Data)
			fmt.Fprintf(out, "defaults_hash_path: %s\n", d.Hash)
			fmt.Fprintf(out, "defaults_yaml_path: %s\n", r.DefaultsYAMLPath(flags.id()))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Uint32VarP(&snapshot, "snapshot", "s", 0, "Snapshot slot, 0 is current")
	cmd.Flags().IntVar(&maxCount, "snapshot-max-count", kvs.DefaultSnapshotMaxCount, "Number of history slots")
	return cmd
}
