package main

import (
	"fmt"

	"github.com/hupe1980/kvs"
	"github.com/hupe1980/kvs/blobstore"
	"github.com/hupe1980/kvs/layout"
	"github.com/hupe1980/kvs/value"
	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	var (
		flags    dirFlags
		snapshot uint32
		defaults bool
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the verified overrides of a snapshot slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := kvs.NewBlobBackend(blobstore.NewLocalStore(flags.dir), kvs.BlobBackendConfig{
				SnapshotMaxCount: kvs.MaxSnapshotMaxCount,
			})

			var m value.Map
			var err error
			if defaults {
				m, err = b.LoadDefaults(cmd.Context(), flags.id())
			} else {
				m, err = b.LoadKVS(cmd.Context(), flags.id(), layout.SnapshotID(snapshot))
			}
			if err != nil {
				return err
			}

			for _, k := range m.Keys() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k, m[k])
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Uint32VarP(&snapshot, "snapshot", "s", 0, "Snapshot slot, 0 is current")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print the defaults instead of a snapshot")
	return cmd
}
