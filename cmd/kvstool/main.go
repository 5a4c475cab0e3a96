// Command kvstool inspects and exercises kvs working directories.
//
//	kvstool paths --dir ./data --instance 0
//	kvstool verify --dir ./data --instance 0
//	kvstool dump --dir ./data --instance 0 --snapshot 1
//	kvstool scenario default_values --input '{"kvs_parameters":{"instance_id":0,"dir":"./data"}}'
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/hupe1980/kvs/layout"
	"github.com/spf13/cobra"
)

// dirFlags are shared by the commands that work on one instance directory.
type dirFlags struct {
	dir      string
	instance uint32
}

func (f *dirFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dir, "dir", "d", ".", "Working directory")
	cmd.Flags().Uint32VarP(&f.instance, "instance", "i", 0, "Instance id")
}

func (f *dirFlags) id() layout.InstanceID { return layout.InstanceID(f.instance) }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kvstool",
		Short:         "Inspect kvs store files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPathsCmd(),
		newVerifyCmd(),
		newDumpCmd(),
		newScenarioCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "kvstool:", err)
		stop()
		os.Exit(1)
	}
}
