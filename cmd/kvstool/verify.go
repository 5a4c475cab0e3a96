package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/kvs"
	"github.com/hupe1980/kvs/blobstore"
	"github.com/hupe1980/kvs/layout"
	"github.com/hupe1980/kvs/snapshot"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// errVerify is returned when at least one file failed verification.
var errVerify = errors.New("verification failed")

type checkResult struct {
	name string
	err  error
}

func newVerifyCmd() *cobra.Command {
	var (
		flags       dirFlags
		parallelism int
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify every data file of an instance against its hash file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := verifyInstance(cmd.Context(), blobstore.NewLocalStore(flags.dir), flags.id(), parallelism)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				if r.err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", r.name, r.err)
					continue
				}
				fmt.Fprintf(out, "OK   %s\n", r.name)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d files", errVerify, failed, len(results))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 4, "Files verified concurrently")
	return cmd
}

// verifyInstance checks every snapshot data file and a hashed defaults file.
// Results are in name order.
func verifyInstance(ctx context.Context, store blobstore.BlobStore, instance layout.InstanceID, parallelism int) ([]checkResult, error) {
	names, err := store.List(ctx, layout.InstancePrefix(instance))
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	var r layout.Resolver
	var targets []layout.Paths
	for _, n := range names {
		e, err := layout.Parse(n)
		if err != nil || e.Instance != instance {
			continue
		}
		switch e.Kind {
		case layout.SnapshotData:
			p, err := layout.Resolver{SnapshotMaxCount: int(e.Snapshot)}.Resolve(instance, e.Snapshot)
			if err != nil {
				return nil, err
			}
			targets = append(targets, p)
		case layout.DefaultsJSON:
			// Defaults hash files are optional.
			if d := r.DefaultsPaths(instance); present[d.Hash] {
				targets = append(targets, d)
			}
		}
	}

	results := make([]checkResult, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, p := range targets {
		g.Go(func() error {
			results[i] = checkResult{name: p.Data, err: checkPair(ctx, store, p)}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkPair(ctx context.Context, store blobstore.BlobStore, p layout.Paths) error {
	data, err := store.Get(ctx, p.Data)
	if err != nil {
		return err
	}
	hash, err := store.Get(ctx, p.Hash)
	if kvs.IsNotFound(err) {
		return &snapshot.CorruptionError{Path: p.Data, Reason: "hash file " + p.Hash + " missing"}
	}
	if err != nil {
		return err
	}
	return snapshot.Check(p.Data, data, hash)
}
