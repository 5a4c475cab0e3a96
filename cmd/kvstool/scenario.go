package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hupe1980/kvs"
	"github.com/hupe1980/kvs/codec"
	"github.com/hupe1980/kvs/layout"
	"github.com/hupe1980/kvs/value"
	"github.com/spf13/cobra"
)

// scenarioInput is the JSON document passed with --input.
type scenarioInput struct {
	Parameters struct {
		InstanceID       uint32   `json:"instance_id"`
		Dir              string   `json:"dir"`
		Defaults         kvs.Need `json:"defaults"`
		KVSLoad          kvs.Need `json:"kvs_load"`
		SnapshotMaxCount *int     `json:"snapshot_max_count"`
	} `json:"kvs_parameters"`
}

func (in scenarioInput) config() kvs.Config {
	p := in.Parameters
	cfg := kvs.DefaultConfig()
	cfg.Instance = layout.InstanceID(p.InstanceID)
	if p.Dir != "" {
		cfg.Dir = p.Dir
	}
	cfg.NeedDefaults = p.Defaults
	cfg.NeedKVS = p.KVSLoad
	if p.SnapshotMaxCount != nil {
		cfg.SnapshotMaxCount = *p.SnapshotMaxCount
	}
	return cfg
}

type scenarioFunc func(ctx context.Context, cfg kvs.Config, log *slog.Logger) error

var scenarios = map[string]scenarioFunc{
	"default_values":   runDefaultValues,
	"remove_key":       runRemoveKey,
	"reset_all_keys":   runResetAllKeys,
	"reset_single_key": runResetSingleKey,
	"checksum":         runChecksum,
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func newScenarioCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:       "scenario <name>",
		Short:     "Run a store scenario and log one JSON line per observation",
		Long:      "Scenarios: " + strings.Join(scenarioNames(), ", "),
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: scenarioNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in scenarioInput
			if input != "" {
				if err := codec.Default.Unmarshal([]byte(input), &in); err != nil {
					return fmt.Errorf("parse input: %w", err)
				}
			}
			log := slog.New(slog.NewJSONHandler(cmd.OutOrStdout(), &slog.HandlerOptions{
				ReplaceAttr: dropTime,
			})).With("target", "kvstool::cit::"+args[0])
			return scenarios[args[0]](cmd.Context(), in.config(), log)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Scenario parameters as JSON")
	return cmd
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// result renders a store result the way the scenario logs expect, e.g.
// Ok(F64(432.1)) or Err(KeyNotFound).
func result[T any](v T, err error) string {
	switch {
	case errors.Is(err, kvs.ErrKeyNotFound):
		return "Err(KeyNotFound)"
	case err != nil:
		return "Err(" + err.Error() + ")"
	default:
		return fmt.Sprintf("Ok(%v)", v)
	}
}

func observe(ctx context.Context, log *slog.Logger, s *kvs.Store, key string) {
	isDefault, isDefaultErr := s.HasDefaultValue(key)
	def, defErr := s.GetDefaultValue(key)
	cur, curErr := s.Get(key)
	log.InfoContext(ctx, "observation",
		"key", key,
		"value_is_default", result(isDefault, isDefaultErr),
		"default_value", result(def, defErr),
		"current_value", result(cur, curErr),
	)
}

const testKey = "test_number"

func runDefaultValues(ctx context.Context, cfg kvs.Config, log *slog.Logger) error {
	s, err := kvs.Open(ctx, cfg)
	if err != nil {
		return err
	}
	observe(ctx, log, s, testKey)
	if err := s.Set(testKey, value.F64(432.1)); err != nil {
		return err
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}

	s, err = kvs.Open(ctx, cfg)
	if err != nil {
		return err
	}
	observe(ctx, log, s, testKey)
	return nil
}

func runRemoveKey(ctx context.Context, cfg kvs.Config, log *slog.Logger) error {
	s, err := kvs.Open(ctx, cfg)
	if err != nil {
		return err
	}
	observe(ctx, log, s, testKey)
	if err := s.Set(testKey, value.F64(432.1)); err != nil {
		return err
	}
	observe(ctx, log, s, testKey)
	if err := s.Remove(testKey); err != nil {
		return err
	}
	observe(ctx, log, s, testKey)
	return nil
}

const numKeys = 5

func numberedKey(i int) string { return fmt.Sprintf("%s_%d", testKey, i) }

// setNumberedKeys sets test_number_i to 123.4*i, observing each key before
// and after.
func setNumberedKeys(ctx context.Context, log *slog.Logger, s *kvs.Store) error {
	for i := 0; i < numKeys; i++ {
		key := numberedKey(i)
		observe(ctx, log, s, key)
		if err := s.Set(key, value.F64(123.4*float64(i))); err != nil {
			return err
		}
		observe(ctx, log, s, key)
	}
	return nil
}

func runResetAllKeys(ctx context.Context, cfg kvs.Config, log *slog.Logger) error {
	s, err := kvs.Open(ctx, cfg)
	if err != nil {
		return err
	}
	if err := setNumberedKeys(ctx, log, s); err != nil {
		return err
	}
	s.Reset()
	for i := 0; i < numKeys; i++ {
		observe(ctx, log, s, numberedKey(i))
	}
	return nil
}

func runResetSingleKey(ctx context.Context, cfg kvs.Config, log *slog.Logger) error {
	const resetIndex = 2

	s, err := kvs.Open(ctx, cfg)
	if err != nil {
		return err
	}
	if err := setNumberedKeys(ctx, log, s); err != nil {
		return err
	}
	if err := s.ResetKey(numberedKey(resetIndex)); err != nil {
		return err
	}
	for i := 0; i < numKeys; i++ {
		observe(ctx, log, s, numberedKey(i))
	}
	return nil
}

// runChecksum flushes and logs the resulting file pair. Failures are logged
// as empty paths.
func runChecksum(ctx context.Context, cfg kvs.Config, log *slog.Logger) error {
	var kvsPath, hashPath string
	s, err := kvs.Open(ctx, cfg)
	if err == nil {
		err = s.Flush(ctx)
	}
	if err == nil {
		kvsPath, _ = s.KVSFilename(layout.Current)
		hashPath, _ = s.HashFilename(layout.Current)
	}
	log.InfoContext(ctx, "checksum",
		"kvs_path", kvsPath,
		"hash_path", hashPath,
	)
	return nil
}
