package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/kvs"
	"github.com/hupe1980/kvs/codec"
	"github.com/hupe1980/kvs/layout"
	"github.com/hupe1980/kvs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func jsonLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var lines []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		lines = append(lines, m)
	}
	return lines
}

func input(dir string) string {
	return fmt.Sprintf(`{"kvs_parameters":{"instance_id":1,"dir":%q,"defaults":"optional","kvs_load":"optional","snapshot_max_count":3}}`, dir)
}

func writeDefaults(t *testing.T, dir string, inst layout.InstanceID, m value.Map) {
	t.Helper()
	p := layout.Resolver{Dir: dir}.DefaultsPaths(inst)
	require.NoError(t, os.WriteFile(p.Data, codec.MustMarshal(codec.Default, m), 0o644))
}

func TestScenarioDefaultValues(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "scenario", "default_values", "--input", input(dir))
	require.NoError(t, err)

	lines := jsonLines(t, out)
	require.Len(t, lines, 2)
	assert.Equal(t, "Err(KeyNotFound)", lines[0]["current_value"])
	assert.Equal(t, "Err(KeyNotFound)", lines[0]["value_is_default"])
	assert.Equal(t, "Ok(F64(432.1))", lines[1]["current_value"])
	assert.Equal(t, "Err(KeyNotFound)", lines[1]["default_value"])
	assert.Equal(t, "kvstool::cit::default_values", lines[1]["target"])
	assert.NotContains(t, lines[1], "time")
}

func TestScenarioRemoveKey(t *testing.T) {
	dir := t.TempDir()
	writeDefaults(t, dir, 1, value.Map{"test_number": value.F64(111.1)})

	out, err := run(t, "scenario", "remove_key", "--input", input(dir))
	require.NoError(t, err)

	lines := jsonLines(t, out)
	require.Len(t, lines, 3)
	assert.Equal(t, "Ok(true)", lines[0]["value_is_default"])
	assert.Equal(t, "Ok(F64(111.1))", lines[0]["current_value"])
	assert.Equal(t, "Ok(false)", lines[1]["value_is_default"])
	assert.Equal(t, "Ok(F64(432.1))", lines[1]["current_value"])
	assert.Equal(t, "Ok(true)", lines[2]["value_is_default"])
	assert.Equal(t, "Ok(F64(111.1))", lines[2]["current_value"])
}

func TestScenarioResetKeys(t *testing.T) {
	dir := t.TempDir()
	d := value.Map{}
	for i := 0; i < numKeys; i++ {
		d[numberedKey(i)] = value.F64(50 * float64(i))
	}
	writeDefaults(t, dir, 1, d)

	out, err := run(t, "scenario", "reset_all_keys", "--input", input(dir))
	require.NoError(t, err)
	lines := jsonLines(t, out)
	require.Len(t, lines, 3*numKeys)
	for i, l := range lines[2*numKeys:] {
		assert.Equal(t, numberedKey(i), l["key"])
		assert.Equal(t, "Ok(true)", l["value_is_default"])
	}

	out, err = run(t, "scenario", "reset_single_key", "--input", input(dir))
	require.NoError(t, err)
	lines = jsonLines(t, out)
	require.Len(t, lines, 3*numKeys)
	for i, l := range lines[2*numKeys:] {
		want := "Ok(false)"
		if i == 0 || i == 2 {
			want = "Ok(true)"
		}
		assert.Equal(t, want, l["value_is_default"], l["key"])
	}
}

func TestScenarioChecksum(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "scenario", "checksum", "--input", input(dir))
	require.NoError(t, err)

	lines := jsonLines(t, out)
	require.Len(t, lines, 1)
	assert.Equal(t, filepath.Join(dir, "kvs_1_0.kvs"), lines[0]["kvs_path"])
	assert.Equal(t, filepath.Join(dir, "kvs_1_0.hash"), lines[0]["hash_path"])
	assert.FileExists(t, filepath.Join(dir, "kvs_1_0.hash"))
}

func TestScenarioRequiredMissing(t *testing.T) {
	dir := t.TempDir()
	in := fmt.Sprintf(`{"kvs_parameters":{"instance_id":0,"dir":%q,"kvs_load":"required"}}`, dir)

	_, err := run(t, "scenario", "default_values", "--input", in)
	assert.ErrorIs(t, err, kvs.ErrFileRead)

	// checksum reports failures as empty paths.
	out, err := run(t, "scenario", "checksum", "--input", in)
	require.NoError(t, err)
	assert.Equal(t, "", jsonLines(t, out)[0]["kvs_path"])
}

func TestScenarioRejects(t *testing.T) {
	_, err := run(t, "scenario", "no_such_scenario")
	assert.Error(t, err)
	_, err = run(t, "scenario", "checksum", "--input", "{")
	assert.Error(t, err)
}

func flushedDir(t *testing.T, flushes int) string {
	t.Helper()
	ctx := context.Background()
	cfg := kvs.DefaultConfig()
	cfg.Dir = t.TempDir()
	s, err := kvs.Open(ctx, cfg)
	require.NoError(t, err)
	for i := 0; i < flushes; i++ {
		require.NoError(t, s.Set("n", value.I32(int32(i))))
		require.NoError(t, s.Flush(ctx))
	}
	return cfg.Dir
}

func TestVerify(t *testing.T) {
	dir := flushedDir(t, 3)

	out, err := run(t, "verify", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "OK "))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kvs_0_1.kvs"), []byte("bad"), 0o644))
	out, err = run(t, "verify", "--dir", dir, "-p", "1")
	assert.ErrorIs(t, err, errVerify)
	assert.Contains(t, out, "FAIL kvs_0_1.kvs")
	assert.Equal(t, 2, strings.Count(out, "OK "))
}

func TestDump(t *testing.T) {
	dir := flushedDir(t, 2)

	out, err := run(t, "dump", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "n = I32(1)\n", out)

	out, err = run(t, "dump", "--dir", dir, "--snapshot", "1")
	require.NoError(t, err)
	assert.Equal(t, "n = I32(0)\n", out)

	_, err = run(t, "dump", "--dir", dir, "--defaults")
	assert.True(t, kvs.IsNotFound(err))
}

func TestPaths(t *testing.T) {
	out, err := run(t, "paths", "--dir", "/data", "--instance", "2", "--snapshot", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "kvs_path: "+filepath.Join("/data", "kvs_2_1.kvs"))
	assert.Contains(t, out, "defaults_yaml_path: "+filepath.Join("/data", "kvs_2_default.yaml"))

	_, err = run(t, "paths", "--snapshot", "9")
	assert.ErrorIs(t, err, kvs.ErrNotFound)
}
