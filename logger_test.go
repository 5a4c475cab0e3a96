package kvs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/hupe1980/kvs"
	"github.com/hupe1980/kvs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRecord struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

// captureHandler records every log record, including attributes added with
// Logger.With.
type captureHandler struct {
	mu      *sync.Mutex
	records *[]capturedRecord
	attrs   []slog.Attr
}

func (h *captureHandler) init() {
	if h.mu == nil {
		h.mu = &sync.Mutex{}
		h.records = &[]capturedRecord{}
	}
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.init()
	rec := capturedRecord{level: r.Level, msg: r.Message, attrs: map[string]any{}}
	for _, a := range h.attrs {
		rec.attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.init()
	return &captureHandler{
		mu:      h.mu,
		records: h.records,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) find(msg string) (capturedRecord, bool) {
	h.init()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range *h.records {
		if r.msg == msg {
			return r, true
		}
	}
	return capturedRecord{}, false
}

func TestLoggerOpenAndFlush(t *testing.T) {
	ctx := context.Background()
	h := &captureHandler{}
	cfg := testConfig(t.TempDir())
	cfg.Instance = 7

	s := open(t, cfg, kvs.WithLogger(kvs.NewLogger(h)))
	require.NoError(t, s.Set("a", value.I32(1)))
	require.NoError(t, s.Flush(ctx))

	rec, ok := h.find("store opened")
	require.True(t, ok)
	assert.Equal(t, slog.LevelInfo, rec.level)
	assert.Equal(t, uint64(7), rec.attrs["instance"])
	assert.Equal(t, int64(0), rec.attrs["overrides"])

	rec, ok = h.find("flush completed")
	require.True(t, ok)
	assert.Equal(t, slog.LevelDebug, rec.level)
	assert.Equal(t, int64(1), rec.attrs["keys"])
}

func TestLoggerOpenFailure(t *testing.T) {
	h := &captureHandler{}
	cfg := testConfig(t.TempDir())
	cfg.NeedKVS = kvs.Required

	_, err := kvs.Open(context.Background(), cfg, kvs.WithLogger(kvs.NewLogger(h)))
	require.Error(t, err)

	rec, ok := h.find("open failed")
	require.True(t, ok)
	assert.Equal(t, slog.LevelError, rec.level)
}

func TestLoggerRestore(t *testing.T) {
	ctx := context.Background()
	h := &captureHandler{}
	s := open(t, testConfig(t.TempDir()), kvs.WithLogger(kvs.NewLogger(h)))
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.SnapshotRestore(ctx, 1))
	require.Error(t, s.SnapshotRestore(ctx, 0))

	_, ok := h.find("snapshot restored")
	assert.True(t, ok)
	_, ok = h.find("snapshot restore failed")
	assert.True(t, ok)
}

func TestLoggerWithKey(t *testing.T) {
	var buf bytes.Buffer
	l := kvs.NewLogger(slog.NewJSONHandler(&buf, nil)).WithKey("volume")
	l.Info("hello")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "volume", out["key"])
	assert.Equal(t, "hello", out["msg"])
}

func TestLoggerSetAndRemoveDebug(t *testing.T) {
	h := &captureHandler{}
	s := open(t, testConfig(t.TempDir()), kvs.WithLogger(kvs.NewLogger(h)))

	require.NoError(t, s.Set("volume", value.I32(3)))
	rec, ok := h.find("override set")
	require.True(t, ok)
	assert.Equal(t, slog.LevelDebug, rec.level)
	assert.Equal(t, "volume", rec.attrs["key"])
	assert.Equal(t, "i32", rec.attrs["kind"])
	assert.Equal(t, uint64(0), rec.attrs["instance"])

	require.NoError(t, s.Remove("volume"))
	rec, ok = h.find("override removed")
	require.True(t, ok)
	assert.Equal(t, "volume", rec.attrs["key"])
}

func TestLoggerDebugDisabledAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := kvs.NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	s := open(t, testConfig(t.TempDir()), kvs.WithLogger(l))

	require.NoError(t, s.Set("volume", value.I32(3)))
	require.NoError(t, s.Remove("volume"))
	assert.NotContains(t, buf.String(), "override set")
	assert.NotContains(t, buf.String(), "override removed")
}

func TestNilLoggerDisablesLogging(t *testing.T) {
	s := open(t, testConfig(t.TempDir()), kvs.WithLogger(nil))
	require.NoError(t, s.Flush(context.Background()))

	assert.NotNil(t, kvs.NoopLogger())
	assert.NotNil(t, kvs.NewJSONLogger(slog.LevelWarn))
	assert.NotNil(t, kvs.NewTextLogger(slog.LevelWarn))
	assert.NotNil(t, kvs.NewLogger(nil))
}
