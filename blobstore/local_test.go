package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/kvs/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreContract(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	ok, err := store.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "a", []byte("one")))
	require.NoError(t, store.Put(ctx, "a", []byte("two")))
	data, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	// Callers may not alias stored bytes.
	data[0] = 'X'
	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "two", string(again))

	ok, err = store.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Put(ctx, "b_1", []byte("x")))
	require.NoError(t, store.Put(ctx, "b_0", nil))
	names, err := store.List(ctx, "b_")
	require.NoError(t, err)
	assert.Equal(t, []string{"b_0", "b_1"}, names)

	empty, err := store.Get(ctx, "b_0")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Rename(ctx, "a", "b_1"))
	data, err = store.Get(ctx, "b_1")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	ok, err = store.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, errors.Is(store.Rename(ctx, "a", "c"), ErrNotFound))

	require.NoError(t, store.Delete(ctx, "b_1"))
	require.NoError(t, store.Delete(ctx, "b_1"))
	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b_0"}, names)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, store.Put(cancelled, "z", nil), context.Canceled)
	_, err = store.Get(cancelled, "b_0")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store := NewLocalStore(dir)
	assert.Equal(t, dir, store.Root())

	// Listing a directory that does not exist yet is empty.
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)

	testStoreContract(t, store)

	_, err = os.Stat(filepath.Join(dir, "b_0"))
	assert.NoError(t, err)
}

func TestLocalStoreRejectsPaths(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "../escape"} {
		assert.Error(t, store.Put(ctx, name, nil), name)
	}
}

func TestLocalStorePutIsAtomic(t *testing.T) {
	dir := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	store := NewLocalStore(dir, WithFileSystem(ffs))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "kvs_0_0.kvs", []byte("original")))

	faults := map[string]fs.Fault{
		"torn write": {FailOnWrite: true, FailAfterBytes: 3},
		"sync":       {FailOnSync: true},
		"close":      {FailOnClose: true},
		"rename":     {FailOnRename: true},
	}
	for name, fault := range faults {
		t.Run(name, func(t *testing.T) {
			ffs.Reset()
			ffs.AddRule("kvs_0_0.kvs", fault)

			err := store.Put(ctx, "kvs_0_0.kvs", []byte("replacement"))
			assert.ErrorIs(t, err, fs.ErrInjected)
			ffs.Reset()

			data, err := store.Get(ctx, "kvs_0_0.kvs")
			require.NoError(t, err)
			assert.Equal(t, "original", string(data))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			for _, e := range entries {
				assert.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover %s", e.Name())
			}
		})
	}
}

func TestLocalStoreListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kvs_0_0.kvs.tmp-123"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "kvs_sub"), 0o755))
	require.NoError(t, store.Put(context.Background(), "kvs_0_0.kvs", []byte("x")))

	names, err := store.List(context.Background(), "kvs_")
	require.NoError(t, err)
	assert.Equal(t, []string{"kvs_0_0.kvs"}, names)
}
