package minio

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/hupe1980/kvs/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := envOr("KVS_MINIO_ENDPOINT", "localhost:9000")
	accessKey := envOr("KVS_MINIO_ACCESS_KEY", "minioadmin")
	secretKey := envOr("KVS_MINIO_SECRET_KEY", "minioadmin")
	bucket := "test-kvs"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix")
	var _ blobstore.BlobStore = store

	_, err = store.Get(ctx, "missing.kvs")
	assert.True(t, errors.Is(err, blobstore.ErrNotFound))

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "kvs_0_0.kvs", data))

	got, err := store.Get(ctx, "kvs_0_0.kvs")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ok, err := store.Exists(ctx, "kvs_0_0.kvs")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Rename(ctx, "kvs_0_0.kvs", "kvs_0_1.kvs"))
	ok, err = store.Exists(ctx, "kvs_0_0.kvs")
	require.NoError(t, err)
	assert.False(t, ok)

	names, err := store.List(ctx, "kvs_0_")
	require.NoError(t, err)
	assert.Contains(t, names, "kvs_0_1.kvs")

	require.NoError(t, store.Delete(ctx, "kvs_0_1.kvs"))
	require.NoError(t, store.Delete(ctx, "kvs_0_1.kvs"))
}
