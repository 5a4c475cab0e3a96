// Package blobstore abstracts where kvs files live.
//
// A BlobStore holds named byte blobs. Put must replace a blob atomically: a
// concurrent or later Get sees either the old or the new content, never a
// mix. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, write to temp file then rename
//   - MemoryStore: in memory, for tests
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is the storage seam used by the kvs blob backend.
type BlobStore interface {
	// Get returns the full content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// Exists reports whether a blob exists.
	Exists(ctx context.Context, name string) (bool, error)
	// Rename moves a blob, replacing the target if it exists.
	Rename(ctx context.Context, oldName, newName string) error
	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
