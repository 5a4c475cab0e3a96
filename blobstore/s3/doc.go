// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("kvs/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	s, err := kvs.Open(ctx, cfg, kvs.WithBlobStore(store))
//
// Uploads go through the SDK upload manager with CRC32C checksums. Rename is
// CopyObject followed by DeleteObject.
package s3
