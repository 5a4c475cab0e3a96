// Package minio provides a BlobStore implementation using the MinIO client.
//
// MinIO is an S3-compatible object storage system. This package uses the
// official MinIO Go client, so it also works with Ceph, SeaweedFS or Garage.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "kvs/")
//	s, err := kvs.Open(ctx, cfg, kvs.WithBlobStore(store))
//
// Object stores have no atomic rename. Rename is a server-side copy followed
// by a delete, so a crash between the two leaves both objects behind. Put of
// a single object is atomic.
package minio
