// Package kvs provides an embedded key-value store with typed values and
// defaults.
//
// A store holds overrides: values explicitly set by the application. Every
// key may also have a default supplied by a defaults.Provider. Get returns
// the override if one exists, else the default. Removing an override makes
// the key fall back to its default.
//
// Overrides live in memory until Flush, which writes them to a data file
// plus a hash file. The hash is verified when the store is opened, so a
// modified or truncated data file is reported as corruption instead of being
// silently discarded.
//
// # Quick Start
//
//	ctx := context.Background()
//	cfg := kvs.DefaultConfig()
//	cfg.Dir = "./data"
//
//	s, err := kvs.Open(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = s.Set("volume", value.F64(0.8))
//	v, _ := s.Get("volume")
//	if err := s.Flush(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Files
//
// Instance n of a working directory uses these files:
//
//	kvs_<n>_0.kvs, kvs_<n>_0.hash     current state
//	kvs_<n>_1.kvs, kvs_<n>_1.hash     previous flush (up to SnapshotMaxCount)
//	kvs_<n>_default.json              typed JSON defaults
//	kvs_<n>_default.hash              optional hash of the defaults
//	kvs_<n>_default.yaml              YAML defaults, used without a JSON file
//
// KVSFilename and HashFilename expose the paths for external tooling.
// Snapshot files are versioned; see package snapshot.
//
// # Defaults
//
// Is-default is equality based: HasDefaultValue is true when the current
// value equals the default, whether or not an override exists. Keys without
// a default yield ErrKeyNotFound from GetDefaultValue and HasDefaultValue.
//
// A defaults.Provider can be shared by several stores with WithDefaults.
//
// # Storage
//
// By default files are written to Config.Dir with write-to-temp then rename.
// WithBlobStore stores the same layout in any blobstore.BlobStore, such as
// blobstore/minio or blobstore/s3. WithBackend replaces persistence
// entirely.
//
// # Errors
//
// Key errors wrap ErrKeyNotFound. Load failures are *snapshot.DecodeError
// (ErrDecode) or *snapshot.CorruptionError (ErrCorruption). Storage failures
// are *IOError (ErrIO). Missing required files at Open wrap ErrFileRead.
//
// # Concurrency
//
// A Store is single-threaded per instance. Its methods are safe to call
// concurrently but no locking is done across processes: open at most one
// store per instance and directory.
package kvs
