package kvs

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hupe1980/kvs/blobstore"
	"github.com/hupe1980/kvs/codec"
	"github.com/hupe1980/kvs/defaults"
	"github.com/hupe1980/kvs/layout"
	"github.com/hupe1980/kvs/snapshot"
	"github.com/hupe1980/kvs/value"
)

// Backend persists the state of store instances.
//
// Load methods return an error satisfying IsNotFound when the requested file
// does not exist, so Open can apply Config.NeedKVS and Config.NeedDefaults.
type Backend interface {
	// LoadKVS loads and verifies one snapshot slot.
	LoadKVS(ctx context.Context, instance layout.InstanceID, snapshot layout.SnapshotID) (value.Map, error)
	// LoadDefaults loads the defaults of instance.
	LoadDefaults(ctx context.Context, instance layout.InstanceID) (value.Map, error)
	// Flush writes m as the new current slot, shifting older slots back.
	// It returns the size of the data file written.
	Flush(ctx context.Context, instance layout.InstanceID, m value.Map) (int, error)
	// SnapshotCount returns the number of restorable previous slots.
	SnapshotCount(ctx context.Context, instance layout.InstanceID) (int, error)
	// SnapshotMaxCount returns the number of previous slots kept.
	SnapshotMaxCount() int
	// SnapshotRestore loads previous slot snapshot (>= 1).
	SnapshotRestore(ctx context.Context, instance layout.InstanceID, snapshot layout.SnapshotID) (value.Map, error)
}

// BlobBackendConfig configures a BlobBackend.
type BlobBackendConfig struct {
	SnapshotMaxCount int
	Encode           snapshot.EncodeOptions
	// Hash is the algorithm for new hash files. Existing hash files are
	// verified with the algorithm they name.
	Hash snapshot.Algorithm
}

// BlobBackend stores the file layout of package layout in a BlobStore.
type BlobBackend struct {
	store  blobstore.BlobStore
	names  layout.Resolver
	dir    string
	encode snapshot.EncodeOptions
	hash   snapshot.Algorithm
	codec  codec.Codec
}

var _ Backend = (*BlobBackend)(nil)

// rooted is implemented by blob stores that live in a local directory.
type rooted interface {
	Root() string
}

// storeDir returns the directory of bs, or "" for stores without one.
func storeDir(bs blobstore.BlobStore) string {
	if r, ok := bs.(rooted); ok {
		return r.Root()
	}
	return ""
}

// NewBlobBackend creates a backend over store.
func NewBlobBackend(store blobstore.BlobStore, cfg BlobBackendConfig) *BlobBackend {
	if cfg.Hash == "" {
		cfg.Hash = snapshot.SHA256
	}
	c := cfg.Encode.Codec
	if c == nil {
		c = codec.Default
	}
	cfg.Encode.Codec = c
	return &BlobBackend{
		store:  store,
		names:  layout.Resolver{SnapshotMaxCount: cfg.SnapshotMaxCount},
		dir:    storeDir(store),
		encode: cfg.Encode,
		hash:   cfg.Hash,
		codec:  c,
	}
}

// SnapshotMaxCount implements Backend.
func (b *BlobBackend) SnapshotMaxCount() int { return b.names.SnapshotMaxCount }

// LoadKVS implements Backend. A data file without a hash file is reported as
// corruption; a hash file without a data file is ignored.
func (b *BlobBackend) LoadKVS(ctx context.Context, instance layout.InstanceID, snap layout.SnapshotID) (value.Map, error) {
	p, err := b.names.Resolve(instance, snap)
	if err != nil {
		return nil, err
	}

	data, err := b.read(ctx, p.Data)
	if err != nil {
		return nil, err
	}
	hashFile, err := b.read(ctx, p.Hash)
	if err != nil {
		if IsNotFound(err) {
			return nil, &snapshot.CorruptionError{Path: b.path(p.Data), Reason: "hash file " + b.path(p.Hash) + " missing"}
		}
		return nil, err
	}
	if err := snapshot.Check(b.path(p.Data), data, hashFile); err != nil {
		return nil, err
	}

	m, err := snapshot.DecodeWith(data, b.codec)
	if err != nil {
		return nil, fmt.Errorf("kvs: %s: %w", b.path(p.Data), err)
	}
	return m, nil
}

// LoadDefaults implements Backend. The typed JSON file is preferred and
// verified against its hash file when one exists; the YAML file is the
// fallback.
func (b *BlobBackend) LoadDefaults(ctx context.Context, instance layout.InstanceID) (value.Map, error) {
	p := b.names.DefaultsPaths(instance)

	data, err := b.read(ctx, p.Data)
	switch {
	case err == nil:
		hashFile, err := b.read(ctx, p.Hash)
		if err == nil {
			if err := snapshot.Check(b.path(p.Data), data, hashFile); err != nil {
				return nil, err
			}
		} else if !IsNotFound(err) {
			return nil, err
		}
		d, err := defaults.DecodeJSON(b.codec, data)
		if err != nil {
			return nil, fmt.Errorf("kvs: %s: %w", b.path(p.Data), err)
		}
		return d.Snapshot(), nil
	case !IsNotFound(err):
		return nil, err
	}

	yamlPath := b.names.DefaultsYAMLPath(instance)
	data, err = b.read(ctx, yamlPath)
	if err != nil {
		return nil, err
	}
	d, err := defaults.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("kvs: %s: %w", b.path(yamlPath), err)
	}
	return d.Snapshot(), nil
}

// Flush implements Backend.
//
// The current slot is copied into slot 1 rather than moved, so it stays in
// place until the atomic Put replaces it. The hash file is written last and
// only after the data file was stored: an interrupted flush leaves either
// the old pair or new data under an old hash, which fails verification.
func (b *BlobBackend) Flush(ctx context.Context, instance layout.InstanceID, m value.Map) (int, error) {
	data, err := snapshot.Encode(m, b.encode)
	if err != nil {
		return 0, err
	}
	if err := b.rotate(ctx, instance); err != nil {
		return 0, err
	}

	p, err := b.names.Resolve(instance, layout.Current)
	if err != nil {
		return 0, err
	}
	if err := b.store.Put(ctx, p.Data, data); err != nil {
		return 0, ioErr("write", b.path(p.Data), err)
	}
	sum := snapshot.FormatDigest(snapshot.Hash(b.hash, data))
	if err := b.store.Put(ctx, p.Hash, sum); err != nil {
		return 0, ioErr("write", b.path(p.Hash), err)
	}
	return len(data), nil
}

// rotate shifts slot i to i+1 for i = max-1 down to 0. Older slots are
// renamed, the current slot is copied. A missing source clears the target so
// slot i+1 always holds exactly what slot i held.
func (b *BlobBackend) rotate(ctx context.Context, instance layout.InstanceID) error {
	for i := b.names.SnapshotMaxCount - 1; i >= 0; i-- {
		src, err := b.names.Resolve(instance, layout.SnapshotID(i))
		if err != nil {
			return err
		}
		dst, err := b.names.Resolve(instance, layout.SnapshotID(i+1))
		if err != nil {
			return err
		}
		keep := layout.SnapshotID(i) == layout.Current
		if err := b.shift(ctx, src.Data, dst.Data, keep); err != nil {
			return err
		}
		if err := b.shift(ctx, src.Hash, dst.Hash, keep); err != nil {
			return err
		}
	}
	return nil
}

// shift moves src to dst, or copies it when keep is set.
func (b *BlobBackend) shift(ctx context.Context, src, dst string, keep bool) error {
	if keep {
		data, err := b.read(ctx, src)
		switch {
		case IsNotFound(err):
			return ioErr("delete", b.path(dst), b.store.Delete(ctx, dst))
		case err != nil:
			return err
		}
		return ioErr("copy", b.path(dst), b.store.Put(ctx, dst, data))
	}

	ok, err := b.store.Exists(ctx, src)
	if err != nil {
		return ioErr("stat", b.path(src), err)
	}
	if !ok {
		return ioErr("delete", b.path(dst), b.store.Delete(ctx, dst))
	}
	return ioErr("rename", b.path(src), b.store.Rename(ctx, src, dst))
}

// SnapshotCount implements Backend. It counts consecutive existing data
// files starting at slot 1.
func (b *BlobBackend) SnapshotCount(ctx context.Context, instance layout.InstanceID) (int, error) {
	n := 0
	for i := 1; i <= b.names.SnapshotMaxCount; i++ {
		p, err := b.names.Resolve(instance, layout.SnapshotID(i))
		if err != nil {
			return 0, err
		}
		ok, err := b.store.Exists(ctx, p.Data)
		if err != nil {
			return 0, ioErr("stat", b.path(p.Data), err)
		}
		if !ok {
			break
		}
		n++
	}
	return n, nil
}

// SnapshotRestore implements Backend.
func (b *BlobBackend) SnapshotRestore(ctx context.Context, instance layout.InstanceID, snap layout.SnapshotID) (value.Map, error) {
	if snap == layout.Current {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSnapshotID, snap)
	}
	if int64(snap) > int64(b.names.SnapshotMaxCount) {
		return nil, fmt.Errorf("%w: snapshot %d exceeds max %d", ErrNotFound, snap, b.names.SnapshotMaxCount)
	}
	count, err := b.SnapshotCount(ctx, instance)
	if err != nil {
		return nil, err
	}
	if int(snap) > count {
		return nil, fmt.Errorf("%w: snapshot %d of %d", ErrNotFound, snap, count)
	}
	return b.LoadKVS(ctx, instance, snap)
}

// read returns not-found errors unchanged so IsNotFound works on them and
// wraps everything else in an *IOError.
func (b *BlobBackend) read(ctx context.Context, name string) ([]byte, error) {
	data, err := b.store.Get(ctx, name)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("kvs: %s: %w", b.path(name), err)
		}
		return nil, ioErr("read", b.path(name), err)
	}
	return data, nil
}

// path returns name as reported in errors: joined with the store directory
// for local stores, the blob name otherwise.
func (b *BlobBackend) path(name string) string {
	if b.dir == "" {
		return name
	}
	return filepath.Join(b.dir, name)
}
