package kvs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hupe1980/kvs/blobstore"
	"github.com/hupe1980/kvs/defaults"
	"github.com/hupe1980/kvs/layout"
	"github.com/hupe1980/kvs/snapshot"
	"github.com/hupe1980/kvs/value"
)

// Store is one key-value store instance: a mutable override mapping over an
// immutable default provider.
//
// Overrides live in memory until Flush. A Store is meant to be used by one
// goroutine at a time; a mutex keeps accidental concurrent use memory safe.
// Two stores opened on the same files are not coordinated.
type Store struct {
	mu        sync.Mutex
	overrides value.Map

	instance layout.InstanceID
	paths    layout.Resolver
	backend  Backend
	defaults defaults.Provider
	metrics  MetricsCollector
	logger   *Logger
}

// Open creates the store described by cfg.
//
// Unless WithDefaults is given, defaults are loaded from the backend. The
// current snapshot is loaded if present and its hash verifies. A corrupt or
// undecodable snapshot fails Open unless cfg.ResetOnCorruption is set.
func Open(ctx context.Context, cfg Config, optFns ...Option) (*Store, error) {
	set, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	o := applyOptions(optFns)
	if o.codec != nil {
		set.encode.Codec = o.codec
	}

	paths := layout.Resolver{SnapshotMaxCount: cfg.SnapshotMaxCount}
	backend := o.backend
	if backend == nil {
		bs := o.blobStore
		if bs == nil {
			bs = blobstore.NewLocalStore(cfg.Dir)
		}
		paths.Dir = storeDir(bs)
		backend = NewBlobBackend(bs, BlobBackendConfig{
			SnapshotMaxCount: cfg.SnapshotMaxCount,
			Encode:           set.encode,
			Hash:             set.hash,
		})
	} else {
		paths.SnapshotMaxCount = backend.SnapshotMaxCount()
	}

	s := &Store{
		instance: cfg.Instance,
		paths:    paths,
		backend:  backend,
		defaults: o.defaults,
		metrics:  o.metricsCollector,
		logger:   o.logger.WithInstance(cfg.Instance),
	}

	defaultCount, err := s.loadDefaults(ctx, cfg.NeedDefaults)
	if err != nil {
		s.logger.LogOpen(ctx, cfg.Dir, 0, 0, err)
		return nil, err
	}
	if err := s.loadCurrent(ctx, cfg.NeedKVS, cfg.ResetOnCorruption); err != nil {
		s.logger.LogOpen(ctx, cfg.Dir, 0, defaultCount, err)
		return nil, err
	}

	s.logger.LogOpen(ctx, cfg.Dir, len(s.overrides), defaultCount, nil)
	return s, nil
}

// loadDefaults binds the default provider and returns its size, or -1 when a
// caller supplied provider cannot tell.
func (s *Store) loadDefaults(ctx context.Context, need Need) (int, error) {
	if s.defaults != nil {
		if p, ok := s.defaults.(interface{ Len() int }); ok {
			return p.Len(), nil
		}
		return -1, nil
	}

	m, err := s.backend.LoadDefaults(ctx, s.instance)
	switch {
	case err == nil:
		p := defaults.NewMapProvider(m)
		s.defaults = p
		return p.Len(), nil
	case IsNotFound(err) && need == Optional:
		s.defaults = defaults.Empty
		return 0, nil
	case IsNotFound(err):
		return 0, fmt.Errorf("%w: defaults %s: %w", ErrFileRead, s.paths.DefaultsPaths(s.instance).Data, err)
	default:
		return 0, err
	}
}

func (s *Store) loadCurrent(ctx context.Context, need Need, resetOnCorruption bool) error {
	start := time.Now()
	m, err := s.backend.LoadKVS(ctx, s.instance, layout.Current)
	if IsNotFound(err) {
		s.metrics.RecordLoad(time.Since(start), nil)
	} else {
		s.metrics.RecordLoad(time.Since(start), err)
	}

	switch {
	case err == nil:
		if m == nil {
			m = make(value.Map)
		}
		s.overrides = m
		return nil
	case IsNotFound(err) && need == Optional:
		s.overrides = make(value.Map)
		return nil
	case IsNotFound(err):
		return fmt.Errorf("%w: %s: %w", ErrFileRead, s.dataPath(layout.Current), err)
	case resetOnCorruption && !isUnsupportedFormat(err) && (errors.Is(err, ErrCorruption) || errors.Is(err, ErrDecode)):
		s.logger.LogCorruption(ctx, s.dataPath(layout.Current), err)
		s.overrides = make(value.Map)
		return nil
	default:
		return err
	}
}

// isUnsupportedFormat reports files written by a newer version. They are
// never discarded, even with Config.ResetOnCorruption.
func isUnsupportedFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedHashFormat) || errors.Is(err, snapshot.ErrInvalidVersion)
}

func (s *Store) dataPath(id layout.SnapshotID) string {
	p, err := s.paths.Resolve(s.instance, id)
	if err != nil {
		return ""
	}
	return p.Data
}

// Instance returns the instance id the store was opened with.
func (s *Store) Instance() layout.InstanceID { return s.instance }

// Get returns the override for key, else its default. Keys with neither
// yield ErrKeyNotFound.
func (s *Store) Get(key string) (value.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.overrides[key]; ok {
		s.metrics.RecordGet(true, false)
		return v.Clone(), nil
	}
	if v, ok := s.defaults.Lookup(key); ok {
		s.metrics.RecordGet(true, true)
		return v.Clone(), nil
	}
	s.metrics.RecordGet(false, false)
	return value.Value{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
}

// HasDefaultValue reports whether the current value of key equals its
// default. Keys without a default yield ErrKeyNotFound, even when an
// override exists.
func (s *Store) HasDefaultValue(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.defaults.Lookup(key)
	if !ok {
		return false, fmt.Errorf("%w: %w: %q", ErrKeyNotFound, ErrNoDefault, key)
	}
	v, ok := s.overrides[key]
	if !ok {
		return true, nil
	}
	return v.Equal(d), nil
}

// GetDefaultValue returns the default of key.
func (s *Store) GetDefaultValue(key string) (value.Value, error) {
	d, ok := s.defaults.Lookup(key)
	if !ok {
		return value.Value{}, fmt.Errorf("%w: %w: %q", ErrKeyNotFound, ErrNoDefault, key)
	}
	return d.Clone(), nil
}

// Set stores a copy of v as the override for key. Nothing is written until
// Flush.
func (s *Store) Set(key string, v value.Value) error {
	err := s.set(key, v)
	s.metrics.RecordSet(err)
	return err
}

func (s *Store) set(key string, v value.Value) error {
	if key == "" {
		return ErrInvalidKey
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidKey, key)
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: key %q: %w", ErrInvalidValue, key, err)
	}

	s.mu.Lock()
	s.overrides[key] = v.Clone()
	s.mu.Unlock()
	s.debugKey(key, "override set", "kind", v.Kind().String())
	return nil
}

// Remove deletes the override for key so it falls back to its default.
// Keys without an override yield ErrKeyNotFound.
func (s *Store) Remove(key string) error {
	err := s.remove(key)
	s.metrics.RecordRemove(err)
	return err
}

// ResetKey reverts key to its default. It behaves like Remove.
func (s *Store) ResetKey(key string) error {
	err := s.remove(key)
	s.metrics.RecordRemove(err)
	return err
}

func (s *Store) remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.overrides[key]; !ok {
		return fmt.Errorf("%w: no override for %q", ErrKeyNotFound, key)
	}
	delete(s.overrides, key)
	s.debugKey(key, "override removed")
	return nil
}

func (s *Store) debugKey(key, msg string, args ...any) {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	s.logger.WithKey(key).Debug(msg, args...)
}

// Reset removes every override.
func (s *Store) Reset() {
	s.mu.Lock()
	clear(s.overrides)
	s.mu.Unlock()
}

// Keys returns the sorted keys that have an override.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrides.Keys()
}

// KeyExists reports whether key has an override or a default.
func (s *Store) KeyExists(key string) bool {
	s.mu.Lock()
	_, ok := s.overrides[key]
	s.mu.Unlock()
	return ok || s.defaults.Contains(key)
}

// Flush persists the overrides as the new current snapshot. The previous
// current snapshot becomes snapshot 1 and so on; the oldest beyond
// SnapshotMaxCount is dropped.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	m := s.overrides.Clone()
	s.mu.Unlock()

	start := time.Now()
	n, err := s.backend.Flush(ctx, s.instance, m)
	elapsed := time.Since(start)

	s.metrics.RecordFlush(elapsed, n, err)
	s.logger.LogFlush(ctx, len(m), n, elapsed, err)
	return err
}

// KVSFilename returns the data file of snapshot id. For stores without a
// local directory, such as object stores, it is the blob name. Ids above
// SnapshotMaxCount yield ErrNotFound.
func (s *Store) KVSFilename(id layout.SnapshotID) (string, error) {
	p, err := s.paths.Resolve(s.instance, id)
	if err != nil {
		return "", err
	}
	return p.Data, nil
}

// HashFilename returns the hash file of snapshot id.
func (s *Store) HashFilename(id layout.SnapshotID) (string, error) {
	p, err := s.paths.Resolve(s.instance, id)
	if err != nil {
		return "", err
	}
	return p.Hash, nil
}

// SnapshotCount returns the number of previous snapshots available to
// SnapshotRestore.
func (s *Store) SnapshotCount(ctx context.Context) (int, error) {
	return s.backend.SnapshotCount(ctx, s.instance)
}

// SnapshotMaxCount returns the number of previous snapshots kept.
func (s *Store) SnapshotMaxCount() int {
	return s.backend.SnapshotMaxCount()
}

// SnapshotRestore replaces the overrides with those of previous snapshot id.
// The restored state is in memory only until the next Flush. Id 0 yields
// ErrInvalidSnapshotID, ids without a snapshot ErrNotFound.
func (s *Store) SnapshotRestore(ctx context.Context, id layout.SnapshotID) error {
	start := time.Now()
	m, err := s.backend.SnapshotRestore(ctx, s.instance, id)
	s.metrics.RecordLoad(time.Since(start), err)
	s.logger.LogRestore(ctx, id, err)
	if err != nil {
		return err
	}
	if m == nil {
		m = make(value.Map)
	}

	s.mu.Lock()
	s.overrides = m
	s.mu.Unlock()
	return nil
}
