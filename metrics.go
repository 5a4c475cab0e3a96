package kvs

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordGet is called after each Get. hit is false for ErrKeyNotFound,
	// fromDefault is true when the value came from the default provider.
	RecordGet(hit, fromDefault bool)

	// RecordSet is called after each Set. err is nil if successful.
	RecordSet(err error)

	// RecordRemove is called after each Remove and ResetKey.
	RecordRemove(err error)

	// RecordFlush is called after each Flush. bytes is the size of the data
	// file written.
	RecordFlush(duration time.Duration, bytes int, err error)

	// RecordLoad is called after the store state is loaded on Open or
	// SnapshotRestore.
	RecordLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGet(bool, bool)                  {}
func (NoopMetricsCollector) RecordSet(error)                       {}
func (NoopMetricsCollector) RecordRemove(error)                    {}
func (NoopMetricsCollector) RecordFlush(time.Duration, int, error) {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	GetCount        atomic.Int64
	GetMisses       atomic.Int64
	GetDefaults     atomic.Int64
	SetCount        atomic.Int64
	SetErrors       atomic.Int64
	RemoveCount     atomic.Int64
	RemoveErrors    atomic.Int64
	FlushCount      atomic.Int64
	FlushErrors     atomic.Int64
	FlushBytes      atomic.Int64
	FlushTotalNanos atomic.Int64
	LoadCount       atomic.Int64
	LoadErrors      atomic.Int64
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(hit, fromDefault bool) {
	b.GetCount.Add(1)
	if !hit {
		b.GetMisses.Add(1)
	} else if fromDefault {
		b.GetDefaults.Add(1)
	}
}

// RecordSet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSet(err error) {
	b.SetCount.Add(1)
	if err != nil {
		b.SetErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(duration time.Duration, bytes int, err error) {
	b.FlushCount.Add(1)
	b.FlushTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FlushErrors.Add(1)
		return
	}
	b.FlushBytes.Add(int64(bytes))
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		GetCount:      b.GetCount.Load(),
		GetMisses:     b.GetMisses.Load(),
		GetDefaults:   b.GetDefaults.Load(),
		SetCount:      b.SetCount.Load(),
		SetErrors:     b.SetErrors.Load(),
		RemoveCount:   b.RemoveCount.Load(),
		RemoveErrors:  b.RemoveErrors.Load(),
		FlushCount:    b.FlushCount.Load(),
		FlushErrors:   b.FlushErrors.Load(),
		FlushBytes:    b.FlushBytes.Load(),
		FlushAvgNanos: b.getAvgFlushNanos(),
		LoadCount:     b.LoadCount.Load(),
		LoadErrors:    b.LoadErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgFlushNanos() int64 {
	count := b.FlushCount.Load()
	if count == 0 {
		return 0
	}
	return b.FlushTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	GetCount      int64
	GetMisses     int64
	GetDefaults   int64
	SetCount      int64
	SetErrors     int64
	RemoveCount   int64
	RemoveErrors  int64
	FlushCount    int64
	FlushErrors   int64
	FlushBytes    int64
	FlushAvgNanos int64
	LoadCount     int64
	LoadErrors    int64
}
