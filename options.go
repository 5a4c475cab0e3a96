package kvs

import (
	"github.com/hupe1980/kvs/blobstore"
	"github.com/hupe1980/kvs/codec"
	"github.com/hupe1980/kvs/defaults"
)

type options struct {
	backend          Backend
	blobStore        blobstore.BlobStore
	defaults         defaults.Provider
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Open.
type Option func(*options)

// WithBackend replaces the storage backend entirely. Config encoding fields
// are ignored; the backend decides how state is persisted.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithBlobStore keeps the default file layout and encoding but stores the
// files in bs instead of Config.Dir, e.g. a MinIO or S3 bucket.
func WithBlobStore(bs blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = bs
	}
}

// WithDefaults supplies the default provider directly instead of loading it
// from storage. The provider may be shared by several stores.
// Config.NeedDefaults is not consulted.
func WithDefaults(p defaults.Provider) Option {
	return func(o *options) {
		o.defaults = p
	}
}

// WithCodec configures the codec used for JSON payloads.
// It takes precedence over Config.Codec.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &kvs.BasicMetricsCollector{}
//	s, _ := kvs.Open(ctx, cfg, kvs.WithMetricsCollector(metrics))
//	// ... use s ...
//	stats := metrics.GetStats()
//	fmt.Printf("Flushes: %d, Avg latency: %dns\n", stats.FlushCount, stats.FlushAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := kvs.NewJSONLogger(slog.LevelInfo)
//	s, _ := kvs.Open(ctx, cfg, kvs.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
