// Package prommetrics exports kvs store metrics to Prometheus.
//
//	c := prommetrics.New(prometheus.DefaultRegisterer)
//	s, _ := kvs.Open(ctx, cfg, kvs.WithMetricsCollector(c))
//	http.Handle("/metrics", promhttp.Handler())
package prommetrics

import (
	"time"

	"github.com/hupe1980/kvs"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements kvs.MetricsCollector with Prometheus metrics.
type Collector struct {
	gets       *prometheus.CounterVec
	writes     *prometheus.CounterVec
	opLatency  *prometheus.HistogramVec
	flushBytes prometheus.Histogram
}

var _ kvs.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg. A nil reg
// leaves the metrics unregistered.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvs_gets_total",
			Help: "Total Get calls by result",
		}, []string{"result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvs_writes_total",
			Help: "Total in-memory writes by operation and status",
		}, []string{"op", "status"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kvs_operation_latency_seconds",
			Help:    "Latency of storage operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		flushBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kvs_flush_bytes",
			Help:    "Size of flushed data files",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(c.gets, c.writes, c.opLatency, c.flushBytes)
	}
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordGet implements kvs.MetricsCollector.
func (c *Collector) RecordGet(hit, fromDefault bool) {
	switch {
	case !hit:
		c.gets.WithLabelValues("miss").Inc()
	case fromDefault:
		c.gets.WithLabelValues("default").Inc()
	default:
		c.gets.WithLabelValues("override").Inc()
	}
}

// RecordSet implements kvs.MetricsCollector.
func (c *Collector) RecordSet(err error) {
	c.writes.WithLabelValues("set", status(err)).Inc()
}

// RecordRemove implements kvs.MetricsCollector.
func (c *Collector) RecordRemove(err error) {
	c.writes.WithLabelValues("remove", status(err)).Inc()
}

// RecordFlush implements kvs.MetricsCollector.
func (c *Collector) RecordFlush(d time.Duration, bytes int, err error) {
	c.opLatency.WithLabelValues("flush", status(err)).Observe(d.Seconds())
	if err == nil {
		c.flushBytes.Observe(float64(bytes))
	}
}

// RecordLoad implements kvs.MetricsCollector.
func (c *Collector) RecordLoad(d time.Duration, err error) {
	c.opLatency.WithLabelValues("load", status(err)).Observe(d.Seconds())
}
