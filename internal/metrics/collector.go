// Package metrics exposes Prometheus counters and histograms for kernel
// operations and blob-store activity (SPEC_FULL §2 ambient stack,
// adapted from the teacher's internal/metrics/collector.go).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls whether metrics are collected and where they're served.
type Config struct {
	Enabled   bool
	Namespace string
}

// Collector holds the Prometheus vectors the kernel and storage backends
// record against.
type Collector struct {
	enabled bool

	registry *prometheus.Registry

	opCounter    *prometheus.CounterVec
	opDuration   *prometheus.HistogramVec
	opErrors     *prometheus.CounterVec
	cacheHits    *prometheus.CounterVec
	blobBytes    *prometheus.GaugeVec
	circuitState *prometheus.GaugeVec
}

// NewCollector builds a Collector; when config.Enabled is false, every
// recording method is a safe no-op so callers never need to branch on
// whether metrics are on.
func NewCollector(config Config) *Collector {
	if config.Namespace == "" {
		config.Namespace = "vfskernel"
	}
	if !config.Enabled {
		return &Collector{enabled: false}
	}

	registry := prometheus.NewRegistry()
	c := &Collector{
		enabled:  true,
		registry: registry,
		opCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "operations_total",
			Help:      "Total kernel operations by name.",
		}, []string{"operation"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Kernel operation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "operation_errors_total",
			Help:      "Kernel operation failures by name and error code.",
		}, []string{"operation", "code"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "cache_requests_total",
			Help:      "Blob cache lookups by result.",
		}, []string{"result"}),
		blobBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "blob_bytes",
			Help:      "Physical bytes stored per tier.",
		}, []string{"tier"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed,1=open,2=half-open) by name.",
		}, []string{"name"}),
	}
	registry.MustRegister(c.opCounter, c.opDuration, c.opErrors, c.cacheHits, c.blobBytes, c.circuitState)
	return c
}

// RecordOperation records one kernel operation's outcome and latency.
func (c *Collector) RecordOperation(operation string, d time.Duration, errCode string) {
	if !c.enabled {
		return
	}
	c.opCounter.WithLabelValues(operation).Inc()
	c.opDuration.WithLabelValues(operation).Observe(d.Seconds())
	if errCode != "" {
		c.opErrors.WithLabelValues(operation, errCode).Inc()
	}
}

// RecordCache records a cache hit or miss.
func (c *Collector) RecordCache(hit bool) {
	if !c.enabled {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheHits.WithLabelValues(result).Inc()
}

// SetBlobBytes sets the current physical byte count for tier.
func (c *Collector) SetBlobBytes(tier string, bytes int64) {
	if !c.enabled {
		return
	}
	c.blobBytes.WithLabelValues(tier).Set(float64(bytes))
}

// SetCircuitState records a circuit breaker's current numeric state.
func (c *Collector) SetCircuitState(name string, state int) {
	if !c.enabled {
		return
	}
	c.circuitState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the HTTP handler serving this collector's registry in
// Prometheus exposition format, or nil when metrics are disabled.
func (c *Collector) Handler() http.Handler {
	if !c.enabled {
		return nil
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
