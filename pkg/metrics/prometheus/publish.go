// Package prometheus provides the concrete Prometheus-backed
// implementations of the observer interfaces declared in pkg/metrics. It
// registers its constructors into pkg/metrics's package-level function
// variables from init(), so pkg/metrics itself never imports the
// Prometheus client library.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cipherbox-vault/core/pkg/metrics"
	"github.com/cipherbox-vault/core/pkg/publish"
)

func init() {
	metrics.RegisterPublishMetricsConstructor(newPublishMetrics)
	metrics.RegisterQuotaMetricsConstructor(newQuotaMetrics)
}

// publishMetrics is the Prometheus implementation of publish.Metrics.
type publishMetrics struct {
	publishOperations *prometheus.CounterVec
	publishDuration   *prometheus.HistogramVec
	resolveOperations *prometheus.CounterVec
	resolveDuration   *prometheus.HistogramVec
	resolveCacheHits  prometheus.Counter
	resolveStale      prometheus.Counter
}

func newPublishMetrics() publish.Metrics {
	reg := metrics.GetRegistry()

	return &publishMetrics{
		publishOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherbox_publish_operations_total",
				Help: "Total number of mutable-pointer publish attempts by outcome",
			},
			[]string{"status"}, // "ok", "error"
		),
		publishDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cipherbox_publish_duration_milliseconds",
				Help:    "Duration of mutable-pointer publish operations in milliseconds",
				Buckets: []float64{5, 25, 50, 100, 250, 500, 1000, 5000, 30000, 120000},
			},
			[]string{"status"},
		),
		resolveOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherbox_resolve_operations_total",
				Help: "Total number of mutable-pointer resolve operations by cache/stale outcome",
			},
			[]string{"cache_hit", "stale"},
		),
		resolveDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cipherbox_resolve_duration_milliseconds",
				Help:    "Duration of mutable-pointer resolve operations in milliseconds",
				Buckets: []float64{1, 5, 25, 50, 100, 250, 500, 1000, 5000, 60000},
			},
			[]string{"cache_hit"},
		),
		resolveCacheHits: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cipherbox_resolve_cache_hits_total",
				Help: "Total resolves satisfied by the single-flight/sequence cache without a fresh verified fetch",
			},
		),
		resolveStale: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cipherbox_resolve_stale_total",
				Help: "Total resolves that fell back to a possibly-stale cached value",
			},
		),
	}
}

func (m *publishMetrics) ObservePublish(pointerID string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.publishOperations.WithLabelValues(status).Inc()
	m.publishDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func (m *publishMetrics) ObserveResolve(pointerID string, duration time.Duration, cacheHit bool, stale bool) {
	m.resolveOperations.WithLabelValues(boolLabel(cacheHit), boolLabel(stale)).Inc()
	m.resolveDuration.WithLabelValues(boolLabel(cacheHit)).Observe(float64(duration.Milliseconds()))
	if cacheHit {
		m.resolveCacheHits.Inc()
	}
	if stale {
		m.resolveStale.Inc()
	}
}

// quotaMetrics is the Prometheus implementation of metrics.QuotaMetrics.
type quotaMetrics struct {
	used  prometheus.Gauge
	limit prometheus.Gauge
}

func newQuotaMetrics() metrics.QuotaMetrics {
	reg := metrics.GetRegistry()

	return &quotaMetrics{
		used: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "cipherbox_quota_used_bytes",
			Help: "Bytes currently pinned against the session's façade quota",
		}),
		limit: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "cipherbox_quota_limit_bytes",
			Help: "Façade-enforced pin quota limit in bytes",
		}),
	}
}

func (m *quotaMetrics) RecordQuota(usedBytes, limitBytes int64) {
	m.used.Set(float64(usedBytes))
	m.limit.Set(float64(limitBytes))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
