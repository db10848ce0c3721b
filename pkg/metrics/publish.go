package metrics

import (
	"github.com/cipherbox-vault/core/pkg/publish"
)

// NewPublishMetrics creates a Prometheus-backed publish.Metrics instance.
//
// Returns nil if InitRegistry has not been called. pkg/publish.Pipeline
// treats a nil Metrics as valid and costs nothing, so callers can always
// pass the result of this constructor unconditionally.
func NewPublishMetrics() publish.Metrics {
	if !IsEnabled() || newPrometheusPublishMetrics == nil {
		return nil
	}
	return newPrometheusPublishMetrics()
}

// newPrometheusPublishMetrics is registered by pkg/metrics/prometheus's
// init(), indirecting the dependency on the prometheus client library
// through a package-level function variable to avoid an import cycle
// between pkg/metrics and pkg/metrics/prometheus.
var newPrometheusPublishMetrics func() publish.Metrics

// RegisterPublishMetricsConstructor is called by
// pkg/metrics/prometheus/publish.go during package initialization.
func RegisterPublishMetricsConstructor(constructor func() publish.Metrics) {
	newPrometheusPublishMetrics = constructor
}

// QuotaMetrics reports a session's façade-enforced pin quota usage.
type QuotaMetrics interface {
	RecordQuota(usedBytes, limitBytes int64)
}

// NewQuotaMetrics creates a Prometheus-backed QuotaMetrics instance, or nil
// if metrics are disabled.
func NewQuotaMetrics() QuotaMetrics {
	if !IsEnabled() || newPrometheusQuotaMetrics == nil {
		return nil
	}
	return newPrometheusQuotaMetrics()
}

var newPrometheusQuotaMetrics func() QuotaMetrics

// RegisterQuotaMetricsConstructor is called by
// pkg/metrics/prometheus/publish.go during package initialization.
func RegisterQuotaMetricsConstructor(constructor func() QuotaMetrics) {
	newPrometheusQuotaMetrics = constructor
}

// RecordQuota records current quota usage, nil-safe.
func RecordQuota(m QuotaMetrics, usedBytes, limitBytes int64) {
	if m != nil {
		m.RecordQuota(usedBytes, limitBytes)
	}
}
