// Package metrics owns the Prometheus registry used by the vault core and
// exposes nil-safe observer interfaces so every caller can pass a metrics
// sink unconditionally and pay zero overhead when metrics are disabled.
//
// The concrete collector implementations live in pkg/metrics/prometheus,
// which imports this package to register its constructors into
// package-level function variables from init(). The indirection keeps the
// dependency one-way; this package only holds the registry itself.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection and creates the Prometheus
// registry every NewXxxMetrics constructor in this package reports to.
// Safe to call more than once; later calls replace the registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the active registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}
