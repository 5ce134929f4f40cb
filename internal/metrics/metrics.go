// Package metrics instruments the RPC dispatcher and the lock coordinator
// with github.com/prometheus/client_golang, the metrics library the teacher
// carries in its root go.mod (telemetry.go registers a prometheus.Registry
// and serves it over promhttp). FOS has no equivalent OTLP/gRPC exporter
// stack in its dependency set (dropped per DESIGN.md), so this package owns
// its own registry rather than reusing the teacher's combined
// tracing-plus-metrics telemetryBundle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric FOS exports plus the registry backing them.
type Registry struct {
	registry *prometheus.Registry

	RPCRequestsTotal   *prometheus.CounterVec
	RPCRequestDuration *prometheus.HistogramVec
	FileOpsTotal       *prometheus.CounterVec
	LeaseAcquireTotal  *prometheus.CounterVec
	LeaseRetryTotal    prometheus.Counter
}

// New constructs a Registry with every FOS metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		RPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fos",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total JSON-RPC requests processed, labeled by method and outcome.",
		}, []string{"method", "outcome"}),
		RPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fos",
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "JSON-RPC request handling latency, labeled by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		FileOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fos",
			Subsystem: "fileops",
			Name:      "operations_total",
			Help:      "Total file operations performed, labeled by operation kind and outcome.",
		}, []string{"operation", "outcome"}),
		LeaseAcquireTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fos",
			Subsystem: "coordinator",
			Name:      "lease_acquire_total",
			Help:      "Total lease acquisition attempts, labeled by outcome.",
		}, []string{"outcome"}),
		LeaseRetryTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fos",
			Subsystem: "coordinator",
			Name:      "lease_retry_total",
			Help:      "Total backoff retries performed while acquiring a lease.",
		}),
	}

	reg.MustRegister(
		r.RPCRequestsTotal,
		r.RPCRequestDuration,
		r.FileOpsTotal,
		r.LeaseAcquireTotal,
		r.LeaseRetryTotal,
	)
	return r
}

// Handler returns the HTTP handler that serves this registry's metrics in
// the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
