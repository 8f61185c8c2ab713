// Package metrics holds Prometheus instruments that are used across the
// server.  All collectors are registered with the global registry, so the
// /metrics route exposes them without further wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DocumentsRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudinit_documents_rendered_total",
			Help: "Cloud-init documents rendered, by document and variant.",
		}, []string{"document", "variant"})

	RenderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudinit_render_errors_total",
			Help: "Cloud-init documents that failed to encode.",
		}, []string{"document", "variant"})

	RenderCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudinit_render_cache_hits_total",
			Help: "Documents served from the render cache.",
		}, []string{"document"})

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by route pattern, method, and status code.",
		}, []string{"route", "method", "code"})

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"})

	ConfigWarnings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "config_warnings",
			Help: "Warnings raised while resolving the configuration at startup.",
		})
)

func init() {
	prometheus.MustRegister(
		DocumentsRendered,
		RenderErrors,
		RenderCacheHits,
		HTTPRequests,
		HTTPDuration,
		ConfigWarnings,
	)
}
