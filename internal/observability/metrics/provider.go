// Package metrics provides external provider metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics contains Prometheus metrics for the air quality and geocoding providers
type ProviderMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheTotal      *prometheus.CounterVec
	fallbacksTotal  *prometheus.CounterVec
	rateLimitWaits  *prometheus.CounterVec
}

// NewProviderMetrics creates and registers new provider metrics
func NewProviderMetrics(registry *prometheus.Registry) (*ProviderMetrics, error) {
	m := &ProviderMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *ProviderMetrics) initMetrics() error {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecocarto_provider_requests_total",
			Help: "Total number of requests to external providers",
		},
		[]string{"provider", "operation", "status"}, // status: success, error
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ecocarto_provider_request_duration_seconds",
			Help: "Time taken by external provider requests",
			// 10ms to ~5s: cached CDN answers up to a request close to the client timeout
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
		},
		[]string{"provider", "operation"},
	)

	m.cacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecocarto_provider_cache_total",
			Help: "Provider response cache lookups",
		},
		[]string{"provider", "result"}, // result: hit, miss
	)

	m.fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecocarto_provider_fallbacks_total",
			Help: "Total number of synthesized values used in place of provider data",
		},
		[]string{"provider", "reason"},
	)

	m.rateLimitWaits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecocarto_provider_rate_limit_waits_total",
			Help: "Requests that had to wait for the outbound rate limiter",
		},
		[]string{"provider"},
	)

	return nil
}

// Describe implements the Collector interface
func (m *ProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.cacheTotal.Describe(ch)
	m.fallbacksTotal.Describe(ch)
	m.rateLimitWaits.Describe(ch)
}

// Collect implements the Collector interface
func (m *ProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.cacheTotal.Collect(ch)
	m.fallbacksTotal.Collect(ch)
	m.rateLimitWaits.Collect(ch)
}

// RecordRequest records a provider request outcome
func (m *ProviderMetrics) RecordRequest(provider, operation, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(provider, operation, status).Inc()
}

// RecordRequestDuration records the duration of a provider request in seconds
func (m *ProviderMetrics) RecordRequestDuration(provider, operation string, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(provider, operation).Observe(seconds)
}

// RecordCacheHit records a provider cache hit
func (m *ProviderMetrics) RecordCacheHit(provider string) {
	if m == nil {
		return
	}
	m.cacheTotal.WithLabelValues(provider, CacheHit).Inc()
}

// RecordCacheMiss records a provider cache miss
func (m *ProviderMetrics) RecordCacheMiss(provider string) {
	if m == nil {
		return
	}
	m.cacheTotal.WithLabelValues(provider, CacheMiss).Inc()
}

// RecordFallback records a synthesized fallback value
func (m *ProviderMetrics) RecordFallback(provider, reason string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(provider, reason).Inc()
}

// RecordRateLimitWait records a request delayed by the rate limiter
func (m *ProviderMetrics) RecordRateLimitWait(provider string) {
	if m == nil {
		return
	}
	m.rateLimitWaits.WithLabelValues(provider).Inc()
}
