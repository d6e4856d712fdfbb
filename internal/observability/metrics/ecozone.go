package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EcoZoneMetrics tracks the classification pipeline and interactive sessions.
type EcoZoneMetrics struct {
	registry *prometheus.Registry

	samplesTotal       *prometheus.CounterVec
	zonesTotal         *prometheus.CounterVec
	batchesTotal       prometheus.Counter
	staleDiscarded     *prometheus.CounterVec
	sessionEventsTotal *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	pipelineDuration   prometheus.Histogram
}

// NewEcoZoneMetrics creates and registers the pipeline metrics
func NewEcoZoneMetrics(registry *prometheus.Registry) (*EcoZoneMetrics, error) {
	m := &EcoZoneMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *EcoZoneMetrics) initMetrics() error {
	m.samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecocarto_samples_total",
			Help: "Environmental samples produced, by provenance and eco score",
		},
		[]string{"source", "score"}, // source: live, partial, synthetic
	)

	m.zonesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecocarto_zones_generated_total",
			Help: "Zones generated, by eco score",
		},
		[]string{"score"},
	)

	m.batchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ecocarto_zone_batches_total",
		Help: "Zone batches generated",
	})

	m.staleDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecocarto_stale_responses_discarded_total",
			Help: "Responses dropped because a newer request superseded them",
		},
		[]string{"kind"}, // kind: location, suggestions
	)

	m.sessionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecocarto_session_events_total",
			Help: "Session state transitions, by event",
		},
		[]string{"event"},
	)

	m.activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ecocarto_active_sessions",
		Help: "Number of live interactive sessions",
	})

	m.pipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "ecocarto_location_pipeline_duration_seconds",
		Help: "Time from a location change to its zones being applied",
		// 10ms to ~5s, dominated by provider latency
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
	})

	return nil
}

// Describe implements the Collector interface
func (m *EcoZoneMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.samplesTotal.Describe(ch)
	m.zonesTotal.Describe(ch)
	ch <- m.batchesTotal.Desc()
	m.staleDiscarded.Describe(ch)
	m.sessionEventsTotal.Describe(ch)
	ch <- m.activeSessions.Desc()
	ch <- m.pipelineDuration.Desc()
}

// Collect implements the Collector interface
func (m *EcoZoneMetrics) Collect(ch chan<- prometheus.Metric) {
	m.samplesTotal.Collect(ch)
	m.zonesTotal.Collect(ch)
	ch <- m.batchesTotal
	m.staleDiscarded.Collect(ch)
	m.sessionEventsTotal.Collect(ch)
	ch <- m.activeSessions
	ch <- m.pipelineDuration
}

// RecordSample records one produced sample
func (m *EcoZoneMetrics) RecordSample(source, score string) {
	if m == nil {
		return
	}
	m.samplesTotal.WithLabelValues(source, score).Inc()
}

// RecordZone records one generated zone
func (m *EcoZoneMetrics) RecordZone(score string) {
	if m == nil {
		return
	}
	m.zonesTotal.WithLabelValues(score).Inc()
}

// RecordBatch records a generated zone batch
func (m *EcoZoneMetrics) RecordBatch() {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
}

// RecordStaleDiscarded records a superseded response
func (m *EcoZoneMetrics) RecordStaleDiscarded(kind string) {
	if m == nil {
		return
	}
	m.staleDiscarded.WithLabelValues(kind).Inc()
}

// RecordSessionEvent records a session transition
func (m *EcoZoneMetrics) RecordSessionEvent(event string) {
	if m == nil {
		return
	}
	m.sessionEventsTotal.WithLabelValues(event).Inc()
}

// SessionOpened increments the active sessions gauge
func (m *EcoZoneMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrements the active sessions gauge
func (m *EcoZoneMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// ObservePipelineDuration records the duration of a location change in seconds
func (m *EcoZoneMetrics) ObservePipelineDuration(seconds float64) {
	if m == nil {
		return
	}
	m.pipelineDuration.Observe(seconds)
}
