package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT error stages.
const (
	MQTTStageResolve  = "resolve"
	MQTTStageConnect  = "connect"
	MQTTStagePublish  = "publish"
	MQTTStageConnLost = "connection_lost"
)

// MQTTMetrics tracks the broker connection and zone summary publishing.
type MQTTMetrics struct {
	connected      prometheus.Gauge
	summariesTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	reconnects     prometheus.Counter
	summaryBytes   prometheus.Histogram
	publishSeconds prometheus.Histogram
}

// NewMQTTMetrics creates and registers the MQTT metrics.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecocarto_mqtt_connected",
			Help: "1 while connected to the MQTT broker",
		}),
		summariesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecocarto_mqtt_zone_summaries_total",
			Help: "Zone summary publish attempts by result",
		}, []string{"result"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecocarto_mqtt_errors_total",
			Help: "MQTT failures by stage",
		}, []string{"stage"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecocarto_mqtt_reconnects_total",
			Help: "Automatic reconnection attempts",
		}),
		summaryBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecocarto_mqtt_zone_summary_bytes",
			Help:    "Size of published zone summaries",
			Buckets: prometheus.ExponentialBuckets(BucketStart128B, BucketFactor2, 6),
		}),
		publishSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecocarto_mqtt_publish_duration_seconds",
			Help:    "Time until the broker acknowledged a summary",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetConnected records the connection state.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

// RecordError counts a failure at stage.
func (m *MQTTMetrics) RecordError(stage string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(stage).Inc()
}

// RecordReconnect counts an automatic reconnection attempt.
func (m *MQTTMetrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// RecordPublish records one summary publish. Size is only observed for
// delivered summaries.
func (m *MQTTMetrics) RecordPublish(err error, size int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.publishSeconds.Observe(elapsed.Seconds())
	if err != nil {
		m.summariesTotal.WithLabelValues(StatusError).Inc()
		m.errorsTotal.WithLabelValues(MQTTStagePublish).Inc()
		return
	}
	m.summariesTotal.WithLabelValues(StatusSuccess).Inc()
	m.summaryBytes.Observe(float64(size))
}

// Describe implements the Collector interface
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.connected.Describe(ch)
	m.summariesTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.reconnects.Describe(ch)
	m.summaryBytes.Describe(ch)
	m.publishSeconds.Describe(ch)
}

// Collect implements the Collector interface
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	m.connected.Collect(ch)
	m.summariesTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.reconnects.Collect(ch)
	m.summaryBytes.Collect(ch)
	m.publishSeconds.Collect(ch)
}
