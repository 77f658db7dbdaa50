// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quantina_relay"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Message metrics
	MessagesProcessed *prometheus.CounterVec // mode, outcome
	MessageDuration   prometheus.Histogram

	// Connection metrics
	ConnectionsActive prometheus.Gauge
	ConnectsTotal     prometheus.Counter
	DisconnectsTotal  prometheus.Counter

	// Fan-out metrics
	FanOutDeliveries prometheus.Counter
	FanOutMisses     prometheus.Counter
	FanOutErrors     prometheus.Counter

	// Upstream call metrics
	UpstreamLatency *prometheus.HistogramVec // service
	UpstreamErrors  *prometheus.CounterVec   // service

	// Store metrics
	StoreErrors *prometheus.CounterVec // store, op

	// Translation cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Total number of messages run through the pipeline",
		}, []string{"mode", "outcome"}),
		MessageDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_duration_seconds",
			Help:      "End-to-end pipeline duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently open live connections",
		}),
		ConnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Total number of live connections opened",
		}),
		DisconnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Total number of live connections closed",
		}),

		FanOutDeliveries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_deliveries_total",
			Help:      "Total number of events delivered to live connections",
		}),
		FanOutMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_misses_total",
			Help:      "Total number of fan-outs to users with no live connections",
		}),
		FanOutErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_errors_total",
			Help:      "Total number of failed deliveries to individual connections",
		}),

		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_seconds",
			Help:      "Latency of external service calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"service"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Total number of failed external service calls",
		}, []string{"service"}),

		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total number of storage failures absorbed by the pipeline",
		}, []string{"store", "op"}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_cache_hits_total",
			Help:      "Total number of translation cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_cache_misses_total",
			Help:      "Total number of translation cache misses",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka publish attempts",
		}, []string{"topic"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of failed Kafka publishes",
		}, []string{"topic"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Latency of Kafka publishes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic"}),
	}
}

// RecordMessage records one completed pipeline run.
func (m *Metrics) RecordMessage(mode, outcome string, duration time.Duration) {
	m.MessagesProcessed.WithLabelValues(mode, outcome).Inc()
	m.MessageDuration.Observe(duration.Seconds())
}

// RecordUpstream records one external service call.
func (m *Metrics) RecordUpstream(service string, err error, seconds float64) {
	m.UpstreamLatency.WithLabelValues(service).Observe(seconds)
	if err != nil {
		m.UpstreamErrors.WithLabelValues(service).Inc()
	}
}

// RecordStoreError records one absorbed storage failure.
func (m *Metrics) RecordStoreError(store, op string) {
	m.StoreErrors.WithLabelValues(store, op).Inc()
}

// RecordKafkaPublish records one publish attempt.
func (m *Metrics) RecordKafkaPublish(topic string, err error, seconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(seconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic).Inc()
	}
}
