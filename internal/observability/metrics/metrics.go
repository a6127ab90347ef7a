// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speech_sentiment"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Analysis metrics
	AnalysisRequests *prometheus.CounterVec
	AnalysisAttempts *prometheus.CounterVec
	AnalysisRetries  *prometheus.CounterVec
	AnalysisLatency  prometheus.Histogram
	AnalysisInFlight prometheus.Gauge

	// Speech session metrics
	SpeechSessionsTotal     prometheus.Counter
	SpeechSessionsActive    prometheus.Gauge
	SpeechSessionDuration   prometheus.Histogram
	SpeechResults           *prometheus.CounterVec
	SpeechErrors            *prometheus.CounterVec
	SpeechStartFailures     prometheus.Counter
	SpeechCapabilityMissing prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WebSocketClients    prometheus.Gauge
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AnalysisRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_requests_total",
			Help:      "Total number of logical analysis calls by result kind",
		}, []string{"result"}),
		AnalysisAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_attempts_total",
			Help:      "Total number of HTTP attempts against the analysis backend by outcome",
		}, []string{"outcome"}),
		AnalysisRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_retries_total",
			Help:      "Total number of analysis retries by reason",
		}, []string{"reason"}),
		AnalysisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_latency_seconds",
			Help:      "Latency of logical analysis calls including retries",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30, 60},
		}),
		AnalysisInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analysis_in_flight",
			Help:      "Number of analysis calls currently in flight",
		}),

		SpeechSessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_sessions_total",
			Help:      "Total number of speech recording sessions started",
		}),
		SpeechSessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speech_sessions_active",
			Help:      "Number of currently active speech recording sessions",
		}),
		SpeechSessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speech_session_duration_seconds",
			Help:      "Duration of speech recording sessions in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		SpeechResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_results_total",
			Help:      "Total number of recognition results by type",
		}, []string{"type"}),
		SpeechErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_errors_total",
			Help:      "Total number of recording errors by category",
		}, []string{"category"}),
		SpeechStartFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_start_failures_total",
			Help:      "Total number of recognizer start failures",
		}),
		SpeechCapabilityMissing: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_capability_missing_total",
			Help:      "Total number of initializations without a speech capability",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"route", "method", "code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		WebSocketClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Number of connected live session feed clients",
		}),
	}
}

// RecordAnalysisRequest records the result of a logical analysis call.
func (m *Metrics) RecordAnalysisRequest(result string, latencySeconds float64) {
	m.AnalysisRequests.WithLabelValues(result).Inc()
	m.AnalysisLatency.Observe(latencySeconds)
}

// RecordAnalysisAttempt records a single HTTP attempt outcome.
func (m *Metrics) RecordAnalysisAttempt(outcome string) {
	m.AnalysisAttempts.WithLabelValues(outcome).Inc()
}

// RecordAnalysisRetry records a retry and its triggering reason.
func (m *Metrics) RecordAnalysisRetry(reason string) {
	m.AnalysisRetries.WithLabelValues(reason).Inc()
}

// RecordSpeechStart records a recording session starting.
func (m *Metrics) RecordSpeechStart() {
	m.SpeechSessionsTotal.Inc()
	m.SpeechSessionsActive.Inc()
}

// RecordSpeechEnd records a recording session ending.
func (m *Metrics) RecordSpeechEnd(durationSeconds float64) {
	m.SpeechSessionsActive.Dec()
	m.SpeechSessionDuration.Observe(durationSeconds)
}

// RecordSpeechResult records a recognition result ("partial" or "final").
func (m *Metrics) RecordSpeechResult(resultType string) {
	m.SpeechResults.WithLabelValues(resultType).Inc()
}

// RecordSpeechError records a recording error by category.
func (m *Metrics) RecordSpeechError(category string) {
	m.SpeechErrors.WithLabelValues(category).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(route, method, code string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(route, method, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(durationSeconds)
}
