// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "call_transcription"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Recording metrics
	RecordingsTotal    prometheus.Counter
	RecordingsActive   prometheus.Gauge
	RecordingsSuccess  prometheus.Counter
	RecordingsFailed   *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	QueueWait          prometheus.Histogram

	// Pipeline stage metrics
	StageLatency *prometheus.HistogramVec
	StageErrors  *prometheus.CounterVec

	// Merge metrics
	TurnsMerged          prometheus.Counter
	UnknownSpeakerTurns  prometheus.Counter
	SpeakersDetected     prometheus.Histogram
	RecordingDurationSec prometheus.Histogram

	// Upload metrics
	UploadBytes     prometheus.Counter
	UploadsRejected *prometheus.CounterVec

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
		RecordingsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_total",
			Help:      "Total number of recordings submitted for processing",
		}),
		RecordingsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recordings_active",
			Help:      "Number of recordings currently being processed",
		}),
		RecordingsSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_success_total",
			Help:      "Total number of recordings processed successfully",
		}),
		RecordingsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_failed_total",
			Help:      "Total number of recordings that failed processing",
		}, []string{"kind"}),
		ProcessingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "End-to-end processing time per recording in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		QueueWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Time spent waiting for an inference worker slot",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
		}),

		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Latency of individual pipeline stages in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"stage", "provider"}),
		StageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Total number of pipeline stage failures",
		}, []string{"stage", "provider"}),

		TurnsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_merged_total",
			Help:      "Total number of conversation turns produced by the merge engine",
		}),
		UnknownSpeakerTurns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_unknown_speaker_total",
			Help:      "Total number of turns without diarization coverage",
		}),
		SpeakersDetected: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speakers_detected",
			Help:      "Distinct speakers detected per recording",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
		RecordingDurationSec: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recording_duration_seconds",
			Help:      "Audio duration per processed recording in seconds",
			Buckets:   []float64{30, 60, 120, 300, 600, 1200, 3600},
		}),

		UploadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes of uploaded audio accepted",
		}),
		UploadsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_rejected_total",
			Help:      "Total uploads rejected before processing",
		}, []string{"reason"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordRecordingStart records a recording entering the pipeline.
func (m *Metrics) RecordRecordingStart() {
	m.RecordingsTotal.Inc()
	m.RecordingsActive.Inc()
}

// RecordRecordingEnd records a recording leaving the pipeline. kind is
// the failure classification, empty on success.
func (m *Metrics) RecordRecordingEnd(kind string, durationSeconds float64) {
	m.RecordingsActive.Dec()
	m.ProcessingDuration.Observe(durationSeconds)
	if kind == "" {
		m.RecordingsSuccess.Inc()
	} else {
		m.RecordingsFailed.WithLabelValues(kind).Inc()
	}
}

// RecordQueueWait records time spent waiting for a worker slot.
func (m *Metrics) RecordQueueWait(seconds float64) {
	m.QueueWait.Observe(seconds)
}

// RecordStage records one pipeline stage invocation.
func (m *Metrics) RecordStage(stage, provider string, err error, latencySeconds float64) {
	m.StageLatency.WithLabelValues(stage, provider).Observe(latencySeconds)
	if err != nil {
		m.StageErrors.WithLabelValues(stage, provider).Inc()
	}
}

// RecordMerge records the outcome of the merge stage for one recording.
func (m *Metrics) RecordMerge(turns, unknownTurns, speakers int, audioSeconds float64) {
	m.TurnsMerged.Add(float64(turns))
	m.UnknownSpeakerTurns.Add(float64(unknownTurns))
	m.SpeakersDetected.Observe(float64(speakers))
	m.RecordingDurationSec.Observe(audioSeconds)
}

// RecordUploadAccepted records an accepted upload.
func (m *Metrics) RecordUploadAccepted(bytes int64) {
	m.UploadBytes.Add(float64(bytes))
}

// RecordUploadRejected records a rejected upload.
func (m *Metrics) RecordUploadRejected(reason string) {
	m.UploadsRejected.WithLabelValues(reason).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic).Inc()
	}
}
