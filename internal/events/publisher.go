// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"call-transcription-service/internal/models"
	"call-transcription-service/internal/observability/metrics"
)

// TranscriptCompleted is the event emitted after a recording has been
// processed and its artifacts persisted. Downstream consumers (analytics,
// QA review) pick the full conversation up from the JSON artifact.
type TranscriptCompleted struct {
	EventType   string    `json:"eventType"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"contentHash"`
	Duration    float64   `json:"duration"`
	Language    string    `json:"language"`
	Speakers    int       `json:"speakers"`
	Turns       int       `json:"turns"`
	JSONPath    string    `json:"jsonPath"`
	ProcessedAt time.Time `json:"processedAt"`
}

// NewTranscriptCompleted builds the event for one persisted result.
func NewTranscriptCompleted(result *models.TranscriptionResult, hash, jsonPath string) TranscriptCompleted {
	return TranscriptCompleted{
		EventType:   "call.transcript.completed",
		Filename:    result.Metadata.Filename,
		ContentHash: hash,
		Duration:    result.Metadata.Duration,
		Language:    result.Metadata.Language,
		Speakers:    result.Metadata.SpeakersDetected,
		Turns:       len(result.Conversation),
		JSONPath:    jsonPath,
		ProcessedAt: result.Metadata.ProcessedAt,
	}
}

// Publisher publishes transcript-completed events to Kafka.
type Publisher struct {
	writer    *kafka.Writer
	principal string
	topic     string
	enabled   bool
	metrics   *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers   []string
	Topic     string
	Principal string
	Enabled   bool
}

// New creates a new Kafka event publisher. With Kafka disabled (or no
// brokers configured) the publisher logs events instead of writing them.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{enabled: false, metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal: cfg.Principal,
			topic:     cfg.Topic,
			enabled:   false,
			metrics:   m,
		}
	}

	// Custom dialer with longer timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writer:    writer,
		principal: cfg.Principal,
		topic:     cfg.Topic,
		enabled:   true,
		metrics:   m,
	}
}

// PublishCompleted publishes a transcript-completed event keyed by the
// recording's content hash.
func (p *Publisher) PublishCompleted(ctx context.Context, event TranscriptCompleted) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", p.topic).
		Str("key", event.ContentHash).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || p.writer == nil {
		p.metrics.RecordKafkaPublish(p.topic, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.ContentHash),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.EventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", p.topic).
			Str("key", event.ContentHash).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(p.topic, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(p.topic, nil, time.Since(start).Seconds())
	return nil
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
