// Package events publishes processed-message events to Kafka for
// downstream consumers (analytics, moderation). Publishing is outside
// the delivery path: a broker outage never blocks a message.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/Dmann24/quantina-core/internal/models"
	"github.com/Dmann24/quantina-core/internal/observability/metrics"
)

// MessageProcessed is the event emitted after a pipeline run persists
// and delivers a message.
type MessageProcessed struct {
	EventType        string `json:"eventType"`
	SenderID         string `json:"senderId"`
	ReceiverID       string `json:"receiverId"`
	Mode             string `json:"mode"`
	SenderLanguage   string `json:"senderLanguage"`
	ReceiverLanguage string `json:"receiverLanguage"`
	Translated       bool   `json:"translated"`
	Delivered        int    `json:"delivered"`
	Timestamp        int64  `json:"timestamp"`
}

// NewMessageProcessed builds the event for one logged message.
func NewMessageProcessed(msg *models.Message, delivered int) MessageProcessed {
	return MessageProcessed{
		EventType:        "relay.message.processed",
		SenderID:         msg.SenderID,
		ReceiverID:       msg.ReceiverID,
		Mode:             string(msg.Mode),
		SenderLanguage:   msg.SenderLanguage,
		ReceiverLanguage: msg.ReceiverLanguage,
		Translated:       msg.Translated != msg.Original,
		Delivered:        delivered,
		Timestamp:        time.Now().UnixMilli(),
	}
}

// Publisher writes events to one Kafka topic, or logs them when Kafka
// is disabled.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	metrics *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// New creates a publisher. With Kafka disabled (or no brokers) events
// are logged only.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		p := &Publisher{enabled: false, metrics: m}
		if cfg != nil {
			p.topic = cfg.Topic
		}
		return p
	}

	// Longer dial timeout for DNS resolution in Kubernetes.
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
		Msg("Kafka publisher initialized")

	return &Publisher{
		writer:  writer,
		topic:   cfg.Topic,
		enabled: true,
		metrics: m,
	}
}

// Publish writes one event keyed by the sender identity, so events from
// one sender stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("topic", p.topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || p.writer == nil {
		p.metrics.RecordKafkaPublish(p.topic, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte("relay.message.processed")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", p.topic).
			Str("key", key).
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
