// Package publish forwards finished assessments to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mr1hm/go-disaster-impact/internal/config"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

// MessageWriter is the part of *kafkago.Writer the forwarder needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewKafkaWriter creates a producer for the configured assessment topic.
func NewKafkaWriter(cfg config.KafkaConfig) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: cfg.BatchTimeout,
	}
}

// serializeToMessage keys by disaster id so every assessment of one disaster
// lands on the same partition, in order.
func serializeToMessage(a *models.ImpactAssessment) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize assessment %s: %w", a.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(a.DisasterID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "assessment_id", Value: []byte(a.ID)},
			{Key: "category", Value: []byte(a.Category)},
			{Key: "assessed_at", Value: []byte(a.AssessedAt.Format(time.RFC3339))},
		},
	}, nil
}
