// Package publisher streams audit events to Kafka for downstream consumers.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"asthma_shield/internal/models"

	"github.com/segmentio/kafka-go"
)

var errNoBrokers = errors.New("kafka brokers not set")

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes ShieldEvents as JSON, keyed by event type so one type
// stays ordered within a partition.
type Kafka struct {
	w     messageWriter
	topic string
}

// NewKafka builds a synchronous writer for topic.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Kafka{w: w, topic: topic}, nil
}

func newKafkaWithWriter(w messageWriter, topic string) *Kafka {
	return &Kafka{w: w, topic: topic}
}

// Publish writes one event.
func (k *Kafka) Publish(ctx context.Context, e models.ShieldEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.EventID, err)
	}
	msg := kafka.Message{
		Key:   []byte(e.Type),
		Value: body,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.EventID)},
		},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %s to %s: %w", e.EventID, k.topic, err)
	}
	return nil
}

func (k *Kafka) Close() error { return k.w.Close() }
