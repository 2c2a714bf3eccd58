// Package notify publishes inserted records to a change feed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

// ChangeEvent is the value of every feed message
type ChangeEvent struct {
	Collection string        `json:"collection"`
	ID         string        `json:"id"`
	Data       domain.Record `json:"data"`
	CreatedAt  time.Time     `json:"createdAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements domain.Publisher on a kafka topic.
// Messages are keyed by record id so one id always lands on one partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}
}

// Publish writes one message per inserted record
func (p *KafkaPublisher) Publish(ctx context.Context, collection string, createdAt time.Time, records []domain.InsertedRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs, err := buildMessages(collection, createdAt, records)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d records to %s: %w", len(msgs), p.topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func buildMessages(collection string, createdAt time.Time, records []domain.InsertedRecord) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(records))
	for _, record := range records {
		value, err := json.Marshal(ChangeEvent{
			Collection: collection,
			ID:         record.ID,
			Data:       record.Record,
			CreatedAt:  createdAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode record %s: %w", record.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(record.ID),
			Value:   value,
			Headers: []kafka.Header{{Key: "collection", Value: []byte(collection)}},
			Time:    createdAt,
		})
	}
	return msgs, nil
}
