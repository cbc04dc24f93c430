package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/grocery-inflation/internal/models"
)

// Producer handles publishing price history events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishPriceRecorded publishes an event for a newly stored or corrected observation
func (p *Producer) PublishPriceRecorded(ctx context.Context, o *models.PriceObservation) error {
	event := newPriceEvent(models.EventPriceRecorded)
	event.Observation = o
	return p.publish(ctx, strconv.Itoa(o.ProductID), event)
}

// PublishHistoryBackfilled publishes the summary of a committed backfill run
func (p *Producer) PublishHistoryBackfilled(ctx context.Context, summary models.BackfillSummary) error {
	event := newPriceEvent(models.EventHistoryBackfilled)
	event.Backfill = &summary
	return p.publish(ctx, "backfill", event)
}

func newPriceEvent(eventType string) models.PriceEvent {
	return models.PriceEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func (p *Producer) publish(ctx context.Context, key string, event models.PriceEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
