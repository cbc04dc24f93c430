package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/grocery-inflation/internal/models"
)

// ObservationRepository defines the store operations used by ingestion
type ObservationRepository interface {
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	GetObservation(ctx context.Context, productID int, date time.Time) (*models.PriceObservation, error)
	InsertObservation(ctx context.Context, o *models.PriceObservation) error
	UpdateObservation(ctx context.Context, o *models.PriceObservation) error
}

// Invalidator drops cached results after price history changes
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// PricePublisher announces recorded observations
type PricePublisher interface {
	PublishPriceRecorded(ctx context.Context, o *models.PriceObservation) error
}

// Consumer ingests scraped prices from Kafka.
// Each scrape becomes the observation for its calendar day; a second scrape
// on the same day corrects that day's record instead of adding another.
type Consumer struct {
	reader    *kafka.Reader
	repo      ObservationRepository
	cache     Invalidator
	publisher PricePublisher
	now       func() time.Time
}

// NewConsumer creates a new Kafka consumer for scrape events.
// cache and publisher may be nil.
func NewConsumer(brokers []string, topic, groupID string, repo ObservationRepository, cache Invalidator, publisher PricePublisher) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:    reader,
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		now:       time.Now,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing message: %v", err)
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	log.Printf("Received message from partition %d offset %d: key=%s",
		msg.Partition, msg.Offset, string(msg.Key))

	var event models.ScrapeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal scrape event: %w", err)
	}

	if event.EventType != models.EventPriceScraped {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	obs, err := c.convertEventToObservation(event)
	if err != nil {
		return fmt.Errorf("failed to convert scrape event: %w", err)
	}

	if _, err := c.repo.GetProduct(ctx, obs.ProductID); err != nil {
		return err
	}

	existing, err := c.repo.GetObservation(ctx, obs.ProductID, obs.Date)
	if err != nil {
		return fmt.Errorf("failed to check for existing observation: %w", err)
	}

	if existing != nil {
		existing.PriceWithDiscount = obs.PriceWithDiscount
		existing.PriceWithoutDiscount = obs.PriceWithoutDiscount
		if err := c.repo.UpdateObservation(ctx, existing); err != nil {
			return fmt.Errorf("failed to correct observation: %w", err)
		}
		obs = existing
		log.Printf("Corrected price for product %d on %s", obs.ProductID, obs.Date.Format(models.DateLayout))
	} else {
		if err := c.repo.InsertObservation(ctx, obs); err != nil {
			return fmt.Errorf("failed to save observation: %w", err)
		}
		log.Printf("Saved price for product %d on %s from %s", obs.ProductID, obs.Date.Format(models.DateLayout), event.Source)
	}

	if c.cache != nil {
		if err := c.cache.Invalidate(ctx); err != nil {
			log.Printf("Failed to invalidate inflation cache: %v", err)
		}
	}
	if c.publisher != nil {
		if err := c.publisher.PublishPriceRecorded(ctx, obs); err != nil {
			log.Printf("Failed to publish price recorded event: %v", err)
		}
	}

	return nil
}

// convertEventToObservation maps a ScrapeEvent to a PriceObservation
func (c *Consumer) convertEventToObservation(event models.ScrapeEvent) (*models.PriceObservation, error) {
	data := event.Data
	if data.ProductID <= 0 {
		return nil, fmt.Errorf("invalid product id: %d", data.ProductID)
	}

	withDiscount, err := parseScrapedPrice(data.PriceWithDiscount)
	if err != nil {
		return nil, err
	}
	withoutDiscount, err := parseScrapedPrice(data.PriceWithoutDiscount)
	if err != nil {
		return nil, err
	}
	if withDiscount == nil && withoutDiscount == nil {
		return nil, fmt.Errorf("scrape event for product %d carries no price", data.ProductID)
	}

	scrapedAt := c.now()
	if data.ScrapedAt != nil && *data.ScrapedAt != "" {
		if t, err := time.Parse(time.RFC3339, *data.ScrapedAt); err == nil {
			scrapedAt = t
		} else {
			log.Printf("Unparseable scraped_at %q, using current time", *data.ScrapedAt)
		}
	}

	return &models.PriceObservation{
		ProductID:            data.ProductID,
		Date:                 models.Day(scrapedAt.UTC()),
		PriceWithDiscount:    withDiscount,
		PriceWithoutDiscount: withoutDiscount,
	}, nil
}

func parseScrapedPrice(raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	p, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, fmt.Errorf("invalid price %s: %w", *raw, err)
	}
	if p.IsNegative() {
		return nil, fmt.Errorf("negative price %s", *raw)
	}
	return models.PriceText(p.Round(2)), nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
