package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/hybridsearch/internal/domain"
	pkgkafka "github.com/utafrali/hybridsearch/pkg/kafka"
	"github.com/utafrali/hybridsearch/pkg/logger"
)

// Kafka topics for product domain events consumed by the search service.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// Topics lists every topic the consumer subscribes to.
func Topics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// ProductDeletedData is the payload of a product.deleted event.
type ProductDeletedData struct {
	ProductID int64 `json:"product_id"`
}

// ProductIndexer applies product changes to the search index.
type ProductIndexer interface {
	IndexProduct(ctx context.Context, product *domain.ProductRecord) error
	DeleteProduct(ctx context.Context, productID int64) error
}

// Consumer keeps the search index in sync with product domain events.
type Consumer struct {
	indexer ProductIndexer
	logger  *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(indexer ProductIndexer, logger *slog.Logger) *Consumer {
	return &Consumer{
		indexer: indexer,
		logger:  logger,
	}
}

// Handle processes a Kafka event based on the topic it arrived on, falling
// back to the event type when the topic is unknown.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	eventType := pkgkafka.TopicFromContext(ctx)
	if eventType == "" {
		eventType = event.EventType
	}

	switch eventType {
	case TopicProductCreated, TopicProductUpdated:
		return c.handleProductUpserted(ctx, eventType, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		logger.WithContext(ctx, c.logger).WarnContext(ctx, "unknown event type received",
			slog.String("event_type", eventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleProductUpserted indexes a created or updated product. The payload is
// the full product record.
func (c *Consumer) handleProductUpserted(ctx context.Context, eventType string, event *pkgkafka.Event) error {
	var product domain.ProductRecord
	if err := event.UnmarshalData(&product); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", eventType, err)
	}
	if product.ProductID == 0 {
		product.ProductID = aggregateID(event)
	}

	if err := c.indexer.IndexProduct(ctx, &product); err != nil {
		return fmt.Errorf("index product from %s event: %w", eventType, err)
	}
	return nil
}

// handleProductDeleted removes a deleted product from the index.
func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if len(event.Data) > 0 {
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", TopicProductDeleted, err)
		}
	}
	if data.ProductID == 0 {
		data.ProductID = aggregateID(event)
	}

	if err := c.indexer.DeleteProduct(ctx, data.ProductID); err != nil {
		return fmt.Errorf("delete product from deleted event: %w", err)
	}
	return nil
}

// aggregateID parses the event's aggregate id, or returns 0.
func aggregateID(event *pkgkafka.Event) int64 {
	id, err := strconv.ParseInt(event.AggregateID, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
