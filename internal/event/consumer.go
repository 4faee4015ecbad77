package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/willrp/willstores-ws/pkg/kafka"
)

// Catalog change events published by the crawler. All of them are delivered
// on TopicCatalog and distinguished by event_type.
var (
	TopicCatalog = pkgkafka.Topic("catalog", "changes")

	EventCatalogCrawled  = pkgkafka.Topic("catalog", "crawled")
	EventProductsUpdated = pkgkafka.Topic("product", "updated")
	EventSessionsUpdated = pkgkafka.Topic("session", "updated")
)

// CatalogChangeData is the payload of a catalog change event.
type CatalogChangeData struct {
	StoreName string `json:"storename"`
	Products  int    `json:"products"`
	Sessions  int    `json:"sessions"`
}

// Invalidator drops cached search responses.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Consumer invalidates the search response cache whenever the crawler
// reports that the indexed catalog changed.
type Consumer struct {
	cache  Invalidator
	logger *slog.Logger
}

// NewConsumer creates a new catalog change consumer.
func NewConsumer(cache Invalidator, logger *slog.Logger) *Consumer {
	return &Consumer{
		cache:  cache,
		logger: logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case EventCatalogCrawled, EventProductsUpdated, EventSessionsUpdated:
		return c.handleCatalogChanged(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleCatalogChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data CatalogChangeData
	if len(event.Data) > 0 {
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
		}
	}

	if err := c.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate cache on %s: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "search cache invalidated by catalog change",
		slog.String("event_type", event.EventType),
		slog.String("event_id", event.EventID),
		slog.String("storename", data.StoreName),
		slog.Int("products", data.Products),
		slog.Int("sessions", data.Sessions),
	)
	return nil
}
