package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/bookshop/internal/domain"
	pkgkafka "github.com/utafrali/bookshop/pkg/kafka"
	"github.com/utafrali/bookshop/pkg/logger"
)

// Kafka topic constants for storefront events.
const (
	TopicPurchaseConfirmed = "storefront.purchase.confirmed"
	TopicDiscountToggled   = "storefront.discount.toggled"
)

// AggregateTypeView is the aggregate type of every storefront event.
const AggregateTypeView = "view"

// SourceStorefront identifies events originating from the storefront.
const SourceStorefront = "storefront-service"

// PurchaseConfirmedData is the payload of a purchase.confirmed event.
type PurchaseConfirmedData struct {
	ViewID          string `json:"view_id"`
	ItemIndex       int    `json:"item_index"`
	ItemID          string `json:"item_id"`
	Title           string `json:"title"`
	Quantity        int    `json:"quantity"`
	UnitPrice       int64  `json:"unit_price"`
	Total           string `json:"total"`
	Currency        string `json:"currency"`
	StudentDiscount bool   `json:"student_discount"`
}

// DiscountToggledData is the payload of a discount.toggled event.
type DiscountToggledData struct {
	ViewID   string `json:"view_id"`
	Enabled  bool   `json:"enabled"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// Publisher is what the storefront service needs from an event sink.
type Publisher interface {
	PublishPurchaseConfirmed(ctx context.Context, view *domain.View, index int) error
	PublishDiscountToggled(ctx context.Context, view *domain.View) error
}

// kafkaPublisher is the part of *pkgkafka.Producer used here.
type kafkaPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	kafka  kafkaPublisher
	logger *slog.Logger
}

// NewProducer creates an event producer on top of a Kafka producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishPurchaseConfirmed publishes a purchase.confirmed event for the item
// at index.
func (p *Producer) PublishPurchaseConfirmed(ctx context.Context, view *domain.View, index int) error {
	item := view.Items[index]
	data := PurchaseConfirmedData{
		ViewID:          view.ID,
		ItemIndex:       index,
		ItemID:          item.ID,
		Title:           item.Title,
		Quantity:        item.Quantity,
		UnitPrice:       item.Price,
		Total:           view.Total,
		Currency:        view.Currency,
		StudentDiscount: view.StudentDiscountEnabled,
	}

	if err := p.publish(ctx, TopicPurchaseConfirmed, view, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published purchase.confirmed event",
		slog.String("view_id", view.ID),
		slog.String("item_id", item.ID),
	)
	return nil
}

// PublishDiscountToggled publishes a discount.toggled event.
func (p *Producer) PublishDiscountToggled(ctx context.Context, view *domain.View) error {
	data := DiscountToggledData{
		ViewID:   view.ID,
		Enabled:  view.StudentDiscountEnabled,
		Total:    view.Total,
		Currency: view.Currency,
	}

	if err := p.publish(ctx, TopicDiscountToggled, view, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published discount.toggled event",
		slog.String("view_id", view.ID),
		slog.Bool("enabled", view.StudentDiscountEnabled),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, topic string, view *domain.View, data any) error {
	evt, err := pkgkafka.NewEvent(topic, view.ID, AggregateTypeView, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	evt.WithMetadata("catalog_status", string(view.CatalogStatus))
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

// PublishPurchaseConfirmed implements Publisher.
func (NoopPublisher) PublishPurchaseConfirmed(context.Context, *domain.View, int) error { return nil }

// PublishDiscountToggled implements Publisher.
func (NoopPublisher) PublishDiscountToggled(context.Context, *domain.View) error { return nil }
