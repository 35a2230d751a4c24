package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/bookshop/internal/domain"
	pkgkafka "github.com/utafrali/bookshop/pkg/kafka"
	"github.com/utafrali/bookshop/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakeKafka struct {
	sent []published
	err  error
}

func (f *fakeKafka) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, event: event})
	return nil
}

func newTestProducer(k *fakeKafka) *Producer {
	return &Producer{kafka: k, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func testView() *domain.View {
	return &domain.View{
		ID:       "8d0f4b4e-8a3c-4f0e-9a59-0d3a8d0c9f11",
		Currency: domain.Currency,
		Items: []domain.CatalogItem{
			{ID: "0593321200", Title: "THE WOMEN", Price: 20, Quantity: 2},
		},
		Total:         "40.00",
		CatalogStatus: domain.CatalogLoaded,
	}
}

func TestProducer_PublishPurchaseConfirmed(t *testing.T) {
	k := &fakeKafka{}
	p := newTestProducer(k)
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	require.NoError(t, p.PublishPurchaseConfirmed(ctx, testView(), 0))

	require.Len(t, k.sent, 1)
	msg := k.sent[0]
	assert.Equal(t, TopicPurchaseConfirmed, msg.topic)
	assert.Equal(t, TopicPurchaseConfirmed, msg.event.EventType)
	assert.Equal(t, AggregateTypeView, msg.event.AggregateType)
	assert.Equal(t, SourceStorefront, msg.event.Source)
	assert.Equal(t, "corr-1", msg.event.CorrelationID)
	assert.Equal(t, "loaded", msg.event.Metadata["catalog_status"])

	var data PurchaseConfirmedData
	require.NoError(t, json.Unmarshal(msg.event.Data, &data))
	assert.Equal(t, PurchaseConfirmedData{
		ViewID:    "8d0f4b4e-8a3c-4f0e-9a59-0d3a8d0c9f11",
		ItemIndex: 0,
		ItemID:    "0593321200",
		Title:     "THE WOMEN",
		Quantity:  2,
		UnitPrice: 20,
		Total:     "40.00",
		Currency:  "TRY",
	}, data)
}

func TestProducer_PublishDiscountToggled(t *testing.T) {
	k := &fakeKafka{}
	p := newTestProducer(k)
	view := testView()
	view.StudentDiscountEnabled = true
	view.Total = "32.00"

	require.NoError(t, p.PublishDiscountToggled(context.Background(), view))

	require.Len(t, k.sent, 1)
	assert.Equal(t, TopicDiscountToggled, k.sent[0].topic)
	assert.Empty(t, k.sent[0].event.CorrelationID)

	var data DiscountToggledData
	require.NoError(t, json.Unmarshal(k.sent[0].event.Data, &data))
	assert.True(t, data.Enabled)
	assert.Equal(t, "32.00", data.Total)
}

func TestProducer_PublishError(t *testing.T) {
	p := newTestProducer(&fakeKafka{err: errors.New("broker down")})

	err := p.PublishDiscountToggled(context.Background(), testView())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish storefront.discount.toggled event")
	assert.Contains(t, err.Error(), "broker down")
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.PublishPurchaseConfirmed(context.Background(), testView(), 0))
	assert.NoError(t, p.PublishDiscountToggled(context.Background(), testView()))
}
