package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/hybridsearch/internal/domain"
	pkgkafka "github.com/utafrali/hybridsearch/pkg/kafka"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeIndexer struct {
	indexed []domain.ProductRecord
	deleted []int64
	err     error
}

func (f *fakeIndexer) IndexProduct(_ context.Context, p *domain.ProductRecord) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, *p)
	return nil
}

func (f *fakeIndexer) DeleteProduct(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func newEvent(t *testing.T, topic, aggregateID string, data any) *pkgkafka.Event {
	t.Helper()
	ev, err := pkgkafka.NewEvent(topic, aggregateID, "product", "product-service", data)
	require.NoError(t, err)
	return ev
}

func TestTopics(t *testing.T) {
	assert.Equal(t, []string{
		"ecommerce.product.created",
		"ecommerce.product.updated",
		"ecommerce.product.deleted",
	}, Topics())
}

func TestConsumer_CreatedIndexesProduct(t *testing.T) {
	ix := &fakeIndexer{}
	c := NewConsumer(ix, newTestLogger())
	product := domain.ProductRecord{
		ProductID:     12,
		Name:          "Trail Shoes",
		MRP:           999,
		DiscountPrice: 499,
		Qty:           3,
		Image:         "trail.png",
		CategoryName:  "Footwear",
	}

	require.NoError(t, c.Handle(context.Background(), newEvent(t, TopicProductCreated, "12", product)))
	require.Len(t, ix.indexed, 1)
	assert.Equal(t, product, ix.indexed[0])
}

func TestConsumer_UpdatedFallsBackToAggregateID(t *testing.T) {
	ix := &fakeIndexer{}
	c := NewConsumer(ix, newTestLogger())

	ev := newEvent(t, TopicProductUpdated, "77", map[string]any{"name": "Renamed", "discount_price": 10})
	require.NoError(t, c.Handle(context.Background(), ev))
	require.Len(t, ix.indexed, 1)
	assert.Equal(t, int64(77), ix.indexed[0].ProductID)
	assert.Equal(t, "Renamed", ix.indexed[0].Name)
}

func TestConsumer_Deleted(t *testing.T) {
	ix := &fakeIndexer{}
	c := NewConsumer(ix, newTestLogger())

	require.NoError(t, c.Handle(context.Background(), newEvent(t, TopicProductDeleted, "", ProductDeletedData{ProductID: 5})))
	require.NoError(t, c.Handle(context.Background(), &pkgkafka.Event{EventType: TopicProductDeleted, AggregateID: "6"}))
	assert.Equal(t, []int64{5, 6}, ix.deleted)
}

func TestConsumer_TopicWinsOverEventType(t *testing.T) {
	ix := &fakeIndexer{}
	c := NewConsumer(ix, newTestLogger())
	ev := newEvent(t, "product.removed", "9", ProductDeletedData{ProductID: 9})

	ctx := pkgkafka.ContextWithTopic(context.Background(), TopicProductDeleted)
	require.NoError(t, c.Handle(ctx, ev))
	assert.Equal(t, []int64{9}, ix.deleted)
}

func TestConsumer_UnknownTypeIgnored(t *testing.T) {
	ix := &fakeIndexer{}
	c := NewConsumer(ix, newTestLogger())

	require.NoError(t, c.Handle(context.Background(), newEvent(t, "ecommerce.order.created", "1", map[string]any{})))
	assert.Empty(t, ix.indexed)
	assert.Empty(t, ix.deleted)
}

func TestConsumer_BadPayload(t *testing.T) {
	c := NewConsumer(&fakeIndexer{}, newTestLogger())
	ev := &pkgkafka.Event{EventType: TopicProductCreated, Data: json.RawMessage(`{"product_id":"x"}`)}

	err := c.Handle(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal ecommerce.product.created data")
}

func TestConsumer_IndexerErrorIsReturned(t *testing.T) {
	c := NewConsumer(&fakeIndexer{err: errors.New("index unavailable")}, newTestLogger())

	err := c.Handle(context.Background(), newEvent(t, TopicProductDeleted, "3", ProductDeletedData{ProductID: 3}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
}

func TestConsumer_DuplicateEventsAppliedOnce(t *testing.T) {
	ix := &fakeIndexer{}
	c := NewConsumer(ix, newTestLogger())
	handler := pkgkafka.IdempotentHandler(
		pkgkafka.NewMemoryIdempotencyStore(time.Hour), "search-service", c.Handle, newTestLogger(),
	)

	ev := newEvent(t, TopicProductUpdated, "4", domain.ProductRecord{ProductID: 4, Name: "Socks"})
	require.NoError(t, handler(context.Background(), ev))
	require.NoError(t, handler(context.Background(), ev))
	assert.Len(t, ix.indexed, 1)
}
