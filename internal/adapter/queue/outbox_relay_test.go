package queue

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapstore/storefront-api/internal/usecase"
)

type fakeOutboxRepo struct {
	pending []usecase.OutboxEvent
	sent    []int64
	delayed []int64
}

func (r *fakeOutboxRepo) NextBatch(_ context.Context, limit int) ([]usecase.OutboxEvent, error) {
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *fakeOutboxRepo) MarkSent(_ context.Context, id int64) error {
	r.sent = append(r.sent, id)
	return nil
}

func (r *fakeOutboxRepo) Delay(_ context.Context, id int64, _ time.Duration) error {
	r.delayed = append(r.delayed, id)
	return nil
}

type fakeRawPublisher struct {
	published map[string][][]byte
	failKeys  map[string]error
}

func (p *fakeRawPublisher) PublishRaw(_ context.Context, routingKey string, body []byte) error {
	if err := p.failKeys[routingKey]; err != nil {
		return err
	}
	if p.published == nil {
		p.published = map[string][][]byte{}
	}
	p.published[routingKey] = append(p.published[routingKey], body)
	return nil
}

func TestOutboxRelayDrain(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []usecase.OutboxEvent{
		{ID: 1, Channel: "order.placed", Payload: []byte(`{"orderCode":42}`)},
		{ID: 2, Channel: "order.placed", Payload: []byte(`{"orderCode":43}`)},
	}}
	pub := &fakeRawPublisher{}
	relay := NewOutboxRelay(repo, pub, slog.Default())

	require.NoError(t, relay.drain(context.Background()))

	require.Len(t, pub.published["order.placed"], 2)
	assert.JSONEq(t, `{"orderCode":42}`, string(pub.published["order.placed"][0]))
	assert.Equal(t, []int64{1, 2}, repo.sent)
	assert.Empty(t, repo.delayed)
}

func TestOutboxRelayDelaysFailedPublish(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []usecase.OutboxEvent{
		{ID: 7, Channel: "order.placed", Payload: []byte(`{}`)},
	}}
	pub := &fakeRawPublisher{failKeys: map[string]error{"order.placed": assert.AnError}}
	relay := NewOutboxRelay(repo, pub, slog.Default())

	require.NoError(t, relay.drain(context.Background()))

	assert.Empty(t, repo.sent, "failed rows stay pending")
	assert.Equal(t, []int64{7}, repo.delayed)
}

func TestOutboxRelayBatchLimit(t *testing.T) {
	repo := &fakeOutboxRepo{}
	for i := int64(1); i <= 5; i++ {
		repo.pending = append(repo.pending, usecase.OutboxEvent{ID: i, Channel: "order.placed", Payload: []byte(`{}`)})
	}
	pub := &fakeRawPublisher{}
	relay := NewOutboxRelay(repo, pub, slog.Default(), WithBatchSize(3))

	require.NoError(t, relay.drain(context.Background()))
	assert.Equal(t, []int64{1, 2, 3}, repo.sent)
}
