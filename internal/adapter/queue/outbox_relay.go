package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/lapstore/storefront-api/internal/usecase"
)

// RawPublisher sends a pre-encoded payload under a routing key.
type RawPublisher interface {
	PublishRaw(ctx context.Context, routingKey string, body []byte) error
}

// OutboxRelay drains pending outbox rows to the broker. Rows are written in
// the checkout transaction, so a broker outage delays the fanout instead of
// losing it; a failed publish is retried after a backoff.
type OutboxRelay struct {
	out      usecase.OutboxRepo
	pub      RawPublisher
	log      *slog.Logger
	interval time.Duration
	batch    int
	retryIn  time.Duration
}

type RelayOption func(*OutboxRelay)

func WithInterval(d time.Duration) RelayOption { return func(r *OutboxRelay) { r.interval = d } }
func WithBatchSize(n int) RelayOption          { return func(r *OutboxRelay) { r.batch = n } }

// NewOutboxRelay constructs a relay. Defaults: interval=1s, batch=100, retry=30s.
func NewOutboxRelay(out usecase.OutboxRepo, pub RawPublisher, log *slog.Logger, opts ...RelayOption) *OutboxRelay {
	r := &OutboxRelay{
		out:      out,
		pub:      pub,
		log:      log,
		interval: time.Second,
		batch:    100,
		retryIn:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drains on a ticker until the context is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return
		case <-t.C:
			if err := r.drain(ctx); err != nil {
				r.log.Error("outbox drain failed", "err", err)
			}
		}
	}
}

func (r *OutboxRelay) drain(ctx context.Context) error {
	batch, err := r.out.NextBatch(ctx, r.batch)
	if err != nil {
		return err
	}
	for _, ev := range batch {
		if err := r.pub.PublishRaw(ctx, ev.Channel, ev.Payload); err != nil {
			r.log.Error("outbox publish failed",
				"id", ev.ID, "channel", ev.Channel, "retry_in", r.retryIn, "err", err)
			_ = r.out.Delay(ctx, ev.ID, r.retryIn)
			continue
		}
		if err := r.out.MarkSent(ctx, ev.ID); err != nil {
			// The row stays PENDING and will republish; consumers already
			// tolerate duplicate deliveries.
			r.log.Warn("outbox mark sent failed", "id", ev.ID, "err", err)
		}
	}
	return nil
}
