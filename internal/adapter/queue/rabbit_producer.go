package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lapstore/storefront-api/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "order.events"

	placedRoutingKey = "order.placed"
	placedQueueName  = "order.placed.q"

	reconcileRoutingKey = "payment.reconcile"
	reconcileQueueName  = "payment.reconcile.q"
)

// RabbitProducer implements usecase.EventPublisher
type RabbitProducer struct {
	ch *amqp.Channel
}

// NewRabbitProducer sets up the exchange, queues, and bindings once at startup.
func NewRabbitProducer(ch *amqp.Channel) (*RabbitProducer, error) {
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	for _, b := range []struct{ queue, key string }{
		{placedQueueName, placedRoutingKey},
		{reconcileQueueName, reconcileRoutingKey},
	} {
		q, err := ch.QueueDeclare(
			b.queue,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("declare queue %s: %w", b.queue, err)
		}
		if err := ch.QueueBind(q.Name, b.key, exchangeName, false, nil); err != nil {
			return nil, fmt.Errorf("bind queue %s: %w", b.queue, err)
		}
	}

	// publisher confirms so a broker outage surfaces at publish time
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitProducer{ch: ch}, nil
}

func (p *RabbitProducer) PublishReconcileTask(ctx context.Context, msg usecase.ReconcileTaskMsg) error {
	return p.publish(ctx, reconcileRoutingKey, msg)
}

// PublishRaw sends an already-encoded payload, e.g. an outbox row whose body
// was marshalled at checkout time.
func (p *RabbitProducer) PublishRaw(ctx context.Context, routingKey string, body []byte) error {
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *RabbitProducer) publish(ctx context.Context, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Body:         body,
	}

	if err := p.ch.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	return nil
}

var _ usecase.EventPublisher = (*RabbitProducer)(nil)
