// Package amqppub publishes room audit events to RabbitMQ.
package amqppub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"codybuddy/internal/repository"
)

// Publisher is the RabbitMQ implementation of repository.EventPublisher.
// One connection and one channel are shared; amqp channels are not safe for concurrent
// publishing so every publish holds mu.
type Publisher struct {
	conn  *amqp.Connection
	queue string

	mu sync.Mutex
	ch *amqp.Channel
}

// NewPublisher dials the broker and declares the durable queue
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: channel open failed: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: queue declare %s failed: %w", queue, err)
	}
	logrus.WithField("queue", queue).Info("AMQP publisher connected")
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

// Publish sends the event as a persistent JSON message on the default exchange
func (p *Publisher) Publish(ctx context.Context, event repository.RoomEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("amqp: marshal event failed: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return fmt.Errorf("amqp: publish %s failed: %w", event.Type, err)
	}
	return nil
}

// Close closes the channel and the connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil && err != amqp.ErrClosed {
		logrus.WithError(err).Warn("amqp: channel close failed")
	}
	return p.conn.Close()
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

// Publish implements repository.EventPublisher
func (NoopPublisher) Publish(context.Context, repository.RoomEvent) error { return nil }
