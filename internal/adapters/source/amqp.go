package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"trip_hotel/internal/domain"
)

// ErrDeliveriesClosed is returned once the broker closes the consumer channel.
var ErrDeliveriesClosed = errors.New("amqp: deliveries channel closed")

type AMQPConfig struct {
	URL         string
	Queue       string
	Prefetch    int
	ConsumerTag string
	// Idle ends the source with io.EOF after this long without a message.
	// Zero waits until ctx is cancelled.
	Idle time.Duration
}

// AMQP consumes crawler items from a durable RabbitMQ queue with manual acks.
// Each delivery is acked after its record reaches a terminal state.
type AMQP struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
	idle       time.Duration
}

func DialAMQP(cfg AMQPConfig) (*AMQP, error) {
	if cfg.URL == "" || cfg.Queue == "" {
		return nil, fmt.Errorf("amqp: url and queue are required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	fail := func(format string, err error) (*AMQP, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf(format, err)
	}

	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			return fail("failed to set QoS: %w", err)
		}
	}
	q, err := ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fail("failed to declare queue: %w", err)
	}
	msgs, err := ch.Consume(
		q.Name,
		cfg.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fail("failed to register a consumer: %w", err)
	}

	s := newAMQP(msgs, cfg.Idle)
	s.conn, s.ch = conn, ch
	return s, nil
}

func newAMQP(deliveries <-chan amqp.Delivery, idle time.Duration) *AMQP {
	return &AMQP{deliveries: deliveries, idle: idle}
}

func (s *AMQP) Next(ctx context.Context) (domain.SourceRecord, error) {
	var idle <-chan time.Time
	if s.idle > 0 {
		t := time.NewTimer(s.idle)
		defer t.Stop()
		idle = t.C
	}

	select {
	case <-ctx.Done():
		return domain.SourceRecord{}, ctx.Err()
	case <-idle:
		return domain.SourceRecord{}, io.EOF
	case d, ok := <-s.deliveries:
		if !ok {
			return domain.SourceRecord{}, ErrDeliveriesClosed
		}
		fields, err := decodeFields(d.Body)
		if err != nil {
			err = fmt.Errorf("delivery %d: %w", d.DeliveryTag, err)
		}
		// undecodable bodies are acked too; a requeue would only loop them
		return domain.SourceRecord{
			Fields: fields,
			Err:    err,
			Ack:    func() error { return d.Ack(false) },
		}, nil
	}
}

func (s *AMQP) Close() error {
	var firstErr error
	if s.ch != nil {
		if err := s.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
