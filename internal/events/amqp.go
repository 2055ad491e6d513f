package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

// DefaultExchange is the durable topic exchange lead events are published to.
const DefaultExchange = "leadcrm.events"

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes lead events to RabbitMQ with persistent delivery.
type AMQPSink struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	logger   *logging.Logger
	now      func() time.Time
}

// DialAMQP connects to url and declares the exchange.
func DialAMQP(url, exchange string, logger *logging.Logger) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: amqp channel: %w", err)
	}
	sink, err := newAMQPSink(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	sink.conn = conn
	return sink, nil
}

func newAMQPSink(ch amqpChannel, exchange string, logger *logging.Logger) (*AMQPSink, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("events: declare exchange %s: %w", exchange, err)
	}
	return &AMQPSink{ch: ch, exchange: exchange, logger: logger, now: time.Now}, nil
}

// RoutingKey maps "lead-created" to "lead.created".
func RoutingKey(event string) string {
	return strings.ReplaceAll(event, "-", ".")
}

// Publish sends the event immediately.
func (s *AMQPSink) Publish(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal payload: %w", err)
	}
	return s.Handle(ctx, OutboxEntry{ID: uuid.New(), Type: event, Payload: data, CreatedAt: s.now()})
}

// Handle delivers an outbox entry; it makes the sink a DeliveryHandler.
func (s *AMQPSink) Handle(ctx context.Context, entry OutboxEntry) error {
	body, err := json.Marshal(entry.envelope())
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	err = s.ch.PublishWithContext(ctx, s.exchange, RoutingKey(entry.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    entry.ID.String(),
		Type:         entry.Type,
		Timestamp:    entry.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("events: amqp publish %s: %w", entry.Type, err)
	}
	s.logger.Debug("lead event exported", "event", entry.Type, "event_id", entry.ID)
	return nil
}

func (s *AMQPSink) Close() error {
	err := s.ch.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
