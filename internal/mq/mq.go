package mq

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher defines a minimal interface for publishing events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// RabbitPublisher publishes JSON events to a RabbitMQ topic exchange.
type RabbitPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	log      zerolog.Logger
}

func dialExchange(url, exchange string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, errors.Wrapf(err, "declare exchange %s", exchange)
	}
	return conn, ch, nil
}

// NewRabbitPublisher creates a publisher connecting to RabbitMQ.
func NewRabbitPublisher(url, exchange string, log zerolog.Logger) (*RabbitPublisher, error) {
	conn, ch, err := dialExchange(url, exchange)
	if err != nil {
		return nil, err
	}
	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange, log: log}, nil
}

// Publish serializes the payload to JSON and sends it to the exchange.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Body:         body,
	})
	return errors.Wrapf(err, "publish %s", routingKey)
}

// Close terminates the connection.
func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.log.Warn().Err(err).Msg("close publisher channel")
	}
	return p.conn.Close()
}

// ChangeBindings are the routing keys the gateway listens to for upstream
// changes.
var ChangeBindings = []string{"ticket.*", "hardware.*", "software.*", "asset.*", "user.*", "alert.*"}

// RabbitConsumer consumes change events from a queue bound to the change
// exchange.
type RabbitConsumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
	tag     string
	log     zerolog.Logger
}

// NewRabbitConsumer declares the queue, binds it to every ChangeBindings
// key and returns a consumer.
func NewRabbitConsumer(url, exchange, queue string, log zerolog.Logger) (*RabbitConsumer, error) {
	conn, ch, err := dialExchange(url, exchange)
	if err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "declare queue %s", queue)
	}
	for _, key := range ChangeBindings {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "bind %s", key)
		}
	}
	return &RabbitConsumer{
		conn:    conn,
		channel: ch,
		queue:   q.Name,
		tag:     "itamdash-" + uuid.NewString(),
		log:     log,
	}, nil
}

// Consume delivers change events to handler until ctx ends or the channel
// closes. Messages are acked when handler succeeds and dropped otherwise.
func (c *RabbitConsumer) Consume(ctx context.Context, handler func(context.Context, Event) error) error {
	deliveries, err := c.channel.Consume(c.queue, c.tag, false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "consume")
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				if err := c.channel.Cancel(c.tag, false); err != nil {
					c.log.Warn().Err(err).Msg("cancel consumer")
				}
				return
			case msg, ok := <-deliveries:
				if !ok {
					c.log.Warn().Msg("delivery channel closed")
					return
				}
				handleDelivery(ctx, c.log, msg, handler)
			}
		}
	}()
	return nil
}

func handleDelivery(ctx context.Context, log zerolog.Logger, msg amqp091.Delivery, handler func(context.Context, Event) error) {
	ev, err := DecodeEvent(msg.RoutingKey, msg.Body)
	if err == nil {
		err = handler(ctx, ev)
	}
	if err != nil {
		log.Warn().Err(err).Str("routing_key", msg.RoutingKey).Msg("drop change event")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Msg("nack")
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		log.Error().Err(ackErr).Msg("ack")
	}
}

// Close closes the consumer resources.
func (c *RabbitConsumer) Close() error {
	if c == nil {
		return nil
	}
	if err := c.channel.Close(); err != nil {
		c.log.Warn().Err(err).Msg("close consumer channel")
	}
	return c.conn.Close()
}
