package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const prefetch = 16

// Consumer reads from one durable queue bound to the shared exchange.
type Consumer struct {
	*session
	queue string
}

func NewConsumer(url, queue string, keys ...string) (*Consumer, error) {
	s, err := openSession(url)
	if err != nil {
		return nil, err
	}

	q, err := s.channel.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("rabbitmq queue declare %s: %w", queue, err)
	}
	for _, key := range keys {
		if err := s.channel.QueueBind(q.Name, key, ExchangeName, false, nil); err != nil {
			s.Close()
			return nil, fmt.Errorf("rabbitmq queue bind %s: %w", key, err)
		}
	}
	if err := s.channel.Qos(prefetch, 0, false); err != nil {
		s.Close()
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}

	return &Consumer{session: s, queue: q.Name}, nil
}

// Consume starts delivery with manual acks. The channel closes when ctx is done.
func (c *Consumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	// no auto-ack: the handler acks after the booking update commits
	msgs, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}
	return msgs, nil
}

func (c *Consumer) Queue() string { return c.queue }
