package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campus-carpool/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationHandler processes one decoded notification. A non-nil error
// drops the message without requeue.
type NotificationHandler func(ctx context.Context, msg contracts.NotificationMessage) error

// newNotifyChannel returns a fresh channel with prefetch (QoS) applied for
// draining the notifications queue.
func (client *Client) newNotifyChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	// quick fail if no connection
	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not ready")
	}

	// open a new channel
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	// set prefetch if requested
	if prefetch < 0 {
		prefetch = 1
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("rabbitmq: set QoS (prefetch=%d): %w", prefetch, err)
		}
	}

	return ch, nil
}

// ConsumeNotifications drains the notifications queue with manual acks,
// decoding each delivery before handing it to handle. A payload that does not
// decode is a poison message: it is dropped without requeue so one bad
// publish cannot wedge the queue. Blocks until ctx is cancelled or the
// channel dies.
func (client *Client) ConsumeNotifications(
	ctx context.Context,
	consumerTag string,
	prefetch int,
	handle NotificationHandler,
) error {
	ch, err := client.newNotifyChannel(prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := ch.Consume(
		contracts.QueueNotifications,
		consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal (ignored by RabbitMQ)
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume(%s): %w", contracts.QueueNotifications, err)
	}

	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			if consumerTag != "" {
				_ = ch.Cancel(consumerTag, false)
			}
			return nil

		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq: channel closed while consuming %s: %w", contracts.QueueNotifications, cerr)
			}
			return nil

		case d, ok := <-deliveries:
			if !ok {
				// deliveries stream ended
				return nil
			}

			var msg contracts.NotificationMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				client.logger.Error(client.logCtx, "notification_decode_failed", "Dropping undecodable notification", err, map[string]any{
					"routing_key": d.RoutingKey,
					"size":        len(d.Body),
				})
				_ = d.Nack(false, false) // drop poison message
				continue
			}

			hCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := handle(hCtx, msg)
			cancel()

			if err != nil {
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
