package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campus-carpool/internal/general/contracts"
	"campus-carpool/internal/ports"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier publishes user notifications to the notify topic exchange through
// the shared Client. It implements ports.Notifier for the booking and expiry
// services; the notify service consumes the other end of the queue.
type Notifier struct {
	client   *Client
	producer string
}

// NewNotifier wraps client as a notification publisher. producer tags each
// envelope so consumers can tell booking and expiry traffic apart.
func NewNotifier(client *Client, producer string) *Notifier {
	return &Notifier{client: client, producer: producer}
}

// Notify publishes one notification, routed to the recipient's user topic
// (notify.user.<recipient_id>). Delivery is best-effort: callers log a
// failure but never roll a booking back over one.
func (notifier *Notifier) Notify(ctx context.Context, n ports.Notification) error {
	body, err := json.Marshal(notifier.message(n))
	if err != nil {
		return fmt.Errorf("notifier: marshal message: %w", err)
	}

	routingKey := contracts.RouteNotifyPrefix + n.RecipientID
	if err := notifier.client.publishConfirmed(ctx, routingKey, body); err != nil {
		return fmt.Errorf("notifier: publish %s: %w", routingKey, err)
	}

	return nil
}

// message builds the wire envelope for one notification.
func (notifier *Notifier) message(n ports.Notification) contracts.NotificationMessage {
	return contracts.NotificationMessage{
		Event:        string(n.Kind),
		RecipientID:  n.RecipientID,
		RideID:       n.RideID,
		RequestID:    n.RequestID,
		FromLocation: n.FromLocation,
		ToLocation:   n.ToLocation,
		Seats:        n.Seats,
		Envelope: contracts.Envelope{
			CorrelationID: uuid.NewString(),
			Producer:      notifier.producer,
			SentAt:        time.Now().UTC(),
		},
	}
}

// publishConfirmed sends one persistent JSON message to the notify exchange
// and waits for the broker's publisher confirm before returning.
func (client *Client) publishConfirmed(ctx context.Context, routingKey string, body []byte) error {
	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	// quick fail if no channel
	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	// one in-flight publish at a time keeps the confirm stream aligned with
	// publish order
	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ch.PublishWithContext(ctx, contracts.ExchangeNotifyTopic, routingKey, true /* mandatory */, false, /* immediate */
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	); err != nil {
		return err
	}

	select {
	case c := <-confirms:
		if !c.Ack {
			return fmt.Errorf("rabbitmq: publish not acknowledged")
		}
	case <-ctx.Done():
		// drain the confirm for the message just published so the next
		// publish does not read a stale one
		select {
		case c := <-confirms:
			if !c.Ack {
				return fmt.Errorf("rabbitmq: publish not acknowledged after timeout")
			}
		case <-time.After(2 * time.Second):
			// give up trying to read from the confirms channel
		}

		return ctx.Err()
	}

	return nil
}

// declareNotifyTopology sets up the notify exchange, the notifications queue,
// and the wildcard binding fanning user-routed messages into it. Declares are
// idempotent, so reconnects re-run this safely.
func declareNotifyTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(contracts.ExchangeNotifyTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", contracts.ExchangeNotifyTopic, err)
	}

	if _, err := ch.QueueDeclare(contracts.QueueNotifications, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", contracts.QueueNotifications, err)
	}

	if err := ch.QueueBind(contracts.QueueNotifications, contracts.RouteNotifyPrefix+"*", contracts.ExchangeNotifyTopic, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", contracts.QueueNotifications, contracts.ExchangeNotifyTopic, err)
	}

	return nil
}
