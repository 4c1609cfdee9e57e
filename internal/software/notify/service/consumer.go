package service

import (
	"context"

	"campus-carpool/internal/general/contracts"
	"campus-carpool/internal/general/logger"
	"campus-carpool/internal/general/rabbitmq"
)

// Consumer drains the notifications queue and fans each message out to the
// recipient's WebSocket connection (when connected).
type Consumer struct {
	logger   *logger.Logger
	client   *rabbitmq.Client
	hub      *Hub
	prefetch int
}

func NewConsumer(logger *logger.Logger, client *rabbitmq.Client, hub *Hub, prefetch int) *Consumer {
	if prefetch <= 0 {
		prefetch = 8
	}
	return &Consumer{logger: logger, client: client, hub: hub, prefetch: prefetch}
}

// Run blocks consuming until ctx is cancelled. Undecodable payloads are
// dropped by the queue layer before they reach handle.
func (consumer *Consumer) Run(ctx context.Context) error {
	consumer.logger.Info(ctx, "notify_consumer_started", "Notification consumer started", map[string]any{
		"queue":    contracts.QueueNotifications,
		"prefetch": consumer.prefetch,
	})

	return consumer.client.ConsumeNotifications(ctx, "notify-service", consumer.prefetch, consumer.handle)
}

// handle pushes one decoded notification to the recipient.
func (consumer *Consumer) handle(ctx context.Context, msg contracts.NotificationMessage) error {
	ctx = consumer.logger.WithRequestID(ctx, msg.CorrelationID)
	ctx = consumer.logger.WithRideID(ctx, msg.RideID)

	if err := consumer.hub.Send(msg.RecipientID, msg); err != nil {
		// connection-level write failure; the message is acked anyway since
		// in-app delivery is best-effort
		consumer.logger.Error(ctx, "ws_send_failed", "Failed to push notification to client", err, map[string]any{
			"recipient_id": msg.RecipientID,
			"event":        msg.Event,
		})
		return nil
	}

	consumer.logger.Info(ctx, "notification_delivered", "Notification pushed to client", map[string]any{
		"recipient_id": msg.RecipientID,
		"event":        msg.Event,
	})
	return nil
}
