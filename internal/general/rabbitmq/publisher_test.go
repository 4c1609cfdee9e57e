package rabbitmq

import (
	"testing"
	"time"

	"campus-carpool/internal/general/contracts"
	"campus-carpool/internal/ports"
)

func TestNotifierMessageEnvelope(t *testing.T) {
	notifier := NewNotifier(nil, "booking-service")

	before := time.Now().UTC()
	msg := notifier.message(ports.Notification{
		Kind:         ports.NotifyRequestSubmitted,
		RecipientID:  "driver-1",
		RideID:       "ride-1",
		RequestID:    "jreq-1",
		FromLocation: "North Campus",
		ToLocation:   "Airport",
		Seats:        2,
	})

	if msg.Event != string(ports.NotifyRequestSubmitted) {
		t.Fatalf("event = %q, want %q", msg.Event, ports.NotifyRequestSubmitted)
	}
	if msg.RecipientID != "driver-1" || msg.RideID != "ride-1" || msg.RequestID != "jreq-1" {
		t.Fatalf("identity fields wrong: %+v", msg)
	}
	if msg.FromLocation != "North Campus" || msg.ToLocation != "Airport" || msg.Seats != 2 {
		t.Fatalf("ride fields wrong: %+v", msg)
	}

	if msg.Producer != "booking-service" {
		t.Fatalf("producer = %q, want booking-service", msg.Producer)
	}
	if msg.CorrelationID == "" {
		t.Fatal("correlation id must be set")
	}
	if msg.SentAt.Before(before) || msg.SentAt.After(time.Now().UTC()) {
		t.Fatalf("sent_at = %v, want within test window", msg.SentAt)
	}
}

func TestNotifierMessagesGetDistinctCorrelationIDs(t *testing.T) {
	notifier := NewNotifier(nil, "expiry-service")
	n := ports.Notification{Kind: ports.NotifyRideExpired, RecipientID: "driver-1", RideID: "ride-1"}

	a := notifier.message(n)
	b := notifier.message(n)
	if a.CorrelationID == b.CorrelationID {
		t.Fatalf("correlation ids must differ, both %q", a.CorrelationID)
	}
}

func TestNotifyRoutingTargetsRecipientTopic(t *testing.T) {
	// the consumer binds notify.user.* on the topic exchange; the per-user
	// routing key must stay under that prefix
	key := contracts.RouteNotifyPrefix + "passenger-7"
	if key != "notify.user.passenger-7" {
		t.Fatalf("routing key = %q", key)
	}
}
