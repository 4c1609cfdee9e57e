package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-carpool/internal/domain/request"
	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/ports"
)

func TestJoinByRequestCreatesPendingRequest(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(2*time.Hour))

	result, err := env.svc.JoinByRequest(context.Background(), ports.JoinRequestInput{
		RideID:      seeded.ID,
		PassengerID: "passenger-1",
		Seats:       2,
		Message:     "two of us from the dorms",
	})
	if err != nil {
		t.Fatalf("JoinByRequest: %v", err)
	}
	if result.Status != "PENDING" || result.RequestID == "" {
		t.Fatalf("got status=%s id=%q, want PENDING with an id", result.Status, result.RequestID)
	}

	// pending requests never hold seats
	if env.rideState(seeded.ID).AvailableSeats != 4 {
		t.Fatalf("submission touched the ledger")
	}

	submitted := env.notifier.sentOfKind(ports.NotifyRequestSubmitted)
	if len(submitted) != 1 {
		t.Fatalf("got %d submit notifications, want exactly 1", len(submitted))
	}
	if submitted[0].RecipientID != "driver-1" || submitted[0].RequestID != result.RequestID {
		t.Fatalf("submit notification misdirected: %+v", submitted[0])
	}
}

func TestJoinByRequestRejectsSecondActiveRequest(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(2*time.Hour))

	if _, err := env.svc.JoinByRequest(context.Background(), ports.JoinRequestInput{
		RideID: seeded.ID, PassengerID: "passenger-1", Seats: 1,
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := env.svc.JoinByRequest(context.Background(), ports.JoinRequestInput{
		RideID: seeded.ID, PassengerID: "passenger-1", Seats: 2,
	})
	if !errors.Is(err, request.ErrDuplicateActiveRequest) {
		t.Fatalf("got %v, want ErrDuplicateActiveRequest", err)
	}
}

func TestJoinByRequestAllowsResubmitAfterRejection(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(2*time.Hour))
	ctx := context.Background()

	first, err := env.svc.JoinByRequest(ctx, ports.JoinRequestInput{
		RideID: seeded.ID, PassengerID: "passenger-1", Seats: 1,
	})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := env.svc.DecideRequest(ctx, ports.DecideInput{
		RequestID: first.RequestID, DriverID: "driver-1", Decision: ports.DecisionRejected,
	}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// the uniqueness guard only covers PENDING requests
	if _, err := env.svc.JoinByRequest(ctx, ports.JoinRequestInput{
		RideID: seeded.ID, PassengerID: "passenger-1", Seats: 1,
	}); err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
}

func TestJoinByRequestValidatesSeatsAgainstAvailability(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 2, false, time.Now().Add(2*time.Hour))

	_, err := env.svc.JoinByRequest(context.Background(), ports.JoinRequestInput{
		RideID: seeded.ID, PassengerID: "passenger-1", Seats: 3,
	})
	if !errors.Is(err, ride.ErrInsufficientSeats) {
		t.Fatalf("got %v, want ErrInsufficientSeats", err)
	}
	if env.notifier.count() != 0 {
		t.Fatalf("failed submit still notified someone")
	}
}

func TestJoinByRequestRejectsConfirmedPassenger(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, true, time.Now().Add(2*time.Hour))
	ctx := context.Background()

	if _, err := env.svc.JoinInstant(ctx, ports.JoinInstantInput{
		RideID: seeded.ID, PassengerID: "passenger-1", Seats: 1,
	}); err != nil {
		t.Fatalf("instant join: %v", err)
	}

	_, err := env.svc.JoinByRequest(ctx, ports.JoinRequestInput{
		RideID: seeded.ID, PassengerID: "passenger-1", Seats: 1,
	})
	if !errors.Is(err, ride.ErrAlreadyConfirmedPassenger) {
		t.Fatalf("got %v, want ErrAlreadyConfirmedPassenger", err)
	}
}

func TestJoinByRequestRejectsDriverAndMissingRide(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(2*time.Hour))
	ctx := context.Background()

	_, err := env.svc.JoinByRequest(ctx, ports.JoinRequestInput{
		RideID: seeded.ID, PassengerID: "driver-1", Seats: 1,
	})
	if !errors.Is(err, ports.ErrUnauthorized) {
		t.Fatalf("driver self-request: got %v, want ErrUnauthorized", err)
	}

	_, err = env.svc.JoinByRequest(ctx, ports.JoinRequestInput{
		RideID: "no-such-ride", PassengerID: "passenger-1", Seats: 1,
	})
	if !errors.Is(err, ride.ErrRideNotFound) {
		t.Fatalf("missing ride: got %v, want ErrRideNotFound", err)
	}
}

func TestJoinByRequestRejectsExpiredRide(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(-90*time.Minute))

	_, err := env.svc.JoinByRequest(context.Background(), ports.JoinRequestInput{
		RideID: seeded.ID, PassengerID: "passenger-1", Seats: 1,
	})
	if !errors.Is(err, ride.ErrRideNotJoinable) {
		t.Fatalf("got %v, want ErrRideNotJoinable", err)
	}
}
