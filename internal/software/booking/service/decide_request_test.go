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

func submitRequest(t *testing.T, env *testEnv, rideID, passengerID string, seats int) string {
	t.Helper()
	result, err := env.svc.JoinByRequest(context.Background(), ports.JoinRequestInput{
		RideID:      rideID,
		PassengerID: passengerID,
		Seats:       seats,
	})
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	return result.RequestID
}

func TestDecideRequestAcceptReservesSeats(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(2*time.Hour))
	requestID := submitRequest(t, env, seeded.ID, "passenger-1", 2)

	result, err := env.svc.DecideRequest(context.Background(), ports.DecideInput{
		RequestID: requestID,
		DriverID:  "driver-1",
		Decision:  ports.DecisionAccepted,
	})
	if err != nil {
		t.Fatalf("DecideRequest: %v", err)
	}
	if result.Status != "ACCEPTED" || result.AvailableSeats != 2 {
		t.Fatalf("got status=%s seats=%d, want ACCEPTED/2", result.Status, result.AvailableSeats)
	}

	if env.rideState(seeded.ID).AvailableSeats != 2 {
		t.Fatalf("ledger not decremented on accept")
	}
	if env.passengerCount(seeded.ID) != 1 {
		t.Fatalf("accepted passenger not confirmed")
	}
	if env.requestState(requestID).Status != request.StatusAccepted {
		t.Fatalf("request not marked ACCEPTED")
	}

	accepted := env.notifier.sentOfKind(ports.NotifyRequestAccepted)
	if len(accepted) != 1 || accepted[0].RecipientID != "passenger-1" {
		t.Fatalf("accept notification missing or misdirected: %+v", accepted)
	}
}

func TestDecideRequestAcceptLastSeatsFlipsFull(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 2, false, time.Now().Add(2*time.Hour))
	requestID := submitRequest(t, env, seeded.ID, "passenger-1", 2)

	result, err := env.svc.DecideRequest(context.Background(), ports.DecideInput{
		RequestID: requestID, DriverID: "driver-1", Decision: ports.DecisionAccepted,
	})
	if err != nil {
		t.Fatalf("DecideRequest: %v", err)
	}
	if result.AvailableSeats != 0 || result.RideStatus != "FULL" {
		t.Fatalf("got seats=%d status=%s, want 0/FULL", result.AvailableSeats, result.RideStatus)
	}
}

func TestDecideRequestRejectLeavesLedgerAlone(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(2*time.Hour))
	requestID := submitRequest(t, env, seeded.ID, "passenger-1", 2)

	result, err := env.svc.DecideRequest(context.Background(), ports.DecideInput{
		RequestID: requestID, DriverID: "driver-1", Decision: ports.DecisionRejected,
	})
	if err != nil {
		t.Fatalf("DecideRequest: %v", err)
	}
	if result.Status != "REJECTED" {
		t.Fatalf("got status %s, want REJECTED", result.Status)
	}

	if env.rideState(seeded.ID).AvailableSeats != 4 {
		t.Fatalf("reject touched the ledger")
	}
	if env.passengerCount(seeded.ID) != 0 {
		t.Fatalf("reject created a passenger")
	}

	rejected := env.notifier.sentOfKind(ports.NotifyRequestRejected)
	if len(rejected) != 1 || rejected[0].RecipientID != "passenger-1" {
		t.Fatalf("reject notification missing or misdirected: %+v", rejected)
	}
}

func TestDecideRequestAcceptFailsWhenSeatsEvaporated(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, true, time.Now().Add(2*time.Hour))
	ctx := context.Background()

	// passenger-1 asks for 3 seats while 4 are free
	requestID := submitRequest(t, env, seeded.ID, "passenger-1", 3)

	// an instant booking takes 2 seats before the driver decides
	if _, err := env.svc.JoinInstant(ctx, ports.JoinInstantInput{
		RideID: seeded.ID, PassengerID: "passenger-2", Seats: 2,
	}); err != nil {
		t.Fatalf("instant join: %v", err)
	}

	_, err := env.svc.DecideRequest(ctx, ports.DecideInput{
		RequestID: requestID, DriverID: "driver-1", Decision: ports.DecisionAccepted,
	})
	if !errors.Is(err, request.ErrInsufficientSeatsAtDecision) {
		t.Fatalf("got %v, want ErrInsufficientSeatsAtDecision", err)
	}

	// the failed accept rolls back: request stays pending, ledger untouched
	if env.requestState(requestID).Status != request.StatusPending {
		t.Fatalf("request left PENDING state after failed accept")
	}
	if env.rideState(seeded.ID).AvailableSeats != 2 {
		t.Fatalf("failed accept touched the ledger")
	}

	// the driver may still reject it
	if _, err := env.svc.DecideRequest(ctx, ports.DecideInput{
		RequestID: requestID, DriverID: "driver-1", Decision: ports.DecisionRejected,
	}); err != nil {
		t.Fatalf("reject after failed accept: %v", err)
	}
}

func TestDecideRequestTerminalStatusIsFrozen(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(2*time.Hour))
	requestID := submitRequest(t, env, seeded.ID, "passenger-1", 1)
	ctx := context.Background()

	if _, err := env.svc.DecideRequest(ctx, ports.DecideInput{
		RequestID: requestID, DriverID: "driver-1", Decision: ports.DecisionAccepted,
	}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for _, decision := range []ports.Decision{ports.DecisionAccepted, ports.DecisionRejected} {
		_, err := env.svc.DecideRequest(ctx, ports.DecideInput{
			RequestID: requestID, DriverID: "driver-1", Decision: decision,
		})
		if !errors.Is(err, request.ErrAlreadyDecided) {
			t.Fatalf("re-decide %s: got %v, want ErrAlreadyDecided", decision, err)
		}
	}

	// the second decision attempts must not double-book
	if env.rideState(seeded.ID).AvailableSeats != 3 {
		t.Fatalf("re-decide touched the ledger")
	}
}

func TestDecideRequestOnlyOwningDriver(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(2*time.Hour))
	requestID := submitRequest(t, env, seeded.ID, "passenger-1", 1)

	_, err := env.svc.DecideRequest(context.Background(), ports.DecideInput{
		RequestID: requestID, DriverID: "driver-2", Decision: ports.DecisionAccepted,
	})
	if !errors.Is(err, ports.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if env.requestState(requestID).Status != request.StatusPending {
		t.Fatalf("unauthorized decide changed the request")
	}
}

func TestDecideRequestRejectsInvalidDecision(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.DecideRequest(context.Background(), ports.DecideInput{
		RequestID: "jreq-0001", DriverID: "driver-1", Decision: "MAYBE",
	})
	if !errors.Is(err, ports.ErrInvalidDecision) {
		t.Fatalf("got %v, want ErrInvalidDecision", err)
	}
}

func TestDecideRequestOnCancelledRideFails(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(2*time.Hour))
	requestID := submitRequest(t, env, seeded.ID, "passenger-1", 1)
	ctx := context.Background()

	if _, err := env.svc.CancelRide(ctx, seeded.ID, "driver-1"); err != nil {
		t.Fatalf("cancel ride: %v", err)
	}

	_, err := env.svc.DecideRequest(ctx, ports.DecideInput{
		RequestID: requestID, DriverID: "driver-1", Decision: ports.DecisionAccepted,
	})
	if !errors.Is(err, ride.ErrRideNotJoinable) {
		t.Fatalf("got %v, want ErrRideNotJoinable", err)
	}

	// cancellation leaves the pending request behind as an audit record
	if env.requestState(requestID).Status != request.StatusPending {
		t.Fatalf("ride cancellation auto-decided the request")
	}
}

func TestDecideRequestAppliesLazyExpiry(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedRide("driver-1", 4, false, time.Now().Add(2*time.Hour))
	requestID := submitRequest(t, env, seeded.ID, "passenger-1", 1)

	// move departure into the past after submission, past the grace window
	env.store.mu.Lock()
	env.store.rides[seeded.ID].DepartureTime = time.Now().Add(-90 * time.Minute).UTC()
	env.store.mu.Unlock()

	_, err := env.svc.DecideRequest(context.Background(), ports.DecideInput{
		RequestID: requestID, DriverID: "driver-1", Decision: ports.DecisionAccepted,
	})
	if !errors.Is(err, ride.ErrRideNotJoinable) {
		t.Fatalf("got %v, want ErrRideNotJoinable", err)
	}
}

func TestDecideRequestMissingRequest(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.DecideRequest(context.Background(), ports.DecideInput{
		RequestID: "no-such-request", DriverID: "driver-1", Decision: ports.DecisionAccepted,
	})
	if !errors.Is(err, request.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
