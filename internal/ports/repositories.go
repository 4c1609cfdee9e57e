package ports

import (
	"context"
	"time"

	"campus-carpool/internal/domain/request"
	"campus-carpool/internal/domain/ride"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RideFilter narrows ListActive results.
type RideFilter struct {
	From     string
	To       string
	DriverID string
	Limit    int
}

// RideRepository defines the methods for managing ride data.
//
// ReserveSeats and ReleaseSeats are the seat ledger's storage primitives:
// single conditional updates that decrement (or increment) available_seats
// and flip the FULL/ACTIVE status in the same statement, so two concurrent
// reserves can never drive the counter below zero.
type RideRepository interface {
	CreateRide(ctx context.Context, r *ride.Ride) error
	GetByID(ctx context.Context, id string) (*ride.Ride, error)
	GetByIDForUpdate(ctx context.Context, id string) (*ride.Ride, error)
	ListActive(ctx context.Context, filter RideFilter) ([]*ride.Ride, error)

	// ReserveSeats returns ride.ErrInsufficientSeats when the guard fails and
	// ride.ErrRideNotJoinable when the ride is not ACTIVE.
	ReserveSeats(ctx context.Context, rideID string, seats int) (remaining int, err error)
	ReleaseSeats(ctx context.Context, rideID string, seats int) (remaining int, err error)

	Cancel(ctx context.Context, rideID string, cancelledAt time.Time) error

	// MarkExpired is a compare-and-set on status: it reports false without
	// error when the ride is already terminal.
	MarkExpired(ctx context.Context, rideID string, expiredAt time.Time) (bool, error)
	ListExpiryCandidates(ctx context.Context, departedBefore time.Time, limit int) ([]*ride.Ride, error)

	StatusCounts(ctx context.Context) (map[ride.Status]int, error)
}

// PassengerRepository defines the methods for managing confirmed seat holders.
type PassengerRepository interface {
	Add(ctx context.Context, p *ride.Passenger) error
	GetByRideAndPassenger(ctx context.Context, rideID, passengerID string) (*ride.Passenger, error)
	ListByRide(ctx context.Context, rideID string) ([]ride.Passenger, error)

	// Remove returns the removed row so the caller can release its seats.
	Remove(ctx context.Context, rideID, passengerID string) (*ride.Passenger, error)
}

// JoinRequestRepository defines the methods for managing join request data.
// Requests are never deleted; decided rows stay behind as an audit record.
type JoinRequestRepository interface {
	// Create relies on a partial unique index over (ride_id, passenger_id)
	// WHERE status = 'PENDING' and maps its violation to
	// request.ErrDuplicateActiveRequest.
	Create(ctx context.Context, req *request.JoinRequest) error
	GetByID(ctx context.Context, id string) (*request.JoinRequest, error)
	GetByIDForUpdate(ctx context.Context, id string) (*request.JoinRequest, error)
	GetActiveForPassenger(ctx context.Context, rideID, passengerID string) (*request.JoinRequest, error)
	ListPendingByRide(ctx context.Context, rideID string) ([]*request.JoinRequest, error)
	UpdateStatus(ctx context.Context, id string, status request.Status, decidedAt time.Time) error
}

// RideEventRepository defines the methods for appending audit events.
type RideEventRepository interface {
	Append(ctx context.Context, e *ride.Event) error
}
